package sessionstore

import (
	"context"
	"errors"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

// Pinger is implemented by sources backed by a connection, such as SQLStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Getter is implemented by sources that can fetch one session directly.
type Getter interface {
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
}

// Ping checks every connection-backed source reachable from src. Sources
// without a connection always pass.
func Ping(ctx context.Context, src Source) error {
	switch s := src.(type) {
	case MultiSource:
		var errs []error
		for _, sub := range s {
			errs = append(errs, Ping(ctx, sub))
		}
		return errors.Join(errs...)
	case Pinger:
		return s.Ping(ctx)
	}
	return nil
}

// Lookup returns the session with the given id. Sources without a direct
// lookup are listed in full. For a MultiSource the first source holding the
// id wins, matching ListSessions.
func Lookup(ctx context.Context, src Source, id string) (*models.ChatSession, error) {
	switch s := src.(type) {
	case MultiSource:
		for _, sub := range s {
			cs, err := Lookup(ctx, sub, id)
			if err == nil {
				return cs, nil
			}
			if !errors.Is(err, ErrSessionNotFound) {
				return nil, err
			}
		}
		return nil, ErrSessionNotFound
	case Getter:
		return s.GetSession(ctx, id)
	}

	sessions, err := src.ListSessions(ctx, Query{})
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}
	return nil, ErrSessionNotFound
}
