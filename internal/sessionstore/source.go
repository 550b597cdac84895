// Package sessionstore fetches chat sessions from the document stores the
// support widget writes to: a SQL database, S3 exports or local files.
package sessionstore

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

// ErrSessionNotFound is returned when a session id is not in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoCreationTime is returned when saving a session that has neither a
// creation time nor any timestamped message.
var ErrNoCreationTime = errors.New("session has no creation time")

// Query selects sessions by creation time and platform. A zero From or To
// leaves that side unbounded; an empty Platforms matches every platform.
type Query struct {
	From      time.Time
	To        time.Time
	Platforms []string
	Limit     int
}

// QueryWindow returns a query for sessions created inside w.
func QueryWindow(w models.Window) Query {
	return Query{From: w.From, To: w.To}
}

// Matches reports whether s satisfies the time and platform filters.
func (q Query) Matches(s *models.ChatSession) bool {
	if !q.From.IsZero() && s.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !s.CreatedAt.Before(q.To) {
		return false
	}
	if len(q.Platforms) > 0 && !slices.Contains(q.Platforms, s.Platform) {
		return false
	}
	return true
}

// Source lists sessions. Results are ordered by creation time, then id.
type Source interface {
	ListSessions(ctx context.Context, q Query) ([]models.ChatSession, error)
}

// filterSessions applies q to an in-memory set, for sources that cannot filter
// server-side.
func filterSessions(all []models.ChatSession, q Query) []models.ChatSession {
	out := make([]models.ChatSession, 0, len(all))
	for i := range all {
		if q.Matches(&all[i]) {
			out = append(out, all[i])
		}
	}
	sortSessions(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func sortSessions(s []models.ChatSession) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.Before(s[j].CreatedAt)
		}
		return s[i].ID < s[j].ID
	})
}

// MultiSource merges several sources. When two sources return the same
// session id, the earlier source wins.
type MultiSource []Source

// ListSessions queries every source in order.
func (m MultiSource) ListSessions(ctx context.Context, q Query) ([]models.ChatSession, error) {
	seen := map[string]bool{}
	var all []models.ChatSession
	for _, src := range m {
		sessions, err := src.ListSessions(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			all = append(all, s)
		}
	}
	return filterSessions(all, q), nil
}

// StaticSource serves a fixed set of sessions.
type StaticSource []models.ChatSession

// ListSessions filters the fixed set.
func (s StaticSource) ListSessions(_ context.Context, q Query) ([]models.ChatSession, error) {
	return filterSessions(s, q), nil
}
