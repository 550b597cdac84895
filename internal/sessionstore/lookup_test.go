package sessionstore

import (
	"context"
	"errors"
	"testing"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

// connSource is a connection-backed source with a direct lookup.
type connSource struct {
	StaticSource
	pingErr error
	gets    int
}

func (c *connSource) Ping(context.Context) error { return c.pingErr }

func (c *connSource) GetSession(_ context.Context, id string) (*models.ChatSession, error) {
	c.gets++
	for i := range c.StaticSource {
		if c.StaticSource[i].ID == id {
			return &c.StaticSource[i], nil
		}
	}
	return nil, ErrSessionNotFound
}

func TestPing(t *testing.T) {
	down := errors.New("connection refused")

	tests := []struct {
		name    string
		src     Source
		wantErr error
	}{
		{"static source always passes", StaticSource{}, nil},
		{"healthy connection", &connSource{}, nil},
		{"failed connection", &connSource{pingErr: down}, down},
		{"failure inside multi source", MultiSource{StaticSource{}, &connSource{pingErr: down}}, down},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Ping(context.Background(), tt.src)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Ping() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Ping() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	listed := StaticSource{testSession("listed", t0, "web")}
	direct := &connSource{StaticSource: StaticSource{testSession("direct", t0, "ios")}}

	t.Run("falls back to listing", func(t *testing.T) {
		got, err := Lookup(ctx, listed, "listed")
		if err != nil || got.ID != "listed" {
			t.Fatalf("Lookup() = %v, %v", got, err)
		}
	})

	t.Run("uses direct lookup", func(t *testing.T) {
		got, err := Lookup(ctx, direct, "direct")
		if err != nil || got.Platform != "ios" {
			t.Fatalf("Lookup() = %v, %v", got, err)
		}
		if direct.gets == 0 {
			t.Error("GetSession was not called")
		}
	})

	t.Run("multi source searches in order", func(t *testing.T) {
		got, err := Lookup(ctx, MultiSource{listed, direct}, "direct")
		if err != nil || got.ID != "direct" {
			t.Fatalf("Lookup() = %v, %v", got, err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := Lookup(ctx, MultiSource{listed, direct}, "nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("source error", func(t *testing.T) {
		boom := errors.New("list failed")
		if _, err := Lookup(ctx, MultiSource{failingSource{err: boom}}, "x"); !errors.Is(err, boom) {
			t.Errorf("err = %v, want %v", err, boom)
		}
	})
}
