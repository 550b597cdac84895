package ratelimit

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ConfabulousDev/chat-insights/internal/logger"
)

func TestInMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows burst then denies", func(t *testing.T) {
		l := NewInMemoryRateLimiter(0.001, 3)
		defer l.Stop()

		for i := 0; i < 3; i++ {
			if !l.Allow(ctx, "a") {
				t.Fatalf("request %d denied, want allowed", i+1)
			}
		}
		if l.Allow(ctx, "a") {
			t.Error("request over burst allowed, want denied")
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := NewInMemoryRateLimiter(0.001, 1)
		defer l.Stop()

		if !l.Allow(ctx, "a") || !l.Allow(ctx, "b") {
			t.Error("first request per key should be allowed")
		}
		if l.Allow(ctx, "a") {
			t.Error("second request for a allowed, want denied")
		}
	})

	t.Run("AllowN", func(t *testing.T) {
		l := NewInMemoryRateLimiter(0.001, 5)
		defer l.Stop()

		if !l.AllowN(ctx, "a", 5) {
			t.Error("AllowN(5) denied with burst 5")
		}
		if l.AllowN(ctx, "a", 1) {
			t.Error("AllowN(1) allowed after bucket drained")
		}
	})

	t.Run("cleanup drops idle keys", func(t *testing.T) {
		l := NewInMemoryRateLimiter(1, 1)
		defer l.Stop()

		l.Allow(ctx, "old")
		if got := l.cleanupOldLimiters(time.Now().UTC()); got != 0 {
			t.Errorf("cleanup removed %d fresh keys, want 0", got)
		}
		if got := l.cleanupOldLimiters(time.Now().UTC().Add(time.Hour)); got != 1 {
			t.Errorf("cleanup removed %d keys, want 1", got)
		}
		if got := l.Stats()["active_limiters"]; got != 0 {
			t.Errorf("active_limiters = %v, want 0", got)
		}
	})

	t.Run("sweep logs stats at debug level", func(t *testing.T) {
		var buf bytes.Buffer
		restore := logger.SetOutputForTest(&buf)
		defer restore()
		logger.SetLevel(slog.LevelDebug)
		defer logger.SetLevel(slog.LevelInfo)

		l := NewInMemoryRateLimiter(1, 1)
		defer l.Stop()
		l.Allow(ctx, "idle")
		l.sweep(time.Now().UTC().Add(time.Hour))

		out := buf.String()
		if !strings.Contains(out, "rate limiter cleanup") || !strings.Contains(out, `"removed":1`) {
			t.Errorf("log output = %q, want cleanup entry with removed=1", out)
		}
		if !strings.Contains(out, `"active_limiters":0`) {
			t.Errorf("log output = %q, want stats", out)
		}
	})

	t.Run("sweep is quiet at info level", func(t *testing.T) {
		var buf bytes.Buffer
		restore := logger.SetOutputForTest(&buf)
		defer restore()

		l := NewInMemoryRateLimiter(1, 1)
		defer l.Stop()
		l.sweep(time.Now().UTC())
		if buf.Len() != 0 {
			t.Errorf("unexpected log output %q", buf.String())
		}
	})

	t.Run("stop twice", func(t *testing.T) {
		l := NewInMemoryRateLimiter(1, 1)
		l.Stop()
		l.Stop()
	})
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.168.1.100:12345", "192.168.1.100"},
		{"[2001:db8::1]:8080", "2001:db8::1"},
		{"203.0.113.7", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.remoteAddr, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if got := ClientKey(r); got != tt.want {
				t.Errorf("ClientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	l := NewInMemoryRateLimiter(0.001, 2)
	defer l.Stop()

	handler := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/reports/ai", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("status codes = %v, want %v", codes, want)
			break
		}
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/reports/ai", nil)
	r.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want %d", w.Code, http.StatusOK)
	}
}
