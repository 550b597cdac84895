package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetOutputForTest(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTest(&buf)
	defer restore()

	Info("report delivered", "recipients", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "report delivered" {
		t.Errorf("msg = %v, want %q", entry["msg"], "report delivered")
	}
	if entry["recipients"] != float64(2) {
		t.Errorf("recipients = %v, want 2", entry["recipients"])
	}
}

func TestCtx(t *testing.T) {
	t.Run("falls back to default logger", func(t *testing.T) {
		if Ctx(context.Background()) != slog.Default() {
			t.Error("expected default logger for empty context")
		}
	})

	t.Run("returns enriched logger", func(t *testing.T) {
		var buf bytes.Buffer
		restore := SetOutputForTest(&buf)
		defer restore()

		ctx := WithFields(context.Background(), "run_id", "abc")
		Ctx(ctx).Info("hello")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("log output is not JSON: %v", err)
		}
		if entry["run_id"] != "abc" {
			t.Errorf("run_id = %v, want abc", entry["run_id"])
		}
	})
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTest(&buf)
	defer restore()

	handler := middleware.RequestID(Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Ctx(r.Context()).Info("in handler")
	})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["req_id"] == nil || entry["req_id"] == "" {
		t.Error("expected req_id on request-scoped logger")
	}
}
