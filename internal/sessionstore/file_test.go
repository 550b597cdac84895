package sessionstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path   string
		format string
		ok     bool
	}{
		{"sessions.json", FormatJSON, true},
		{"exports/2026-03-02.JSON", FormatJSON, true},
		{"sessions.yaml", FormatYAML, true},
		{"sessions.yml.zst", FormatYAML, true},
		{"sessions.json.zst", FormatJSON, true},
		{"sessions.csv", "", false},
		{"sessions.zst", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, ok := FormatForPath(tt.path)
			if format != tt.format || ok != tt.ok {
				t.Errorf("FormatForPath(%q) = (%q, %v), want (%q, %v)", tt.path, format, ok, tt.format, tt.ok)
			}
		})
	}
}

const yamlExport = `
sessions:
  - id: y1
    created_at: 2026-03-02T09:00:00Z
    platform: android
    first_query: refund please
    message_count: 1
    user_queries: [refund please]
    feedback:
      resolved: true
      rating: 4
    messages:
      - timestamp: 2026-03-02T09:00:00Z
        content: refund please
        is_user: true
        length: 13
`

func TestDecodeSessions(t *testing.T) {
	bare, err := json.Marshal([]models.ChatSession{testSession("j1", t0, "ios")})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("json list", func(t *testing.T) {
		got, err := DecodeSessions(bare, FormatJSON)
		if err != nil {
			t.Fatalf("DecodeSessions() error = %v", err)
		}
		equalIDs(t, got, "j1")
		if len(got[0].Messages) != 2 {
			t.Errorf("len(Messages) = %d, want 2", len(got[0].Messages))
		}
	})

	t.Run("json wrapped", func(t *testing.T) {
		wrapped := `{"sessions":` + string(bare) + `}`
		got, err := DecodeSessions([]byte(wrapped), FormatJSON)
		if err != nil {
			t.Fatalf("DecodeSessions() error = %v", err)
		}
		equalIDs(t, got, "j1")
	})

	t.Run("yaml wrapped", func(t *testing.T) {
		got, err := DecodeSessions([]byte(yamlExport), FormatYAML)
		if err != nil {
			t.Fatalf("DecodeSessions() error = %v", err)
		}
		equalIDs(t, got, "y1")
		if got[0].Feedback.Resolved == nil || !*got[0].Feedback.Resolved {
			t.Errorf("Feedback.Resolved = %v, want true", got[0].Feedback.Resolved)
		}
		if got[0].Feedback.Rating != 4 {
			t.Errorf("Feedback.Rating = %d, want 4", got[0].Feedback.Rating)
		}
		if !got[0].CreatedAt.Equal(t0) {
			t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, t0)
		}
	})

	t.Run("yaml list", func(t *testing.T) {
		list := "- id: a\n  platform: web\n- id: b\n  platform: web\n"
		got, err := DecodeSessions([]byte(list), FormatYAML)
		if err != nil {
			t.Fatalf("DecodeSessions() error = %v", err)
		}
		equalIDs(t, got, "a", "b")
	})

	t.Run("empty", func(t *testing.T) {
		got, err := DecodeSessions([]byte("  \n"), FormatJSON)
		if err != nil || len(got) != 0 {
			t.Errorf("DecodeSessions(empty) = %v, %v, want empty, nil", got, err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := DecodeSessions([]byte("[{"), FormatJSON); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := DecodeSessions(bare, "csv")
		if err == nil || !strings.Contains(err.Error(), "unsupported") {
			t.Errorf("error = %v, want unsupported format", err)
		}
	})
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	plain, _ := json.Marshal([]models.ChatSession{testSession("f1", t0, "ios")})
	jsonPath := filepath.Join(dir, "a.json")
	if err := os.WriteFile(jsonPath, plain, 0o644); err != nil {
		t.Fatal(err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := enc.EncodeAll([]byte(yamlExport), nil)
	enc.Close()
	zstPath := filepath.Join(dir, "b.yaml.zst")
	if err := os.WriteFile(zstPath, compressed, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("reads and merges", func(t *testing.T) {
		src := FileSource{Paths: []string{jsonPath, zstPath}}
		got, err := src.ListSessions(context.Background(), Query{})
		if err != nil {
			t.Fatalf("ListSessions() error = %v", err)
		}
		equalIDs(t, got, "f1", "y1")
	})

	t.Run("filters", func(t *testing.T) {
		src := FileSource{Paths: []string{jsonPath, zstPath}}
		got, _ := src.ListSessions(context.Background(), Query{Platforms: []string{"android"}})
		equalIDs(t, got, "y1")
	})

	t.Run("missing file", func(t *testing.T) {
		src := FileSource{Paths: []string{filepath.Join(dir, "missing.json")}}
		if _, err := src.ListSessions(context.Background(), Query{}); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
