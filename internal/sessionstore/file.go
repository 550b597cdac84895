package sessionstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// exportFile is the wrapped export shape, {"sessions": [...]}.
type exportFile struct {
	Sessions []models.ChatSession `json:"sessions" yaml:"sessions"`
}

// DecodeSessions parses an export in the given format. Both a bare list of
// sessions and an object with a "sessions" list are accepted.
func DecodeSessions(data []byte, format string) ([]models.ChatSession, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []models.ChatSession{}, nil
	}

	switch format {
	case FormatJSON:
		if trimmed[0] == '[' {
			var sessions []models.ChatSession
			if err := json.Unmarshal(trimmed, &sessions); err != nil {
				return nil, fmt.Errorf("failed to parse JSON sessions: %w", err)
			}
			return sessions, nil
		}
		var wrapped exportFile
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse JSON export: %w", err)
		}
		return wrapped.Sessions, nil

	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("failed to parse YAML export: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			var sessions []models.ChatSession
			if err := node.Decode(&sessions); err != nil {
				return nil, fmt.Errorf("failed to decode YAML sessions: %w", err)
			}
			return sessions, nil
		}
		var wrapped exportFile
		if err := node.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode YAML export: %w", err)
		}
		return wrapped.Sessions, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// FormatForPath infers the export format from a file name, ignoring a
// trailing .zst. It reports false for unrecognized extensions.
func FormatForPath(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".zst"))) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

var zstdDecoder, _ = zstd.NewReader(nil)

// decodeExport decompresses .zst content and parses it by extension.
func decodeExport(name string, data []byte) ([]models.ChatSession, error) {
	format, ok := FormatForPath(name)
	if !ok {
		return nil, fmt.Errorf("%s: unrecognized export extension", name)
	}
	if strings.HasSuffix(name, ".zst") {
		raw, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to decompress: %w", name, err)
		}
		data = raw
	}
	sessions, err := DecodeSessions(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return sessions, nil
}

// FileSource reads sessions from local export files.
type FileSource struct {
	Paths []string
}

// ListSessions reads every file and filters the combined set.
func (f FileSource) ListSessions(_ context.Context, q Query) ([]models.ChatSession, error) {
	var all []models.ChatSession
	for _, path := range f.Paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		sessions, err := decodeExport(path, data)
		if err != nil {
			return nil, err
		}
		all = append(all, sessions...)
	}
	return filterSessions(all, q), nil
}
