package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSON unmarshals the outermost JSON object in content into v. Models
// sometimes wrap JSON in prose or code fences. Every key in required must be
// present and non-null.
func decodeJSON(content string, v any, required ...string) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return ErrNoJSON
	}
	raw := []byte(content[start : end+1])

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	var missing []string
	for _, key := range required {
		if val, ok := fields[key]; !ok || string(val) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingKeys, strings.Join(missing, ", "))
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func clampScore(v int) int {
	return min(max(v, 0), 100)
}

func normalize(a *Analysis) {
	a.FirstRequest.ClarityScore = clampScore(a.FirstRequest.ClarityScore)
	a.Flow.QualityScore = clampScore(a.Flow.QualityScore)
	if a.Flow.TopicChanges < 0 {
		a.Flow.TopicChanges = 0
	}
	for i := range a.Improvements {
		a.Improvements[i].Priority = strings.ToLower(strings.TrimSpace(a.Improvements[i].Priority))
	}
	if a.Improvements == nil {
		a.Improvements = []Improvement{}
	}
	if a.ProblemTypes == nil {
		a.ProblemTypes = []ProblemType{}
	}
}
