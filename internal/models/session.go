// Package models defines the chat session records consumed by the analytics pipeline.
package models

import "time"

// ChatMessage is one message in a support chat session.
type ChatMessage struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Content   string    `json:"content" yaml:"content"`
	IsUser    bool      `json:"is_user" yaml:"is_user"`
	Action    string    `json:"action,omitempty" yaml:"action,omitempty"`
	Length    int       `json:"length" yaml:"length"`
	HasLink   bool      `json:"has_link" yaml:"has_link"`
	HasAction bool      `json:"has_action" yaml:"has_action"`
	Platform  string    `json:"platform,omitempty" yaml:"platform,omitempty"`
	Language  string    `json:"language,omitempty" yaml:"language,omitempty"`
}

// AppMetadata describes the client application that opened the session.
type AppMetadata struct {
	AppVersion  string `json:"app_version,omitempty" yaml:"app_version,omitempty"`
	DeviceModel string `json:"device_model,omitempty" yaml:"device_model,omitempty"`
	OSVersion   string `json:"os_version,omitempty" yaml:"os_version,omitempty"`
}

// Feedback is the optional end-of-chat feedback recorded by the support widget.
// A nil Resolved or a zero Rating means the user gave no answer.
type Feedback struct {
	Resolved *bool  `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Rating   int    `json:"rating,omitempty" yaml:"rating,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// ChatSession is a support chat session as stored by the document store.
// Messages are ordered by timestamp and never mutated after fetch.
type ChatSession struct {
	ID              string        `json:"id" yaml:"id"`
	CreatedAt       time.Time     `json:"created_at" yaml:"created_at"`
	LastMessageAt   time.Time     `json:"last_message_at" yaml:"last_message_at"`
	Platform        string        `json:"platform" yaml:"platform"`
	FirstQuery      string        `json:"first_query" yaml:"first_query"`
	MessageCount    int           `json:"message_count" yaml:"message_count"`
	UserQueries     []string      `json:"user_queries" yaml:"user_queries"`
	DurationSeconds float64       `json:"duration_seconds" yaml:"duration_seconds"`
	App             AppMetadata   `json:"app" yaml:"app"`
	Feedback        Feedback      `json:"feedback" yaml:"feedback"`
	Messages        []ChatMessage `json:"messages" yaml:"messages"`
}

// EnrichedSession is a ChatSession plus counters derived once at enrichment time.
type EnrichedSession struct {
	ChatSession

	UserMessages     int     `json:"user_messages"`
	BotMessages      int     `json:"bot_messages"`
	TotalCharacters  int     `json:"total_characters"`
	UniqueQueries    int     `json:"unique_queries"`
	AvgMessageLength float64 `json:"avg_message_length"`
	DurationMinutes  float64 `json:"duration_minutes"`
}

// Enrich computes the derived counters for a session.
func Enrich(s ChatSession) EnrichedSession {
	e := EnrichedSession{ChatSession: s}

	for _, m := range s.Messages {
		if m.IsUser {
			e.UserMessages++
		} else {
			e.BotMessages++
		}
		e.TotalCharacters += m.MessageLength()
	}
	if len(s.Messages) > 0 {
		e.AvgMessageLength = float64(e.TotalCharacters) / float64(len(s.Messages))
	}

	seen := make(map[string]bool, len(s.UserQueries))
	for _, q := range s.UserQueries {
		seen[q] = true
	}
	e.UniqueQueries = len(seen)

	e.DurationMinutes = s.Duration().Minutes()
	return e
}

// EnrichAll enriches each session in order.
func EnrichAll(sessions []ChatSession) []EnrichedSession {
	out := make([]EnrichedSession, len(sessions))
	for i, s := range sessions {
		out[i] = Enrich(s)
	}
	return out
}

// MessageLength returns the stored length, or the rune count of the content when
// the store did not record one.
func (m ChatMessage) MessageLength() int {
	if m.Length > 0 {
		return m.Length
	}
	return len([]rune(m.Content))
}

// Duration returns the recorded session duration, falling back to the span
// between creation and the last message.
func (s ChatSession) Duration() time.Duration {
	if s.DurationSeconds > 0 {
		return time.Duration(s.DurationSeconds * float64(time.Second))
	}
	if !s.CreatedAt.IsZero() && s.LastMessageAt.After(s.CreatedAt) {
		return s.LastMessageAt.Sub(s.CreatedAt)
	}
	return 0
}

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// WindowEnding returns the window of length d that ends at end.
func WindowEnding(end time.Time, d time.Duration) Window {
	return Window{From: end.Add(-d), To: end}
}

// Previous returns the window of equal length immediately before w.
func (w Window) Previous() Window {
	d := w.To.Sub(w.From)
	return Window{From: w.From.Add(-d), To: w.From}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// In returns a copy of the session with every timestamp expressed in loc.
// The receiver's messages are not modified.
func (s ChatSession) In(loc *time.Location) ChatSession {
	if loc == nil {
		return s
	}
	out := s
	out.CreatedAt = s.CreatedAt.In(loc)
	out.LastMessageAt = s.LastMessageAt.In(loc)
	out.Messages = make([]ChatMessage, len(s.Messages))
	for i, m := range s.Messages {
		m.Timestamp = m.Timestamp.In(loc)
		out.Messages[i] = m
	}
	return out
}

// SpanOf is the smallest window holding every session's creation time.
func SpanOf(sessions []ChatSession) Window {
	var w Window
	for _, cs := range sessions {
		if cs.CreatedAt.IsZero() {
			continue
		}
		if w.From.IsZero() || cs.CreatedAt.Before(w.From) {
			w.From = cs.CreatedAt
		}
		if end := cs.CreatedAt.Add(time.Nanosecond); end.After(w.To) {
			w.To = end
		}
	}
	return w
}
