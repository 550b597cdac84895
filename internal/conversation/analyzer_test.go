package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ConfabulousDev/chat-insights/internal/anthropic"
	"github.com/ConfabulousDev/chat-insights/internal/models"
)

// fakeCompleter answers each sub-request based on the prompt it receives.
type fakeCompleter struct {
	mu       sync.Mutex
	requests []*anthropic.MessagesRequest
	respond  func(prompt string) (string, error)
}

func (f *fakeCompleter) CreateMessage(ctx context.Context, req *anthropic.MessagesRequest) (*anthropic.MessagesResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	text, err := f.respond(req.Messages[0].Content)
	if err != nil {
		return nil, err
	}
	return &anthropic.MessagesResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.Usage{InputTokens: 100, OutputTokens: 20},
	}, nil
}

func cannedResponse(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Classify the user's first request"):
		return "Here you go:\n```json\n" + `{"intent":"password reset","category":"account","urgency":"high","sentiment":"negative","clarity_score":140,"needs_clarification":false}` + "\n```", nil
	case strings.Contains(prompt, "Evaluate how this support chat progressed"):
		return `{"topic_changes":1,"satisfaction_trend":"improving","key_topics":["login"],"quality_score":75,"misunderstandings":[]}`, nil
	case strings.Contains(prompt, "Classify how this support chat ended"):
		return `{"ended_by":"user","resolution":"resolved","final_sentiment":"positive","last_user_message":"thanks","reason":"issue fixed","follow_up_needed":false}`, nil
	case strings.Contains(prompt, "Suggest concrete improvements"):
		return `{"improvements":[{"category":"flow","issue":"asked for email twice","suggestion":"remember the email","priority":"High","examples":["what is your email?"]}]}`, nil
	case strings.Contains(prompt, "Tag the problems"):
		return `{"problem_types":[{"type":"login_failure","description":"cannot log in","severity":"high","examples":["I cannot login"]}]}`, nil
	}
	return "", fmt.Errorf("unexpected prompt: %.40s", prompt)
}

var t0 = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func session(id string, contents ...string) models.EnrichedSession {
	s := models.ChatSession{ID: id, CreatedAt: t0, Platform: "web"}
	for i, c := range contents {
		s.Messages = append(s.Messages, models.ChatMessage{
			Timestamp: t0.Add(time.Duration(i) * time.Second),
			Content:   c,
			IsUser:    i%2 == 0,
		})
	}
	return models.Enrich(s)
}

func TestAnalyze(t *testing.T) {
	fake := &fakeCompleter{respond: cannedResponse}
	a := NewAnalyzer(fake, AnalyzerConfig{Model: "claude-haiku-4-5-20251001"})
	a.now = func() time.Time { return t0 }

	got, err := a.Analyze(context.Background(), session("s1", "I cannot login", "Try resetting", "thanks"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(fake.requests) != 5 {
		t.Errorf("requests = %d, want 5", len(fake.requests))
	}
	for _, req := range fake.requests {
		if req.Temperature == nil || *req.Temperature != 0 {
			t.Errorf("temperature = %v, want 0", req.Temperature)
		}
		if req.Model != "claude-haiku-4-5-20251001" || req.MaxTokens != DefaultMaxOutputTokens {
			t.Errorf("request model/max_tokens = %s/%d", req.Model, req.MaxTokens)
		}
	}

	if got.SessionID != "s1" || !got.AnalyzedAt.Equal(t0) {
		t.Errorf("SessionID/AnalyzedAt = %s/%v", got.SessionID, got.AnalyzedAt)
	}
	if got.FirstRequest.Intent != "password reset" {
		t.Errorf("Intent = %q", got.FirstRequest.Intent)
	}
	if got.FirstRequest.ClarityScore != 100 {
		t.Errorf("ClarityScore = %d, want clamped 100", got.FirstRequest.ClarityScore)
	}
	if got.Flow.TotalMessages != 3 || got.Flow.UserMessages != 2 || got.Flow.BotMessages != 1 {
		t.Errorf("Flow counts = %d/%d/%d, want 3/2/1", got.Flow.TotalMessages, got.Flow.UserMessages, got.Flow.BotMessages)
	}
	if got.Ending.Resolution != "resolved" || got.Ending.EndedBy != "user" {
		t.Errorf("Ending = %+v", got.Ending)
	}
	if len(got.Improvements) != 1 || got.Improvements[0].Priority != "high" {
		t.Errorf("Improvements = %+v", got.Improvements)
	}
	if len(got.ProblemTypes) != 1 || got.ProblemTypes[0].Type != "login_failure" {
		t.Errorf("ProblemTypes = %+v", got.ProblemTypes)
	}
	if got.Usage.InputTokens != 500 || got.Usage.OutputTokens != 100 {
		t.Errorf("Usage = %+v, want 500/100", got.Usage)
	}
}

func TestAnalyze_FailFast(t *testing.T) {
	boom := errors.New("service unavailable")
	fake := &fakeCompleter{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Tag the problems") {
			return "", boom
		}
		return cannedResponse(prompt)
	}}
	a := NewAnalyzer(fake, AnalyzerConfig{Model: "m"})

	got, err := a.Analyze(context.Background(), session("s1", "hi", "hello"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if got != nil {
		t.Errorf("expected no partial analysis, got %+v", got)
	}
	if !strings.Contains(err.Error(), "problem_types") || !strings.Contains(err.Error(), "s1") {
		t.Errorf("error should name the sub-call and session: %v", err)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	t.Run("empty transcript", func(t *testing.T) {
		a := NewAnalyzer(&fakeCompleter{respond: cannedResponse}, AnalyzerConfig{})
		_, err := a.Analyze(context.Background(), session("empty"))
		if !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("err = %v, want ErrEmptyTranscript", err)
		}
	})

	t.Run("no JSON in response", func(t *testing.T) {
		a := NewAnalyzer(&fakeCompleter{respond: func(string) (string, error) {
			return "I'm sorry, I can't help with that.", nil
		}}, AnalyzerConfig{})
		_, err := a.Analyze(context.Background(), session("s", "hi"))
		if !errors.Is(err, ErrNoJSON) {
			t.Errorf("err = %v, want ErrNoJSON", err)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		a := NewAnalyzer(&fakeCompleter{respond: func(string) (string, error) {
			return `{"intent": }`, nil
		}}, AnalyzerConfig{})
		_, err := a.Analyze(context.Background(), session("s", "hi"))
		if err == nil || !strings.Contains(err.Error(), "failed to parse JSON") {
			t.Errorf("err = %v, want parse failure", err)
		}
	})
}

func TestAnalyze_MissingKeys(t *testing.T) {
	t.Run("unexpected shape for every judgment", func(t *testing.T) {
		a := NewAnalyzer(&fakeCompleter{respond: func(string) (string, error) {
			return `{"unexpected": "shape"}`, nil
		}}, AnalyzerConfig{Model: "m"})
		got, err := a.Analyze(context.Background(), session("s1", "hi", "hello"))
		if !errors.Is(err, ErrMissingKeys) {
			t.Fatalf("err = %v, want ErrMissingKeys", err)
		}
		if got != nil {
			t.Errorf("expected no analysis, got %+v", got)
		}
	})

	t.Run("one judgment missing a key", func(t *testing.T) {
		a := NewAnalyzer(&fakeCompleter{respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, "Classify how this support chat ended") {
				return `{"ended_by":"user","reason":"left"}`, nil
			}
			return cannedResponse(prompt)
		}}, AnalyzerConfig{Model: "m"})
		_, err := a.Analyze(context.Background(), session("s1", "hi", "hello"))
		if !errors.Is(err, ErrMissingKeys) {
			t.Fatalf("err = %v, want ErrMissingKeys", err)
		}
		if !strings.Contains(err.Error(), "resolution") {
			t.Errorf("error should name the missing key: %v", err)
		}
	})

	t.Run("null counts as missing", func(t *testing.T) {
		a := NewAnalyzer(&fakeCompleter{respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, "Tag the problems") {
				return `{"problem_types": null}`, nil
			}
			return cannedResponse(prompt)
		}}, AnalyzerConfig{Model: "m"})
		_, err := a.Analyze(context.Background(), session("s1", "hi", "hello"))
		if !errors.Is(err, ErrMissingKeys) {
			t.Fatalf("err = %v, want ErrMissingKeys", err)
		}
	})
}

func TestAnalyzeMany(t *testing.T) {
	fake := &fakeCompleter{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "POISON") {
			return "", errors.New("upstream 500")
		}
		return cannedResponse(prompt)
	}}
	a := NewAnalyzer(fake, AnalyzerConfig{Model: "m", BatchSize: 3, BatchDelay: time.Minute})
	var sleeps []time.Duration
	a.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	var sessions []models.EnrichedSession
	for i := range 7 {
		msg := "hello"
		if i == 4 {
			msg = "POISON"
		}
		sessions = append(sessions, session(fmt.Sprintf("s%d", i), msg, "reply"))
	}

	outcomes := a.AnalyzeMany(context.Background(), sessions)
	if len(outcomes) != 7 {
		t.Fatalf("len(outcomes) = %d, want 7", len(outcomes))
	}
	if len(sleeps) != 2 || sleeps[0] != time.Minute {
		t.Errorf("sleeps = %v, want two pauses of 1m", sleeps)
	}
	for i, o := range outcomes {
		if o.SessionID != sessions[i].ID {
			t.Errorf("outcomes[%d].SessionID = %s, want %s", i, o.SessionID, sessions[i].ID)
		}
		if wantErr := i == 4; (o.Err != nil) != wantErr {
			t.Errorf("outcomes[%d].Err = %v", i, o.Err)
		}
	}

	ok, failed := Split(outcomes)
	if len(ok) != 6 || len(failed) != 1 || failed[0].SessionID != "s4" {
		t.Errorf("Split = %d ok, %+v failed", len(ok), failed)
	}
}

func TestAnalyzeMany_Cancelled(t *testing.T) {
	a := NewAnalyzer(&fakeCompleter{respond: cannedResponse}, AnalyzerConfig{Model: "m", BatchSize: 2})
	a.sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }

	sessions := []models.EnrichedSession{
		session("a", "hi", "yo"), session("b", "hi", "yo"), session("c", "hi", "yo"),
	}
	outcomes := a.AnalyzeMany(context.Background(), sessions)
	if outcomes[0].Err != nil || outcomes[1].Err != nil {
		t.Errorf("first batch should succeed: %+v", outcomes[:2])
	}
	if !errors.Is(outcomes[2].Err, context.Canceled) {
		t.Errorf("outcomes[2].Err = %v, want context.Canceled", outcomes[2].Err)
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	if err := decodeJSON("prefix {\"a\": 3} suffix", &v); err != nil || v.A != 3 {
		t.Errorf("decodeJSON = %v, a=%d", err, v.A)
	}
	if err := decodeJSON("} backwards {", &v); !errors.Is(err, ErrNoJSON) {
		t.Errorf("err = %v, want ErrNoJSON", err)
	}
	if err := decodeJSON(`{"b": 1}`, &v, "a", "b"); !errors.Is(err, ErrMissingKeys) {
		t.Errorf("err = %v, want ErrMissingKeys", err)
	}
	if err := decodeJSON(`{"a": 0}`, &v, "a"); err != nil {
		t.Errorf("zero value should satisfy a required key: %v", err)
	}
}

func TestFormatTranscript(t *testing.T) {
	s := session("s", strings.Repeat("a", 1500), "short")
	out := formatTranscript(s.Messages, 0)
	if !strings.HasPrefix(out, "[User] ") || !strings.Contains(out, "...[truncated]\n[Bot] short") {
		t.Errorf("unexpected transcript: %.80q", out)
	}

	capped := formatTranscript(s.Messages, 200)
	if !strings.Contains(capped, "[transcript truncated]") {
		t.Errorf("expected whole-transcript truncation, got %.80q", capped)
	}
}
