package conversation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ConfabulousDev/chat-insights/internal/anthropic"
	"github.com/ConfabulousDev/chat-insights/internal/models"
)

var tracer = otel.Tracer("chat-insights/conversation")

const (
	DefaultMaxOutputTokens    = 1024
	DefaultMaxTranscriptChars = 24000
	DefaultBatchSize          = 3
	DefaultBatchDelay         = 2 * time.Second
)

// Completer sends one request to a completion service. *anthropic.Client
// satisfies it.
type Completer interface {
	CreateMessage(ctx context.Context, req *anthropic.MessagesRequest) (*anthropic.MessagesResponse, error)
}

// AnalyzerConfig configures an Analyzer. Zero values take the defaults above.
type AnalyzerConfig struct {
	Model              string
	MaxOutputTokens    int
	MaxTranscriptChars int
	BatchSize          int
	BatchDelay         time.Duration
}

// Analyzer produces the five judgments for a session.
type Analyzer struct {
	client Completer
	cfg    AnalyzerConfig
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewAnalyzer creates an analyzer that calls client.
func NewAnalyzer(client Completer, cfg AnalyzerConfig) *Analyzer {
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if cfg.MaxTranscriptChars <= 0 {
		cfg.MaxTranscriptChars = DefaultMaxTranscriptChars
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	return &Analyzer{
		client: client,
		cfg:    cfg,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Model returns the model name used for requests.
func (a *Analyzer) Model() string { return a.cfg.Model }

// Analyze issues the five sub-requests concurrently. If any of them fails the
// whole analysis fails and no partial result is returned.
func (a *Analyzer) Analyze(ctx context.Context, s models.EnrichedSession) (*Analysis, error) {
	ctx, span := tracer.Start(ctx, "conversation.analyze",
		trace.WithAttributes(
			attribute.String("session.id", s.ID),
			attribute.Int("session.message_count", len(s.Messages)),
			attribute.String("llm.model", a.cfg.Model),
		))
	defer span.End()

	if len(s.Messages) == 0 {
		span.SetStatus(codes.Error, ErrEmptyTranscript.Error())
		return nil, fmt.Errorf("session %s: %w", s.ID, ErrEmptyTranscript)
	}

	var (
		first    FirstRequest
		flow     Flow
		ending   Ending
		improves struct {
			Improvements []Improvement `json:"improvements"`
		}
		problems struct {
			ProblemTypes []ProblemType `json:"problem_types"`
		}
		usage [5]anthropic.Usage
	)

	limit := a.cfg.MaxTranscriptChars
	calls := []struct {
		name     judgment
		prompt   string
		target   any
		required []string
	}{
		{judgmentFirstRequest, firstRequestPrompt(s, limit), &first, []string{"intent", "clarity_score"}},
		{judgmentFlow, flowPrompt(s, limit), &flow, []string{"satisfaction_trend", "quality_score"}},
		{judgmentEnding, endingPrompt(s, limit), &ending, []string{"resolution", "ended_by"}},
		{judgmentImprovements, improvementsPrompt(s, limit), &improves, []string{"improvements"}},
		{judgmentProblemTypes, problemTypesPrompt(s, limit), &problems, []string{"problem_types"}},
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			u, err := a.complete(gctx, call.prompt, call.target, call.required...)
			if err != nil {
				return fmt.Errorf("%s: %w", call.name, err)
			}
			usage[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("session %s: %w", s.ID, err)
	}

	flow.TotalMessages = len(s.Messages)
	flow.UserMessages = s.UserMessages
	flow.BotMessages = s.BotMessages

	result := &Analysis{
		SessionID:    s.ID,
		AnalyzedAt:   a.now().UTC(),
		Model:        a.cfg.Model,
		FirstRequest: first,
		Flow:         flow,
		Ending:       ending,
		Improvements: improves.Improvements,
		ProblemTypes: problems.ProblemTypes,
	}
	for _, u := range usage {
		result.Usage = result.Usage.Add(u)
	}
	normalize(result)

	span.SetAttributes(
		attribute.Int("llm.tokens.input", result.Usage.InputTokens),
		attribute.Int("llm.tokens.output", result.Usage.OutputTokens),
	)
	return result, nil
}

func (a *Analyzer) complete(ctx context.Context, prompt string, target any, required ...string) (anthropic.Usage, error) {
	resp, err := a.client.CreateMessage(ctx, &anthropic.MessagesRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxOutputTokens,
		Temperature: anthropic.Float(0),
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return anthropic.Usage{}, err
	}
	if err := decodeJSON(resp.GetTextContent(), target, required...); err != nil {
		return anthropic.Usage{}, err
	}
	return resp.Usage, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
