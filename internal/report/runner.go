// Package report fetches sessions for a time window, builds the insight and AI
// reports, and delivers them by email.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ConfabulousDev/chat-insights/internal/analytics"
	"github.com/ConfabulousDev/chat-insights/internal/conversation"
	"github.com/ConfabulousDev/chat-insights/internal/email"
	"github.com/ConfabulousDev/chat-insights/internal/insights"
	"github.com/ConfabulousDev/chat-insights/internal/logger"
	"github.com/ConfabulousDev/chat-insights/internal/models"
	"github.com/ConfabulousDev/chat-insights/internal/sessionstore"
)

var tracer = otel.Tracer("chat-insights/report")

// ErrAnalysisDisabled is returned by BuildAIReport when no analyzer is configured.
var ErrAnalysisDisabled = errors.New("AI analysis is not configured")

// BatchAnalyzer runs the per-session analysis over many sessions.
// *conversation.Analyzer satisfies it.
type BatchAnalyzer interface {
	AnalyzeMany(ctx context.Context, sessions []models.EnrichedSession) []conversation.Outcome
	Model() string
}

// Config controls report windows and delivery.
type Config struct {
	Window      time.Duration  // length of the report window, default 24h
	Location    *time.Location // timezone for hourly and daily buckets, default UTC
	MaxSessions int            // cap on sessions sent to the analyzer, 0 = no cap
	Platforms   []string       // restrict reports to these platforms
	Recipients  []string
}

// Runner builds and delivers reports. Analyzer and mailer are optional.
type Runner struct {
	source   sessionstore.Source
	analyzer BatchAnalyzer
	mailer   email.Service
	cfg      Config
	now      func() time.Time
}

// NewRunner creates a runner. Pass a nil analyzer to disable AI reports and a
// nil mailer to disable delivery.
func NewRunner(source sessionstore.Source, analyzer BatchAnalyzer, mailer email.Service, cfg Config) *Runner {
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Runner{
		source:   source,
		analyzer: analyzer,
		mailer:   mailer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// AnalysisEnabled reports whether BuildAIReport can run.
func (r *Runner) AnalysisEnabled() bool {
	return r.analyzer != nil
}

// CurrentWindow is the report window ending now.
func (r *Runner) CurrentWindow() models.Window {
	return models.WindowEnding(r.now().UTC(), r.cfg.Window)
}

// WithPlatforms returns a runner restricted to the given platforms. An empty
// list keeps the configured filter.
func (r *Runner) WithPlatforms(platforms []string) *Runner {
	if len(platforms) == 0 {
		return r
	}
	cp := *r
	cp.cfg.Platforms = platforms
	return &cp
}

// Ping checks the connections behind the session source.
func (r *Runner) Ping(ctx context.Context) error {
	return sessionstore.Ping(ctx, r.source)
}

// Session returns one session, with timestamps in the report timezone.
func (r *Runner) Session(ctx context.Context, id string) (*models.ChatSession, error) {
	cs, err := sessionstore.Lookup(ctx, r.source, id)
	if err != nil {
		return nil, err
	}
	local := cs.In(r.cfg.Location)
	return &local, nil
}

// InsightsReport is the statistics and insights for one window.
type InsightsReport struct {
	Window      models.Window        `json:"window"`
	GeneratedAt time.Time            `json:"generated_at"`
	Analytics   *analytics.Analytics `json:"analytics"`
	Previous    *analytics.Analytics `json:"previous,omitempty"`
	Insights    *insights.Insights   `json:"insights"`
}

// AIReport is the aggregated per-session analysis for one window.
type AIReport struct {
	Window models.Window        `json:"window"`
	Report *conversation.Report `json:"report"`
}

func (r *Runner) fetch(ctx context.Context, w models.Window, limit int) ([]models.ChatSession, error) {
	q := sessionstore.QueryWindow(w)
	q.Platforms = r.cfg.Platforms
	q.Limit = limit
	sessions, err := r.source.ListSessions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	return sessions, nil
}

// localize converts timestamps to the report timezone so hourly and daily
// buckets follow local time.
func (r *Runner) localize(sessions []models.ChatSession) []models.ChatSession {
	out := make([]models.ChatSession, len(sessions))
	for i, s := range sessions {
		out[i] = s.In(r.cfg.Location)
	}
	return out
}

// Analytics computes the aggregate for sessions in the report timezone.
func (r *Runner) Analytics(sessions []models.ChatSession) *analytics.Analytics {
	return analytics.ComputeFromSessions(r.localize(sessions))
}

// ComputeInsights builds an insights report from already fetched sessions.
// previous may be nil when there is no prior period to compare against.
func (r *Runner) ComputeInsights(w models.Window, current, previous []models.ChatSession) *InsightsReport {
	rep := &InsightsReport{
		Window:      w,
		GeneratedAt: r.now(),
		Analytics:   r.Analytics(current),
	}
	if previous != nil {
		rep.Previous = r.Analytics(previous)
	}
	rep.Insights = insights.Synthesize(rep.Analytics, rep.Previous)
	return rep
}

// BuildAnalytics fetches w and computes its aggregate.
func (r *Runner) BuildAnalytics(ctx context.Context, w models.Window) (*analytics.Analytics, error) {
	ctx, span := tracer.Start(ctx, "report.build_analytics")
	defer span.End()

	sessions, err := r.fetch(ctx, w, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("sessions.count", len(sessions)))
	return r.Analytics(sessions), nil
}

// BuildInsights fetches w and the window before it and compares them.
func (r *Runner) BuildInsights(ctx context.Context, w models.Window) (*InsightsReport, error) {
	ctx, span := tracer.Start(ctx, "report.build_insights",
		trace.WithAttributes(
			attribute.String("window.from", w.From.Format(time.RFC3339)),
			attribute.String("window.to", w.To.Format(time.RFC3339)),
		))
	defer span.End()

	current, err := r.fetch(ctx, w, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	previous, err := r.fetch(ctx, w.Previous(), 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if previous == nil {
		previous = []models.ChatSession{}
	}

	rep := r.ComputeInsights(w, current, previous)
	span.SetAttributes(
		attribute.Int("sessions.current", len(current)),
		attribute.Int("sessions.previous", len(previous)),
		attribute.Int("alerts.count", len(rep.Insights.Alerts)),
	)
	logger.Ctx(ctx).Info("insights report built",
		"sessions", len(current),
		"previous_sessions", len(previous),
		"alerts", len(rep.Insights.Alerts))
	return rep, nil
}

// AnalyzeSessions runs the analyzer over sessions and aggregates the
// successful analyses. Failed sessions are listed on the report.
func (r *Runner) AnalyzeSessions(ctx context.Context, sessions []models.ChatSession) (*conversation.Report, error) {
	if r.analyzer == nil {
		return nil, ErrAnalysisDisabled
	}
	if r.cfg.MaxSessions > 0 && len(sessions) > r.cfg.MaxSessions {
		sessions = sessions[:r.cfg.MaxSessions]
	}

	enriched := models.EnrichAll(r.localize(sessions))
	outcomes := r.analyzer.AnalyzeMany(ctx, enriched)
	ok, failed := conversation.Split(outcomes)

	rep := conversation.Aggregate(r.now(), ok, enriched).WithFailures(failed)
	logger.Ctx(ctx).Info("AI report built",
		"model", r.analyzer.Model(),
		"analyzed", len(ok),
		"failed", len(failed),
		"input_tokens", rep.Usage.InputTokens,
		"output_tokens", rep.Usage.OutputTokens,
		"estimated_cost_usd", rep.EstimatedCostUSD.StringFixed(4))
	return rep, nil
}

// BuildAIReport fetches w and analyzes up to MaxSessions of its sessions.
func (r *Runner) BuildAIReport(ctx context.Context, w models.Window) (*AIReport, error) {
	if r.analyzer == nil {
		return nil, ErrAnalysisDisabled
	}

	ctx, span := tracer.Start(ctx, "report.build_ai_report",
		trace.WithAttributes(
			attribute.String("window.from", w.From.Format(time.RFC3339)),
			attribute.String("window.to", w.To.Format(time.RFC3339)),
			attribute.String("model", r.analyzer.Model()),
		))
	defer span.End()

	sessions, err := r.fetch(ctx, w, r.cfg.MaxSessions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rep, err := r.AnalyzeSessions(ctx, sessions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("sessions.analyzed", rep.TotalSessions),
		attribute.Int("sessions.failed", len(rep.Failed)),
	)
	return &AIReport{Window: w, Report: rep}, nil
}

// RunScheduled builds and delivers the reports for the window ending now.
// The AI report runs only when an analyzer is configured. Failures of one
// report do not prevent the other.
func (r *Runner) RunScheduled(ctx context.Context) error {
	runID := uuid.NewString()
	ctx = logger.WithFields(ctx, "run_id", runID)
	log := logger.Ctx(ctx)

	ctx, span := tracer.Start(ctx, "report.run_scheduled",
		trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	w := r.CurrentWindow()
	log.Info("starting scheduled report run", "from", w.From, "to", w.To)

	var errs []error
	if rep, err := r.BuildInsights(ctx, w); err != nil {
		errs = append(errs, fmt.Errorf("insights report: %w", err))
	} else if err := r.DeliverInsights(ctx, rep); err != nil {
		errs = append(errs, fmt.Errorf("insights delivery: %w", err))
	}

	if r.analyzer != nil {
		if rep, err := r.BuildAIReport(ctx, w); err != nil {
			errs = append(errs, fmt.Errorf("AI report: %w", err))
		} else if err := r.DeliverAI(ctx, rep); err != nil {
			errs = append(errs, fmt.Errorf("AI report delivery: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("scheduled report run finished with errors", "error", err)
		return err
	}
	log.Info("scheduled report run complete")
	return nil
}
