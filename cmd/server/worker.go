package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ConfabulousDev/chat-insights/internal/config"
	"github.com/ConfabulousDev/chat-insights/internal/logger"
	"github.com/ConfabulousDev/chat-insights/internal/models"
	"github.com/ConfabulousDev/chat-insights/internal/report"
)

var workerTracer = otel.Tracer("chat-insights/worker")

// scheduledRunner is the part of report.Runner the worker drives.
type scheduledRunner interface {
	CurrentWindow() models.Window
	AnalysisEnabled() bool
	RunScheduled(ctx context.Context) error
}

// Worker runs the scheduled report on a fixed interval.
type Worker struct {
	runner scheduledRunner
	config config.WorkerConfig
}

// runWorker is the entry point for the background worker process.
func runWorker() {
	logger.Info("starting report worker")

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry for worker", "error", err)
	} else {
		defer otelShutdown()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	logger.Info("worker configuration loaded",
		"poll_interval", cfg.Worker.PollInterval,
		"report_window", cfg.Report.Window,
		"timezone", cfg.Report.Location.String(),
		"dry_run", cfg.Worker.DryRun,
	)
	if cfg.Worker.DryRun {
		logger.Info("DRY-RUN MODE ENABLED - no reports will be built or sent")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := setup(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize", "error", err)
	}
	defer deps.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutdown signal received, stopping worker")
		cancel()
	}()

	worker := &Worker{runner: deps.runner, config: cfg.Worker}
	worker.Run(ctx)
	logger.Info("worker stopped")
}

// Run executes the main worker loop.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Run immediately on startup
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce executes a single report cycle.
func (w *Worker) runOnce(ctx context.Context) {
	ctx, span := workerTracer.Start(ctx, "worker.run_once")
	defer span.End()

	window := w.runner.CurrentWindow()
	span.SetAttributes(
		attribute.String("window.from", window.From.Format(time.RFC3339)),
		attribute.String("window.to", window.To.Format(time.RFC3339)),
		attribute.Bool("dry_run", w.config.DryRun),
	)

	if w.config.DryRun {
		logger.Info("[DRY-RUN] would build and send reports",
			"from", window.From,
			"to", window.To,
			"ai_report", w.runner.AnalysisEnabled(),
		)
		return
	}

	if err := w.runner.RunScheduled(ctx); err != nil {
		logger.Error("report cycle failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	logger.Info("report cycle complete")
}

var _ scheduledRunner = (*report.Runner)(nil)
