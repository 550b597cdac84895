package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ConfabulousDev/chat-insights/internal/anthropic"
	"github.com/ConfabulousDev/chat-insights/internal/config"
	"github.com/ConfabulousDev/chat-insights/internal/conversation"
	"github.com/ConfabulousDev/chat-insights/internal/email"
	"github.com/ConfabulousDev/chat-insights/internal/logger"
	"github.com/ConfabulousDev/chat-insights/internal/report"
	"github.com/ConfabulousDev/chat-insights/internal/sessionstore"
	"github.com/ConfabulousDev/chat-insights/internal/storage"
)

// deps are the collaborators shared by the server and the worker.
type deps struct {
	runner *report.Runner
	store  *sessionstore.SQLStore
}

func (d *deps) Close() {
	if d.store != nil {
		d.store.Close()
	}
}

func setup(ctx context.Context, cfg config.Config) (*deps, error) {
	if !cfg.HasSource() {
		return nil, errors.New("no session source configured: set DATABASE_URL or S3_ENDPOINT and BUCKET_NAME")
	}

	d := &deps{}
	var sources sessionstore.MultiSource

	if cfg.Database.URL != "" {
		store, err := sessionstore.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		d.store = store
		sources = append(sources, store)
		logger.Info("session database configured", "driver", store.Driver())
	}

	if cfg.S3.Enabled {
		s3, err := storage.NewS3Storage(ctx, cfg.S3.S3Config)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		sources = append(sources, &sessionstore.S3Source{Store: s3, Prefix: cfg.S3.Prefix})
		logger.Info("session export bucket configured", "bucket", cfg.S3.BucketName, "prefix", cfg.S3.Prefix)
	}

	var source sessionstore.Source = sources
	if len(sources) == 1 {
		source = sources[0]
	}

	d.runner = report.NewRunner(source, newAnalyzer(cfg.Analysis), newMailer(cfg.Email), report.Config{
		Window:      cfg.Report.Window,
		Location:    cfg.Report.Location,
		MaxSessions: cfg.Analysis.MaxSessions,
		Recipients:  cfg.Email.Recipients,
	})
	return d, nil
}

// newAnalyzer returns nil when AI analysis is not configured.
func newAnalyzer(cfg config.AnalysisConfig) report.BatchAnalyzer {
	if !cfg.Enabled {
		logger.Info("AI analysis disabled (ANTHROPIC_API_KEY or ANALYSIS_MODEL not set)")
		return nil
	}
	client := anthropic.NewClient(cfg.APIKey,
		anthropic.WithBaseURL(cfg.BaseURL),
		anthropic.WithTimeout(cfg.Timeout),
	)
	logger.Info("AI analysis configured", "model", cfg.Model, "batch_size", cfg.BatchSize, "batch_delay", cfg.BatchDelay)
	return conversation.NewAnalyzer(client, conversation.AnalyzerConfig{
		Model:      cfg.Model,
		BatchSize:  cfg.BatchSize,
		BatchDelay: cfg.BatchDelay,
	})
}

// newMailer returns nil when email is not configured.
func newMailer(cfg config.EmailConfig) email.Service {
	if !cfg.Enabled {
		logger.Info("email service disabled (RESEND_API_KEY or EMAIL_FROM_ADDRESS not set)")
		return nil
	}
	resendService := email.NewResendService(cfg.APIKey, cfg.FromAddress, cfg.FromName)
	logger.Info("email service configured", "provider", "resend",
		"recipients", len(cfg.Recipients), "rate_limit_per_hour", cfg.RateLimitPerHour)
	return email.NewRateLimitedService(resendService, cfg.RateLimitPerHour)
}
