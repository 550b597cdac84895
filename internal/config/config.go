// Package config loads process configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ConfabulousDev/chat-insights/internal/email"
	"github.com/ConfabulousDev/chat-insights/internal/storage"
)

// Config is the full process configuration.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string

	Database  DatabaseConfig
	S3        S3Config
	Analysis  AnalysisConfig
	Email     EmailConfig
	Report    ReportConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Driver string
	URL    string
}

// S3Config is the optional session-export bucket.
type S3Config struct {
	Enabled bool
	storage.S3Config
	Prefix string
}

// AnalysisConfig enables AI reports when both APIKey and Model are set.
type AnalysisConfig struct {
	Enabled     bool
	APIKey      string
	BaseURL     string
	Model       string
	BatchSize   int
	BatchDelay  time.Duration
	Timeout     time.Duration
	MaxSessions int
}

type EmailConfig struct {
	Enabled          bool
	APIKey           string
	FromAddress      string
	FromName         string
	Recipients       []string
	RateLimitPerHour int
}

type ReportConfig struct {
	Window   time.Duration
	Location *time.Location
}

type WorkerConfig struct {
	PollInterval time.Duration
	DryRun       bool
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads a .env file in the working directory when present, then the
// environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Malformed values are errors; unset
// values take their defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	cfg := Config{
		Port:           e.int("PORT", 8080),
		ReadTimeout:    e.duration("HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   e.duration("HTTP_WRITE_TIMEOUT", 120*time.Second),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS")),
		Database: DatabaseConfig{
			Driver: e.str("DATABASE_DRIVER", "postgres"),
			URL:    getenv("DATABASE_URL"),
		},
		S3: S3Config{
			S3Config: storage.S3Config{
				Endpoint:        getenv("S3_ENDPOINT"),
				AccessKeyID:     getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: getenv("AWS_SECRET_ACCESS_KEY"),
				BucketName:      getenv("BUCKET_NAME"),
				UseSSL:          getenv("S3_USE_SSL") != "false", // Default true
			},
			Prefix: getenv("S3_PREFIX"),
		},
		Analysis: AnalysisConfig{
			APIKey:      getenv("ANTHROPIC_API_KEY"),
			BaseURL:     getenv("ANTHROPIC_BASE_URL"),
			Model:       getenv("ANALYSIS_MODEL"),
			BatchSize:   e.int("ANALYSIS_BATCH_SIZE", 3),
			BatchDelay:  e.duration("ANALYSIS_BATCH_DELAY", 2*time.Second),
			Timeout:     e.duration("ANALYSIS_TIMEOUT", 90*time.Second),
			MaxSessions: e.int("ANALYSIS_MAX_SESSIONS", 50),
		},
		Email: EmailConfig{
			APIKey:           getenv("RESEND_API_KEY"),
			FromAddress:      getenv("EMAIL_FROM_ADDRESS"),
			FromName:         e.str("EMAIL_FROM_NAME", "Chat Insights"),
			Recipients:       splitList(getenv("REPORT_RECIPIENTS")),
			RateLimitPerHour: e.int("EMAIL_RATE_LIMIT_PER_HOUR", 10),
		},
		Report: ReportConfig{
			Window:   e.duration("REPORT_WINDOW", 24*time.Hour),
			Location: e.location("REPORT_TIMEZONE"),
		},
		Worker: WorkerConfig{
			PollInterval: e.duration("WORKER_POLL_INTERVAL", 24*time.Hour),
			DryRun:       getenv("WORKER_DRY_RUN") == "true",
		},
		RateLimit: RateLimitConfig{
			RPS:   e.float("API_RATE_LIMIT_RPS", 0.2),
			Burst: e.int("API_RATE_LIMIT_BURST", 3),
		},
	}

	cfg.S3.Enabled = cfg.S3.Endpoint != "" && cfg.S3.BucketName != ""
	cfg.Analysis.Enabled = cfg.Analysis.APIKey != "" && cfg.Analysis.Model != ""
	cfg.Email.Enabled = cfg.Email.APIKey != "" && cfg.Email.FromAddress != ""

	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		e.fail("DATABASE_DRIVER", cfg.Database.Driver, errors.New("must be postgres or sqlite"))
	}
	if cfg.Analysis.BatchSize < 1 {
		e.fail("ANALYSIS_BATCH_SIZE", strconv.Itoa(cfg.Analysis.BatchSize), errors.New("must be at least 1"))
	}
	if cfg.Email.FromAddress != "" && !email.ValidAddress(cfg.Email.FromAddress) {
		e.fail("EMAIL_FROM_ADDRESS", cfg.Email.FromAddress, errors.New("not a valid email address"))
	}
	for _, addr := range cfg.Email.Recipients {
		if !email.ValidAddress(addr) {
			e.fail("REPORT_RECIPIENTS", addr, errors.New("not a valid email address"))
		}
	}
	if cfg.Report.Window <= 0 {
		e.fail("REPORT_WINDOW", cfg.Report.Window.String(), errors.New("must be positive"))
	}
	if cfg.Worker.PollInterval <= 0 {
		e.fail("WORKER_POLL_INTERVAL", cfg.Worker.PollInterval.String(), errors.New("must be positive"))
	}

	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	return cfg, nil
}

// HasSource reports whether any session source is configured.
func (c Config) HasSource() bool {
	return c.Database.URL != "" || c.S3.Enabled
}

// env parses variables and accumulates errors.
type env struct {
	get  func(string) string
	errs []error
}

func (e *env) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("invalid %s=%q: %w", key, value, err))
}

func (e *env) str(key, def string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := e.get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := e.get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return f
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.get(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

func (e *env) location(key string) *time.Location {
	v := e.get(key)
	if v == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		e.fail(key, v, err)
		return time.UTC
	}
	return loc
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
