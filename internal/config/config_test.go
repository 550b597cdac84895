package config

import (
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Analysis.BatchSize != 3 || cfg.Analysis.BatchDelay != 2*time.Second {
		t.Errorf("batch = %d/%v, want 3/2s", cfg.Analysis.BatchSize, cfg.Analysis.BatchDelay)
	}
	if cfg.Report.Window != 24*time.Hour || cfg.Report.Location != time.UTC {
		t.Errorf("Report = %+v, want 24h UTC", cfg.Report)
	}
	if cfg.Analysis.Enabled || cfg.Email.Enabled || cfg.S3.Enabled {
		t.Error("optional features should be disabled without credentials")
	}
	if !cfg.S3.UseSSL {
		t.Error("S3 UseSSL should default to true")
	}
	if cfg.HasSource() {
		t.Error("HasSource() = true with nothing configured")
	}
}

func TestFromEnv_Values(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PORT":                 "9090",
		"ALLOWED_ORIGINS":      "https://a.example.com, https://b.example.com,",
		"DATABASE_DRIVER":      "sqlite",
		"DATABASE_URL":         "/tmp/sessions.db",
		"ANTHROPIC_API_KEY":    "sk-test",
		"ANALYSIS_MODEL":       "claude-sonnet-4-5",
		"ANALYSIS_BATCH_SIZE":  "5",
		"RESEND_API_KEY":       "re_test",
		"EMAIL_FROM_ADDRESS":   "reports@example.com",
		"REPORT_RECIPIENTS":    "ops@example.com,lead@example.com",
		"REPORT_TIMEZONE":      "Europe/Berlin",
		"WORKER_DRY_RUN":       "true",
		"S3_ENDPOINT":          "localhost:9000",
		"BUCKET_NAME":          "exports",
		"S3_USE_SSL":           "false",
		"API_RATE_LIMIT_RPS":   "1.5",
		"WORKER_POLL_INTERVAL": "6h",
	}))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if !cfg.Analysis.Enabled || cfg.Analysis.BatchSize != 5 {
		t.Errorf("Analysis = %+v", cfg.Analysis)
	}
	if !cfg.Email.Enabled || len(cfg.Email.Recipients) != 2 {
		t.Errorf("Email = %+v", cfg.Email)
	}
	if cfg.Report.Location.String() != "Europe/Berlin" {
		t.Errorf("Location = %v, want Europe/Berlin", cfg.Report.Location)
	}
	if !cfg.Worker.DryRun || cfg.Worker.PollInterval != 6*time.Hour {
		t.Errorf("Worker = %+v", cfg.Worker)
	}
	if !cfg.S3.Enabled || cfg.S3.UseSSL {
		t.Errorf("S3 = %+v, want enabled without SSL", cfg.S3)
	}
	if cfg.RateLimit.RPS != 1.5 {
		t.Errorf("RateLimit.RPS = %v, want 1.5", cfg.RateLimit.RPS)
	}
	if !cfg.HasSource() {
		t.Error("HasSource() = false, want true")
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{
		"PORT":              "eighty",
		"DATABASE_DRIVER":   "mysql",
		"REPORT_TIMEZONE":   "Mars/Olympus",
		"REPORT_WINDOW":     "-1h",
		"REPORT_RECIPIENTS": "ops@example.com,not-an-address",
	}))
	if err == nil {
		t.Fatal("FromEnv() error = nil, want error")
	}
	for _, key := range []string{"PORT", "DATABASE_DRIVER", "REPORT_TIMEZONE", "REPORT_WINDOW", "not-an-address"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}
