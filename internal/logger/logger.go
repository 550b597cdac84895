// Package logger provides the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	log      *slog.Logger
	logLevel = new(slog.LevelVar)
)

func init() {
	logLevel.Set(ParseLevel(os.Getenv("LOG_LEVEL")))
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}

// ParseLevel maps debug|info|warn|error (case-insensitive) to a slog level.
// Unknown or empty values yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the level of the default logger at runtime.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return logLevel.Level() == slog.LevelDebug
}

// Debug logs a debug message with structured fields
func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

// Info logs an informational message with structured fields
func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

// Warn logs a warning message with structured fields
func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

// Error logs an error message with structured fields
func Error(msg string, args ...any) {
	log.Error(msg, args...)
}

// Fatal logs an error message and exits with status 1
func Fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}

// With returns the default logger enriched with the given fields.
func With(args ...any) *slog.Logger {
	return log.With(args...)
}

// SetOutputForTest redirects log output to w and returns a restore function.
// Only for tests.
func SetOutputForTest(w io.Writer) func() {
	original := log
	log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
	return func() {
		log = original
		slog.SetDefault(original)
	}
}
