// Package api serves analytics, insights and AI reports over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ConfabulousDev/chat-insights/internal/logger"
	"github.com/ConfabulousDev/chat-insights/internal/ratelimit"
	"github.com/ConfabulousDev/chat-insights/internal/report"
)

// MaxUploadBytes caps POSTed session bodies after decompression.
const MaxUploadBytes = 16 << 20

const healthTimeout = 2 * time.Second

// Server holds dependencies for API handlers
type Server struct {
	runner         *report.Runner
	reportLimiter  ratelimit.RateLimiter
	allowedOrigins []string
	version        string
}

// NewServer creates a new API server. reportLimiter guards the AI report
// endpoint and may be nil to disable limiting.
func NewServer(runner *report.Runner, reportLimiter ratelimit.RateLimiter, allowedOrigins []string, version string) *Server {
	return &Server{
		runner:         runner,
		reportLimiter:  reportLimiter,
		allowedOrigins: allowedOrigins,
		version:        version,
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)

	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Content-Encoding"},
			MaxAge:         300,
		}))
	}

	// gzip from chi, brotli preferred when the client accepts it
	compressor := middleware.NewCompressor(5, "application/json", "text/html", "text/plain")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	r.Use(compressor.Handler)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/analytics", s.handleGetAnalytics)
		r.Get("/insights", s.handleGetInsights)
		r.Get("/sessions/{id}", s.handleGetSession)

		r.Group(func(r chi.Router) {
			r.Use(validateContentType)
			r.Use(decompressMiddleware())
			r.Post("/insights", s.handlePostInsights)
		})

		r.Group(func(r chi.Router) {
			if s.reportLimiter != nil {
				r.Use(ratelimit.Middleware(s.reportLimiter))
			}
			r.Use(middleware.Timeout(10 * time.Minute))
			r.Post("/reports/ai", s.handleAIReport)
		})
	})

	return r
}

// handleHealth returns server health status. A session store that does not
// answer a ping makes the server unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.runner.Ping(ctx); err != nil {
		logger.Ctx(r.Context()).Error("health check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  "session store unreachable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"analysis_enabled": s.runner.AnalysisEnabled(),
	})
}

// handleRoot returns API info
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "chat-insights",
		"version": s.version,
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func respondBody(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}
