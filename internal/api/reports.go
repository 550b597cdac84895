package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ConfabulousDev/chat-insights/internal/conversation"
	"github.com/ConfabulousDev/chat-insights/internal/insights"
	"github.com/ConfabulousDev/chat-insights/internal/logger"
	"github.com/ConfabulousDev/chat-insights/internal/models"
	"github.com/ConfabulousDev/chat-insights/internal/report"
	"github.com/ConfabulousDev/chat-insights/internal/sessionstore"
)

const (
	formatJSON = "json"
	formatHTML = "html"
	formatText = "text"
)

// parseTime accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (UTC midnight).
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// parseWindow reads from/to query parameters, defaulting to the runner's
// current report window.
func parseWindow(r *http.Request, runner *report.Runner) (models.Window, error) {
	w := runner.CurrentWindow()
	length := w.To.Sub(w.From)

	q := r.URL.Query()
	if v := q.Get("to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return w, fmt.Errorf("invalid to: %q", v)
		}
		w.To = t
		w.From = t.Add(-length)
	}
	if v := q.Get("from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return w, fmt.Errorf("invalid from: %q", v)
		}
		w.From = t
	}
	if !w.From.Before(w.To) {
		return w, errors.New("from must be before to")
	}
	return w, nil
}

func parsePlatforms(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["platform"] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func parseFormat(r *http.Request, allowed ...string) (string, error) {
	f := r.URL.Query().Get("format")
	if f == "" {
		return formatJSON, nil
	}
	for _, a := range allowed {
		if f == a {
			return f, nil
		}
	}
	return "", fmt.Errorf("format must be one of %s", strings.Join(allowed, ", "))
}

// handleGetAnalytics returns the aggregate for a window
func (s *Server) handleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	window, err := parseWindow(r, s.runner)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.runner.WithPlatforms(parsePlatforms(r)).BuildAnalytics(r.Context(), window)
	if err != nil {
		log.Error("failed to build analytics", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to build analytics")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// handleGetInsights returns insights for a window compared with the window before it
func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	window, err := parseWindow(r, s.runner)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := parseFormat(r, formatJSON, formatHTML, formatText)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.runner.WithPlatforms(parsePlatforms(r)).BuildInsights(r.Context(), window)
	if err != nil {
		log.Error("failed to build insights", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to build insights")
		return
	}
	s.writeInsights(w, r, rep, format)
}

// handlePostInsights computes insights for the sessions in the request body
func (s *Server) handlePostInsights(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r, formatJSON, formatHTML, formatText)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	sessions, err := sessionstore.DecodeSessions(data, sessionstore.FormatJSON)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid sessions: "+err.Error())
		return
	}

	rep := s.runner.ComputeInsights(models.SpanOf(sessions), sessions, nil)
	logger.Ctx(r.Context()).Info("computed insights for posted sessions", "sessions", len(sessions))
	s.writeInsights(w, r, rep, format)
}

func (s *Server) writeInsights(w http.ResponseWriter, r *http.Request, rep *report.InsightsReport, format string) {
	switch format {
	case formatHTML:
		html, err := insights.RenderHTML(rep.Insights, rep.GeneratedAt)
		if err != nil {
			logger.Ctx(r.Context()).Error("failed to render insights", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to render insights")
			return
		}
		respondBody(w, "text/html; charset=utf-8", html)
	case formatText:
		respondBody(w, "text/plain; charset=utf-8", insights.RenderText(rep.Insights, rep.GeneratedAt))
	default:
		respondJSON(w, http.StatusOK, rep)
	}
}

// handleAIReport runs the per-session analysis for a window
func (s *Server) handleAIReport(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	if !s.runner.AnalysisEnabled() {
		respondError(w, http.StatusServiceUnavailable, "AI analysis is not configured")
		return
	}

	window, err := parseWindow(r, s.runner)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := parseFormat(r, formatJSON, formatHTML)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.runner.WithPlatforms(parsePlatforms(r)).BuildAIReport(r.Context(), window)
	if err != nil {
		log.Error("failed to build AI report", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to build AI report")
		return
	}

	if format == formatHTML {
		html, err := conversation.RenderHTML(rep.Report, rep.Report.GeneratedAt)
		if err != nil {
			log.Error("failed to render AI report", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to render AI report")
			return
		}
		respondBody(w, "text/html; charset=utf-8", html)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}
