package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ConfabulousDev/chat-insights/internal/analytics"
	"github.com/ConfabulousDev/chat-insights/internal/logger"
	"github.com/ConfabulousDev/chat-insights/internal/models"
	"github.com/ConfabulousDev/chat-insights/internal/sessionstore"
)

type sessionResponse struct {
	Session   *models.ChatSession  `json:"session"`
	Analytics *analytics.Analytics `json:"analytics"`
}

// handleGetSession returns one session with the statistics of that session alone.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cs, err := s.runner.Session(r.Context(), id)
	if errors.Is(err, sessionstore.ErrSessionNotFound) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to load session", "session_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{
		Session:   cs,
		Analytics: s.runner.Analytics([]models.ChatSession{*cs}),
	})
}
