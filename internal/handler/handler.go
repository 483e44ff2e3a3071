// Package handler exposes interviews over HTTP and WebSocket.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/interview"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/proctor"
	"github.com/pavelanni/interviewer/internal/store"
)

// Version is reported by the service info endpoint.
const Version = "10.0"

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	mgr    *interview.Manager
	store  *store.Store
	config model.InterviewConfig
}

// New creates a new Handler.
func New(mgr *interview.Manager, s *store.Store, cfg model.InterviewConfig) *Handler {
	return &Handler{mgr: mgr, store: s, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(i18n.Middleware)

	r.Get("/", h.handleIndex)
	r.Route("/api/interview", func(r chi.Router) {
		r.Post("/start", h.handleStart)
		r.Post("/{sessionID}/next-question", h.handleNextQuestion)
		r.Post("/{sessionID}/end", h.handleEnd)
		r.Post("/{sessionID}/proctoring", h.handleProctoringEvent)
	})
	r.Get("/api/proctoring/stats/{sessionID}", h.handleProctoringStats)

	r.Get("/ws/video/{sessionID}", h.handleVideoStream)
	r.Get("/ws/monitor/{sessionID}", h.handleMonitorStream)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleAdmin, model.UserRoleReviewer))
		r.Get("/sessions", h.handleAdminSessions)
		r.Get("/sessions/{sessionID}", h.handleAdminSession)
		r.Get("/export", h.handleAdminExport)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, errorResponse{Error: i18n.T(r.Context(), msgID)})
}

// writeManagerError maps interview errors to a status and localized message.
func writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		writeError(w, r, http.StatusNotFound, "ErrSessionNotFound")
	case errors.Is(err, interview.ErrSessionCompleted):
		writeError(w, r, http.StatusConflict, "ErrSessionCompleted")
	case errors.Is(err, interview.ErrVisionDisabled):
		writeError(w, r, http.StatusServiceUnavailable, "ErrVisionDisabled")
	case errors.Is(err, proctor.ErrInvalidFrame):
		writeError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
	}
}
