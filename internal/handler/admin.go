package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		slog.Error("failed to list sessions", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"live":     h.mgr.Registry().IDs(),
	})
}

func (h *Handler) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.GetSessionView(chi.URLParam(r, "sessionID"))
	if err != nil {
		slog.Error("failed to load session", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if view == nil {
		writeError(w, r, http.StatusNotFound, "ErrSessionNotFound")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ExportAllSessions()
	if err != nil {
		slog.Error("failed to export sessions", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="interviews.json"`)
	writeJSON(w, http.StatusOK, results)
}
