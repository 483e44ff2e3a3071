package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/interview"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/proctor"
	"github.com/pavelanni/interviewer/internal/scoring"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 5 * time.Minute
	wsMaxMessage   = 8 << 20
)

// Message types on the proctoring sockets.
const (
	msgVideoFrame       = "video_frame"
	msgTabSwitch        = "tab_switch"
	msgProctoringResult = "proctoring_result"
	msgTabWarning       = "tab_warning"
	msgError            = "error"
)

// buildUpgrader accepts any origin when allowedOrigins is empty.
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

type wsMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type proctoringResult struct {
	Type           string                `json:"type"`
	Detected       bool                  `json:"detected"`
	Alerts         []model.AlertToken    `json:"alerts"`
	ProctoringData proctor.Detection     `json:"proctoring_data"`
	Timestamp      float64               `json:"timestamp"`
	SessionStats   model.ProctoringStats `json:"session_stats"`
}

type tabWarning struct {
	Type    string `json:"type"`
	Count   int    `json:"count"`
	Message string `json:"message"`
	Penalty string `json:"penalty"`
}

func writeWS(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}

func readWS(conn *websocket.Conn, v any) error {
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	return conn.ReadJSON(v)
}

// sessionOver closes the socket normally once the interview has ended.
func sessionOver(conn *websocket.Conn, err error) bool {
	if !errors.Is(err, interview.ErrSessionCompleted) && !errors.Is(err, interview.ErrSessionNotFound) {
		return false
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, err.Error())
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
	return true
}

// upgrade checks the session and switches the connection to WebSocket.
func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request, sessionID string) (*websocket.Conn, bool) {
	if _, err := h.mgr.Session(sessionID); err != nil {
		writeManagerError(w, r, err)
		return nil, false
	}
	upgrader := buildUpgrader(h.config.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "session", sessionID, "error", err)
		return nil, false
	}
	conn.SetReadLimit(wsMaxMessage)
	return conn, true
}

func logClose(sessionID, stream string, err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		slog.Warn("websocket closed unexpectedly", "session", sessionID, "stream", stream, "error", err)
		return
	}
	slog.Debug("websocket closed", "session", sessionID, "stream", stream)
}

// decodeFrame accepts plain base64 or a data URL.
func decodeFrame(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		if _, payload, ok := strings.Cut(data, ","); ok {
			data = payload
		}
	}
	return base64.StdEncoding.DecodeString(data)
}

func (h *Handler) handleVideoStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !h.mgr.VisionEnabled() {
		writeError(w, r, http.StatusServiceUnavailable, "ErrVisionDisabled")
		return
	}
	conn, ok := h.upgrade(w, r, sessionID)
	if !ok {
		return
	}
	defer conn.Close()
	slog.Info("video proctoring connected", "session", sessionID)

	ctx := r.Context()
	for {
		var msg wsMessage
		if err := readWS(conn, &msg); err != nil {
			logClose(sessionID, "video", err)
			return
		}
		if msg.Type != msgVideoFrame {
			_ = writeWS(conn, wsError{Type: msgError, Error: "unknown message type: " + msg.Type})
			continue
		}
		if err := h.processFrame(ctx, conn, sessionID, msg.Data); err != nil {
			if sessionOver(conn, err) {
				return
			}
			slog.Warn("frame rejected", "session", sessionID, "error", err)
			if werr := writeWS(conn, wsError{Type: msgError, Error: err.Error()}); werr != nil {
				return
			}
		}
	}
}

func (h *Handler) processFrame(ctx context.Context, conn *websocket.Conn, sessionID, data string) error {
	frame, err := decodeFrame(data)
	if err != nil {
		return proctor.ErrInvalidFrame
	}
	res, err := h.mgr.ProcessFrame(ctx, sessionID, frame)
	if err != nil {
		return err
	}
	return writeWS(conn, proctoringResult{
		Type:           msgProctoringResult,
		Detected:       res.Detection.FacePresent,
		Alerts:         res.Detection.Alerts,
		ProctoringData: res.Detection,
		Timestamp:      float64(time.Now().UnixMilli()) / 1000,
		SessionStats:   res.Stats,
	})
}

func (h *Handler) handleMonitorStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conn, ok := h.upgrade(w, r, sessionID)
	if !ok {
		return
	}
	defer conn.Close()
	slog.Info("tab monitor connected", "session", sessionID)

	ctx := r.Context()
	for {
		var msg wsMessage
		if err := readWS(conn, &msg); err != nil {
			logClose(sessionID, "monitor", err)
			return
		}
		if msg.Type != msgTabSwitch {
			_ = writeWS(conn, wsError{Type: msgError, Error: "unknown message type: " + msg.Type})
			continue
		}
		stats, err := h.mgr.RecordProctoringEvent(ctx, sessionID, model.EventTabSwitch)
		if err != nil {
			if sessionOver(conn, err) {
				return
			}
			slog.Error("record tab switch", "session", sessionID, "error", err)
			continue
		}
		points := scoring.CalculatePenalty(model.ProctoringStats{TabSwitchCount: stats.TabSwitchCount}).Total
		warning := tabWarning{
			Type:    msgTabWarning,
			Count:   stats.TabSwitchCount,
			Message: i18n.Td(ctx, "TabWarning", map[string]any{"Count": stats.TabSwitchCount}),
			Penalty: i18n.Td(ctx, "TabPenalty", map[string]any{"Points": points}),
		}
		if err := writeWS(conn, warning); err != nil {
			logClose(sessionID, "monitor", err)
			return
		}
	}
}
