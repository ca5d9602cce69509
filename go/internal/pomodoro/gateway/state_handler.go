package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/engine"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/session"
	"github.com/rs/zerolog/log"
)

// SessionStateResponse is the read-only view of a session served over HTTP.
// It lets a client render a session before opening a socket.
type SessionStateResponse struct {
	SessionCode   string `json:"session_code"`
	Mode          string `json:"mode"`
	Running       bool   `json:"running"`
	TimeLeft      int    `json:"time_remaining_sec"`
	UserCount     int    `json:"user_count"`
	WorkDuration  int    `json:"work_duration_sec"`
	BreakDuration int    `json:"break_duration_sec"`
}

// StateHandler handles HTTP requests for session state
type StateHandler struct {
	engine *engine.Engine
}

// NewStateHandler creates a new state handler
func NewStateHandler(e *engine.Engine) *StateHandler {
	return &StateHandler{engine: e}
}

// HandleGetSessionState handles GET /api/sessions/{code}
func (h *StateHandler) HandleGetSessionState(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	if !session.ValidCode(code) {
		http.Error(w, "Invalid session code", http.StatusBadRequest)
		return
	}

	snap, err := h.engine.Snapshot(code)
	if errors.Is(err, session.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session_code", code).Msg("failed to get session state")
		http.Error(w, "Failed to get session state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newSessionStateResponse(snap)); err != nil {
		log.Error().Err(err).Msg("failed to encode session state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(r chi.Router) {
	r.Get("/api/sessions/{code}", h.HandleGetSessionState)
}

func newSessionStateResponse(snap session.Snapshot) SessionStateResponse {
	return SessionStateResponse{
		SessionCode:   snap.Code,
		Mode:          string(snap.Mode),
		Running:       snap.Running,
		TimeLeft:      snap.Remaining,
		UserCount:     snap.UserCount,
		WorkDuration:  snap.Durations.Work,
		BreakDuration: snap.Durations.Break,
	}
}
