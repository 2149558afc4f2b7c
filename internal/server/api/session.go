package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/fingerspell/internal/lesson"
)

// SessionHandler handles HTTP requests for the active lesson session.
type SessionHandler struct {
	ctrl Controller
}

// NewSessionHandler creates a new SessionHandler for the given controller.
func NewSessionHandler(c Controller) *SessionHandler {
	return &SessionHandler{ctrl: c}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/session, /api/session/restart, /api/session/enabled
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/session")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.get(w, r)
	case "restart":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.restart(w, r)
	case "enabled":
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.setEnabled(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type sessionResponse struct {
	lesson.Snapshot
	Enabled bool `json:"enabled"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *SessionHandler) response() sessionResponse {
	return sessionResponse{Snapshot: h.ctrl.Snapshot(), Enabled: h.ctrl.IsEnabled()}
}

// get handles GET /api/session and returns the session state.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.response())
}

// restart handles POST /api/session/restart and starts a new session.
func (h *SessionHandler) restart(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Restart()
	writeJSON(w, http.StatusOK, h.response())
}

// setEnabled handles PUT /api/session/enabled and pauses or resumes evaluation.
func (h *SessionHandler) setEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	h.ctrl.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, h.response())
}
