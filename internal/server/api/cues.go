package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/fingerspell/internal/store"
)

// CueHandler handles HTTP requests for cue bindings.
type CueHandler struct {
	store   *store.Store
	plugins PluginLookup
}

// NewCueHandler creates a new CueHandler. When plugins is non-nil, new cues
// must name an installed plugin.
func NewCueHandler(s *store.Store, plugins PluginLookup) *CueHandler {
	return &CueHandler{store: s, plugins: plugins}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *CueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/cues or /api/cues/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/cues")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createCueRequest struct {
	Event      string          `json:"event"`
	Gesture    string          `json:"gesture"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
}

type updateCueRequest struct {
	Event      string          `json:"event"`
	Gesture    *string         `json:"gesture"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type cueResponse struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Gesture    string          `json:"gesture"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listCuesResponse struct {
	Cues []cueResponse `json:"cues"`
}

func toCueResponse(c *store.Cue) cueResponse {
	config := c.Config
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	return cueResponse{
		ID:         c.ID,
		Event:      string(c.Event),
		Gesture:    c.Gesture,
		PluginName: c.PluginName,
		ActionName: c.ActionName,
		Config:     config,
		Enabled:    c.Enabled,
		CreatedAt:  c.CreatedAt.Format(timeFormat),
	}
}

// list handles GET /api/cues and returns all cue bindings.
func (h *CueHandler) list(w http.ResponseWriter, r *http.Request) {
	cues, err := h.store.Cues().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list cues")
		return
	}

	response := listCuesResponse{
		Cues: make([]cueResponse, 0, len(cues)),
	}
	for _, c := range cues {
		response.Cues = append(response.Cues, toCueResponse(c))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/cues/{id} and returns a single cue.
func (h *CueHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	cue, err := h.store.Cues().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cue not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get cue")
		return
	}

	writeJSON(w, http.StatusOK, toCueResponse(cue))
}

// create handles POST /api/cues and binds a plugin action to an event.
func (h *CueHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createCueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate required fields
	if !store.CueEvent(req.Event).Valid() {
		writeError(w, http.StatusBadRequest, "event must be one of confirmed, completed, target")
		return
	}
	if req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	}
	if req.ActionName == "" {
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}
	if h.plugins != nil && !h.plugins.Has(req.PluginName) {
		writeError(w, http.StatusBadRequest, "Plugin not found")
		return
	}

	cue := &store.Cue{
		Event:      store.CueEvent(req.Event),
		Gesture:    req.Gesture,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    true,
	}
	if err := h.store.Cues().Create(cue); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create cue")
		return
	}

	writeJSON(w, http.StatusCreated, toCueResponse(cue))
}

// update handles PUT /api/cues/{id} and updates an existing cue.
func (h *CueHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	cue, err := h.store.Cues().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cue not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get cue")
		return
	}

	var req updateCueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Update fields if provided
	if req.Event != "" {
		if !store.CueEvent(req.Event).Valid() {
			writeError(w, http.StatusBadRequest, "event must be one of confirmed, completed, target")
			return
		}
		cue.Event = store.CueEvent(req.Event)
	}
	if req.Gesture != nil {
		cue.Gesture = *req.Gesture
	}
	if req.PluginName != "" {
		if h.plugins != nil && !h.plugins.Has(req.PluginName) {
			writeError(w, http.StatusBadRequest, "Plugin not found")
			return
		}
		cue.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		cue.ActionName = req.ActionName
	}
	if req.Config != nil {
		cue.Config = req.Config
	}
	if req.Enabled != nil {
		cue.Enabled = *req.Enabled
	}

	if err := h.store.Cues().Update(cue); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update cue")
		return
	}

	writeJSON(w, http.StatusOK, toCueResponse(cue))
}

// delete handles DELETE /api/cues/{id} and removes a cue.
func (h *CueHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Cues().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cue not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete cue")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
