// Package api provides HTTP API handlers for fingerspell lessons, sessions
// and cue bindings.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/fingerspell/internal/lesson"
)

// Controller is the running application as seen by the API.
type Controller interface {
	Snapshot() lesson.Snapshot
	Restart()
	SelectLesson(name string) error
	SetEnabled(enabled bool)
	IsEnabled() bool
}

// PluginLookup reports whether a cue plugin is installed.
type PluginLookup interface {
	Has(name string) bool
}

type errorResponse struct {
	Error string `json:"error"`
}

const timeFormat = time.RFC3339

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
