// Package handlers contains HTTP request handlers
package handlers

import (
	"net/http"
	"time"

	"github.com/randytsao24/stopfinder/internal/directory"
)

// DirectoryStatus reports on the building directory cache file
type DirectoryStatus interface {
	State() (directory.State, error)
}

type HealthHandler struct {
	startTime time.Time
	directory DirectoryStatus
}

func NewHealthHandler(dir DirectoryStatus) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), directory: dir}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
		"uptime":    time.Since(h.startTime).String(),
	}

	if h.directory != nil {
		state, err := h.directory.State()
		if err != nil {
			body["directory"] = "error: " + err.Error()
		} else {
			body["directory"] = state.String()
		}
	}

	writeJSON(w, http.StatusOK, body)
}
