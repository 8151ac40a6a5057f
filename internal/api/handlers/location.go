package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

const defaultStartLabel = "Current location"

type LocationHandler struct {
	planner Planner
}

func NewLocationHandler(planner Planner) *LocationHandler {
	return &LocationHandler{planner: planner}
}

// startRequest sets the start either from a free-text address or from a
// device position
type startRequest struct {
	Address   string   `json:"address"`
	Label     string   `json:"label"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// SetStart sets the start location used by later route requests
func (h *LocationHandler) SetStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	switch {
	case strings.TrimSpace(req.Address) != "":
		addr, err := h.planner.SetStartLocation(r.Context(), req.Address)
		if err != nil {
			writeError(w, "Could not set start location", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "start": addr})

	case req.Latitude != nil && req.Longitude != nil:
		label := req.Label
		if strings.TrimSpace(label) == "" {
			label = defaultStartLabel
		}
		addr, err := h.planner.SetStartCoordinates(label, *req.Latitude, *req.Longitude)
		if err != nil {
			writeError(w, "Could not set start location", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "start": addr})

	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Missing start location",
			"message": `Send {"address": "Street, City, State, ZIP, Country"} or {"latitude": .., "longitude": ..}`,
		})
	}
}

// GetStart returns the current start location
func (h *LocationHandler) GetStart(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.planner.Start()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "Start location not set",
			"message": "POST /api/start first",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "start": addr})
}
