package handlers

import (
	"net/http"
)

type RootHandler struct{}

func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "stopfinder",
		"description": "Nearest Blacksburg Transit stop for every class on your calendar",
		"version":     "1.0.0",
		"endpoints": map[string]string{
			"GET /":                                        "API information",
			"GET /health":                                  "Health check",
			"GET /metrics":                                 "Prometheus metrics",
			"GET /api/start":                               "Current start location",
			"POST /api/start":                              "Set start location from an address or coordinates",
			"POST /api/route":                              "Nearest stops for an .ics calendar body (?format=csv)",
			"GET /api/transit/routes":                      "Routes running today",
			"GET /api/transit/stops/{stopCode}/departures": "Next departures at a stop",
			"GET /api/transit/nearest":                     "Nearest stops to ?lat=&lon=&count=",
			"GET /api/alerts":                              "Active service alerts (?routes=A,B)",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check the root endpoint (/) for available routes",
	})
}
