package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultNearestCount = 3
	maxNearestCount     = 10
)

type TransitHandler struct {
	transit TransitProvider
	alerts  AlertProvider
}

func NewTransitHandler(transit TransitProvider, alerts AlertProvider) *TransitHandler {
	return &TransitHandler{
		transit: transit,
		alerts:  alerts,
	}
}

// GetRoutes lists the bus routes running today
func (h *TransitHandler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	writeResult(w, "routes", h.transit.CurrentRoutes(r.Context()))
}

// GetDepartures lists upcoming departures per route at a stop
func (h *TransitHandler) GetDepartures(w http.ResponseWriter, r *http.Request) {
	stopCode := strings.TrimSpace(r.PathValue("stopCode"))
	if _, err := strconv.Atoi(stopCode); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid stop code",
			"message": "Stop code must be a number",
		})
		return
	}

	writeResult(w, "departures", h.transit.DeparturesForStop(r.Context(), stopCode))
}

// GetNearest returns the stops closest to lat/lon
func (h *TransitHandler) GetNearest(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid coordinates",
			"message": "lat and lon query parameters are required",
		})
		return
	}

	count := parseIntQueryParam(r, "count", defaultNearestCount, 1, maxNearestCount)

	stops, err := h.transit.NearestStops(r.Context(), lat, lon, count)
	if err != nil {
		writeError(w, "Failed to fetch nearest stops", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(stops),
		"stops":   stops,
	})
}

// GetAlerts returns active service alerts, optionally for ?routes=A,B
func (h *TransitHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	var routes []string
	if q := r.URL.Query().Get("routes"); q != "" {
		for _, route := range strings.Split(q, ",") {
			if route = strings.TrimSpace(route); route != "" {
				routes = append(routes, route)
			}
		}
	}

	alerts, err := h.alerts.GetAlerts(r.Context(), routes)
	if err != nil {
		writeError(w, "Failed to fetch alerts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(alerts),
		"alerts":  alerts,
	})
}

func parseIntQueryParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}

	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
