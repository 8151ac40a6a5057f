package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/randytsao24/stopfinder/internal/route"
	"github.com/randytsao24/stopfinder/internal/service"
)

const maxCalendarBytes = 2 << 20

type RouteHandler struct {
	planner Planner
}

func NewRouteHandler(planner Planner) *RouteHandler {
	return &RouteHandler{planner: planner}
}

// GetRoute resolves the calendar in the request body. ?format=csv returns CSV.
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCalendarBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
				"error":   "Calendar too large",
				"message": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Could not read calendar",
			"message": err.Error(),
		})
		return
	}

	result, err := h.planner.GetRoute(r.Context(), service.Upload{
		Filename:    r.URL.Query().Get("filename"),
		ContentType: r.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(w, "Failed to resolve route", err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		var buf bytes.Buffer
		if err := route.WriteCSV(&buf, result); err != nil {
			writeError(w, "Failed to encode route", err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   result.Len(),
		"route":   result,
	})
}
