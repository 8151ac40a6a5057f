package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/randytsao24/stopfinder/internal/route"
	"github.com/randytsao24/stopfinder/internal/schedule"
	"github.com/randytsao24/stopfinder/internal/service"
	"github.com/randytsao24/stopfinder/internal/transit"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	var (
		formatErr       *schedule.FormatError
		inputErr        *service.InputError
		preconditionErr *route.PreconditionError
	)
	switch {
	case errors.As(err, &formatErr), errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &preconditionErr):
		return http.StatusConflict
	case errors.Is(err, transit.ErrNoAlertsFeed):
		return http.StatusServiceUnavailable
	case errors.Is(err, transit.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(message, "error", err)
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"message": err.Error(),
	})
}

// writeResult writes a secondary transit result. An upstream that answered
// but had nothing to report is a 404; a failed call is a 502.
func writeResult[T any](w http.ResponseWriter, key string, res transit.Result[T]) {
	if res.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			key:       res.Payload,
		})
		return
	}

	status := http.StatusBadGateway
	if res.Status == http.StatusOK {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]any{
		"success":     false,
		"status_code": res.Status,
		"error":       res.Error,
	})
}
