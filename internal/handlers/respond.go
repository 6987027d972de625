// Package handlers implements the HTTP request/response boundary.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"clinicassist-ai/internal/contextutil"
	"clinicassist-ai/internal/service"
)

// ErrorResponse is the error payload for every endpoint.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Detail: message})
}

// writeServiceError maps service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrSlotBusy):
		status = http.StatusConflict
	case errors.Is(err, service.ErrTranscription),
		errors.Is(err, service.ErrGeneration),
		errors.Is(err, service.ErrEmbedding):
		status = http.StatusBadGateway
	case errors.Is(err, service.ErrResourceExhausted),
		errors.Is(err, service.ErrRetrieval):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "status", status, "error", err)
	} else {
		logger.WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	writeError(w, status, err.Error())
}
