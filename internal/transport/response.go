package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/domain/queue"
	"github.com/rpggio/waitwatch/internal/ingest"
)

// Error is the body of an error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error Error `json:"error"`
}

// WriteJSON writes payload as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorResponse{Error: Error{Code: code, Message: message}})
}

// WriteDomainError maps a domain error to a status code and writes it.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, occupancy.ErrInvalidInput),
		errors.Is(err, estimate.ErrInvalidContext),
		errors.Is(err, queue.ErrInvalidSlotRequest):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, occupancy.ErrSessionNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ingest.ErrClosed):
		WriteError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
