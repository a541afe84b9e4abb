package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/domain/queue"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, estimate.ErrInvalidContext):
		return &APIError{Code: "INVALID_CONTEXT", Message: err.Error(), RecoveryHint: "weekday is 0-6 with Sunday as 0, hour is 0-23"}
	case errors.Is(err, queue.ErrInvalidSlotRequest):
		return &APIError{Code: "INVALID_SLOT_REQUEST", Message: err.Error(), RecoveryHint: "end must be after start and slot_minutes positive"}
	case errors.Is(err, occupancy.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "check argument formats; times are RFC3339"}
	case errors.Is(err, occupancy.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "session not found"}
	default:
		return nil
	}
}

// toolError returns the mapped API error, or a generic one for unknown errors.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return &APIError{Code: "INTERNAL", Message: "internal error"}
}
