package repository

import "github.com/rpggio/waitwatch/internal/domain/occupancy"

// Repository errors share identity with the domain sentinels so callers on
// either side can match them with errors.Is.
var (
	// ErrNotFound is returned when a requested session doesn't exist.
	ErrNotFound = occupancy.ErrSessionNotFound

	// ErrAlreadyOpen is returned when an identity already has an open session.
	ErrAlreadyOpen = occupancy.ErrAlreadyOpen

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = occupancy.ErrInvalidInput
)
