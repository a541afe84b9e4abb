package occupancy

import "errors"

var (
	// ErrSessionNotFound indicates no matching session exists.
	ErrSessionNotFound = errors.New("occupancy session not found")
	// ErrAlreadyOpen indicates the identity already has an open session.
	ErrAlreadyOpen = errors.New("identity already has an open session")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid occupancy input")
)
