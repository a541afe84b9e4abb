package queue

import "errors"

var (
	// ErrInvalidSlotRequest indicates a slot request with an empty range or length.
	ErrInvalidSlotRequest = errors.New("invalid slot request")
)
