package estimate

import "errors"

var (
	// ErrInvalidContext indicates a prediction context outside valid ranges.
	ErrInvalidContext = errors.New("invalid prediction context")
)
