package circulation

import "errors"

var (
	// ErrNotFound is returned when a command references an unknown book or
	// member.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an action is not legal given the
	// current projected state, e.g. issuing an already-issued book.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrValidation is returned for malformed input, e.g. an empty key.
	ErrValidation = errors.New("validation failed")
)
