package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrAlreadyEnrolled is returned when the username is already on the roster.
	ErrAlreadyEnrolled = errors.New("persistence: already enrolled")
	// ErrTerminFull is returned when the roster has reached the Termin capacity.
	ErrTerminFull = errors.New("persistence: termin full")
	// ErrNotEnrolled is returned when the username is not on the roster.
	ErrNotEnrolled = errors.New("persistence: not enrolled")
)
