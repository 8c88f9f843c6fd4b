package apiclient

import (
	"errors"
	"fmt"
)

// Enrollment conflict sentinels. A *ConflictError wraps one of these so
// callers can branch with errors.Is.
var (
	ErrAlreadyEnrolled = errors.New("bereits angemeldet")
	ErrTerminFull      = errors.New("termin ausgebucht")
	ErrNotEnrolled     = errors.New("nicht angemeldet")
)

// TransportError reports that the request never produced an HTTP response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError reports a 401 or 403 with the server's localized message.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string { return e.Message }

// NotFoundError reports a 404.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ConflictError reports a 409. Err carries the matching sentinel when the
// message identifies a known enrollment conflict.
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return e.Err }

// ValidationError reports a 422 with the server's field messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

// StatusError reports any other non-success status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}
