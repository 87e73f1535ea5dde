package genius

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a Genius API error.
//
// Status is the HTTP (or envelope meta) status code. Error implements
// error and provides Temporary for retry decisions.
type Error struct {
	Status  int    // HTTP status reported by Genius
	Message string // Error message from Genius
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("genius: status %d: %s", e.Status, e.Message)
}

// Is checks if the target error is a Genius error with the same status.
//
// This allows errors.Is() to work with *Error types.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status
}

// Temporary returns true if the request may succeed when retried:
// rate limiting (429) and server-side failures (5xx).
func (e *Error) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// NotFound reports whether Genius has no such resource.
func (e *Error) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// Predefined errors for common cases.
var (
	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("genius: invalid configuration")

	// ErrNotFound matches any *Error with a 404 status via errors.Is.
	ErrNotFound = &Error{Status: http.StatusNotFound, Message: "not found"}
)

// IsTemporary reports whether err (or anything it wraps) is a temporary
// Genius error.
func IsTemporary(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return false
}
