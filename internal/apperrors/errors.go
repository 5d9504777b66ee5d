// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the common outcomes services report.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrRateLimited = errors.New("rate limited")
	ErrForbidden   = errors.New("forbidden")
)

// Error is a service-layer failure carrying the HTTP status it should be
// reported with. Anything that is not an *Error reaching the API layer is
// logged and rendered as a generic 500.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidation reports a request that failed boundary validation, with
// per-field details.
func NewValidation(message string, details map[string]string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "validation_error", Message: message, Details: details}
}

// NewUnauthorized reports a missing or invalid credential.
func NewUnauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "unauthorized", Message: message}
}

// NewNotFound reports an entity that does not exist for the caller. Per the
// access model, "exists but owned by someone else" is reported identically.
func NewNotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "not_found", Message: message, Err: ErrNotFound}
}

// NewConflict reports a uniqueness violation.
func NewConflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Code: "conflict", Message: message, Err: ErrConflict}
}

// NewRateLimited reports an upstream or local rate limit.
func NewRateLimited(message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: message, Err: ErrRateLimited}
}

// NewInternal wraps an unexpected failure. The wrapped error is logged but
// never rendered in production responses.
func NewInternal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "internal_error", Message: "Internal server error", Err: err}
}

// NewUpstream reports a failure from an external collaborator with a caller
// facing message.
func NewUpstream(message string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "upstream_error", Message: message, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
