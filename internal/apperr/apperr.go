// Package apperr defines the categorical error kinds the service layers
// return and the HTTP boundary translates into status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the HTTP boundary.
type Kind int

const (
	// KindInternal covers persistence and other opaque failures.
	KindInternal Kind = iota
	// KindValidation marks malformed or missing input.
	KindValidation
	// KindForbidden marks authorization failures.
	KindForbidden
	// KindNotFound marks missing entities.
	KindNotFound
	// KindConflict marks capacity, duplicate, and cap violations.
	KindConflict
	// KindRateLimited marks too-many-attempts rejections.
	KindRateLimited
)

// Error carries a kind and a caller-visible message.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation constructs a validation error.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// Forbidden constructs an authorization error.
func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

// NotFound constructs a missing-entity error.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// Conflict constructs a capacity/duplicate/cap error.
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// RateLimited constructs a too-many-attempts error.
func RateLimited(format string, args ...any) *Error {
	return New(KindRateLimited, format, args...)
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the response status code. Conflicts map to
// 400 to match the original API surface rather than 409.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
