// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors produced by request binding.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// ── Domain errors ─────────────────────────────────────────────────────────────

// Kind classifies a domain error. Services only ever return these four kinds;
// anything else reaching a handler is an internal failure.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
)

// Error is a typed business error raised by the service layer.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// NotFound: referenced entity absent.
func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

// Validation: malformed input or a business rule violated by the input.
func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

// Conflict: uniqueness or concurrent-modification violation.
func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, format, args...)
}

// InvalidState: the entity's lifecycle state forbids the operation.
func InvalidState(format string, args ...any) *Error {
	return newf(KindInvalidState, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus maps a domain error kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
