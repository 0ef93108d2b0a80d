// Package errors defines the structured error types used across the riskd
// service. Every collaborator failure is classified into one of a small set of
// codes; only internal_error is ever surfaced to a caller.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. These are the wire-visible values in error responses and the
// label values on error counters.
const (
	ErrCodeInternal         = "internal_error"
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeModelUnavailable = "model_unavailable"
	ErrCodePersistence      = "persistence_error"
	ErrCodeUnavailable      = "service_unavailable"
)

// AppError is a structured application error with a stable code, an HTTP
// status used at the interface boundary, and an optional wrapped cause.
type AppError struct {
	Code        string
	HTTPStatus  int
	Message     string
	Description string
	cause       error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the wrapped cause for errors.Is / errors.As chains.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches two AppErrors by code so sentinel comparisons survive WithError.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// WithError returns a copy of the error carrying cause as its wrapped error.
// The receiver is not mutated, so package-level sentinels stay immutable.
func (e *AppError) WithError(cause error) *AppError {
	clone := *e
	clone.cause = cause
	return &clone
}

// WithMessage returns a copy of the error with a more specific message.
func (e *AppError) WithMessage(msg string) *AppError {
	clone := *e
	clone.Message = msg
	return &clone
}

// New creates a new AppError.
func New(code string, httpStatus int, message, description string) *AppError {
	return &AppError{
		Code:        code,
		HTTPStatus:  httpStatus,
		Message:     message,
		Description: description,
	}
}

// Wrap annotates err with an AppError code and message.
func Wrap(err error, code string, message string) *AppError {
	status := http.StatusInternalServerError
	if existing := AsAppError(err); existing != nil {
		status = existing.HTTPStatus
	}
	return &AppError{
		Code:       code,
		HTTPStatus: status,
		Message:    message,
		cause:      err,
	}
}

// AsAppError extracts an *AppError from an error chain, or nil.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Predefined sentinel errors.
var (
	// ErrModelUnavailable covers every remote-inference failure mode:
	// connection refused, deadline exceeded, non-2xx status, malformed body,
	// missing output field. The orchestrator recovers it with the fallback
	// scorer; it never reaches a caller.
	ErrModelUnavailable = New(ErrCodeModelUnavailable, http.StatusServiceUnavailable,
		"model endpoint unavailable", "remote inference failed; rule-based fallback applies")

	// ErrPersistence covers failures writing feature snapshots or prediction
	// records. It is logged and counted by the sink, never propagated.
	ErrPersistence = New(ErrCodePersistence, http.StatusInternalServerError,
		"persistence write failed", "best-effort persistence failed; response path unaffected")

	// ErrInvalidRequest is returned for requests missing required fields.
	// Malformed XML payloads are NOT invalid requests; they degrade to
	// default feature values by contract.
	ErrInvalidRequest = New(ErrCodeInvalidRequest, http.StatusBadRequest,
		"invalid request", "the request payload is missing required fields")

	// ErrNotFound is returned when a prediction lookup has no stored record.
	ErrNotFound = New(ErrCodeNotFound, http.StatusNotFound,
		"not found", "no record exists for the requested identifier")

	// ErrInternal is the only error class a caller may observe. It is always
	// rendered as a structured JSON error, never a raw panic surface.
	ErrInternal = New(ErrCodeInternal, http.StatusInternalServerError,
		"internal error", "an unrecoverable internal fault occurred")

	// ErrCache marks redis cache failures; treated as persistence-class.
	ErrCache = New(ErrCodePersistence, http.StatusInternalServerError,
		"cache operation failed", "redis operation failed")

	// ErrDatabaseConnection marks database connectivity failures at startup
	// or in health checks.
	ErrDatabaseConnection = New(ErrCodeUnavailable, http.StatusServiceUnavailable,
		"database connection failed", "postgres is unreachable or unresponsive")

	// ErrInvalidConfig marks configuration that fails validation at startup.
	ErrInvalidConfig = New(ErrCodeInternal, http.StatusInternalServerError,
		"invalid configuration", "service configuration failed validation")
)

// IsModelUnavailable reports whether err is (or wraps) ErrModelUnavailable.
func IsModelUnavailable(err error) bool {
	return errors.Is(err, ErrModelUnavailable)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
