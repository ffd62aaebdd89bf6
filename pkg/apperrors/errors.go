// Package apperrors defines the typed failure values returned by the ride,
// chat and message operations. Handlers translate an *AppError into the HTTP
// response envelope; nothing below the handler layer writes status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInvalidRole     = "INVALID_ROLE"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeUpstreamTimeout = "UPSTREAM_TIMEOUT"
	CodeInternal        = "INTERNAL_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

func Validation(message string, err error) *AppError {
	return &AppError{Code: CodeValidation, Message: message, Status: http.StatusBadRequest, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, Status: http.StatusConflict}
}

func InvalidRole(message string) *AppError {
	return &AppError{Code: CodeInvalidRole, Message: message, Status: http.StatusForbidden}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message, Status: http.StatusUnauthorized, Err: err}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{Code: CodeForbidden, Message: message, Status: http.StatusForbidden, Err: err}
}

// UpstreamTimeout marks a failed call to an external provider. Callers are
// expected to recover with a local fallback; this code never maps to a
// client-facing status.
func UpstreamTimeout(provider string, err error) *AppError {
	return &AppError{
		Code:    CodeUpstreamTimeout,
		Message: fmt.Sprintf("%s did not respond in time", provider),
		Status:  http.StatusGatewayTimeout,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Status: http.StatusInternalServerError, Err: err}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// From extracts the AppError from err, wrapping unknown errors as internal so
// handlers always have a status and code to respond with.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("unexpected error", err)
}
