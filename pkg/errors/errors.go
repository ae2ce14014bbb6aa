package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure taxonomy of the list-state engine.
var (
	// ErrNetwork indicates a transport-level failure (dial, timeout) talking
	// to the remote list service.
	ErrNetwork = errors.New("network error")
	// ErrServerRejected indicates the remote list service answered with a
	// non-2xx status or a success:false envelope.
	ErrServerRejected = errors.New("server rejected request")
	// ErrMalformedLocalData indicates a corrupt persisted bucket. Callers
	// recover by treating the bucket as empty.
	ErrMalformedLocalData = errors.New("malformed local data")
	// ErrMissingIdentity indicates a mutation was attempted without a
	// resolvable user or product id. Treated as a silent no-op, never
	// surfaced to the user.
	ErrMissingIdentity = errors.New("missing identity")

	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Network creates a 502 error for a transport failure against the remote
// list service.
func Network(err error) *AppError {
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: "remote list service unreachable",
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %w", ErrNetwork, err),
	}
}

// ServerRejected creates a 502 error for a remote rejection.
func ServerRejected(message string) *AppError {
	return &AppError{
		Code:    "SERVER_REJECTED",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     ErrServerRejected,
	}
}

// MalformedLocalData wraps a local decode failure. The local store recovers
// by returning an empty bucket, so this rarely escapes that layer.
func MalformedLocalData(err error) *AppError {
	return &AppError{
		Code:    "MALFORMED_LOCAL_DATA",
		Message: "persisted bucket could not be decoded",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrMalformedLocalData, err),
	}
}

// MissingIdentity creates the guard error for mutations lacking a user or
// product id.
func MissingIdentity(message string) *AppError {
	return &AppError{
		Code:    "MISSING_IDENTITY",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrMissingIdentity,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMissingIdentity):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrServerRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
