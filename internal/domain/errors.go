package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain-specific errors for better error handling and user feedback
var (
	// ErrInvalidInput is the kind shared by every rejected request field
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidURL is returned when the provided URL is invalid
	ErrInvalidURL = fmt.Errorf("%w: invalid URL format", ErrInvalidInput)

	// ErrInvalidAlias is returned when a custom alias is malformed
	ErrInvalidAlias = fmt.Errorf("%w: alias must be 3-20 alphanumeric characters", ErrInvalidInput)

	// ErrAliasTaken is returned when a code is already in use
	ErrAliasTaken = errors.New("short code already exists")

	// ErrURLNotFound is returned when a short code doesn't exist
	ErrURLNotFound = errors.New("URL not found")

	// ErrURLExpired is returned when redirecting through an expired URL
	ErrURLExpired = errors.New("URL has expired")

	// ErrStorageUnavailable is returned when the store cannot serve a request
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")
)

// AppError wraps errors with additional context for better debugging
type AppError struct {
	Err        error  // Original error
	Message    string // User-friendly message
	StatusCode int    // HTTP status code
	Internal   bool   // Whether to log as internal error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a 400 error. kind is the sentinel the request
// failed on and message is shown to the client as-is.
func NewValidationError(kind error, message string) *AppError {
	return &AppError{
		Err:        kind,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewStorageError wraps a backend failure as ErrStorageUnavailable.
// The cause stays reachable through errors.Is.
func NewStorageError(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, cause)
}

// NewInternalError creates a 500 internal server error
func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "Internal server error occurred",
		StatusCode: http.StatusInternalServerError,
		Internal:   true,
	}
}
