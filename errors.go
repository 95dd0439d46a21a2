package userreg

import (
	"errors"
	"fmt"
)

// Error codes for categorizing errors.
const (
	CodeMissingFields     = "MISSING_FIELDS"
	CodeInvalidEmail      = "INVALID_EMAIL"
	CodePasswordTooShort  = "PASSWORD_TOO_SHORT"
	CodePasswordTooLong   = "PASSWORD_TOO_LONG"
	CodeUserExists        = "USER_EXISTS"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeStoreRequired     = "STORE_REQUIRED"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeInternal          = "INTERNAL"
)

// Sentinel errors for use with errors.Is().
var (
	// Validation errors
	ErrMissingFields    = errors.New("email and password are required")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password is too long")

	// Conflict errors
	ErrUserExists = errors.New("user already exists")

	// Rate limit errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// Store errors
	ErrStoreRequired    = errors.New("store is required")
	ErrStoreUnavailable = errors.New("store is unavailable")

	// Config errors
	ErrConfigInvalid = errors.New("configuration is invalid")

	// Lifecycle errors
	ErrClosed = errors.New("service is closed")
)

// Error is a structured error carrying a code and a client-facing message.
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code, message, and optional wrapped error.
func NewError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError returns true if the error rejects client input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrPasswordTooShort) ||
		errors.Is(err, ErrPasswordTooLong)
}

// IsConflictError returns true if the error reports an existing user.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrUserExists)
}

// IsStoreError returns true if the error is a store availability error.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStoreRequired) ||
		errors.Is(err, ErrStoreUnavailable)
}

// MessageOf returns the client-facing message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
