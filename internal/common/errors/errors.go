package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeForbidden  ErrorCode = "FORBIDDEN"
	ErrCodeConflict   ErrorCode = "CONFLICT"

	// Wallet session errors
	ErrCodeAuthentication      ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeNotConnected        ErrorCode = "NOT_CONNECTED"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"

	// External service errors
	ErrCodeRemoteLookup ErrorCode = "REMOTE_LOOKUP_ERROR"
	ErrCodeCacheError   ErrorCode = "CACHE_ERROR"
)

// AppError is a typed application error carrying a stable code and a
// human-readable message suitable for surfacing to the caller.
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches structured detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an application error with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with an application code and message.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// NewAuthenticationError indicates the authentication oracle rejected or
// errored before the connect timeout fired.
func NewAuthenticationError(cause error) *AppError {
	return Wrap(cause, ErrCodeAuthentication, "Wallet authentication failed")
}

// NewNotConnectedError indicates an operation that requires an active
// session was invoked without one.
func NewNotConnectedError() *AppError {
	return New(ErrCodeNotConnected, "Wallet not connected")
}

// NewInsufficientBalanceError indicates a transaction would drive the
// balance negative.
func NewInsufficientBalanceError(balance, amount float64) *AppError {
	return New(ErrCodeInsufficientBalance, "Insufficient balance").
		WithDetail("balance", balance).
		WithDetail("amount", amount)
}

// NewRemoteLookupError indicates an identity-service or artwork call failed
// at the network level or returned a non-success status.
func NewRemoteLookupError(operation string, cause error) *AppError {
	return Wrapf(cause, ErrCodeRemoteLookup, "Remote call failed: %s", operation).
		WithDetail("operation", operation)
}

// NewValidationError creates a field validation error.
func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewNotFoundError creates a "not found" error for a resource.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// NewForbiddenError creates an access error.
func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Forbidden: %s", reason)).
		WithDetail("reason", reason)
}

// NewCacheError wraps a session-store failure.
func NewCacheError(operation string, cause error) *AppError {
	return Wrapf(cause, ErrCodeCacheError, "Store operation failed: %s", operation).
		WithDetail("operation", operation)
}

// AsAppError extracts an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the application code for an error, ErrCodeInternal when
// the error carries no code.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
