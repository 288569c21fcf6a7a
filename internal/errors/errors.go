package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Error is the structured error returned by the engagement core
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status for the error's code
func (e *Error) Status() int {
	return e.Code.StatusCode()
}

// Configuration creates a CONFIGURATION_ERROR for an unrecognized field
func Configuration(field, message string) *Error {
	return &Error{Code: CodeConfiguration, Message: message, Field: field}
}

// Validation creates a VALIDATION_ERROR
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// Timeout creates a TIMEOUT error
func Timeout(operation string, cause error) *Error {
	return &Error{Code: CodeTimeout, Message: fmt.Sprintf("%s timed out", operation), Cause: cause}
}

// Unavailable creates a SERVICE_UNAVAILABLE error
func Unavailable(service string, cause error) *Error {
	return &Error{Code: CodeUnavailable, Message: fmt.Sprintf("%s is unavailable", service), Cause: cause}
}

// Internal creates an INTERNAL_ERROR
func Internal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: message, Cause: cause}
}

// FromStore classifies a failed event store call as a timeout or an outage.
// Errors that are already structured pass through untouched.
func FromStore(operation string, err error) error {
	return FromDependency("event store", operation, err)
}

// FromDependency is FromStore for any named backing service
func FromDependency(service, operation string, err error) error {
	if err == nil {
		return nil
	}
	var structured *Error
	if stderrors.As(err, &structured) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return Timeout(operation, err)
	}
	if stderrors.Is(err, context.Canceled) {
		return err
	}
	return Unavailable(service, fmt.Errorf("%s: %w", operation, err))
}

// CodeOf returns the error code carried by err, or "" when unstructured
func CodeOf(err error) ErrorCode {
	var structured *Error
	if stderrors.As(err, &structured) {
		return structured.Code
	}
	return ""
}

// IsCode reports whether err carries the given code anywhere in its chain
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
