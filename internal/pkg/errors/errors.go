// Package errors provides custom error types and error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
)

// Error codes.
const (
	// Input errors.
	CodeParse      = "PARSE_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"

	// Backend errors.
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
	CodeInternal    = "INTERNAL_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ParseError creates a fatal parse error for a line of an input file.
// A line of 0 means the error concerns the file as a whole.
func ParseError(path string, line int, message string) *AppError {
	err := New(CodeParse, message).WithDetail("path", path)
	if line > 0 {
		err = err.WithDetail("line", strconv.Itoa(line))
		err.Message = fmt.Sprintf("%s:%d: %s", path, line, message)
	} else {
		err.Message = fmt.Sprintf("%s: %s", path, message)
	}
	return err
}

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string, err error) *AppError {
	return Wrap(CodeNotFound, fmt.Sprintf("%s not found", resource), err)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string, err error) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return Wrap(CodeUnavailable, message, err)
}

// CodeOf returns the code of the first AppError in err's chain, or "" if
// there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsParse checks if error is a parse error.
func IsParse(err error) bool {
	return CodeOf(err) == CodeParse
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}
