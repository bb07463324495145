// Package errors provides structured error types for sheetbatch.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the batch components
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages for the terminal status line
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input and configuration validation failures
//   - *_NOT_FOUND: A required lookup yielded nothing
//   - PERSISTENCE_CONFLICT, STORE_ERROR: View-set persistence failures
//   - HOST_FAULT, INTERNAL_*: Broken host integration or unexpected errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeFormatNotFound, "format not found for %q", label)
//	if errors.Is(err, errors.ErrCodeFormatNotFound) {
//	    // Handle the aborted batch
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStore, origErr, "save view set %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidLabel  Code = "INVALID_LABEL"
	ErrCodeInvalidName   Code = "INVALID_NAME"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Lookup errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeViewNotFound   Code = "VIEW_NOT_FOUND"
	ErrCodeFormatNotFound Code = "FORMAT_NOT_FOUND"
	ErrCodeDriverNotFound Code = "DRIVER_NOT_FOUND"

	// Persistence errors
	ErrCodeConflict Code = "PERSISTENCE_CONFLICT"
	ErrCodeStore    Code = "STORE_ERROR"

	// Host and internal errors
	ErrCodeHostFault   Code = "HOST_FAULT"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
