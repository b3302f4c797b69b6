// Package errors provides structured error types for jet.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the object model, loader, and CLI
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes are grouped by the component that raises them:
//   - ATTR_*: attribute schema contract violations
//   - INVALID_*: input validation failures
//   - DEPENDENCY_*, FETCH_*, FACTORY_*: module loader failures
//   - NOT_FOUND, NETWORK_ERROR, TIMEOUT: collaborator failures
//   - INTERNAL_*: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeAttrReadOnly, "attribute %q is read-only", name)
//	if errors.Is(err, errors.ErrCodeAttrReadOnly) {
//	    // Handle the violated contract
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFetchFailed, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Attribute schema contract violations
	ErrCodeAttrRequired Code = "ATTR_REQUIRED"
	ErrCodeAttrConflict Code = "ATTR_CONFLICT"
	ErrCodeAttrReadOnly Code = "ATTR_READ_ONLY"

	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidModule     Code = "INVALID_MODULE"
	ErrCodeInvalidManifest   Code = "INVALID_MANIFEST"
	ErrCodeInvalidDependency Code = "INVALID_DEPENDENCY"
	ErrCodeInvalidFormat     Code = "INVALID_FORMAT"

	// Loader errors
	ErrCodeDependencyCycle      Code = "DEPENDENCY_CYCLE"
	ErrCodeDependencyUnresolved Code = "DEPENDENCY_UNRESOLVED"
	ErrCodeFetchFailed          Code = "FETCH_FAILED"
	ErrCodeFactoryPanic         Code = "FACTORY_PANIC"
	ErrCodeLoaderClosed         Code = "LOADER_CLOSED"

	// Resource not found errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeModuleNotFound Code = "MODULE_NOT_FOUND"
	ErrCodeMethodNotFound Code = "METHOD_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
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
// It unwraps the error chain looking for an *Error with a matching code,
// so a FETCH_FAILED wrapping a NETWORK_ERROR matches both codes.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
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

// CycleError reports a dependency cycle together with the offending path.
// The path starts and ends with the same module name, e.g. [a b c a].
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// Code returns the error code for this error type.
func (e *CycleError) Code() Code {
	return ErrCodeDependencyCycle
}
