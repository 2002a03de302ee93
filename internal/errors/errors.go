// Package errors defines the coded error type returned by jrep operations.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode is a stable identifier for a failure class.
type ErrorCode string

const (
	// ParseError indicates a document did not match its expected shape
	ParseError ErrorCode = "PARSE_ERROR"
	// InputUnreadable indicates an input could not be read or decompressed
	InputUnreadable ErrorCode = "INPUT_UNREADABLE"
	// UnsupportedFormat indicates an unknown input or output format
	UnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// StoreUnavailable indicates the run history store could not be used
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// RunNotFound indicates a run ID has no record in the history store
	RunNotFound ErrorCode = "RUN_NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// JrepError carries a code, a message and an optional underlying cause.
type JrepError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a JrepError without a cause.
func New(code ErrorCode, message string) *JrepError {
	return &JrepError{Code: code, Message: message}
}

// Newf creates a JrepError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *JrepError {
	return &JrepError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a JrepError around cause.
func Wrap(code ErrorCode, message string, cause error) *JrepError {
	return &JrepError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *JrepError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *JrepError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *JrepError) WithDetails(details interface{}) *JrepError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first JrepError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var je *JrepError
	if stderrors.As(err, &je) {
		return je.Code
	}
	return InternalError
}

// IsCode reports whether err's chain contains a JrepError with code.
func IsCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}
