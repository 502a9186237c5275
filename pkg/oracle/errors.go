package oracle

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode classifies an oracle failure.
type ErrorCode string

const (
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeExecutionError   ErrorCode = "EXECUTION_ERROR"
	CodeModelError       ErrorCode = "MODEL_ERROR"
	CodeOutputParseError ErrorCode = "OUTPUT_PARSE_ERROR"
	CodeNotAvailable     ErrorCode = "NOT_AVAILABLE"
)

// Error is a typed oracle failure.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a typed oracle error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError builds a typed oracle error around a cause.
func WrapError(code ErrorCode, cause error, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the error code from err. Untyped errors map to
// CodeNotAvailable so callers always have a code to record.
func CodeOf(err error) ErrorCode {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code
	}
	return CodeNotAvailable
}

// IsRetryable reports whether the failure is worth retrying at the client
// level. Rate limits and transient unavailability are; everything else is a
// deterministic failure.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeRateLimited, CodeNotAvailable:
		return true
	default:
		return false
	}
}
