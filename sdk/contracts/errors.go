package contracts

import (
	"errors"
	"fmt"
)

// Code is a stable, transport-safe error code.
type Code string

const (
	// CodeInvalidArgument marks missing, malformed or out-of-range input. Never retried.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeNotFound marks an unknown instance id.
	CodeNotFound Code = "NOT_FOUND"
	// CodeNotInitialized marks an operation that requires a Ready instance.
	CodeNotInitialized Code = "NOT_INITIALIZED"
	// CodeLoadFailed marks a soundbank parse or engine attach failure. Safe to retry.
	CodeLoadFailed Code = "LOAD_FAILED"
	// CodeEngineUnavailable marks a synthesis engine that could not start or stopped responding.
	CodeEngineUnavailable Code = "ENGINE_UNAVAILABLE"
)

// Error is the only error type returned across the SDK boundary.
// It has no Unwrap; collaborator errors are folded into Message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target carries the same code, so errors.Is works
// against the sentinels below regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidArgument   = &Error{Code: CodeInvalidArgument}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrNotInitialized    = &Error{Code: CodeNotInitialized}
	ErrLoadFailed        = &Error{Code: CodeLoadFailed}
	ErrEngineUnavailable = &Error{Code: CodeEngineUnavailable}
)

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code of err, or "" when err is nil or not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
