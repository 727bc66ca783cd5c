package zlaunch

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-readable error class.
type ErrorCode string

const (
	// CodeProtocol marks malformed or unknown commands.
	CodeProtocol ErrorCode = "protocol_error"
	// CodeValidation marks well-formed commands with invalid arguments
	// (unknown mode, unknown theme, out-of-range selection).
	CodeValidation ErrorCode = "validation_error"
	// CodeCompositorUnavailable marks a compositor connection or timeout failure.
	CodeCompositorUnavailable ErrorCode = "compositor_unavailable"
	// CodeRefreshFailed marks a module whose index could not be rebuilt.
	CodeRefreshFailed ErrorCode = "index_refresh_failed"
	// CodeNotFound marks an entry or window that no longer exists.
	CodeNotFound ErrorCode = "not_found"
	// CodeStartup marks conditions that stop the daemon from starting.
	CodeStartup ErrorCode = "startup_fatal"
	// CodeInternal is used for anything not covered above.
	CodeInternal ErrorCode = "internal_error"
)

// Error describes a daemon-side error. It is both the wire error object and
// a Go error; errors.Is matches on Code against the Err* sentinels.
type Error struct {
	// Code is the error class.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error description.
	Message string `json:"message"`

	cause error
}

// Sentinels for errors.Is. They carry only a code.
var (
	ErrProtocol              = &Error{Code: CodeProtocol}
	ErrValidation            = &Error{Code: CodeValidation}
	ErrCompositorUnavailable = &Error{Code: CodeCompositorUnavailable}
	ErrRefreshFailed         = &Error{Code: CodeRefreshFailed}
	ErrNotFound              = &Error{Code: CodeNotFound}
	ErrStartup               = &Error{Code: CodeStartup}
)

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same code. A target with a
// message only matches the identical message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// NewError creates an error with the given code.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError tags cause with code, keeping it reachable through errors.Unwrap.
func WrapError(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Message: cause.Error(), cause: cause}
}

// Protocolf returns a protocol error.
func Protocolf(format string, args ...any) *Error {
	return NewError(CodeProtocol, format, args...)
}

// Validationf returns a validation error.
func Validationf(format string, args ...any) *Error {
	return NewError(CodeValidation, format, args...)
}

// AsError returns err as an *Error, tagging unknown errors as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapError(CodeInternal, err)
}

// CodeOf returns the code of err, or CodeInternal for untyped errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsError(err).Code
}
