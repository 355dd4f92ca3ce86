package device

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the class of a device error.
type ErrorCode string

// Device error codes.
const (
	ErrCodeDeviceNotFound ErrorCode = "DEVICE_NOT_FOUND"
	ErrCodeNotConnected   ErrorCode = "NOT_CONNECTED"
	ErrCodeLinkClosed     ErrorCode = "LINK_CLOSED"
	ErrCodeTransport      ErrorCode = "TRANSPORT_FAILED"
	ErrCodeRejected       ErrorCode = "REJECTED"
	ErrCodeShortReply     ErrorCode = "SHORT_REPLY"
)

// ErrLinkClosed is returned by links that have been closed or unplugged.
var ErrLinkClosed = errors.New("link closed")

// Error is returned by Session for every failed command.
type Error struct {
	Code    ErrorCode
	Command Command
	Status  int
	Message string
	Cause   error
}

func newError(code ErrorCode, cmd Command, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Command: cmd,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Code)
	if e.Command != 0 {
		prefix = fmt.Sprintf("[%s] %s", e.Code, e.Command)
	}
	if e.Code == ErrCodeRejected {
		prefix = fmt.Sprintf("%s (status %d)", prefix, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsConnection reports whether the error is a link-level failure rather
// than a command the device answered with a negative status.
func (e *Error) IsConnection() bool {
	return e.Code != ErrCodeRejected
}
