package sequencer

import (
	"errors"
	"fmt"

	"github.com/smazurov/lcrnode/internal/device"
)

// Kind classifies a sequencer error.
type Kind string

// Error kinds.
const (
	KindConnection       Kind = "connection"
	KindInvalidState     Kind = "invalid_state"
	KindInvalidEntry     Kind = "invalid_entry"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindIndexOutOfRange  Kind = "index_out_of_range"
	KindInvalidConfig    Kind = "invalid_config"
	KindInvalidTiming    Kind = "invalid_timing"
	KindDeviceRejected   Kind = "device_rejected"
	KindValidationFailed Kind = "validation_failed"
	KindNotValidated     Kind = "not_validated"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConnection       = &Error{Kind: KindConnection}
	ErrInvalidState     = &Error{Kind: KindInvalidState}
	ErrInvalidEntry     = &Error{Kind: KindInvalidEntry}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrIndexOutOfRange  = &Error{Kind: KindIndexOutOfRange}
	ErrInvalidConfig    = &Error{Kind: KindInvalidConfig}
	ErrInvalidTiming    = &Error{Kind: KindInvalidTiming}
	ErrDeviceRejected   = &Error{Kind: KindDeviceRejected}
	ErrValidationFailed = &Error{Kind: KindValidationFailed}
	ErrNotValidated     = &Error{Kind: KindNotValidated}
)

// ErrTableNotSent is the cause of the InvalidState error returned by
// Validate when staged table changes have not been sent to the device.
var ErrTableNotSent = errors.New("pattern table changed since last send")

// Error is returned by every Controller operation that fails.
type Error struct {
	Kind       Kind
	Op         string
	Command    device.Command
	Status     ValidationStatus
	Diagnostic Diagnostic
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Command != 0 {
		msg += fmt.Sprintf(" [%s]", e.Command)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of err, or "" when err is not a sequencer error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func stateError(op string, state State) *Error {
	return newError(KindInvalidState, op, fmt.Sprintf("not permitted while %s", state))
}

// fromDevice converts a device failure. Negative device status becomes
// DeviceRejected; anything else on the link is a Connection failure.
func fromDevice(op string, err error) *Error {
	e := &Error{Kind: KindConnection, Op: op, Cause: err}

	var de *device.Error
	if errors.As(err, &de) {
		e.Command = de.Command
		if !de.IsConnection() {
			e.Kind = KindDeviceRejected
			e.Message = fmt.Sprintf("device returned status %d", de.Status)
		}
	}
	return e
}
