package service

import (
	"errors"
	"fmt"
)

// ErrAuthRequired is the terminal polling failure: two consecutive
// re-login attempts were rejected with genuine credential errors. The
// coordinator latches it and stops polling until the process restarts
// with fresh credentials. It is never masked by cached data.
var ErrAuthRequired = errors.New("authentication rejected, credentials must be re-supplied")

// ErrUnknownDevice is returned for a device id the coordinator does not own.
var ErrUnknownDevice = errors.New("unknown device")

// UpdateFailedError is the recoverable cycle failure: a refresh failed
// and no prior snapshot exists to serve. The next tick retries from
// scratch.
type UpdateFailedError struct {
	Err error
}

func (e *UpdateFailedError) Error() string {
	return fmt.Sprintf("update failed with no cached data: %v", e.Err)
}

func (e *UpdateFailedError) Unwrap() error { return e.Err }

// ValidationError rejects caller-correctable input before any device
// call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// InvalidStateError rejects a command that cannot apply in the device's
// current operating mode, e.g. any hold command while the reported mode
// is unrecognized.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string { return e.Reason }

// OperationFailedError wraps a device-side rejection of a well-formed
// command. It does not affect the polling session's validity.
type OperationFailedError struct {
	Op  string
	Err error
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationFailedError) Unwrap() error { return e.Err }

// IsValidation reports whether err is caller-correctable input.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsInvalidState reports whether err means the device's current mode
// forbids the command.
func IsInvalidState(err error) bool {
	var v *InvalidStateError
	return errors.As(err, &v)
}

// IsOperationFailed reports whether err is a device-side rejection.
func IsOperationFailed(err error) bool {
	var v *OperationFailedError
	return errors.As(err, &v)
}
