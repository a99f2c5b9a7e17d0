package pairing

import (
	"errors"
	"fmt"
)

// Pairing errors.
var (
	// ErrNotSupported is returned when an operation is not available for an
	// authentication scheme, such as Pair-Setup for transient credentials or
	// encryption keys from the null verifier.
	ErrNotSupported = errors.New("pairing: not supported")

	// ErrNoPin is returned by Finish when no PIN has been supplied.
	ErrNoPin = errors.New("no pin given")

	// ErrInvalidPin is returned for negative PIN values.
	ErrInvalidPin = errors.New("pairing: invalid pin")

	// ErrNotBegun is returned when Pin is called before Begin.
	ErrNotBegun = errors.New("pairing: not begun")

	// ErrAlreadyBegun is returned when Begin is called twice.
	ErrAlreadyBegun = errors.New("pairing: already begun")

	// ErrAlreadyFinished is returned when Finish is called more than once.
	ErrAlreadyFinished = errors.New("pairing: already finished")

	// ErrClosed is returned for any operation after Close.
	ErrClosed = errors.New("pairing: handler closed")

	// ErrVerifyFailed is returned when freshly obtained credentials do not
	// pass Pair-Verify.
	ErrVerifyFailed = errors.New("pairing: new credentials failed verification")

	// ErrMissingService is returned when a handler has no service bound.
	ErrMissingService = errors.New("pairing: no service")

	// ErrMissingProcedure is returned when a handler has no setup procedure
	// or verifier bound.
	ErrMissingProcedure = errors.New("pairing: no procedure")
)

// Error wraps every failure of the interactive Begin, Pin and Finish flow.
type Error struct {
	// Op is the handler operation that failed.
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("pairing %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return err
	}
	return &Error{Op: op, Err: err}
}
