package simulator

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a SimError
type ErrorKind int

const (
	KindArgument       ErrorKind = iota // missing, unrecognized or unparsable configuration value
	KindValidation                      // consistent but semantically invalid configuration
	KindIO                              // trace file missing or unreadable
	KindMalformedInput                  // trace file size not a multiple of the record width
	KindInvalidInput                    // bad input to a pure helper (e.g. zero-length write set)
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindArgument:
		return "argument error"
	case KindValidation:
		return "invalid config"
	case KindIO:
		return "io error"
	case KindMalformedInput:
		return "malformed input"
	case KindInvalidInput:
		return "invalid input"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// SimError is a custom error type for simulation errors
type SimError struct {
	Kind    ErrorKind
	Message string
	Err     error // optional cause
}

func (e SimError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("simulation error: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("simulation error: %s: %s", e.Kind, e.Message)
}

func (e SimError) Unwrap() error {
	return e.Err
}

// Is matches any SimError of the same kind, so errors.Is(err, ErrKind(KindIO)) works
func (e SimError) Is(target error) bool {
	var t SimError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// ErrKind returns a sentinel used with errors.Is to test for an error kind
func ErrKind(kind ErrorKind) error {
	return SimError{Kind: kind}
}

// KindOf extracts the kind of err. ok is false if err is not a SimError.
func KindOf(err error) (kind ErrorKind, ok bool) {
	var se SimError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(msg string) error {
	return SimError{Kind: KindValidation, Message: msg}
}

// ErrArgument creates an error for a missing or unparsable argument
func ErrArgument(msg string) error {
	return SimError{Kind: KindArgument, Message: msg}
}

// ErrIO wraps a failure to open or read a trace
func ErrIO(msg string, cause error) error {
	return SimError{Kind: KindIO, Message: msg, Err: cause}
}

// ErrMalformedInput creates an error for a trace with a bad layout
func ErrMalformedInput(msg string) error {
	return SimError{Kind: KindMalformedInput, Message: msg}
}

// ErrInvalidInput creates an error for invalid arguments to pure helpers
func ErrInvalidInput(msg string) error {
	return SimError{Kind: KindInvalidInput, Message: msg}
}
