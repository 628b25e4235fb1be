package util

import (
	"errors"
	"fmt"
)

// Kind classifies fleet failures so callers can tell them apart with errors.Is.
type Kind string

const (
	// KindConfiguration is a missing or invalid setting at actor start. Not retried.
	KindConfiguration Kind = "Configuration"
	// KindInitialization means the device logic refused to initialize.
	KindInitialization Kind = "Initialization"
	// KindTick is a failed update/report/publish cycle. Recovered inside the actor.
	KindTick Kind = "Tick"
	// KindCommand is an unrecognized or rejected command.
	KindCommand Kind = "Command"
	// KindNotFound is a lookup against an id the registry does not know.
	KindNotFound Kind = "NotFound"
	// KindPlacement is a duplicate id or a supervisor-level failure.
	KindPlacement Kind = "Placement"
	// KindTerminated is a call against an actor that has already stopped.
	KindTerminated Kind = "Terminated"
)

// Sentinels for errors.Is. Any *Error with the same Kind matches.
var (
	ErrConfiguration  = &Error{Kind: KindConfiguration}
	ErrInitialization = &Error{Kind: KindInitialization}
	ErrTick           = &Error{Kind: KindTick}
	ErrCommand        = &Error{Kind: KindCommand}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrPlacement      = &Error{Kind: KindPlacement}
	ErrTerminated     = &Error{Kind: KindTerminated}
)

// ErrAlreadyRegistered is the cause carried by a placement error when the id is taken.
var ErrAlreadyRegistered = errors.New("device id already registered")

// Error is the typed failure value returned across the actor and fleet APIs.
type Error struct {
	Kind     Kind
	DeviceID string
	Err      error
}

// NewError builds an *Error of the given kind.
func NewError(kind Kind, deviceID string, err error) *Error {
	return &Error{Kind: kind, DeviceID: deviceID, Err: err}
}

// Errorf builds an *Error whose cause is formatted like fmt.Errorf (so %w works).
func Errorf(kind Kind, deviceID string, format string, args ...any) *Error {
	return &Error{Kind: kind, DeviceID: deviceID, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.DeviceID != "" {
		msg += " (device " + e.DeviceID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
