package transport

import (
	"errors"
	"fmt"
)

// ErrTransport is the sentinel wrapped by every Send failure.
var ErrTransport = errors.New("transport error")

// Error describes a failed open, settle, write or drain step.
type Error struct {
	Op     string // "open", "settle", "write", "drain"
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %s", e.Op, e.Reason)
}

// Unwrap exposes both ErrTransport and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

func newError(op string, err error) *Error {
	return &Error{Op: op, Reason: err.Error(), Err: err}
}
