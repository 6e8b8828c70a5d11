package gates

import (
	"errors"
	"fmt"
)

// ErrInvalidGate is the kind of every gate construction or validation failure.
var ErrInvalidGate = errors.New("invalid gate")

// InvalidGateError reports a gate that is unknown, malformed or not unitary.
type InvalidGateError struct {
	Name string
	Msg  string
}

func (e *InvalidGateError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s %q", ErrInvalidGate, e.Name)
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidGate, e.Name, e.Msg)
}

func (e *InvalidGateError) Unwrap() error { return ErrInvalidGate }

func invalidf(name, format string, args ...any) error {
	return &InvalidGateError{Name: name, Msg: fmt.Sprintf(format, args...)}
}
