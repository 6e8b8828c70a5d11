package quantum

import (
	"errors"
	"fmt"
)

var (
	ErrDimension     = errors.New("dimension error")
	ErrRegisterIndex = errors.New("register index error")
	ErrEmptyState    = errors.New("empty state")
	ErrNorm          = errors.New("state not normalized")
)

// StateError wraps a deterministic state-vector failure with its context.
type StateError struct {
	Kind error
	Msg  string
}

func (e *StateError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *StateError) Unwrap() error { return e.Kind }

func dimensionf(format string, args ...any) error {
	return &StateError{Kind: ErrDimension, Msg: fmt.Sprintf(format, args...)}
}

func registerf(format string, args ...any) error {
	return &StateError{Kind: ErrRegisterIndex, Msg: fmt.Sprintf(format, args...)}
}

func emptyf(format string, args ...any) error {
	return &StateError{Kind: ErrEmptyState, Msg: fmt.Sprintf(format, args...)}
}
