package circuit

import (
	"errors"
	"fmt"
)

var (
	ErrConflict = errors.New("placement conflict")
	ErrRange    = errors.New("out of range")
)

// ConflictError reports a register that already has a placement at a moment,
// or a register listed twice in one placement.
type ConflictError struct {
	Moment   int
	Register int
	Gate     string
	Existing string
}

func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	if e.Existing == "" {
		return fmt.Sprintf("%s: %s lists register %d twice at moment %d", ErrConflict, e.Gate, e.Register, e.Moment)
	}
	return fmt.Sprintf("%s: %s on register %d at moment %d collides with %s", ErrConflict, e.Gate, e.Register, e.Moment, e.Existing)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// RangeError reports a negative moment, a register index beyond the circuit's
// register count, or an invalid register count.
type RangeError struct {
	Msg string
}

func (e *RangeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", ErrRange, e.Msg)
}

func (e *RangeError) Unwrap() error { return ErrRange }

func rangef(format string, args ...any) error {
	return &RangeError{Msg: fmt.Sprintf(format, args...)}
}
