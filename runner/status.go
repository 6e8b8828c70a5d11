package runner

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a Runner.
type Status int

const (
	Idle Status = iota
	Running
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Running:
		return "RUNNING"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// IsTerminal reports whether the status ends a run.
func IsTerminal(s Status) bool {
	return s == Completed || s == Failed
}

var ErrTransition = errors.New("invalid runner transition")

// TransitionError reports a status change the runner does not allow, such as
// starting a run on a runner that has not been reset.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrTransition }

func isAllowedTransition(from, to Status) bool {
	switch from {
	case Idle:
		return to == Running
	case Running:
		return to == Completed || to == Failed
	case Completed, Failed:
		return to == Idle
	default:
		return false
	}
}
