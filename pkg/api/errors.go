package api

import (
	"errors"
	"strings"
)

// ErrCancelled is the sentinel cause of a run rejected via Cancel. Check it
// with errors.Is; the surfaced error is a *ProcessError wrapping it.
var ErrCancelled = errors.New("process cancelled")

// ProcessError is the decorated error a failed run rejects with. The engine
// fills Process, Completed and Running before any rollback or failure hook
// is invoked, so those hooks always observe the full decoration.
type ProcessError struct {
	// Process is the name of the process definition the run belongs to.
	Process string

	// Action names the failing action, when the failure originated in an
	// action's execute/retry (or init) hook.
	Action string

	// Completed and Running snapshot the run's bookkeeping at failure
	// time: Completed holds finished actions, Running holds actions that
	// had started but not finished.
	Completed []string
	Running   []string

	// Data carries caller-supplied payload merged in via Cancel.
	Data map[string]any

	// Err is the underlying cause.
	Err error
}

func (e *ProcessError) Error() string {
	var b strings.Builder
	b.WriteString("process")
	if e.Process != "" {
		b.WriteString(" " + e.Process)
	}
	if e.Action != "" {
		b.WriteString(": action " + e.Action)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ProcessError) Unwrap() error { return e.Err }

// IsCancelled reports whether err is (or wraps) a run cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
