package api

import "context"

// ProcessDefinition names a set of actions and the strategy that schedules
// them. Actions are deduplicated by name at registration (first occurrence
// wins) and snapshotted as the fixed action set of the process.
type ProcessDefinition struct {
	Name     string
	Actions  []*Action
	Strategy Strategy
}

// Engine registers process definitions and dispatches runs of them.
type Engine interface {
	// RegisterProcess registers a definition by name.
	RegisterProcess(def ProcessDefinition) error

	// Dispatch starts one run of the named process and returns its handle
	// without waiting for the run to finish. The context is threaded into
	// every hook invocation of the run; cancelling it does not by itself
	// terminate the run (use Handle.Cancel for that).
	Dispatch(ctx context.Context, process string, args ...any) (Handle, error)

	// Run dispatches and waits: it resolves with the run's results or the
	// decorated run error. The context bounds the wait as well.
	Run(ctx context.Context, process string, args ...any) (Results, error)

	// RunHandle returns the handle of a live run by ID. Finished runs are
	// evicted, so ok is false both for unknown and for completed runs.
	RunHandle(runID string) (Handle, bool)

	// History returns the journalled events of a run, oldest first. Engines
	// built without a journal return nil.
	History(ctx context.Context, runID string) ([]RunEvent, error)
}

// Handle is one dispatched run: a future of its Results plus the three
// control operations bound to that run.
type Handle interface {
	// RunID returns the unique ID assigned to this run.
	RunID() string

	// Done is closed when the run reaches a terminal state.
	Done() <-chan struct{}

	// Wait blocks until the run finishes and returns its outcome. The
	// context bounds only the wait, never the run itself: a caller that
	// gives up waiting leaves the run in flight.
	Wait(ctx context.Context) (Results, error)

	// Cancel rejects the run with a cancellation error carrying data.
	// Cooperative, not preemptive: no future action starts, but hooks
	// already in flight run to completion.
	Cancel(data map[string]any)

	// Stop resolves the run with the results recorded so far and prevents
	// any further action from starting.
	Stop()

	// Update merges conditions into the run's condition set and triggers
	// scheduling if no cascade is currently in flight.
	Update(conditions map[string]any)
}
