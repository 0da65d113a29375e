package api

import "context"

// Reserved bookkeeping keys. Action defaults under these names are dropped
// when the execution context is built so that an action's template fields can
// never shadow the shared run state.
const (
	keyStarted   = "started"
	keyCompleted = "completed"
)

// InitFunc runs once per top-level invocation of an action, before the
// execution context is built. Unlike the other hooks it receives the bare,
// unmerged RunContext so it can seed shared state that Execute will observe.
type InitFunc func(ctx context.Context, rc *RunContext) error

// ExecFunc is the body of an action. Its return value is recorded under the
// action's name in the run results.
type ExecFunc func(ctx context.Context, ec *ExecContext) (any, error)

// RetryFunc is consulted after every Execute failure. Returning nil means
// "try again"; returning an error aborts the whole run with that error.
// Engine-level retry policies do not exist: backoff, attempt caps and the
// like belong inside the RetryFunc itself.
type RetryFunc func(ctx context.Context, ec *ExecContext, cause error) error

// RollbackFunc is invoked fire-and-forget on every started action when a run
// fails. Its error never affects the run outcome; it is routed to the
// Observer's OnHookError sink.
type RollbackFunc func(ctx context.Context, rc *RunContext, cause error) error

// SuccessFunc is invoked fire-and-forget on every registered action when a
// run resolves.
type SuccessFunc func(ctx context.Context, rc *RunContext) error

// FailureFunc is invoked fire-and-forget on every registered action (started
// or not) when a run rejects.
type FailureFunc func(ctx context.Context, rc *RunContext, cause error) error

// Action is a named unit of work with six lifecycle hooks and an open map of
// per-run template defaults. Any nil hook is filled in at registration time:
// every hook defaults to a no-op except Retry, which defaults to abort.
//
// Actions are immutable once registered; the engine reads them but never
// writes. Defaults are copied into a fresh ExecContext at the start of each
// top-level invocation, so mutations made during a run never leak back into
// the Action.
type Action struct {
	Name string

	Init     InitFunc
	Execute  ExecFunc
	Retry    RetryFunc
	Rollback RollbackFunc
	Success  SuccessFunc
	Failure  FailureFunc

	// Defaults holds arbitrary extension fields seeded into the execution
	// context of every invocation. Entries named "started" or "completed"
	// are ignored.
	Defaults map[string]any
}

// NewAction creates an Action whose only configured hook is Execute.
// This covers the common "an action is just a function" case; use an Action
// literal for the full record.
func NewAction(name string, execute ExecFunc) *Action {
	return &Action{Name: name, Execute: execute}
}

// Normalized returns a copy of a with every nil hook replaced by its default.
// The engine normalizes actions at registration so run-time code never
// nil-checks hooks.
func (a *Action) Normalized() *Action {
	c := *a
	if c.Init == nil {
		c.Init = func(ctx context.Context, rc *RunContext) error { return nil }
	}
	if c.Execute == nil {
		c.Execute = func(ctx context.Context, ec *ExecContext) (any, error) { return nil, nil }
	}
	if c.Retry == nil {
		// Default retry policy: abort on first failure.
		c.Retry = func(ctx context.Context, ec *ExecContext, cause error) error { return cause }
	}
	if c.Rollback == nil {
		c.Rollback = func(ctx context.Context, rc *RunContext, cause error) error { return nil }
	}
	if c.Success == nil {
		c.Success = func(ctx context.Context, rc *RunContext) error { return nil }
	}
	if c.Failure == nil {
		c.Failure = func(ctx context.Context, rc *RunContext, cause error) error { return nil }
	}
	return &c
}

// Dedupe returns actions with later duplicates (by name) dropped; the first
// occurrence wins. Nil entries and empty names are skipped.
func Dedupe(actions []*Action) []*Action {
	seen := make(map[string]struct{}, len(actions))
	out := make([]*Action, 0, len(actions))
	for _, a := range actions {
		if a == nil || a.Name == "" {
			continue
		}
		if _, dup := seen[a.Name]; dup {
			continue
		}
		seen[a.Name] = struct{}{}
		out = append(out, a)
	}
	return out
}
