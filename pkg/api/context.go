package api

import "sync"

// Results maps an action name to the value its Execute hook returned.
type Results map[string]any

// Controls are the three run-bound control operations the engine wires into
// a RunContext at creation time. Constructing them eagerly as plain functions
// over the run state avoids the forward-reference closures a lazily-built
// handle would need.
type Controls struct {
	// Cancel rejects the run with a cancellation error carrying data.
	Cancel func(data map[string]any)

	// Stop resolves the run with the results recorded so far.
	Stop func()

	// Update merges conditions into the run and, if no scheduling cascade
	// is in flight, asks the strategy for newly eligible actions.
	Update func(conditions map[string]any)
}

// RunContext is the shared state of one run: invocation args, the mutable
// condition set, per-action results, started/completed bookkeeping, and the
// three control operations bound to this run.
//
// Its top-level shape is fixed at creation; conditions, results, started and
// completed are the only mutable interior collections, and all access to
// them goes through mutex-guarded methods because action hooks execute on
// concurrent goroutines.
type RunContext struct {
	mu         sync.Mutex
	args       []any
	start      string
	conditions map[string]any
	results    Results
	started    []string
	completed  []string
	controls   Controls
}

// NewRunContext builds the shared context for one run. The engine is the
// only expected caller outside of tests.
func NewRunContext(args []any, controls Controls) *RunContext {
	return &RunContext{
		args:       args,
		conditions: make(map[string]any),
		results:    make(Results),
		controls:   controls,
	}
}

// ApplySeed merges a strategy-provided seed (start action hint and initial
// conditions) into the context. Called once, before the first cascade.
func (rc *RunContext) ApplySeed(seed ContextSeed) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if seed.Start != "" {
		rc.start = seed.Start
	}
	for k, v := range seed.Conditions {
		rc.conditions[k] = v
	}
}

// Args returns the caller-supplied invocation arguments. Treat as read-only.
func (rc *RunContext) Args() []any { return rc.args }

// Start returns the start action hint seeded from the invocation arguments,
// or "" if none was given.
func (rc *RunContext) Start() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.start
}

// Condition returns one condition value.
func (rc *RunContext) Condition(key string) (any, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	v, ok := rc.conditions[key]
	return v, ok
}

// Conditions returns a snapshot of the current condition set.
func (rc *RunContext) Conditions() map[string]any {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make(map[string]any, len(rc.conditions))
	for k, v := range rc.conditions {
		out[k] = v
	}
	return out
}

// MergeConditions merges conds into the condition set without triggering any
// scheduling. Use Update to merge and schedule.
func (rc *RunContext) MergeConditions(conds map[string]any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for k, v := range conds {
		rc.conditions[k] = v
	}
}

// Result returns the recorded result of one action.
func (rc *RunContext) Result(name string) (any, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	v, ok := rc.results[name]
	return v, ok
}

// Results returns a snapshot of the results recorded so far.
func (rc *RunContext) Results() Results {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make(Results, len(rc.results))
	for k, v := range rc.results {
		out[k] = v
	}
	return out
}

// SetResult records an action's execute result. Written once per invocation
// of that action; a re-scheduled action (state-machine loops) overwrites its
// previous entry.
func (rc *RunContext) SetResult(name string, value any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.results[name] = value
}

// MarkStarted appends name to the started list.
func (rc *RunContext) MarkStarted(name string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.started = append(rc.started, name)
}

// MarkCompleted appends name to the completed list.
func (rc *RunContext) MarkCompleted(name string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.completed = append(rc.completed, name)
}

// HasStarted reports whether name has begun at least once in this run.
func (rc *RunContext) HasStarted(name string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for _, s := range rc.started {
		if s == name {
			return true
		}
	}
	return false
}

// Started returns a snapshot of the ordered list of started action names.
func (rc *RunContext) Started() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]string(nil), rc.started...)
}

// Completed returns a snapshot of the ordered list of completed action names.
func (rc *RunContext) Completed() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]string(nil), rc.completed...)
}

// CompletedCount returns the number of completions recorded so far.
func (rc *RunContext) CompletedCount() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.completed)
}

// LastCompleted returns the most recently completed action name.
func (rc *RunContext) LastCompleted() (string, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.completed) == 0 {
		return "", false
	}
	return rc.completed[len(rc.completed)-1], true
}

// Running returns the started actions that have not completed yet.
func (rc *RunContext) Running() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	done := make(map[string]int, len(rc.completed))
	for _, c := range rc.completed {
		done[c]++
	}
	var out []string
	for _, s := range rc.started {
		if done[s] > 0 {
			done[s]--
			continue
		}
		out = append(out, s)
	}
	return out
}

// Cancel rejects this run. Safe to call from any goroutine, including action
// hooks; in-flight hooks still run to completion.
func (rc *RunContext) Cancel(data map[string]any) {
	if rc.controls.Cancel != nil {
		rc.controls.Cancel(data)
	}
}

// Stop resolves this run with the results recorded so far and prevents any
// further action from starting.
func (rc *RunContext) Stop() {
	if rc.controls.Stop != nil {
		rc.controls.Stop()
	}
}

// Update merges conditions into the run and triggers scheduling if no
// cascade is currently in flight. While a cascade is active the call is a
// deliberate no-op beyond the merge: the in-flight cascade re-queries the
// strategy when it settles.
func (rc *RunContext) Update(conditions map[string]any) {
	if rc.controls.Update != nil {
		rc.controls.Update(conditions)
		return
	}
	rc.MergeConditions(conditions)
}

// ExecContext is the merged view one top-level action invocation executes
// against: the shared RunContext plus a private variable map seeded from the
// action's Defaults. The retry loop threads the same ExecContext forward, so
// variable mutations made during a failed attempt are visible to the retry.
type ExecContext struct {
	*RunContext

	vars map[string]any
}

// NewExecContext builds the execution context for one invocation of a,
// copying a.Defaults (minus reserved bookkeeping names) into the private
// variable map.
func NewExecContext(rc *RunContext, a *Action) *ExecContext {
	vars := make(map[string]any, len(a.Defaults))
	for k, v := range a.Defaults {
		if k == keyStarted || k == keyCompleted {
			continue
		}
		vars[k] = v
	}
	return &ExecContext{RunContext: rc, vars: vars}
}

// Var returns one invocation-scoped variable.
func (ec *ExecContext) Var(key string) (any, bool) {
	v, ok := ec.vars[key]
	return v, ok
}

// SetVar sets an invocation-scoped variable. It never touches the shared
// RunContext.
func (ec *ExecContext) SetVar(key string, value any) {
	ec.vars[key] = value
}

// Vars returns the invocation's variable map. The map is owned by the
// invocation: only the hooks of a single invocation ever touch it, so no
// locking is needed.
func (ec *ExecContext) Vars() map[string]any { return ec.vars }
