// Package cascata provides a lightweight, embeddable process engine for Go.
//
// Cascata runs a named, multi-step asynchronous process composed of discrete
// actions, where the order of execution is decided by a pluggable strategy
// rather than hard-coded control flow. The same action abstraction supports
// two execution disciplines out of the box, a workflow discipline and a
// state-machine discipline, and callers can supply a fully custom strategy.
//
// # Core Concepts
//
//  1. Action
//  2. Strategy
//  3. Engine
//  4. Handle
//  5. Runner
//
// # Action
//
// An Action is a named unit of work with six lifecycle hooks:
//
//   - Init seeds shared run state before execution.
//   - Execute does the work; its return value is recorded in the results.
//   - Retry decides, after each Execute failure, whether to try again.
//     The default aborts; helpers like RetryBackoff package common policies.
//   - Rollback runs on every started action when a run fails.
//   - Success / Failure run on every registered action when a run ends.
//
// Rollback, Success and Failure are strictly fire-and-forget: their errors
// are routed to the Observer's diagnostic sink and never change the run's
// outcome. An action may also carry arbitrary template defaults, copied into
// a private execution context at the start of each invocation.
//
// # Strategy
//
// A Strategy answers "what runs next". Two are built in:
//
//   - DependencyStrategy (workflow mode): actions run as soon as their
//     declared dependencies have completed, with independent branches
//     running concurrently. The run resolves on its own once every action
//     has finished.
//   - TransitionStrategy (state-machine mode): exactly one action is current
//     at a time, and the next is chosen by matching ordered transition
//     rules against a mutable condition set. Loops are allowed, and the run
//     ends only via Stop, Cancel, or an unrecovered failure.
//
// # Engine
//
// The Engine registers process definitions and dispatches runs. Each
// dispatch creates a fresh run context and returns a Handle immediately;
// the scheduling cascade proceeds in the background. Engines can journal
// run history events to SQLite for diagnostics (NewSQLiteEngine).
//
// # Handle
//
// A Handle is a future of the run's results plus three control operations
// bound to that run:
//
//   - Cancel rejects the run (cooperatively: in-flight hooks finish).
//   - Stop resolves the run with the results recorded so far.
//   - Update merges conditions into the run, waking an idle state machine.
//
// A run whose strategy returns nothing to schedule simply idles, waiting
// for conditions; it is never an error. There is no built-in timeout: race
// the handle against a timer that calls Cancel if you need a deadline.
//
// # Runner
//
// Runner bundles an engine, an in-memory queue, and a worker into a single
// process-local helper, so runs and updates can be requested asynchronously
// from application code.
//
// For examples, see the package tests or the project README.
package cascata
