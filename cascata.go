package cascata

import (
	"context"
	"database/sql"

	"github.com/petrijr/cascata/internal/engine"
	"github.com/petrijr/cascata/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine            = api.Engine
	Handle            = api.Handle
	Results           = api.Results
	Action            = api.Action
	RunContext        = api.RunContext
	ExecContext       = api.ExecContext
	Controls          = api.Controls
	Strategy          = api.Strategy
	ContextSeeder     = api.ContextSeeder
	ContextSeed       = api.ContextSeed
	Rule              = api.Rule
	Condition         = api.Condition
	ProcessDefinition = api.ProcessDefinition
	ProcessError      = api.ProcessError

	InitFunc     = api.InitFunc
	ExecFunc     = api.ExecFunc
	RetryFunc    = api.RetryFunc
	RollbackFunc = api.RollbackFunc
	SuccessFunc  = api.SuccessFunc
	FailureFunc  = api.FailureFunc

	Observer             = api.Observer
	NoopObserver         = api.NoopObserver
	CompositeObserver    = api.CompositeObserver
	LoggingObserver      = api.LoggingObserver
	ZapObserver          = api.ZapObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	RunInfo              = api.RunInfo
	RunEvent             = api.RunEvent
	EventType            = api.EventType
)

// Re-export common constructors and helpers.

var (
	NewAction = api.NewAction

	DependencyStrategy = api.DependencyStrategy
	TransitionStrategy = api.TransitionStrategy
	T                  = api.T
	TWhen              = api.TWhen
	Cond               = api.Cond
	Truthy             = api.Truthy
	Eq                 = api.Eq
	Match              = api.Match
	PathEq             = api.PathEq
	Not                = api.Not

	NewLoggingObserver   = api.NewLoggingObserver
	NewZapObserver       = api.NewZapObserver
	NewCompositeObserver = api.NewCompositeObserver

	ErrCancelled = api.ErrCancelled
	IsCancelled  = api.IsCancelled
)

// Re-export run event types for convenience.

const (
	EventRunStarted      = api.EventRunStarted
	EventRunCompleted    = api.EventRunCompleted
	EventRunFailed       = api.EventRunFailed
	EventActionStarted   = api.EventActionStarted
	EventActionCompleted = api.EventActionCompleted
	EventActionFailed    = api.EventActionFailed
	EventActionRetried   = api.EventActionRetried
	EventHookFailed      = api.EventHookFailed
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewEngine returns an Engine with no observer and no journal.
func NewEngine() Engine {
	return engine.NewEngine()
}

// NewEngineWithObserver returns an Engine with the given Observer.
func NewEngineWithObserver(obs Observer) Engine {
	return engine.NewEngineWithObserver(obs)
}

// NewSQLiteEngine returns an Engine that journals run history events in a
// SQLite database. The journal is read back via Engine.History and is purely
// diagnostic: it is never used to resume a run.
func NewSQLiteEngine(db *sql.DB) (Engine, error) {
	return engine.NewSQLiteEngine(db)
}

// NewSQLiteEngineWithObserver returns a SQLite-journaled Engine with the
// given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, obs Observer) (Engine, error) {
	return engine.NewSQLiteEngineWithObserver(db, obs)
}

// Convenience helpers that just forward to the underlying Engine.

// Dispatch starts one run of a registered process and returns its handle.
func Dispatch(ctx context.Context, eng Engine, process string, args ...any) (Handle, error) {
	return eng.Dispatch(ctx, process, args...)
}

// Run dispatches a run and waits for its outcome.
func Run(ctx context.Context, eng Engine, process string, args ...any) (Results, error) {
	return eng.Run(ctx, process, args...)
}

// History fetches the journalled events of a run by ID.
func History(ctx context.Context, eng Engine, runID string) ([]RunEvent, error) {
	return eng.History(ctx, runID)
}
