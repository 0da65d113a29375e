package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// RunInfo identifies the run an observer callback belongs to.
type RunInfo struct {
	RunID   string
	Process string
}

// Observer receives callbacks from the engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay run execution. OnHookError is the
// diagnostic sink for fire-and-forget hooks (rollback/failure/success):
// their errors are routed here and never alter the run's outcome.
type Observer interface {
	// OnRunStart is called once per dispatch, before the first cascade.
	OnRunStart(ctx context.Context, run RunInfo)

	// OnRunCompleted is called when a run resolves.
	OnRunCompleted(ctx context.Context, run RunInfo, results Results)

	// OnRunFailed is called when a run rejects, with the decorated error.
	OnRunFailed(ctx context.Context, run RunInfo, err error)

	// OnActionStart is called before an action's lifecycle begins.
	OnActionStart(ctx context.Context, run RunInfo, action string)

	// OnActionCompleted is called after an action's lifecycle settles, for
	// both successes and failures (err != nil).
	OnActionCompleted(ctx context.Context, run RunInfo, action string, err error, duration time.Duration)

	// OnActionRetry is called after each execute failure, before the
	// action's retry hook is consulted. attempt counts failures so far.
	OnActionRetry(ctx context.Context, run RunInfo, action string, attempt int, cause error)

	// OnHookError is called when a fire-and-forget hook returns an error.
	// hook is one of "rollback", "failure", "success".
	OnHookError(ctx context.Context, run RunInfo, action, hook string, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run RunInfo)                    {}
func (NoopObserver) OnRunCompleted(ctx context.Context, run RunInfo, res Results)   {}
func (NoopObserver) OnRunFailed(ctx context.Context, run RunInfo, err error)        {}
func (NoopObserver) OnActionStart(ctx context.Context, run RunInfo, action string)  {}
func (NoopObserver) OnActionCompleted(ctx context.Context, run RunInfo, action string, err error, d time.Duration) {
}
func (NoopObserver) OnActionRetry(ctx context.Context, run RunInfo, action string, attempt int, cause error) {
}
func (NoopObserver) OnHookError(ctx context.Context, run RunInfo, action, hook string, err error) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run RunInfo) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, run RunInfo, res Results) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, run, res)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, run RunInfo, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnActionStart(ctx context.Context, run RunInfo, action string) {
	for _, o := range c.observers {
		o.OnActionStart(ctx, run, action)
	}
}

func (c *CompositeObserver) OnActionCompleted(ctx context.Context, run RunInfo, action string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnActionCompleted(ctx, run, action, err, d)
	}
}

func (c *CompositeObserver) OnActionRetry(ctx context.Context, run RunInfo, action string, attempt int, cause error) {
	for _, o := range c.observers {
		o.OnActionRetry(ctx, run, action, attempt, cause)
	}
}

func (c *CompositeObserver) OnHookError(ctx context.Context, run RunInfo, action, hook string, err error) {
	for _, o := range c.observers {
		o.OnHookError(ctx, run, action, hook, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run / action lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run RunInfo) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("process", run.Process),
		slog.String("run_id", run.RunID),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, run RunInfo, res Results) {
	o.Logger.InfoContext(ctx, "run_completed",
		slog.String("process", run.Process),
		slog.String("run_id", run.RunID),
		slog.Int("results", len(res)),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, run RunInfo, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("process", run.Process),
		slog.String("run_id", run.RunID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnActionStart(ctx context.Context, run RunInfo, action string) {
	o.Logger.DebugContext(ctx, "action_start",
		slog.String("process", run.Process),
		slog.String("run_id", run.RunID),
		slog.String("action", action),
	)
}

func (o *LoggingObserver) OnActionCompleted(ctx context.Context, run RunInfo, action string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "action_completed",
		slog.String("process", run.Process),
		slog.String("run_id", run.RunID),
		slog.String("action", action),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnActionRetry(ctx context.Context, run RunInfo, action string, attempt int, cause error) {
	o.Logger.WarnContext(ctx, "action_retry",
		slog.String("process", run.Process),
		slog.String("run_id", run.RunID),
		slog.String("action", action),
		slog.Int("attempt", attempt),
		slog.Any("cause", cause),
	)
}

func (o *LoggingObserver) OnHookError(ctx context.Context, run RunInfo, action, hook string, err error) {
	o.Logger.WarnContext(ctx, "hook_error",
		slog.String("process", run.Process),
		slog.String("run_id", run.RunID),
		slog.String("action", action),
		slog.String("hook", hook),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate action durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted         atomic.Int64
	runsCompleted       atomic.Int64
	runsFailed          atomic.Int64
	actionsCompleted    atomic.Int64
	actionRetries       atomic.Int64
	hookErrors          atomic.Int64
	totalActionDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	LiveRuns      int64

	ActionsCompleted  int64
	ActionRetries     int64
	HookErrors        int64
	AvgActionDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run RunInfo) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, run RunInfo, res Results) {
	m.runsCompleted.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, run RunInfo, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnActionCompleted(ctx context.Context, run RunInfo, action string, err error, d time.Duration) {
	// Only successful actions count toward the average duration.
	if err == nil {
		m.actionsCompleted.Add(1)
		m.totalActionDuration.Add(d.Nanoseconds())
	}
}

func (m *BasicMetrics) OnActionRetry(ctx context.Context, run RunInfo, action string, attempt int, cause error) {
	m.actionRetries.Add(1)
}

func (m *BasicMetrics) OnHookError(ctx context.Context, run RunInfo, action, hook string, err error) {
	m.hookErrors.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	actions := m.actionsCompleted.Load()
	totalNs := m.totalActionDuration.Load()

	var avg time.Duration
	if actions > 0 {
		avg = time.Duration(totalNs / actions)
	}

	return BasicMetricsSnapshot{
		RunsStarted:       started,
		RunsCompleted:     completed,
		RunsFailed:        failed,
		LiveRuns:          started - completed - failed,
		ActionsCompleted:  actions,
		ActionRetries:     m.actionRetries.Load(),
		HookErrors:        m.hookErrors.Load(),
		AvgActionDuration: avg,
	}
}
