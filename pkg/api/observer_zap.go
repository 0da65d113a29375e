package api

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ZapObserver mirrors LoggingObserver for codebases standardized on
// go.uber.org/zap instead of log/slog.
type ZapObserver struct {
	Logger *zap.Logger
}

// NewZapObserver creates an Observer that logs run / action lifecycle events
// with the provided zap.Logger. If logger is nil, zap.NewNop() is used.
func NewZapObserver(logger *zap.Logger) Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapObserver{Logger: logger}
}

func (o *ZapObserver) runFields(run RunInfo) []zap.Field {
	return []zap.Field{
		zap.String("process", run.Process),
		zap.String("run_id", run.RunID),
	}
}

func (o *ZapObserver) OnRunStart(ctx context.Context, run RunInfo) {
	o.Logger.Info("run_start", o.runFields(run)...)
}

func (o *ZapObserver) OnRunCompleted(ctx context.Context, run RunInfo, res Results) {
	o.Logger.Info("run_completed", append(o.runFields(run), zap.Int("results", len(res)))...)
}

func (o *ZapObserver) OnRunFailed(ctx context.Context, run RunInfo, err error) {
	o.Logger.Error("run_failed", append(o.runFields(run), zap.Error(err))...)
}

func (o *ZapObserver) OnActionStart(ctx context.Context, run RunInfo, action string) {
	o.Logger.Debug("action_start", append(o.runFields(run), zap.String("action", action))...)
}

func (o *ZapObserver) OnActionCompleted(ctx context.Context, run RunInfo, action string, err error, d time.Duration) {
	fields := append(o.runFields(run),
		zap.String("action", action),
		zap.Duration("duration", d),
	)
	if err != nil {
		o.Logger.Error("action_completed", append(fields, zap.Error(err))...)
		return
	}
	o.Logger.Debug("action_completed", fields...)
}

func (o *ZapObserver) OnActionRetry(ctx context.Context, run RunInfo, action string, attempt int, cause error) {
	o.Logger.Warn("action_retry", append(o.runFields(run),
		zap.String("action", action),
		zap.Int("attempt", attempt),
		zap.Error(cause),
	)...)
}

func (o *ZapObserver) OnHookError(ctx context.Context, run RunInfo, action, hook string, err error) {
	o.Logger.Warn("hook_error", append(o.runFields(run),
		zap.String("action", action),
		zap.String("hook", hook),
		zap.Error(err),
	)...)
}
