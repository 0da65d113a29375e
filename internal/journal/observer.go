package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/petrijr/cascata/pkg/api"
)

// Observer translates engine observer callbacks into journal events.
// Append errors are dropped: the journal is best-effort diagnostics and must
// never influence a run.
type Observer struct {
	api.NoopObserver

	store EventStore
}

// NewObserver wraps an EventStore as an api.Observer. Combine it with other
// observers via api.NewCompositeObserver.
func NewObserver(store EventStore) *Observer {
	return &Observer{store: store}
}

func (o *Observer) append(ctx context.Context, run api.RunInfo, typ api.EventType, action, detail string) {
	_ = o.store.Append(ctx, api.RunEvent{
		RunID:   run.RunID,
		At:      time.Now(),
		Type:    typ,
		Process: run.Process,
		Action:  action,
		Detail:  detail,
	})
}

func (o *Observer) OnRunStart(ctx context.Context, run api.RunInfo) {
	o.append(ctx, run, api.EventRunStarted, "", "")
}

func (o *Observer) OnRunCompleted(ctx context.Context, run api.RunInfo, res api.Results) {
	o.append(ctx, run, api.EventRunCompleted, "", fmt.Sprintf("%d results", len(res)))
}

func (o *Observer) OnRunFailed(ctx context.Context, run api.RunInfo, err error) {
	o.append(ctx, run, api.EventRunFailed, "", err.Error())
}

func (o *Observer) OnActionStart(ctx context.Context, run api.RunInfo, action string) {
	o.append(ctx, run, api.EventActionStarted, action, "")
}

func (o *Observer) OnActionCompleted(ctx context.Context, run api.RunInfo, action string, err error, d time.Duration) {
	if err != nil {
		o.append(ctx, run, api.EventActionFailed, action, err.Error())
		return
	}
	o.append(ctx, run, api.EventActionCompleted, action, d.String())
}

func (o *Observer) OnActionRetry(ctx context.Context, run api.RunInfo, action string, attempt int, cause error) {
	o.append(ctx, run, api.EventActionRetried, action, fmt.Sprintf("attempt %d: %v", attempt, cause))
}

func (o *Observer) OnHookError(ctx context.Context, run api.RunInfo, action, hook string, err error) {
	o.append(ctx, run, api.EventHookFailed, action, fmt.Sprintf("%s: %v", hook, err))
}
