package engine

import (
	"context"

	"github.com/petrijr/cascata/pkg/api"
)

// runAction drives one top-level invocation of an action's lifecycle:
// init, then an execute/retry loop, then recording the result.
//
// Init receives the bare RunContext and is fully awaited before the
// execution context is built, so state it seeds on the shared context is
// always visible to Execute. The execute/retry loop is an explicit loop (not
// recursion) that threads the same ExecContext forward, so mutations made
// during a failed attempt persist into the retry.
//
// Only Execute failures are retryable, and only via the action's own Retry
// hook. A Retry failure (including the default abort) is decorated with the
// action name and aborts the whole run.
func runAction(ctx context.Context, a *api.Action, rc *api.RunContext, obs api.Observer, info api.RunInfo) error {
	if err := a.Init(ctx, rc); err != nil {
		return &api.ProcessError{Action: a.Name, Err: err}
	}

	ec := api.NewExecContext(rc, a)
	attempt := 0
	for {
		out, err := a.Execute(ctx, ec)
		if err == nil {
			rc.SetResult(a.Name, out)
			return nil
		}

		attempt++
		obs.OnActionRetry(ctx, info, a.Name, attempt, err)
		if abort := a.Retry(ctx, ec, err); abort != nil {
			return &api.ProcessError{Action: a.Name, Err: abort}
		}
	}
}
