package cascata

import (
	"context"
	"time"
)

// The engine has no retry policy of its own: an action's Retry hook decides,
// after every Execute failure, whether to try again. The helpers below
// package the common policies as RetryFuncs. Attempt counts are kept in the
// execution context, so they reset naturally on every top-level invocation
// of the action.

const retryCountKey = "_cascata_retry_attempts"

// RetryLimit returns a RetryFunc that allows up to maxRetries immediate
// re-executions before aborting with the original cause.
//
// maxRetries <= 0 never retries (equivalent to the default abort policy).
func RetryLimit(maxRetries int) RetryFunc {
	return func(ctx context.Context, ec *ExecContext, cause error) error {
		if bumpAttempts(ec) > maxRetries {
			return cause
		}
		return nil
	}
}

// RetryAlways returns a RetryFunc that retries unconditionally and
// immediately. Combine with a ctx deadline or an external Cancel; an action
// that never succeeds will otherwise re-execute forever.
func RetryAlways() RetryFunc {
	return func(ctx context.Context, ec *ExecContext, cause error) error {
		return nil
	}
}

// RetryBackoff returns a RetryFunc that allows up to maxRetries
// re-executions with exponential backoff:
//
//   - initial is the delay before the first retry.
//   - multiplier > 1 grows the delay each attempt (default 2.0 if <= 0).
//   - max caps the delay; if <= 0, there is no cap.
//
// The sleep is context-aware: if ctx is cancelled mid-backoff the hook
// aborts with ctx.Err, failing the run at this action.
//
// Example:
//
//	RetryBackoff(3, 100*time.Millisecond, 2.0, 2*time.Second)
func RetryBackoff(maxRetries int, initial time.Duration, multiplier float64, max time.Duration) RetryFunc {
	if multiplier <= 0 {
		multiplier = 2.0
	}
	return func(ctx context.Context, ec *ExecContext, cause error) error {
		attempt := bumpAttempts(ec)
		if attempt > maxRetries {
			return cause
		}

		delay := initial
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * multiplier)
		}
		if max > 0 && delay > max {
			delay = max
		}
		if delay <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			return nil
		}
	}
}

// bumpAttempts increments and returns the invocation-scoped failure count.
func bumpAttempts(ec *ExecContext) int {
	count := 0
	if v, ok := ec.Var(retryCountKey); ok {
		if n, ok := v.(int); ok {
			count = n
		}
	}
	count++
	ec.SetVar(retryCountKey, count)
	return count
}
