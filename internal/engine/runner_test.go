package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/cascata/pkg/api"
)

func runOneAction(t *testing.T, a *api.Action, rc *api.RunContext) error {
	t.Helper()
	return runAction(context.Background(), a.Normalized(), rc, api.NoopObserver{}, api.RunInfo{RunID: "t", Process: "t"})
}

func TestRunAction_SuccessRecordsResult(t *testing.T) {
	t.Parallel()

	a := api.NewAction("a", func(ctx context.Context, ec *api.ExecContext) (any, error) {
		return "done", nil
	})
	rc := api.NewRunContext(nil, api.Controls{})

	require.NoError(t, runOneAction(t, a, rc))

	got, ok := rc.Result("a")
	require.True(t, ok)
	require.Equal(t, "done", got)
}

// An execute that fails N times before succeeding, paired with an
// unconditional retry, must succeed with retry invoked exactly N times.
func TestRunAction_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	const failures = 3
	execCalls, retryCalls := 0, 0

	a := &api.Action{
		Name: "flaky",
		Execute: func(ctx context.Context, ec *api.ExecContext) (any, error) {
			execCalls++
			if execCalls <= failures {
				return nil, errors.New("transient")
			}
			return execCalls, nil
		},
		Retry: func(ctx context.Context, ec *api.ExecContext, cause error) error {
			retryCalls++
			return nil
		},
	}
	rc := api.NewRunContext(nil, api.Controls{})

	require.NoError(t, runOneAction(t, a, rc))
	require.Equal(t, failures, retryCalls)
	require.Equal(t, failures+1, execCalls)

	got, _ := rc.Result("flaky")
	require.Equal(t, failures+1, got)
}

// The retry loop threads the same execution context forward, so variables
// mutated during a failed attempt are visible on the next one.
func TestRunAction_ExecContextSurvivesRetries(t *testing.T) {
	t.Parallel()

	a := &api.Action{
		Name:     "counting",
		Defaults: map[string]any{"seen": 0},
		Execute: func(ctx context.Context, ec *api.ExecContext) (any, error) {
			seen, _ := ec.Var("seen")
			n := seen.(int) + 1
			ec.SetVar("seen", n)
			if n < 3 {
				return nil, errors.New("again")
			}
			return n, nil
		},
		Retry: func(ctx context.Context, ec *api.ExecContext, cause error) error {
			return nil
		},
	}
	rc := api.NewRunContext(nil, api.Controls{})

	require.NoError(t, runOneAction(t, a, rc))
	got, _ := rc.Result("counting")
	require.Equal(t, 3, got)
}

// Init runs against the bare run context and is fully awaited before the
// execution context is built, so its writes are always visible to Execute.
func TestRunAction_InitSeedsRunContext(t *testing.T) {
	t.Parallel()

	a := &api.Action{
		Name: "seeded",
		Init: func(ctx context.Context, rc *api.RunContext) error {
			rc.MergeConditions(map[string]any{"token": "abc"})
			return nil
		},
		Execute: func(ctx context.Context, ec *api.ExecContext) (any, error) {
			v, ok := ec.Condition("token")
			if !ok {
				return nil, errors.New("init write not visible")
			}
			return v, nil
		},
	}
	rc := api.NewRunContext(nil, api.Controls{})

	require.NoError(t, runOneAction(t, a, rc))
	got, _ := rc.Result("seeded")
	require.Equal(t, "abc", got)
}

func TestRunAction_InitFailureAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a := &api.Action{
		Name: "broken-init",
		Init: func(ctx context.Context, rc *api.RunContext) error { return boom },
		Execute: func(ctx context.Context, ec *api.ExecContext) (any, error) {
			t.Fatal("execute must not run after init failure")
			return nil, nil
		},
	}
	rc := api.NewRunContext(nil, api.Controls{})

	err := runOneAction(t, a, rc)
	require.ErrorIs(t, err, boom)

	var pe *api.ProcessError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "broken-init", pe.Action)
}

// Without a configured Retry hook the first failure aborts, decorated with
// the action name.
func TestRunAction_DefaultRetryAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	a := api.NewAction("fatal", func(ctx context.Context, ec *api.ExecContext) (any, error) {
		calls++
		return nil, boom
	})
	rc := api.NewRunContext(nil, api.Controls{})

	err := runOneAction(t, a, rc)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)

	var pe *api.ProcessError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "fatal", pe.Action)

	_, ok := rc.Result("fatal")
	require.False(t, ok)
}
