package engine

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/petrijr/cascata/pkg/api"
)

func exec(result any) api.ExecFunc {
	return func(ctx context.Context, ec *api.ExecContext) (any, error) {
		return result, nil
	}
}

func TestEngine_RegisterValidation(t *testing.T) {
	t.Parallel()

	e := NewEngine()

	require.Error(t, e.RegisterProcess(api.ProcessDefinition{Strategy: api.DependencyStrategy(nil)}))
	require.Error(t, e.RegisterProcess(api.ProcessDefinition{Name: "p"}))

	def := api.ProcessDefinition{Name: "p", Strategy: api.DependencyStrategy(nil)}
	require.NoError(t, e.RegisterProcess(def))
	require.ErrorContains(t, e.RegisterProcess(def), "already registered")

	_, err := e.Dispatch(context.Background(), "nope")
	require.ErrorContains(t, err, "unknown process")
}

func TestEngine_EmptyActionSetResolvesImmediately(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name:     "empty",
		Strategy: api.DependencyStrategy(nil),
	}))

	results, err := e.Run(context.Background(), "empty")
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestEngine_DuplicateActionNamesFirstWins(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name: "dups",
		Actions: []*api.Action{
			api.NewAction("dup", exec("first")),
			api.NewAction("dup", exec("second")),
		},
		Strategy: api.DependencyStrategy(nil),
	}))

	results, err := e.Run(context.Background(), "dups")
	require.NoError(t, err)
	require.Equal(t, api.Results{"dup": "first"}, results)
}

// Dependency mode: after a completes, b and c run concurrently, and the run
// resolves once the whole graph is done. Each fan-out branch blocks until it
// has seen the other start, so the test fails fast if they were serialized.
func TestEngine_DependencyFanOutRunsConcurrently(t *testing.T) {
	t.Parallel()

	bStarted := make(chan struct{})
	cStarted := make(chan struct{})
	await := func(mine, other chan struct{}) error {
		close(mine)
		select {
		case <-other:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("sibling branch never started")
		}
	}

	e := NewEngine()
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name: "graph",
		Actions: []*api.Action{
			api.NewAction("a", exec("A")),
			api.NewAction("b", func(ctx context.Context, ec *api.ExecContext) (any, error) {
				if err := await(bStarted, cStarted); err != nil {
					return nil, err
				}
				return "B", nil
			}),
			api.NewAction("c", func(ctx context.Context, ec *api.ExecContext) (any, error) {
				if err := await(cStarted, bStarted); err != nil {
					return nil, err
				}
				return "C", nil
			}),
			api.NewAction("d", exec("D")),
		},
		Strategy: api.DependencyStrategy(map[string][]string{
			"b": {"a"},
			"c": {"a"},
			"d": {"b", "c"},
		}),
	}))

	results, err := e.Run(context.Background(), "graph")
	require.NoError(t, err)
	require.Equal(t, api.Results{"a": "A", "b": "B", "c": "C", "d": "D"}, results)
}

// Transition mode: completions chain through the rule table until an action
// resolves the run explicitly. The stopping action's own result is recorded
// after the run already resolved, so it is absent from the outcome.
func TestEngine_TransitionChainStopsExplicitly(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name: "machine",
		Actions: []*api.Action{
			api.NewAction("start", exec(1)),
			api.NewAction("next", exec(2)),
			api.NewAction("stop", func(ctx context.Context, ec *api.ExecContext) (any, error) {
				ec.Stop()
				return 3, nil
			}),
		},
		Strategy: api.TransitionStrategy(
			api.T("start", "next"),
			api.T("next", "stop"),
		),
	}))

	results, err := e.Run(context.Background(), "machine")
	require.NoError(t, err)
	require.Equal(t, api.Results{"start": 1, "next": 2}, results)
}

// A run whose rule table has no match for the latest completion idles until
// an Update supplies the missing condition.
func TestEngine_UpdateWakesIdleRun(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name: "gated",
		Actions: []*api.Action{
			api.NewAction("request", exec("requested")),
			api.NewAction("finish", func(ctx context.Context, ec *api.ExecContext) (any, error) {
				ec.Stop()
				return nil, nil
			}),
		},
		Strategy: api.TransitionStrategy(
			api.TWhen("request", "finish", api.Truthy("approved")),
		),
	}))

	h, err := e.Dispatch(context.Background(), "gated")
	require.NoError(t, err)

	// The cascade may still be winding down when the condition arrives, in
	// which case the merge alone does not reschedule; keep nudging.
	require.Eventually(t, func() bool {
		h.Update(map[string]any{"approved": true})
		select {
		case <-h.Done():
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	results, err := h.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, api.Results{"request": "requested"}, results)
}

func TestEngine_CancelRejectsWithData(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name: "slow",
		Actions: []*api.Action{
			api.NewAction("slow", func(ctx context.Context, ec *api.ExecContext) (any, error) {
				time.Sleep(100 * time.Millisecond)
				return "late", nil
			}),
		},
		Strategy: api.DependencyStrategy(nil),
	}))

	h, err := e.Dispatch(context.Background(), "slow")
	require.NoError(t, err)
	h.Cancel(map[string]any{"reason": "operator"})

	_, err = h.Wait(context.Background())
	require.True(t, api.IsCancelled(err))

	var pe *api.ProcessError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "slow", pe.Process)
	require.Equal(t, map[string]any{"reason": "operator"}, pe.Data)
	require.Empty(t, pe.Completed)
}

// Stop resolves with the results recorded so far and suppresses any further
// scheduling; the in-flight action still runs out but its result is dropped.
func TestEngine_StopResolvesPartialResults(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var bEntered sync.Once
	bRunning := make(chan struct{})
	var cStarted atomic.Bool

	e := NewEngine()
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name: "chain",
		Actions: []*api.Action{
			api.NewAction("a", exec("A")),
			api.NewAction("b", func(ctx context.Context, ec *api.ExecContext) (any, error) {
				bEntered.Do(func() { close(bRunning) })
				<-release
				return "B", nil
			}),
			api.NewAction("c", func(ctx context.Context, ec *api.ExecContext) (any, error) {
				cStarted.Store(true)
				return "C", nil
			}),
		},
		Strategy: api.DependencyStrategy(map[string][]string{
			"b": {"a"},
			"c": {"b"},
		}),
	}))

	h, err := e.Dispatch(context.Background(), "chain")
	require.NoError(t, err)

	<-bRunning
	h.Stop()

	results, err := h.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, api.Results{"a": "A"}, results)

	// Let b finish; c must never be scheduled on a resolved run.
	close(release)
	time.Sleep(50 * time.Millisecond)
	require.False(t, cStarted.Load())
}

// On failure the run rejects with a decorated error, rollback fires only on
// actions that started, and failure fires on every registered action.
func TestEngine_FailureFiresRollbackAndFailureHooks(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var mu sync.Mutex
	var rolledBack, failed []string
	record := func(dst *[]string, name string) {
		mu.Lock()
		defer mu.Unlock()
		*dst = append(*dst, name)
	}
	withHooks := func(a *api.Action) *api.Action {
		a.Rollback = func(ctx context.Context, rc *api.RunContext, cause error) error {
			record(&rolledBack, a.Name)
			return nil
		}
		a.Failure = func(ctx context.Context, rc *api.RunContext, cause error) error {
			record(&failed, a.Name)
			return nil
		}
		return a
	}

	e := NewEngine()
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name: "doomed",
		Actions: []*api.Action{
			withHooks(api.NewAction("first", exec("ok"))),
			withHooks(api.NewAction("second", func(ctx context.Context, ec *api.ExecContext) (any, error) {
				return nil, boom
			})),
			withHooks(api.NewAction("never", exec("unreached"))),
		},
		Strategy: api.DependencyStrategy(map[string][]string{
			"second": {"first"},
			"never":  {"second"},
		}),
	}))

	_, err := e.Run(context.Background(), "doomed")
	require.ErrorIs(t, err, boom)

	var pe *api.ProcessError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "doomed", pe.Process)
	require.Equal(t, "second", pe.Action)
	require.Equal(t, []string{"first"}, pe.Completed)
	require.Equal(t, []string{"second"}, pe.Running)

	// Hooks are fire-and-forget; the handle rejected without waiting for them.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(rolledBack) == 2 && len(failed) == 3
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []string{"first", "second"}, rolledBack)
	require.ElementsMatch(t, []string{"first", "second", "never"}, failed)
}

// Errors thrown by success/rollback/failure hooks never alter the run's
// outcome; they surface only through the observer's diagnostic sink.
func TestEngine_HookErrorsAreContained(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	hookErr := errors.New("hook exploded")

	t.Run("failure path", func(t *testing.T) {
		t.Parallel()

		metrics := &api.BasicMetrics{}
		e := NewEngineWithObserver(metrics)
		require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
			Name: "p",
			Actions: []*api.Action{{
				Name: "a",
				Execute: func(ctx context.Context, ec *api.ExecContext) (any, error) {
					return nil, boom
				},
				Rollback: func(ctx context.Context, rc *api.RunContext, cause error) error {
					return hookErr
				},
				Failure: func(ctx context.Context, rc *api.RunContext, cause error) error {
					return hookErr
				},
			}},
			Strategy: api.DependencyStrategy(nil),
		}))

		_, err := e.Run(context.Background(), "p")
		require.ErrorIs(t, err, boom)
		require.NotErrorIs(t, err, hookErr)

		require.Eventually(t, func() bool {
			return metrics.Snapshot().HookErrors == 2
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("success path", func(t *testing.T) {
		t.Parallel()

		metrics := &api.BasicMetrics{}
		e := NewEngineWithObserver(metrics)
		require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
			Name: "p",
			Actions: []*api.Action{{
				Name:    "a",
				Execute: exec("ok"),
				Success: func(ctx context.Context, rc *api.RunContext) error {
					return hookErr
				},
			}},
			Strategy: api.DependencyStrategy(nil),
		}))

		results, err := e.Run(context.Background(), "p")
		require.NoError(t, err)
		require.Equal(t, api.Results{"a": "ok"}, results)

		require.Eventually(t, func() bool {
			return metrics.Snapshot().HookErrors == 1
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestEngine_RunHandleLifecycle(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	e := NewEngine()
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name: "held",
		Actions: []*api.Action{
			api.NewAction("wait", func(ctx context.Context, ec *api.ExecContext) (any, error) {
				<-release
				return "ok", nil
			}),
		},
		Strategy: api.DependencyStrategy(nil),
	}))

	h, err := e.Dispatch(context.Background(), "held")
	require.NoError(t, err)

	got, ok := e.RunHandle(h.RunID())
	require.True(t, ok)
	require.Equal(t, h.RunID(), got.RunID())

	close(release)
	_, err = h.Wait(context.Background())
	require.NoError(t, err)

	// Finished runs are evicted from the live registry.
	require.Eventually(t, func() bool {
		_, ok := e.RunHandle(h.RunID())
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	// Control operations on a stale handle are harmless no-ops.
	h.Stop()
	h.Cancel(nil)
	h.Update(map[string]any{"x": 1})
}

func TestEngine_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	e := NewEngine()
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name: "held",
		Actions: []*api.Action{
			api.NewAction("wait", func(ctx context.Context, ec *api.ExecContext) (any, error) {
				<-release
				return nil, nil
			}),
		},
		Strategy: api.DependencyStrategy(nil),
	}))

	h, err := e.Dispatch(context.Background(), "held")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_SQLiteJournalRecordsHistory(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer db.Close()

	e, err := NewSQLiteEngine(db)
	require.NoError(t, err)
	require.NoError(t, e.RegisterProcess(api.ProcessDefinition{
		Name: "journaled",
		Actions: []*api.Action{
			api.NewAction("a", exec(1)),
			api.NewAction("b", exec(2)),
		},
		Strategy: api.DependencyStrategy(map[string][]string{"b": {"a"}}),
	}))

	h, err := e.Dispatch(context.Background(), "journaled")
	require.NoError(t, err)
	_, err = h.Wait(context.Background())
	require.NoError(t, err)

	events, err := e.History(context.Background(), h.RunID())
	require.NoError(t, err)
	require.NotEmpty(t, events)

	types := make([]api.EventType, 0, len(events))
	for _, ev := range events {
		require.Equal(t, h.RunID(), ev.RunID)
		types = append(types, ev.Type)
	}
	require.Equal(t, api.EventRunStarted, types[0])
	require.Equal(t, api.EventRunCompleted, types[len(types)-1])
	require.Contains(t, types, api.EventActionStarted)
	require.Contains(t, types, api.EventActionCompleted)
}
