package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/petrijr/cascata/pkg/api"
)

// run is one dispatched execution of a process. It implements api.Handle.
//
// Scheduling state lives behind r.mu: `active` counts in-flight cascades so
// Update can tell whether scheduling is already underway, and `finished` /
// `cancelled` make terminal resolution first-wins. Cancellation is
// cooperative: it suppresses future scheduling but never aborts a hook that
// is already executing.
type run struct {
	id       string
	process  *process
	observer api.Observer
	onFinish func(runID string)

	// ctx is the dispatch context; it is threaded into every hook
	// invocation of this run, including cascades triggered later by
	// Update. Post-completion hooks detach from its cancellation.
	ctx context.Context

	rc *api.RunContext

	// schedMu serializes strategy queries with the claiming of the
	// returned actions into the started list. Without it, two branches
	// completing at the same instant could both see the same action as
	// eligible and start it twice.
	schedMu sync.Mutex

	mu        sync.Mutex
	active    int
	cancelled bool
	finished  bool
	results   api.Results
	err       error
	done      chan struct{}
}

func newRun(ctx context.Context, p *process, obs api.Observer, onFinish func(string), args []any) *run {
	r := &run{
		id:       uuid.NewString(),
		process:  p,
		observer: obs,
		onFinish: onFinish,
		ctx:      ctx,
		done:     make(chan struct{}),
	}
	r.rc = api.NewRunContext(args, api.Controls{
		Cancel: r.cancel,
		Stop:   r.stop,
		Update: r.update,
	})
	if seeder, ok := p.strategy.(api.ContextSeeder); ok {
		r.rc.ApplySeed(seeder.SeedContext(args))
	}
	// Claim the initial cascade before start's goroutine is scheduled so
	// an Update racing the dispatch defers instead of double-scheduling.
	r.active = 1
	return r
}

func (r *run) info() api.RunInfo {
	return api.RunInfo{RunID: r.id, Process: r.process.name}
}

// start kicks off the initial cascade on its own goroutine. An empty action
// set resolves immediately with empty results.
func (r *run) start() {
	if len(r.process.actions) == 0 {
		r.resolve(api.Results{})
		return
	}
	go func() {
		batch := r.claim(r.process.strategy.InitialActions)
		_ = r.runBatch(r.ctx, batch)
		r.endCascade()
	}()
}

// claim atomically asks the strategy what to schedule and records the
// returned actions as started. Claiming at scheduling time (rather than
// inside runOne) is what keeps "started at most once" true under truly
// parallel branch completions.
func (r *run) claim(query func([]*api.Action, *api.RunContext) []*api.Action) []*api.Action {
	r.schedMu.Lock()
	defer r.schedMu.Unlock()
	if r.terminated() {
		return nil
	}
	batch := query(r.process.actions, r.rc)
	for _, a := range batch {
		r.rc.MarkStarted(a.Name)
	}
	return batch
}

// runBatch runs every action in batch concurrently and joins them,
// returning the first failure. Failures reject the run at their origin (in
// runOne), so the returned error only unwinds the cascade.
func (r *run) runBatch(ctx context.Context, batch []*api.Action) error {
	if len(batch) == 0 || r.terminated() {
		return nil
	}
	g := new(errgroup.Group)
	for _, a := range batch {
		a := a
		g.Go(func() error {
			return r.runOne(ctx, a)
		})
	}
	return g.Wait()
}

// runOne executes a single action's lifecycle and, on success, continues the
// cascade: it re-queries the strategy and fans out whatever became eligible.
// The action was already claimed into the started list by claim.
func (r *run) runOne(ctx context.Context, a *api.Action) error {
	if r.terminated() {
		return nil
	}
	r.observer.OnActionStart(ctx, r.info(), a.Name)

	began := time.Now()
	err := runAction(ctx, a, r.rc, r.observer, r.info())
	r.observer.OnActionCompleted(ctx, r.info(), a.Name, err, time.Since(began))

	if err != nil {
		// Reject here rather than after the join so the caller observes
		// the failure immediately; sibling branches still run out.
		r.reject(err)
		return err
	}

	r.rc.MarkCompleted(a.Name)
	next := r.claim(r.process.strategy.NextActions)
	return r.runBatch(ctx, next)
}

// update implements the Update control operation: merge, then schedule only
// if no cascade is in flight. A mid-cascade update is a no-op beyond the
// merge; the cascade re-queries the strategy on every completion anyway.
func (r *run) update(conds map[string]any) {
	r.rc.MergeConditions(conds)

	r.mu.Lock()
	if r.finished || r.cancelled || r.active > 0 {
		r.mu.Unlock()
		return
	}
	r.active++
	r.mu.Unlock()

	go func() {
		batch := r.claim(r.process.strategy.NextActions)
		_ = r.runBatch(r.ctx, batch)
		r.endCascade()
	}()
}

func (r *run) endCascade() {
	r.mu.Lock()
	r.active--
	r.mu.Unlock()
}

func (r *run) terminated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished || r.cancelled
}

// stop resolves the run with the results recorded so far. Anything still in
// flight runs to completion but its result is no longer observable through
// the handle.
func (r *run) stop() {
	r.resolve(r.rc.Results())
}

// cancel rejects the run with a cancellation error carrying data.
func (r *run) cancel(data map[string]any) {
	r.reject(&api.ProcessError{Data: data, Err: api.ErrCancelled})
}

// resolve finishes the run successfully: first-wins, fire success hooks on
// every registered action, resolve the handle. The handle resolves without
// waiting for the hooks.
func (r *run) resolve(results api.Results) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.cancelled = true
	r.results = results
	r.mu.Unlock()

	// Observer first so journalled history is complete once Wait returns.
	r.observer.OnRunCompleted(r.ctx, r.info(), results)
	close(r.done)
	go r.fireSuccess()
	r.onFinish(r.id)
}

// reject finishes the run with an error: decorate first (so the hooks below
// observe process/completed/running on the error), then fire rollback on
// every started action and failure on every registered action, then reject
// the handle. The handle rejects without waiting for the hooks.
func (r *run) reject(err error) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.cancelled = true
	decorated := r.decorate(err)
	r.err = decorated
	r.mu.Unlock()

	r.observer.OnRunFailed(r.ctx, r.info(), decorated)
	close(r.done)
	go r.fireRollbackAndFailure(decorated)
	r.onFinish(r.id)
}

// decorate fills in the process-level error metadata, reusing an existing
// *ProcessError (which already carries the failing action's name) when the
// error chain holds one.
func (r *run) decorate(err error) *api.ProcessError {
	var pe *api.ProcessError
	if !errors.As(err, &pe) {
		pe = &api.ProcessError{Err: err}
	}
	pe.Process = r.process.name
	pe.Completed = r.rc.Completed()
	pe.Running = r.rc.Running()
	return pe
}

// fireSuccess invokes every registered action's success hook, detached from
// the run outcome. Hook errors go to the observer's diagnostic sink only.
func (r *run) fireSuccess() {
	ctx := context.WithoutCancel(r.ctx)
	var wg sync.WaitGroup
	for _, a := range r.process.actions {
		a := a
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Success(ctx, r.rc); err != nil {
				r.observer.OnHookError(ctx, r.info(), a.Name, "success", err)
			}
		}()
	}
	wg.Wait()
}

// fireRollbackAndFailure invokes rollback on every started action, then
// failure on every registered action. All invocations are detached from the
// run outcome; their errors go to the observer's diagnostic sink only.
func (r *run) fireRollbackAndFailure(cause error) {
	ctx := context.WithoutCancel(r.ctx)

	var wg sync.WaitGroup
	for _, name := range r.rc.Started() {
		a, ok := r.process.byName[name]
		if !ok {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Rollback(ctx, r.rc, cause); err != nil {
				r.observer.OnHookError(ctx, r.info(), a.Name, "rollback", err)
			}
		}()
	}
	wg.Wait()

	for _, a := range r.process.actions {
		a := a
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Failure(ctx, r.rc, cause); err != nil {
				r.observer.OnHookError(ctx, r.info(), a.Name, "failure", err)
			}
		}()
	}
	wg.Wait()
}

// Handle implementation.

func (r *run) RunID() string { return r.id }

func (r *run) Done() <-chan struct{} { return r.done }

func (r *run) Wait(ctx context.Context) (api.Results, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.results, nil
}

func (r *run) Cancel(data map[string]any) { r.cancel(data) }

func (r *run) Stop() { r.stop() }

func (r *run) Update(conditions map[string]any) { r.update(conditions) }
