package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/cascata/internal/taskqueue"
	"github.com/petrijr/cascata/pkg/api"
)

// Config tunes a Worker. The zero value is a sensible default.
type Config struct {
	// WaitForCompletion makes ProcessOne block until a dispatched run
	// reaches a terminal state, surfacing the run error as the task error.
	// When false (the default) a dispatch task completes as soon as the
	// run is started; the run proceeds on its own.
	WaitForCompletion bool
}

// Worker pulls tasks from a Queue and executes them against an Engine.
type Worker struct {
	engine api.Engine
	queue  taskqueue.Queue
	cfg    Config
}

// New creates a new Worker with default config.
func New(engine api.Engine, queue taskqueue.Queue) *Worker {
	return NewWithConfig(engine, queue, Config{})
}

// NewWithConfig creates a new Worker with the given config.
func NewWithConfig(engine api.Engine, queue taskqueue.Queue, cfg Config) *Worker {
	return &Worker{
		engine: engine,
		queue:  queue,
		cfg:    cfg,
	}
}

// EnqueueDispatch enqueues a task to start a run of the named process
// asynchronously. It does NOT start the run itself; that is done by
// ProcessOne.
func (w *Worker) EnqueueDispatch(ctx context.Context, process string, args ...any) error {
	t := taskqueue.Task{
		ID:         uuid.NewString(),
		Type:       taskqueue.TaskTypeDispatch,
		Process:    process,
		Args:       args,
		EnqueuedAt: time.Now(),
	}
	return w.queue.Enqueue(ctx, t)
}

// EnqueueUpdate enqueues a task to deliver conditions to a live run.
// The run will receive the update when a worker picks up the task.
func (w *Worker) EnqueueUpdate(ctx context.Context, runID string, conditions map[string]any) error {
	t := taskqueue.Task{
		ID:         uuid.NewString(),
		Type:       taskqueue.TaskTypeUpdate,
		RunID:      runID,
		Conditions: conditions,
		EnqueuedAt: time.Now(),
	}
	return w.queue.Enqueue(ctx, t)
}

// ProcessOne pulls a single task from the queue and processes it.
// Returns (processed, error):
//   - processed == false, err != nil: nothing processed (typically context
//     cancellation during Dequeue)
//   - processed == true: a task was processed; err indicates whether the
//     handler succeeded.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	switch task.Type {
	case taskqueue.TaskTypeDispatch:
		h, dispatchErr := w.engine.Dispatch(ctx, task.Process, task.Args...)
		if dispatchErr != nil {
			return true, dispatchErr
		}
		if w.cfg.WaitForCompletion {
			_, runErr := h.Wait(ctx)
			return true, runErr
		}
		return true, nil

	case taskqueue.TaskTypeUpdate:
		h, ok := w.engine.RunHandle(task.RunID)
		if !ok {
			// The run may have finished between enqueue and delivery;
			// an update for a finished run would be a no-op anyway.
			return true, nil
		}
		h.Update(task.Conditions)
		return true, nil

	default:
		return true, errors.New("unknown task type: " + string(task.Type))
	}
}

// Drain processes tasks until the queue is empty or ctx is cancelled.
// Mostly useful in tests and batch-style callers.
func (w *Worker) Drain(ctx context.Context) error {
	for w.queue.Len() > 0 {
		if _, err := w.ProcessOne(ctx); err != nil && !isContextErr(err) {
			return fmt.Errorf("drain: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
