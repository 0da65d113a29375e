package cascata

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/petrijr/cascata/internal/taskqueue"
	"github.com/petrijr/cascata/pkg/worker"
)

// Runner bundles an Engine, an in-memory task queue, and a Worker to provide
// a simple queue-driven runtime for a single process space.
//
// Typical usage:
//
//	runner := cascata.NewRunner()
//	proc := cascata.New("my-process").Action(...).Dependencies(...)
//	proc.MustRegister(runner.Engine)
//
//	// Synchronous run (no queue/worker involved):
//	results, err := cascata.Run(ctx, runner.Engine, proc.Name(), input)
//
//	// Asynchronous run:
//	_ = runner.StartWorkers(ctx, 2)
//	_ = runner.DispatchAsync(ctx, proc.Name(), input)
//	...
//	runner.Stop()
type Runner struct {
	// Engine is the engine used by this runner.
	Engine Engine

	// Queue is the in-memory task queue used by the Worker.
	Queue taskqueue.Queue

	// Worker processes tasks from Queue using Engine.
	Worker *worker.Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRunner constructs a Runner backed by a journal-less engine, an
// in-memory queue, and a Worker with default config.
func NewRunner() *Runner {
	return NewRunnerWithEngine(NewEngine())
}

// NewRunnerWithEngine is NewRunner with a caller-provided engine, e.g. one
// built by NewSQLiteEngine or NewEngineWithObserver.
func NewRunnerWithEngine(eng Engine) *Runner {
	q := taskqueue.NewInMemoryQueue(1024)
	w := worker.New(eng, q)

	return &Runner{
		Engine: eng,
		Queue:  q,
		Worker: w,
	}
}

// StartWorkers starts 'concurrency' worker goroutines that continuously call
// Worker.ProcessOne(ctx) until the context is cancelled via Stop.
//
// If StartWorkers is called more than once without Stop, it returns an error.
func (r *Runner) StartWorkers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("cascata: Runner already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()

			for {
				processed, err := r.Worker.ProcessOne(ctx)
				if err != nil {
					// Cancellation is the clean shutdown signal.
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					// For other errors, log and keep going so a single bad
					// task doesn't kill the worker loop.
					log.Printf("cascata: runner worker error: %v", err)
					continue
				}
				if !processed {
					continue
				}
			}
		}()
	}

	return nil
}

// Stop cancels all worker goroutines started by StartWorkers and waits
// for them to exit. Runs already dispatched keep going; Stop only stops
// the queue consumers.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// DispatchAsync enqueues a task to start a run of the given process.
// The process must already be registered on Runner.Engine.
func (r *Runner) DispatchAsync(ctx context.Context, process string, args ...any) error {
	return r.Worker.EnqueueDispatch(ctx, process, args...)
}

// UpdateAsync enqueues a task to deliver conditions to a live run.
// The run will process the update when a worker picks up the task.
func (r *Runner) UpdateAsync(ctx context.Context, runID string, conditions map[string]any) error {
	return r.Worker.EnqueueUpdate(ctx, runID, conditions)
}
