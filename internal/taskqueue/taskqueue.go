// Package taskqueue provides the in-process queue behind the async dispatch
// layer. The queue is deliberately ephemeral: queued tasks do not survive a
// crash, since runs themselves are not resumable.
package taskqueue

import (
	"context"
	"time"
)

// TaskType identifies what the worker should do.
type TaskType string

const (
	// TaskTypeDispatch starts a new run of a registered process.
	TaskTypeDispatch TaskType = "dispatch"

	// TaskTypeUpdate delivers conditions to a live run.
	TaskTypeUpdate TaskType = "update"
)

// Task represents a unit of work for the worker.
type Task struct {
	ID   string
	Type TaskType

	// For dispatch tasks.
	Process string
	Args    []any

	// For update tasks.
	RunID      string
	Conditions map[string]any

	EnqueuedAt time.Time
}

// Queue is a simple async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next task, blocking until one is available
	// or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
