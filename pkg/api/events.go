package api

import "time"

// EventType identifies a run history event.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunFailed    EventType = "run.failed"

	EventActionStarted   EventType = "action.started"
	EventActionCompleted EventType = "action.completed"
	EventActionFailed    EventType = "action.failed"
	EventActionRetried   EventType = "action.retried"

	EventHookFailed EventType = "hook.failed"
)

// RunEvent is a minimal append-only history record for audit/debugging.
// It is diagnostic only: the engine never reads events back to drive or
// resume a run.
type RunEvent struct {
	RunID string
	At    time.Time
	Type  EventType

	// Optional context.
	Process string
	Action  string

	// Small, human-oriented details (e.g. error string, retry attempt).
	// Keep this low-volume: do NOT dump large payloads here.
	Detail string
}
