// Package journal provides append-only stores for run history events.
// The journal is diagnostics only: nothing in the engine reads it back to
// drive or resume a run.
package journal

import (
	"context"

	"github.com/petrijr/cascata/pkg/api"
)

// EventStore is an append-only history store for run events.
type EventStore interface {
	Append(ctx context.Context, ev api.RunEvent) error
	List(ctx context.Context, runID string) ([]api.RunEvent, error)
}

// NoopStore discards all events.
type NoopStore struct{}

func (NoopStore) Append(ctx context.Context, ev api.RunEvent) error { return nil }
func (NoopStore) List(ctx context.Context, runID string) ([]api.RunEvent, error) {
	return nil, nil
}
