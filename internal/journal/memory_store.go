package journal

import (
	"context"
	"sync"
	"time"

	"github.com/petrijr/cascata/pkg/api"
)

// MemoryStore keeps run events in memory, grouped by run ID.
// It is safe for concurrent use. Best for tests and short-lived processes.
type MemoryStore struct {
	mu    sync.Mutex
	byRun map[string][]api.RunEvent
}

var _ EventStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byRun: make(map[string][]api.RunEvent)}
}

func (s *MemoryStore) Append(ctx context.Context, ev api.RunEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRun[ev.RunID] = append(s.byRun[ev.RunID], ev)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, runID string) ([]api.RunEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.RunEvent(nil), s.byRun[runID]...), nil
}
