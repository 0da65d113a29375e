// Package engine implements the cascata process engine: a registry of
// process definitions and the per-run scheduling machinery.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/petrijr/cascata/internal/journal"
	"github.com/petrijr/cascata/pkg/api"
)

// engineImpl registers process definitions and tracks live runs.
type engineImpl struct {
	mu        sync.RWMutex
	processes map[string]*process
	runs      map[string]*run

	observer api.Observer
	journal  journal.EventStore
}

// process is a registered definition with its action set deduplicated,
// normalized, and snapshotted.
type process struct {
	name     string
	actions  []*api.Action
	byName   map[string]*api.Action
	strategy api.Strategy
}

// Config describes how to construct an engine.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Observer api.Observer
	Journal  journal.EventStore
}

// NewEngine returns an Engine with no observer and no journal.
// External users access this via cascata.NewEngine.
func NewEngine() api.Engine {
	return NewEngineWithConfig(Config{})
}

// NewEngineWithObserver returns an Engine with the given Observer.
func NewEngineWithObserver(obs api.Observer) api.Engine {
	return NewEngineWithConfig(Config{Observer: obs})
}

// NewSQLiteEngine returns an Engine that journals run events in a SQLite
// database. The journal is diagnostics only; it is never used to resume runs.
func NewSQLiteEngine(db *sql.DB) (api.Engine, error) {
	return NewSQLiteEngineWithObserver(db, nil)
}

// NewSQLiteEngineWithObserver returns a SQLite-journaled Engine with the
// given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, obs api.Observer) (api.Engine, error) {
	store, err := journal.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(Config{Observer: obs, Journal: store}), nil
}

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) api.Engine {
	store := cfg.Journal
	obs := cfg.Observer
	if store != nil {
		obs = api.NewCompositeObserver(obs, journal.NewObserver(store))
	} else {
		store = journal.NoopStore{}
		if obs == nil {
			obs = api.NoopObserver{}
		}
	}
	return &engineImpl{
		processes: make(map[string]*process),
		runs:      make(map[string]*run),
		observer:  obs,
		journal:   store,
	}
}

func (e *engineImpl) RegisterProcess(def api.ProcessDefinition) error {
	if def.Name == "" {
		return errors.New("process name is required")
	}
	if def.Strategy == nil {
		return fmt.Errorf("process %s: strategy is required", def.Name)
	}

	deduped := api.Dedupe(def.Actions)
	p := &process{
		name:     def.Name,
		actions:  make([]*api.Action, 0, len(deduped)),
		byName:   make(map[string]*api.Action, len(deduped)),
		strategy: def.Strategy,
	}
	for _, a := range deduped {
		n := a.Normalized()
		p.actions = append(p.actions, n)
		p.byName[n.Name] = n
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.processes[def.Name]; exists {
		return fmt.Errorf("process already registered: %s", def.Name)
	}
	e.processes[def.Name] = p
	return nil
}

func (e *engineImpl) Dispatch(ctx context.Context, name string, args ...any) (api.Handle, error) {
	e.mu.RLock()
	p, ok := e.processes[name]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown process: %s", name)
	}

	r := newRun(ctx, p, e.observer, e.evictRun, args)

	e.mu.Lock()
	e.runs[r.id] = r
	e.mu.Unlock()

	e.observer.OnRunStart(ctx, r.info())
	r.start()
	return r, nil
}

func (e *engineImpl) Run(ctx context.Context, name string, args ...any) (api.Results, error) {
	h, err := e.Dispatch(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return h.Wait(ctx)
}

func (e *engineImpl) RunHandle(runID string) (api.Handle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.runs[runID]
	return r, ok
}

func (e *engineImpl) History(ctx context.Context, runID string) ([]api.RunEvent, error) {
	return e.journal.List(ctx, runID)
}

// evictRun drops a finished run from the live registry. Control operations
// on an already-obtained handle stay valid; they just no-op.
func (e *engineImpl) evictRun(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.runs, runID)
}
