package runstream

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"autoforge/internal/archive"
	"autoforge/internal/refine"
	"autoforge/internal/statestore"
)

// LoopBuilder constructs a fresh loop wired to the given event sink. The
// manager calls it once per run so concurrent runs never share a loop.
type LoopBuilder func(emit func(refine.Event)) *refine.Loop

// RunSpec bounds one run.
type RunSpec struct {
	Seed      string
	MaxRounds int
	Threshold float64
}

// Manager owns the live run registry and drives each run to completion in
// its own goroutine, persisting snapshots and archiving retained artifacts.
type Manager struct {
	build  LoopBuilder
	states *statestore.Store
	arch   archive.Store

	mu   sync.RWMutex
	runs map[string]*Run
}

func NewManager(build LoopBuilder, states *statestore.Store, arch archive.Store) *Manager {
	return &Manager{
		build:  build,
		states: states,
		arch:   arch,
		runs:   make(map[string]*Run),
	}
}

// Get returns a live run by ID.
func (m *Manager) Get(runID string) (*Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	return run, ok
}

// Start launches a new run and returns immediately. The run keeps going on
// the given ctx, so callers hand in a lifecycle context, not a request one.
func (m *Manager) Start(ctx context.Context, spec RunSpec) (*Run, error) {
	if spec.Seed == "" {
		return nil, fmt.Errorf("runstream: seed is required")
	}
	if spec.MaxRounds <= 0 {
		spec.MaxRounds = 10
	}
	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	run := newRun(runID, spec.Seed)

	m.mu.Lock()
	m.runs[runID] = run
	m.mu.Unlock()

	loop := m.build(run.Publish)
	go m.drive(ctx, run, loop, spec, false)
	return run, nil
}

// Resume restarts a persisted run from its last snapshot.
func (m *Manager) Resume(ctx context.Context, runID string, spec RunSpec) (*Run, error) {
	rec, ok := m.states.Get(runID)
	if !ok {
		return nil, fmt.Errorf("runstream: run %s not found", runID)
	}
	st, err := refine.DecodeState(rec.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("runstream: decode snapshot for %s: %w", runID, err)
	}
	if spec.MaxRounds <= 0 {
		spec.MaxRounds = 10
	}
	spec.Seed = rec.Seed

	run := newRun(runID, rec.Seed)
	m.mu.Lock()
	m.runs[runID] = run
	m.mu.Unlock()

	loop := m.build(run.Publish)
	loop.Restore(st)
	go m.drive(ctx, run, loop, spec, true)
	return run, nil
}

func (m *Manager) drive(ctx context.Context, run *Run, loop *refine.Loop, spec RunSpec, resumed bool) {
	defer func() {
		// Finished runs linger for watchers; drop them from the live map.
		m.mu.Lock()
		delete(m.runs, run.ID)
		m.mu.Unlock()
	}()

	m.persist(run, loop, statestore.StatusRunning)

	if !resumed {
		if err := loop.Initialize(ctx, spec.Seed); err != nil {
			log.Printf("run %s: initialization failed: %v", run.ID, err)
			m.persist(run, loop, statestore.StatusFailed)
			run.finish(StatusFailed, err)
			return
		}
		m.persist(run, loop, statestore.StatusRunning)
	}

	retained, err := loop.Run(ctx, spec.MaxRounds, spec.Threshold)
	if err != nil {
		log.Printf("run %s: cancelled after %d rounds: %v", run.ID, loop.RoundsDone(), err)
		m.persist(run, loop, statestore.StatusFailed)
		run.finish(StatusFailed, err)
		return
	}

	if m.arch != nil {
		if aerr := archive.SaveRetained(ctx, m.arch, run.ID, retained.Entries()); aerr != nil {
			log.Printf("run %s: archive failed: %v", run.ID, aerr)
		}
	}
	m.persist(run, loop, statestore.StatusComplete)
	run.finish(StatusComplete, nil)
}

func (m *Manager) persist(run *Run, loop *refine.Loop, status string) {
	if m.states == nil {
		return
	}
	st := loop.Snapshot()
	snap, err := refine.EncodeState(st)
	if err != nil {
		log.Printf("run %s: encode snapshot: %v", run.ID, err)
		return
	}
	var best float64
	if top, ok := loop.Retained().Best(); ok {
		best = top.Score
	}
	rec := statestore.Record{
		RunID:      run.ID,
		Seed:       run.Seed,
		Status:     status,
		BestScore:  best,
		RoundsDone: loop.RoundsDone(),
		Snapshot:   snap,
		UpdatedAt:  time.Now(),
	}
	if err := m.states.Put(rec); err != nil {
		log.Printf("run %s: persist state: %v", run.ID, err)
	}
}
