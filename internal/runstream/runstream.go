// Package runstream tracks live refinement runs and fans their events out
// to any number of watchers.
package runstream

import (
	"sync"

	"autoforge/internal/refine"
)

// Run is one tracked refinement run. Events are buffered so a watcher that
// attaches late still sees the full stream.
type Run struct {
	ID   string
	Seed string

	mu      sync.Mutex
	backlog []refine.Event
	subs    map[int]chan refine.Event
	nextSub int
	status  string
	err     error
	done    chan struct{}
}

// Run statuses mirror the statestore vocabulary.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

func newRun(id, seed string) *Run {
	return &Run{
		ID:     id,
		Seed:   seed,
		subs:   make(map[int]chan refine.Event),
		status: StatusRunning,
		done:   make(chan struct{}),
	}
}

// Publish records the event and delivers it to subscribers. Slow watchers
// lose oldest events rather than blocking the loop.
func (r *Run) Publish(evt refine.Event) {
	r.mu.Lock()
	r.backlog = append(r.backlog, evt)
	for _, ch := range r.subs {
		push(ch, evt)
	}
	r.mu.Unlock()
}

func push(ch chan refine.Event, evt refine.Event) {
	select {
	case ch <- evt:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
	default:
	}
}

// Subscribe returns the backlog so far plus a channel of future events and
// a cancel function. The channel is closed when the run finishes.
func (r *Run) Subscribe() ([]refine.Event, <-chan refine.Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	backlog := make([]refine.Event, len(r.backlog))
	copy(backlog, r.backlog)

	if r.status != StatusRunning {
		closed := make(chan refine.Event)
		close(closed)
		return backlog, closed, func() {}
	}

	id := r.nextSub
	r.nextSub++
	ch := make(chan refine.Event, 128)
	r.subs[id] = ch

	cancel := func() {
		r.mu.Lock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
		r.mu.Unlock()
	}
	return backlog, ch, cancel
}

func (r *Run) finish(status string, err error) {
	r.mu.Lock()
	r.status = status
	r.err = err
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
	r.mu.Unlock()
	close(r.done)
}

// Status returns the current status and terminal error, if any.
func (r *Run) Status() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.err
}

// Done is closed when the run reaches a terminal status.
func (r *Run) Done() <-chan struct{} { return r.done }

// Events returns a copy of the backlog.
func (r *Run) Events() []refine.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]refine.Event, len(r.backlog))
	copy(out, r.backlog)
	return out
}
