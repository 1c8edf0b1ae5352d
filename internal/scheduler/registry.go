package scheduler

import (
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/mikeymath/mathgame/internal/activity"
)

// Well-known scheduler purposes.
const (
	PurposeTelemetry = "telemetry"
	PurposeCompanion = "companion"
)

type entry struct {
	sched *Scheduler
	refs  int
}

// Registry hands out one live Scheduler per purpose. Re-acquiring a live
// purpose reuses the running scheduler instead of starting a second timer.
type Registry struct {
	mu   sync.Mutex
	gate *activity.Gate
	live map[string]*entry
}

// NewRegistry creates a registry whose schedulers follow gate.
func NewRegistry(gate *activity.Gate) *Registry {
	return &Registry{
		gate: gate,
		live: make(map[string]*entry),
	}
}

// Gate returns the activity gate shared by all schedulers of this registry.
func (r *Registry) Gate() *activity.Gate {
	return r.gate
}

// Acquire returns a handle to the scheduler for purpose, creating and arming
// it on first use. Every Acquire must be paired with a Handle.Release.
func (r *Registry) Acquire(purpose string, opts Options) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live[purpose]
	if ok && !e.sched.Disposed() {
		e.refs++
		e.sched.resume(opts)
		glog.V(1).Infof("[scheduler] resumed %q (refs=%d)", purpose, e.refs)
	} else {
		e = &entry{sched: newScheduler(r.gate, opts), refs: 1}
		r.live[purpose] = e
		glog.V(1).Infof("[scheduler] started %q every %s", purpose, e.sched.Interval())
	}
	return &Handle{registry: r, purpose: purpose, sched: e.sched}
}

// Live reports whether a scheduler for purpose is running.
func (r *Registry) Live(purpose string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.live[purpose]
	return ok && !e.sched.Disposed()
}

// Refs returns the reference count for purpose.
func (r *Registry) Refs(purpose string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.live[purpose]; ok {
		return e.refs
	}
	return 0
}

// DisposeAll tears down every live scheduler regardless of references.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	live := r.live
	r.live = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range live {
		e.sched.Dispose()
	}
}

func (r *Registry) release(purpose string, sched *Scheduler) {
	r.mu.Lock()
	e, ok := r.live[purpose]
	if !ok || e.sched != sched {
		r.mu.Unlock()
		return
	}
	e.refs--
	last := e.refs <= 0
	if last {
		delete(r.live, purpose)
	}
	r.mu.Unlock()

	if last {
		sched.Dispose()
		glog.V(1).Infof("[scheduler] disposed %q", purpose)
	}
}

// Handle is one owner's reference to a shared Scheduler. All methods are
// no-ops after Release.
type Handle struct {
	registry *Registry
	purpose  string
	sched    *Scheduler

	mu       sync.Mutex
	released bool
}

func (h *Handle) live() *Scheduler {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	return h.sched
}

// Register adds eventType to the shared active set.
func (h *Handle) Register(eventType string) {
	if s := h.live(); s != nil {
		s.Register(eventType)
	}
}

// Unregister removes eventType from the shared active set.
func (h *Handle) Unregister(eventType string) {
	if s := h.live(); s != nil {
		s.Unregister(eventType)
	}
}

// Reset clears the shared active set.
func (h *Handle) Reset() {
	if s := h.live(); s != nil {
		s.Reset()
	}
}

// Active returns the shared active set.
func (h *Handle) Active() []string {
	if s := h.live(); s != nil {
		return s.Active()
	}
	return nil
}

// Interval returns the tick interval of the shared scheduler.
func (h *Handle) Interval() time.Duration {
	return h.sched.Interval()
}

// Release drops this handle's reference. The last release disposes the
// scheduler. Releasing twice is a no-op.
func (h *Handle) Release() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	h.mu.Unlock()

	h.registry.release(h.purpose, h.sched)
}
