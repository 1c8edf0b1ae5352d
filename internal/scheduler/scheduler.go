package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/mikeymath/mathgame/internal/activity"
)

// DefaultInterval is the reporting interval used when Options.Interval is unset.
const DefaultInterval = time.Second

// ReportFunc is called once per active event type on every focused tick.
// Each call is rechecked against Dispose, blur and Unregister first.
type ReportFunc func(eventType string, interval time.Duration)

// TickerFunc starts a recurring timer. It returns the tick channel and a
// function that stops the timer.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// RealTicker is a TickerFunc backed by time.NewTicker.
func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Options configures a scheduler.
type Options struct {
	// Interval between ticks. Default: DefaultInterval.
	Interval time.Duration

	// Report receives emissions. Nil reports are dropped.
	Report ReportFunc

	// Ticker overrides the timer source (tests). Default: RealTicker.
	Ticker TickerFunc
}

// Scheduler owns one recurring timer and emits every registered event type
// on each tick while the activity gate reports focus.
//
// Schedulers are created through a Registry so that at most one timer exists
// per purpose.
type Scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	report   ReportFunc
	active   map[string]struct{}
	focused  bool
	disposed bool

	gate        *activity.Gate
	unsubscribe func()
	stop        func()
	done        chan struct{}
}

// newScheduler subscribes to the gate and arms the timer.
func newScheduler(gate *activity.Gate, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Ticker == nil {
		opts.Ticker = RealTicker
	}

	s := &Scheduler{
		interval: opts.Interval,
		report:   opts.Report,
		active:   make(map[string]struct{}),
		gate:     gate,
		done:     make(chan struct{}),
	}
	s.focused = gate.Focused()
	s.unsubscribe = gate.Subscribe(s.setFocused)

	ticks, stop := opts.Ticker(opts.Interval)
	s.stop = stop
	go s.loop(ticks)
	return s
}

func (s *Scheduler) loop(ticks <-chan time.Time) {
	for {
		select {
		case <-s.done:
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			s.tick()
		}
	}
}

// tick emits each active event type once if the terminal has focus.
func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.disposed || !s.focused || s.report == nil || len(s.active) == 0 {
		s.mu.Unlock()
		return
	}
	types := s.activeLocked()
	s.mu.Unlock()

	for _, t := range types {
		report, interval, ok := s.emission(t)
		if !ok {
			continue
		}
		report(t, interval)
	}
}

// emission rechecks the state right before eventType goes out. A Dispose,
// blur or Unregister since the tick began drops it.
func (s *Scheduler) emission(eventType string) (ReportFunc, time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || !s.focused || s.report == nil {
		return nil, 0, false
	}
	if _, ok := s.active[eventType]; !ok {
		return nil, 0, false
	}
	return s.report, s.interval, true
}

func (s *Scheduler) setFocused(focused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = focused
}

// resume re-syncs focus from the gate and adopts a newer report callback.
// The timer phase is left untouched.
func (s *Scheduler) resume(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.Interval > 0 && opts.Interval != s.interval {
		glog.Warningf("[scheduler] keeping interval %s, ignoring %s on re-acquire", s.interval, opts.Interval)
	}
	if opts.Report != nil {
		s.report = opts.Report
	}
	s.focused = s.gate.Focused()
}

// Register adds an event type to the active set. Idempotent.
func (s *Scheduler) Register(eventType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.active[eventType] = struct{}{}
}

// Unregister removes an event type. Idempotent. An empty set keeps the
// timer running; ticks simply emit nothing.
func (s *Scheduler) Unregister(eventType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, eventType)
}

// Reset clears the active set without touching the timer or the gate
// subscription.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = make(map[string]struct{})
}

// Active returns the registered event types in sorted order.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Scheduler) activeLocked() []string {
	types := make([]string, 0, len(s.active))
	for t := range s.active {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Interval returns the tick interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Disposed reports whether Dispose has run.
func (s *Scheduler) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose unsubscribes from the gate and stops the timer. A disposed
// scheduler never re-arms.
func (s *Scheduler) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.active = make(map[string]struct{})
	s.mu.Unlock()

	close(s.done)
	s.stop()
	s.unsubscribe()
}
