package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeymath/mathgame/internal/activity"
)

func TestRegistry_ReacquireReusesTimer(t *testing.T) {
	gate := activity.NewGate(true)
	reg := NewRegistry(gate)
	clock := newFakeClock()
	rec := &recorder{}

	h1 := reg.Acquire(PurposeTelemetry, Options{Interval: time.Second, Report: rec.report, Ticker: clock.ticker})
	h2 := reg.Acquire(PurposeTelemetry, Options{Interval: time.Second, Report: rec.report, Ticker: clock.ticker})
	t.Cleanup(reg.DisposeAll)

	started, _ := clock.counts()
	assert.Equal(t, 1, started, "second acquire must not start another timer")
	assert.Equal(t, 1, gate.Subscribers(), "second acquire must not add listeners")
	assert.Equal(t, 2, reg.Refs(PurposeTelemetry))
	assert.Same(t, h1.sched, h2.sched)

	// Registrations made through either handle share one set.
	h1.Register("working_on_problem")
	h2.Register("working_on_problem")
	h2.Register("watching_video")
	h1.sched.tick()
	assert.ElementsMatch(t, []string{"working_on_problem", "watching_video"}, rec.snapshot())
}

func TestRegistry_LastReleaseDisposes(t *testing.T) {
	gate := activity.NewGate(true)
	reg := NewRegistry(gate)
	clock := newFakeClock()

	h1 := reg.Acquire(PurposeTelemetry, Options{Ticker: clock.ticker})
	h2 := reg.Acquire(PurposeTelemetry, Options{Ticker: clock.ticker})

	h1.Release()
	h1.Release() // second release from the same handle is a no-op
	require.True(t, reg.Live(PurposeTelemetry))
	assert.Equal(t, 1, reg.Refs(PurposeTelemetry))

	h2.Release()
	assert.False(t, reg.Live(PurposeTelemetry))
	_, stopped := clock.counts()
	assert.Equal(t, 1, stopped)
	assert.Equal(t, 0, gate.Subscribers())

	// Handles are inert after release.
	h2.Register("working_on_problem")
	assert.Nil(t, h2.Active())
}

func TestRegistry_AcquireAfterDisposeStartsFresh(t *testing.T) {
	reg := NewRegistry(activity.NewGate(true))
	clock := newFakeClock()

	h := reg.Acquire(PurposeTelemetry, Options{Ticker: clock.ticker})
	h.Register("working_on_problem")
	h.Release()

	h = reg.Acquire(PurposeTelemetry, Options{Ticker: clock.ticker})
	t.Cleanup(h.Release)

	started, _ := clock.counts()
	assert.Equal(t, 2, started)
	assert.Empty(t, h.Active())
}

func TestRegistry_ResumeResyncsFocusAndReport(t *testing.T) {
	gate := activity.NewGate(true)
	reg := NewRegistry(gate)
	clock := newFakeClock()
	first, second := &recorder{}, &recorder{}

	h1 := reg.Acquire(PurposeTelemetry, Options{Report: first.report, Ticker: clock.ticker})
	h1.Register("working_on_problem")
	h2 := reg.Acquire(PurposeTelemetry, Options{Report: second.report, Ticker: clock.ticker})
	t.Cleanup(reg.DisposeAll)

	h2.sched.tick()
	assert.Empty(t, first.snapshot())
	assert.Equal(t, []string{"working_on_problem"}, second.snapshot())
}

func TestRegistry_PurposesAreIndependent(t *testing.T) {
	reg := NewRegistry(activity.NewGate(true))
	clock := newFakeClock()

	tel := reg.Acquire(PurposeTelemetry, Options{Ticker: clock.ticker})
	comp := reg.Acquire(PurposeCompanion, Options{Ticker: clock.ticker})
	t.Cleanup(reg.DisposeAll)

	tel.Register("working_on_problem")
	assert.Empty(t, comp.Active())
	assert.NotSame(t, tel.sched, comp.sched)
}
