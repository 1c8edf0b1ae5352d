package demoserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeymath/mathgame/internal/activity"
	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/history"
	"github.com/mikeymath/mathgame/internal/scheduler"
	"github.com/mikeymath/mathgame/internal/session"
)

// The terminal engine driven against the demo server over HTTP.
func TestEngineAgainstDemoServer(t *testing.T) {
	e := newEnv(t)
	d, client := e.learner(-1)
	ctx := context.Background()

	registry := scheduler.NewRegistry(activity.NewGate(true))
	engine := session.New(session.Options{
		Client:   client,
		Registry: registry,
		Interval: time.Hour,
		UserID:   d.UserID,
	})
	defer engine.Dispose()

	require.NoError(t, engine.Start(ctx))
	s := engine.State()
	require.Equal(t, session.PhaseSolving, s.Phase)
	first := s.Problem.Problem

	sent, err := engine.SubmitAnswer(ctx, "-1")
	require.NoError(t, err)
	require.True(t, sent)
	assert.True(t, engine.State().TryAgain)

	sent, err = engine.SubmitAnswer(ctx, "-1")
	require.NoError(t, err)
	assert.False(t, sent, "identical resubmission is suppressed")

	events, err := client.ListEvents(ctx, d.UserID, history.DefaultLookback)
	require.NoError(t, err)
	attempts := history.Attempts(events, first.Key(), history.ProtocolV2)
	require.Len(t, attempts, 1)
	assert.Equal(t, "-1", attempts[0].Value)

	for i := 0; i < 2; i++ {
		s = engine.State()
		require.Equal(t, session.PhaseSolving, s.Phase)
		_, err := engine.SubmitAnswer(ctx, s.Problem.Problem.Answer)
		require.NoError(t, err)
	}

	s = engine.State()
	require.Equal(t, session.PhaseRewarding, s.Phase)
	require.NotNil(t, s.Video)
	assert.Equal(t, 2, s.Stats.ProblemsSolved)

	require.NoError(t, engine.FinishVideo(ctx))
	s = engine.State()
	assert.Equal(t, session.PhaseSolving, s.Phase)
	assert.Equal(t, uint32(0), s.Progress.Solved)
	assert.Equal(t, 1, s.Stats.VideosWatched)
}

func TestEngineRejectedWhenTooFewVideos(t *testing.T) {
	e := newEnv(t)
	d, client := e.learner(1)

	engine := session.New(session.Options{
		Client:   client,
		Registry: scheduler.NewRegistry(activity.NewGate(true)),
		Interval: time.Hour,
		UserID:   d.UserID,
	})
	defer engine.Dispose()

	err := engine.Start(context.Background())
	require.ErrorIs(t, err, api.ErrRejected)
	s := engine.State()
	assert.Equal(t, session.PhaseError, s.Phase)
	assert.True(t, s.Rejected())
}
