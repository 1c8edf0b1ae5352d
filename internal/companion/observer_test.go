package companion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/history"
)

type fakeClient struct {
	gs       api.GameState
	problems map[uint32]api.Problem
	video    *api.Video
	videoErr error
	events   []api.Event
	limit    int
}

func (c *fakeClient) GameState(context.Context, uint32) (*api.GameState, error) {
	gs := c.gs
	return &gs, nil
}

func (c *fakeClient) Problem(_ context.Context, id uint32) (*api.Problem, error) {
	p, ok := c.problems[id]
	if !ok {
		return nil, &api.TransientError{Op: "get problem", StatusCode: 404}
	}
	return &p, nil
}

func (c *fakeClient) Video(context.Context, uint32) (*api.Video, error) {
	return c.video, c.videoErr
}

func (c *fakeClient) ListEvents(_ context.Context, _ uint32, limit int) ([]api.Event, error) {
	c.limit = limit
	return c.events, nil
}

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func ev(sec int, typ, value string) api.Event {
	return api.Event{Timestamp: t0.Add(time.Duration(sec) * time.Second), EventType: typ, Value: value}
}

func TestObserver_FetchReconstructsAttempts(t *testing.T) {
	c := &fakeClient{
		gs:       api.GameState{UserID: 7, ProblemID: 12, Solved: 1, Target: 5},
		problems: map[uint32]api.Problem{12: {ID: 12, Expression: `3\times4`, Answer: "12"}},
		events: []api.Event{
			ev(0, api.EventDisplayedProblem, "11"),
			ev(5, api.EventAnsweredProblem, "8"),
			ev(10, api.EventDisplayedProblem, "12"),
			ev(20, api.EventAnsweredProblem, "7"),
			ev(25, api.EventWorkingOnProblem, "1000"),
			ev(30, api.EventAnsweredProblem, "11"),
		},
	}
	o := NewObserver(Options{Client: c, UserID: 7, Now: func() time.Time { return t0.Add(3 * time.Minute) }})

	r, err := o.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, history.DefaultLookback, c.limit)
	assert.Equal(t, "12", r.Problem.Answer)
	assert.NotEqual(t, `3\times4`, r.Text, "expression should be rendered")
	require.Len(t, r.Attempts, 2)
	assert.Equal(t, "7", r.Attempts[0].Value)
	assert.Equal(t, "11", r.Attempts[1].Value)
	assert.Equal(t, "2 minutes ago", r.Ago(r.Attempts[1].Timestamp))
	assert.False(t, r.Rewarding())
	assert.Nil(t, r.Video)
}

func TestObserver_ProtocolV1(t *testing.T) {
	c := &fakeClient{
		gs:       api.GameState{ProblemID: 2, Target: 5},
		problems: map[uint32]api.Problem{2: {ID: 2, Expression: "1+1", Answer: "2"}},
		events: []api.Event{
			ev(0, api.EventSelectedProblem, "1"),
			ev(1, api.EventAnsweredProblem, "5"),
			ev(2, api.EventSelectedProblem, "2"),
			ev(3, api.EventAnsweredProblem, "3"),
		},
	}
	o := NewObserver(Options{Client: c, Protocol: history.ProtocolV1, Lookback: 10})

	r, err := o.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, c.limit)
	require.Len(t, r.Attempts, 1)
	assert.Equal(t, "3", r.Attempts[0].Value)
}

func TestObserver_RewardingFetchesVideo(t *testing.T) {
	c := &fakeClient{
		gs:       api.GameState{ProblemID: 2, VideoID: 9, Solved: 5, Target: 5},
		problems: map[uint32]api.Problem{2: {ID: 2, Expression: "1+1", Answer: "2"}},
		video:    &api.Video{ID: 9, Title: "Volcanoes"},
	}
	r, err := NewObserver(Options{Client: c}).Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, r.Rewarding())
	require.NotNil(t, r.Video)
	assert.Equal(t, "Volcanoes", r.Video.Title)
	assert.Empty(t, r.Attempts)
	assert.NotNil(t, r.Attempts)
}

func TestObserver_VideoErrorIsNotFatal(t *testing.T) {
	c := &fakeClient{
		gs:       api.GameState{ProblemID: 2, VideoID: 9, Solved: 5, Target: 5},
		problems: map[uint32]api.Problem{2: {ID: 2, Expression: "1+1", Answer: "2"}},
		videoErr: &api.TransientError{Op: "get video", StatusCode: 500},
	}
	r, err := NewObserver(Options{Client: c}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, r.Video)
}

func TestObserver_MissingProblemFails(t *testing.T) {
	c := &fakeClient{gs: api.GameState{ProblemID: 99, Target: 5}}
	_, err := NewObserver(Options{Client: c}).Fetch(context.Background())
	assert.True(t, api.IsTransient(err))
}

func TestObserver_MalformedShownRaw(t *testing.T) {
	c := &fakeClient{
		gs:       api.GameState{ProblemID: 3, Target: 5},
		problems: map[uint32]api.Problem{3: {ID: 3, Expression: `\frac{1`, Answer: "1"}},
	}
	r, err := NewObserver(Options{Client: c}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `\frac{1`, r.Text)
}
