package session

import (
	"context"
	"sync"
	"time"

	"github.com/mikeymath/mathgame/internal/api"
)

// fakeGame is an in-memory game server: a correct answer advances to the
// next problem, reaching the target switches to a video, finishing the
// video starts a new cycle.
type fakeGame struct {
	mu sync.Mutex

	gs       api.GameState
	problems map[uint32]api.Problem
	order    []uint32
	next     int
	videos   []api.Video
	video    int

	playErr  error
	postErr  error
	emptyAck bool

	posts []api.EventInput
	sent  []api.EventInput
}

func newFakeGame(solved, target uint32, problems ...api.Problem) *fakeGame {
	g := &fakeGame{
		problems: make(map[uint32]api.Problem),
		videos: []api.Video{
			{ID: 100, Title: "Rockets", URL: "https://example.com/100"},
			{ID: 101, Title: "Whales", URL: "https://example.com/101"},
		},
	}
	for _, p := range problems {
		g.problems[p.ID] = p
		g.order = append(g.order, p.ID)
	}
	g.gs = api.GameState{UserID: 1, ProblemID: g.order[0], VideoID: 100, Solved: solved, Target: target}
	g.next = 1
	return g
}

func (g *fakeGame) tripleLocked() *api.PlayData {
	gs := g.gs
	pd := &api.PlayData{GameState: &gs}
	if gs.Rewarding() {
		v := g.videos[g.video]
		pd.Video = &v
	} else {
		p := g.problems[gs.ProblemID]
		pd.Problem = &p
	}
	return pd
}

func (g *fakeGame) advanceProblemLocked() {
	g.gs.ProblemID = g.order[g.next%len(g.order)]
	g.next++
}

func (g *fakeGame) Play(ctx context.Context) (*api.PlayData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.playErr != nil {
		return nil, g.playErr
	}
	return g.tripleLocked(), nil
}

func (g *fakeGame) PostEvent(ctx context.Context, ev api.EventInput) (*api.PlayData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.postErr != nil {
		return nil, g.postErr
	}
	g.posts = append(g.posts, ev)

	switch ev.EventType {
	case api.EventAnsweredProblem:
		if ev.Value == g.problems[g.gs.ProblemID].Answer {
			g.gs.Solved++
			g.advanceProblemLocked()
		}
	case api.EventDoneWatchingVideo:
		g.gs.Solved = 0
		g.video = (g.video + 1) % len(g.videos)
		g.gs.VideoID = g.videos[g.video].ID
	case api.EventErrorPlayingVideo:
		g.video = (g.video + 1) % len(g.videos)
		g.gs.VideoID = g.videos[g.video].ID
	case api.EventBadProblemSystem, api.EventBadProblemUser:
		g.advanceProblemLocked()
	}

	if g.emptyAck {
		return nil, nil
	}
	return g.tripleLocked(), nil
}

func (g *fakeGame) Send(ctx context.Context, ev api.EventInput) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, ev)
	return nil
}

func (g *fakeGame) postsOf(eventType string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, ev := range g.posts {
		if ev.EventType == eventType {
			out = append(out, ev.Value)
		}
	}
	return out
}

func (g *fakeGame) sentOf(eventType string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, ev := range g.sent {
		if ev.EventType == eventType {
			out = append(out, ev.Value)
		}
	}
	return out
}

func (g *fakeGame) set(fn func(g *fakeGame)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g)
}

// manualTicker is a TickerFunc whose ticks are sent by the test.
type manualTicker struct {
	ch chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) ticker(time.Duration) (<-chan time.Time, func()) {
	return m.ch, func() {}
}

func (m *manualTicker) tick() {
	m.ch <- time.Now()
}
