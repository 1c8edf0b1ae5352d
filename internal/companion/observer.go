// Package companion builds the read-only view a parent sees: the
// learner's current problem, its answer and every attempt at it so far.
package companion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"

	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/history"
	"github.com/mikeymath/mathgame/internal/render"
)

// Client is the server surface the observer reads. *api.Client satisfies it.
type Client interface {
	GameState(ctx context.Context, userID uint32) (*api.GameState, error)
	Problem(ctx context.Context, id uint32) (*api.Problem, error)
	Video(ctx context.Context, id uint32) (*api.Video, error)
	ListEvents(ctx context.Context, userID uint32, limit int) ([]api.Event, error)
}

// Report is one refresh worth of companion data.
type Report struct {
	GameState api.GameState
	Problem   api.Problem
	Text      string // rendered expression, or the raw one if malformed
	Video     *api.Video
	Attempts  []api.Attempt
	FetchedAt time.Time
}

// Rewarding reports whether the learner is watching a video.
func (r *Report) Rewarding() bool {
	return r.GameState.Rewarding()
}

// Ago formats t relative to the fetch time, e.g. "3 minutes ago".
func (r *Report) Ago(t time.Time) string {
	return humanize.RelTime(t, r.FetchedAt, "ago", "from now")
}

// Options configures an Observer.
type Options struct {
	Client   Client
	UserID   uint32
	Protocol history.Protocol

	// Lookback is how many recent events to scan. Default: history.DefaultLookback.
	Lookback int

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Observer fetches Reports for one learner.
type Observer struct {
	client   Client
	userID   uint32
	protocol history.Protocol
	lookback int
	now      func() time.Time

	logPrefix string
}

// NewObserver creates an Observer.
func NewObserver(opts Options) *Observer {
	if opts.Protocol.Boundary == "" {
		opts.Protocol = history.ProtocolV2
	}
	if opts.Lookback <= 0 {
		opts.Lookback = history.DefaultLookback
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Observer{
		client:    opts.Client,
		userID:    opts.UserID,
		protocol:  opts.Protocol,
		lookback:  opts.Lookback,
		now:       opts.Now,
		logPrefix: fmt.Sprintf("[companion user=%d]", opts.UserID),
	}
}

// Fetch reads the game state, the current problem and the recent log, and
// reconstructs the attempts at that problem.
func (o *Observer) Fetch(ctx context.Context) (*Report, error) {
	gs, err := o.client.GameState(ctx, o.userID)
	if err != nil {
		return nil, err
	}
	p, err := o.client.Problem(ctx, gs.ProblemID)
	if err != nil {
		return nil, err
	}

	r := &Report{GameState: *gs, Problem: *p, Text: p.Expression}
	if prepared, err := render.Prepare(*p); err == nil {
		r.Text = prepared.Text
	} else {
		glog.V(1).Infof("%s problem %d shown raw: %v", o.logPrefix, p.ID, err)
	}

	if gs.Rewarding() && gs.VideoID != 0 {
		v, err := o.client.Video(ctx, gs.VideoID)
		switch {
		case err == nil:
			r.Video = v
		case errors.Is(err, api.ErrRejected):
			return nil, err
		default:
			glog.Warningf("%s video %d: %v", o.logPrefix, gs.VideoID, err)
		}
	}

	events, err := o.client.ListEvents(ctx, o.userID, o.lookback)
	if err != nil {
		return nil, err
	}
	r.Attempts = history.Attempts(events, gs.ProblemKey(), o.protocol)
	r.FetchedAt = o.now()

	glog.V(1).Infof("%s problem %s has %d attempts in %d events", o.logPrefix, gs.ProblemKey(), len(r.Attempts), len(events))
	return r, nil
}
