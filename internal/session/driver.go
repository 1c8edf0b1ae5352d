package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/mikeymath/mathgame/internal/api"
)

// Step is one action a Driver wants taken after Delay.
type Step struct {
	Delay       time.Duration
	Description string
	Do          func(ctx context.Context, e *Engine) error
}

// Driver decides what happens next in a given state. The UI consults it
// after every change; a driver that returns false leaves the move to the
// learner.
type Driver interface {
	Next(s Snapshot) (Step, bool)
}

// ManualDriver never acts; the learner drives.
type ManualDriver struct{}

func (ManualDriver) Next(Snapshot) (Step, bool) { return Step{}, false }

// ScriptedDriver plays the loop on its own for debugging: it works on each
// problem for WorkFor and answers it, then watches each video for WatchFor.
type ScriptedDriver struct {
	WorkFor  time.Duration
	WatchFor time.Duration

	// Answer picks the value to submit. Default: the problem's own answer.
	Answer func(p api.Problem) string
}

// NewScriptedDriver returns the quickplay driver: one second per problem,
// five seconds per video.
func NewScriptedDriver() *ScriptedDriver {
	return &ScriptedDriver{WorkFor: time.Second, WatchFor: 5 * time.Second}
}

func (d *ScriptedDriver) Next(s Snapshot) (Step, bool) {
	switch s.Phase {
	case PhaseSolving:
		if s.Problem == nil {
			return Step{}, false
		}
		p := s.Problem.Problem
		answer := p.Answer
		if d.Answer != nil {
			answer = d.Answer(p)
		}
		return Step{
			Delay:       d.WorkFor,
			Description: "answer problem " + p.Key(),
			Do: func(ctx context.Context, e *Engine) error {
				_, err := e.SubmitAnswer(ctx, answer)
				return err
			},
		}, true
	case PhaseRewarding:
		if s.Video == nil {
			return Step{}, false
		}
		return Step{
			Delay:       d.WatchFor,
			Description: "finish video " + s.Video.Key(),
			Do: func(ctx context.Context, e *Engine) error {
				return e.FinishVideo(ctx)
			},
		}, true
	case PhaseLoading:
		return Step{
			Delay:       d.WorkFor,
			Description: "refresh",
			Do: func(ctx context.Context, e *Engine) error {
				return e.Refresh(ctx)
			},
		}, true
	}
	return Step{}, false
}

// Run lets d drive e without a UI until d stops, the engine errors, ctx
// ends, or maxSteps steps have run (0 means no limit). Transient failures
// are logged and the loop continues.
func Run(ctx context.Context, e *Engine, d Driver, maxSteps int) error {
	for n := 0; maxSteps <= 0 || n < maxSteps; n++ {
		s := e.State()
		if s.Phase == PhaseError {
			return s.Err
		}
		step, ok := d.Next(s)
		if !ok {
			return nil
		}

		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		glog.V(1).Infof("%s driver: %s", e.logPrefix, step.Description)
		if err := step.Do(ctx, e); err != nil {
			if errors.Is(err, ErrDisposed) || !api.IsTransient(err) {
				return err
			}
			glog.Warningf("%s driver step %q: %v", e.logPrefix, step.Description, err)
		}
	}
	return nil
}
