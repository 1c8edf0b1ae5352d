// Package session runs the solve/reward loop against the game server. The
// engine holds the server-owned working set, decides the phase from it, and
// keeps telemetry registration and answer bookkeeping in step with every
// transition.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/history"
	"github.com/mikeymath/mathgame/internal/render"
	"github.com/mikeymath/mathgame/internal/scheduler"
	"github.com/mikeymath/mathgame/internal/tracker"
)

// maxMalformedReports bounds how many broken problems in a row the engine
// reports before giving up.
const maxMalformedReports = 3

// Options configures an Engine.
type Options struct {
	Client   Client
	Registry *scheduler.Registry

	// Interval is the telemetry period. Default: scheduler.DefaultInterval.
	Interval time.Duration

	// Protocol selects the boundary event logged when a problem is shown.
	// Default: history.ProtocolV2.
	Protocol history.Protocol

	// Ticker overrides the scheduler's timer source (tests).
	Ticker scheduler.TickerFunc

	// OnChange, if set, is called with a fresh snapshot after every state
	// change. It runs on the goroutine that caused the change and must not
	// call back into the engine.
	OnChange func(Snapshot)

	// UserID labels log lines.
	UserID uint32

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Engine is the session state machine. All methods are safe for concurrent
// use; network calls are made without holding the lock and their results
// are applied in arrival order.
type Engine struct {
	mu sync.Mutex

	client   Client
	protocol history.Protocol
	onChange func(Snapshot)
	now      func() time.Time

	handle  *scheduler.Handle
	tracker *tracker.Tracker

	phase Phase
	set   *workingSet
	err   error

	// announced is the problem whose boundary event has been logged.
	announced string

	// judged is set once the server has answered the latest submission.
	judged bool

	stats    Stats
	disposed bool

	logPrefix string
}

// New creates an engine and acquires its telemetry scheduler. Call Start to
// load the working set and Dispose when done.
func New(opts Options) *Engine {
	if opts.Protocol.Boundary == "" {
		opts.Protocol = history.ProtocolV2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		client:    opts.Client,
		protocol:  opts.Protocol,
		onChange:  opts.OnChange,
		now:       opts.Now,
		phase:     PhaseLoading,
		logPrefix: fmt.Sprintf("[engine user=%d]", opts.UserID),
	}
	e.handle = opts.Registry.Acquire(scheduler.PurposeTelemetry, scheduler.Options{
		Interval: opts.Interval,
		Report:   e.report,
		Ticker:   opts.Ticker,
	})
	e.tracker = tracker.New(e.handle)
	return e
}

// report is the scheduler callback. Telemetry is best effort: failures are
// logged and dropped.
func (e *Engine) report(eventType string, interval time.Duration) {
	e.mu.Lock()
	disposed := e.disposed
	e.mu.Unlock()
	if disposed {
		return
	}
	ev := api.EventInput{EventType: eventType, Value: strconv.FormatInt(interval.Milliseconds(), 10)}
	go func() {
		if err := e.client.Send(context.Background(), ev); err != nil {
			glog.Warningf("%s telemetry %s: %v", e.logPrefix, eventType, err)
		}
	}()
}

// State returns a consistent snapshot.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{Phase: e.phase, Err: e.err, Stats: e.stats}
	if e.set != nil {
		s.GameState = e.set.gameState
		s.Progress = ProgressOf(e.set.gameState)
		switch e.phase {
		case PhaseSolving, PhaseSubmitting:
			s.Problem = e.set.problem
		case PhaseRewarding:
			s.Video = e.set.video
		}
		if e.phase == PhaseSolving && e.set.problem != nil && e.judged {
			s.TryAgain = e.tracker.WasIncorrectAnswer(e.set.problem.Problem.Key())
		}
	}
	return s
}

// notify must be called without the lock held.
func (e *Engine) notify() {
	if e.onChange == nil {
		return
	}
	e.onChange(e.State())
}

// Start loads the working set. The first load failing leaves the engine in
// PhaseError; the caller decides whether to Refresh.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.stats.StartedAt = e.now()
	e.mu.Unlock()

	glog.Infof("%s starting", e.logPrefix)
	return e.load(ctx)
}

// Refresh refetches the working set.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.isDisposed() {
		return ErrDisposed
	}
	return e.load(ctx)
}

func (e *Engine) load(ctx context.Context) error {
	pd, err := e.client.Play(ctx)
	if err != nil {
		e.fail("load", err)
		return err
	}
	return e.apply(ctx, pd, 0)
}

// fail records err. Rejections end the session; other errors only matter
// when there is nothing on screen yet.
func (e *Engine) fail(op string, err error) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	switch {
	case errors.Is(err, api.ErrRejected):
		glog.Errorf("%s %s rejected: %v", e.logPrefix, op, err)
		e.phase = PhaseError
		e.err = err
		e.handle.Reset()
	case e.set == nil:
		glog.Errorf("%s %s failed with no working set: %v", e.logPrefix, op, err)
		e.phase = PhaseError
		e.err = err
	default:
		glog.Warningf("%s %s failed: %v", e.logPrefix, op, err)
		if e.phase == PhaseSubmitting {
			e.phase = PhaseSolving
			e.handle.Register(api.EventWorkingOnProblem)
		}
	}
	e.mu.Unlock()
	e.notify()
}

// apply installs a working set returned by the server. depth counts
// consecutive malformed problems.
func (e *Engine) apply(ctx context.Context, pd *api.PlayData, depth int) error {
	if !pd.Complete() {
		err := &api.InvalidResponseError{Op: "apply", Err: errors.New("incomplete working set")}
		e.fail("apply", err)
		return err
	}

	gs := *pd.GameState
	if gs.Rewarding() {
		video := *pd.Video
		e.mu.Lock()
		if e.disposed {
			e.mu.Unlock()
			return ErrDisposed
		}
		e.set = &workingSet{gameState: gs, video: &video}
		e.phase = PhaseRewarding
		e.err = nil
		e.handle.Unregister(api.EventWorkingOnProblem)
		e.handle.Register(api.EventWatchingVideo)
		e.mu.Unlock()

		glog.V(1).Infof("%s rewarding with video %d (%v)", e.logPrefix, video.ID, gs)
		e.notify()
		return nil
	}

	prepared, err := render.Prepare(*pd.Problem)
	if err != nil {
		return e.reportMalformed(ctx, pd.Problem.ID, err, depth)
	}

	key := prepared.Problem.Key()
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.set = &workingSet{gameState: gs, problem: &prepared}
	e.phase = PhaseSolving
	e.err = nil
	e.tracker.ProblemDisplayed(key)
	e.handle.Unregister(api.EventWatchingVideo)
	e.handle.Register(api.EventWorkingOnProblem)
	announce := e.announced != key
	e.announced = key
	e.mu.Unlock()

	glog.V(1).Infof("%s solving problem %s (%v)", e.logPrefix, key, gs)
	e.notify()

	if announce {
		ev := api.EventInput{EventType: e.protocol.Boundary, Value: key}
		if err := e.client.Send(ctx, ev); err != nil {
			glog.Warningf("%s %s %s: %v", e.logPrefix, ev.EventType, key, err)
		}
	}
	return nil
}

// reportMalformed tells the server a problem cannot be shown and installs
// whatever it sends back.
func (e *Engine) reportMalformed(ctx context.Context, problemID uint32, cause error, depth int) error {
	glog.Warningf("%s problem %d is malformed: %v", e.logPrefix, problemID, cause)

	var reason string
	var me *render.MalformedError
	if errors.As(cause, &me) {
		reason = me.Reason
	} else {
		reason = cause.Error()
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.stats.BadProblems++
	e.mu.Unlock()

	giveUp := func(err error) error {
		e.mu.Lock()
		if !e.disposed {
			e.phase = PhaseError
			e.err = err
			e.handle.Unregister(api.EventWorkingOnProblem)
		}
		e.mu.Unlock()
		e.notify()
		return err
	}

	if depth >= maxMalformedReports {
		return giveUp(fmt.Errorf("too many malformed problems: %w", cause))
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.phase = PhaseLoading
	e.mu.Unlock()
	e.notify()

	pd, err := e.client.PostEvent(ctx, api.EventInput{
		EventType: api.EventBadProblemSystem,
		Value:     fmt.Sprintf("%d: %s", problemID, reason),
	})
	if err != nil {
		if errors.Is(err, api.ErrRejected) {
			e.fail("report malformed problem", err)
			return err
		}
		return giveUp(fmt.Errorf("problem %d: %w", problemID, cause))
	}
	if pd == nil {
		return giveUp(fmt.Errorf("problem %d: %w", problemID, cause))
	}
	return e.apply(ctx, pd, depth+1)
}

// SubmitAnswer sends value for the problem on screen unless it is empty or
// identical to the last submission. It reports whether an answer was sent.
// Correctness is the server's call: a new problem or a video in the reply
// means it was right, the same problem means try again.
func (e *Engine) SubmitAnswer(ctx context.Context, value string) (bool, error) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return false, ErrDisposed
	}
	if (e.phase != PhaseSolving && e.phase != PhaseSubmitting) || e.set == nil || e.set.problem == nil {
		e.mu.Unlock()
		return false, nil
	}
	key := e.set.problem.Problem.Key()
	e.mu.Unlock()

	if !e.tracker.ReportAnswer(value, key) {
		return false, nil
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return false, ErrDisposed
	}
	e.phase = PhaseSubmitting
	e.judged = false
	e.stats.Submissions++
	e.mu.Unlock()
	e.notify()

	glog.V(1).Infof("%s answered %q for problem %s", e.logPrefix, value, key)
	pd, err := e.client.PostEvent(ctx, api.EventInput{EventType: api.EventAnsweredProblem, Value: value})
	if err != nil {
		e.tracker.SubmissionFailed(value, key)
		e.fail("submit answer", err)
		return true, err
	}
	if pd == nil {
		pd, err = e.client.Play(ctx)
		if err != nil {
			e.fail("reload after answer", err)
			return true, err
		}
	}

	e.mu.Lock()
	e.phase = PhaseLoading
	e.judged = true
	if pd.GameState != nil && (pd.GameState.ProblemID != e.set.gameState.ProblemID || pd.GameState.Rewarding()) {
		e.stats.ProblemsSolved++
	}
	e.mu.Unlock()

	return true, e.apply(ctx, pd, 0)
}

// AnswerChanged records an edit of the answer input.
func (e *Engine) AnswerChanged() {
	e.tracker.AnswerChanged()
	e.notify()
}

// FinishVideo reports that the reward video played to the end.
func (e *Engine) FinishVideo(ctx context.Context) error {
	vid, err := e.rewardingVideo()
	if err != nil {
		return err
	}
	e.handle.Unregister(api.EventWatchingVideo)

	e.mu.Lock()
	e.stats.VideosWatched++
	e.mu.Unlock()

	return e.postAndApply(ctx, "finish video", api.EventInput{EventType: api.EventDoneWatchingVideo, Value: vid})
}

// VideoFailed reports that the reward video could not be played. The server
// disables it and picks another.
func (e *Engine) VideoFailed(ctx context.Context) error {
	vid, err := e.rewardingVideo()
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.stats.VideosFailed++
	e.mu.Unlock()

	return e.postAndApply(ctx, "video failed", api.EventInput{EventType: api.EventErrorPlayingVideo, Value: vid})
}

// ReportBadProblem flags the problem on screen as broken on the learner's
// behalf. reason is optional.
func (e *Engine) ReportBadProblem(ctx context.Context, reason string) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.set == nil || e.set.problem == nil || (e.phase != PhaseSolving && e.phase != PhaseSubmitting) {
		e.mu.Unlock()
		return ErrNoWorkingSet
	}
	value := e.set.problem.Problem.Key()
	e.stats.BadProblems++
	e.mu.Unlock()

	if reason != "" {
		value += ": " + reason
	}
	return e.postAndApply(ctx, "report bad problem", api.EventInput{EventType: api.EventBadProblemUser, Value: value})
}

func (e *Engine) rewardingVideo() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return "", ErrDisposed
	}
	if e.phase != PhaseRewarding || e.set == nil || e.set.video == nil {
		return "", ErrNoWorkingSet
	}
	return e.set.video.Key(), nil
}

// postAndApply sends ev and installs the reply, refetching when the server
// acknowledges without a body.
func (e *Engine) postAndApply(ctx context.Context, op string, ev api.EventInput) error {
	pd, err := e.client.PostEvent(ctx, ev)
	if err != nil {
		e.fail(op, err)
		return err
	}
	if pd == nil {
		return e.load(ctx)
	}

	e.mu.Lock()
	if !e.disposed {
		e.phase = PhaseLoading
	}
	e.mu.Unlock()
	return e.apply(ctx, pd, 0)
}

// Dispose releases the telemetry scheduler. Later calls return ErrDisposed
// and replies still in flight are dropped.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.mu.Unlock()

	e.handle.Release()
	glog.Infof("%s disposed", e.logPrefix)
}

func (e *Engine) isDisposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}
