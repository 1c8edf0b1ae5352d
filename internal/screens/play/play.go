// Package play is the screen where the learner solves problems and watches
// the reward videos. All engine calls run as commands; the engine's change
// notifications come back through a channel the screen listens on.
package play

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/history"
	"github.com/mikeymath/mathgame/internal/router"
	"github.com/mikeymath/mathgame/internal/scheduler"
	"github.com/mikeymath/mathgame/internal/screen"
	"github.com/mikeymath/mathgame/internal/screens/summary"
	sess "github.com/mikeymath/mathgame/internal/session"
	"github.com/mikeymath/mathgame/internal/ui/components"
	"github.com/mikeymath/mathgame/internal/ui/layout"
)

// Deps are what a play screen needs to run a session.
type Deps struct {
	Client   sess.Client
	Registry *scheduler.Registry
	Interval time.Duration
	Protocol history.Protocol
	UserID   uint32

	// Driver takes moves on the learner's behalf. Default: sess.ManualDriver.
	Driver sess.Driver

	// Ticker overrides the telemetry timer (tests).
	Ticker scheduler.TickerFunc

	// Now overrides the clock (tests).
	Now func() time.Time
}

// PlayScreen runs one session.
type PlayScreen struct {
	engine  *sess.Engine
	driver  sess.Driver
	now     func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	changes chan struct{}

	input   components.TextInput
	snap    sess.Snapshot
	problem string // key of the problem the input belongs to

	busy        bool
	started     bool
	stepSeq     int
	stepPending bool
	stepPhase   sess.Phase
	quitConfirm bool
	lastErr     string
}

var _ screen.Screen = (*PlayScreen)(nil)
var _ screen.KeyHintProvider = (*PlayScreen)(nil)
var _ screen.StatusProvider = (*PlayScreen)(nil)
var _ screen.Disposer = (*PlayScreen)(nil)

// New creates a play screen and its engine. The engine starts on Init.
func New(d Deps) *PlayScreen {
	if d.Driver == nil {
		d.Driver = sess.ManualDriver{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &PlayScreen{
		driver:  d.Driver,
		now:     d.Now,
		ctx:     ctx,
		cancel:  cancel,
		changes: make(chan struct{}, 1),
		input:   components.NewTextInput("your answer", true, 24),
		busy:    true,
	}
	s.engine = sess.New(sess.Options{
		Client:   d.Client,
		Registry: d.Registry,
		Interval: d.Interval,
		Protocol: d.Protocol,
		Ticker:   d.Ticker,
		UserID:   d.UserID,
		Now:      d.Now,
		OnChange: s.onChange,
	})
	return s
}

// onChange runs on engine goroutines. It only flags that a change happened;
// the screen reads the snapshot on its own goroutine.
func (s *PlayScreen) onChange(sess.Snapshot) {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *PlayScreen) waitForChange() tea.Cmd {
	ch, ctx := s.changes, s.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *PlayScreen) Init() tea.Cmd {
	ctx, e := s.ctx, s.engine
	start := func() tea.Msg {
		return startedMsg{Err: e.Start(ctx)}
	}
	return tea.Batch(s.input.Init(), start, s.waitForChange())
}

func (s *PlayScreen) Title() string {
	return "Play"
}

// Status shows progress toward the next video.
func (s *PlayScreen) Status() string {
	if !s.started || s.snap.GameState.Target == 0 {
		return ""
	}
	return "▶ " + s.snap.Progress.String()
}

func (s *PlayScreen) KeyHints() []layout.KeyHint {
	if s.quitConfirm {
		return []layout.KeyHint{
			{Key: "Y", Description: "Quit"},
			{Key: "N", Description: "Keep playing"},
		}
	}
	switch s.snap.Phase {
	case sess.PhaseSolving, sess.PhaseSubmitting:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Submit"},
			{Key: "Ctrl+R", Description: "Report problem"},
			{Key: "Esc", Description: "Quit"},
		}
	case sess.PhaseRewarding:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Done watching"},
			{Key: "X", Description: "Video broken"},
			{Key: "Esc", Description: "Quit"},
		}
	case sess.PhaseError:
		return []layout.KeyHint{
			{Key: "R", Description: "Retry"},
			{Key: "Esc", Description: "Quit"},
		}
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Quit"}}
}

// Dispose stops the engine. Commands still in flight see a cancelled
// context and their results are dropped.
func (s *PlayScreen) Dispose() {
	s.cancel()
	s.engine.Dispose()
}

func (s *PlayScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		s.busy = false
		s.started = true
		s.noteErr("load", msg.Err)
		return s, s.sync()

	case changedMsg:
		return s, tea.Batch(s.sync(), s.waitForChange())

	case actionDoneMsg:
		s.busy = false
		s.noteErr(msg.Op, msg.Err)
		return s, s.sync()

	case driverStepMsg:
		return s, s.handleStep(msg)

	case tea.KeyPressMsg:
		return s, s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.input, cmd, _ = s.input.Update(msg)
	return s, cmd
}

// sync reads the engine and brings the screen in line with it.
func (s *PlayScreen) sync() tea.Cmd {
	s.snap = s.engine.State()

	switch {
	case s.snap.Phase == sess.PhaseRewarding:
		s.problem = ""
	case s.snap.Problem != nil && s.snap.Problem.Problem.Key() != s.problem:
		s.problem = s.snap.Problem.Problem.Key()
		s.input.Reset()
	}
	s.input.SetTryAgain(s.snap.TryAgain)

	if s.snap.Phase == sess.PhaseError && s.snap.Rejected() {
		notice := rejectionNotice(s.snap.Err)
		return func() tea.Msg { return router.HomeMsg{Notice: notice} }
	}
	return s.schedule()
}

// schedule asks the driver for its next move and arms a timer for it.
func (s *PlayScreen) schedule() tea.Cmd {
	if s.busy || s.stepPending || s.quitConfirm {
		return nil
	}
	step, ok := s.driver.Next(s.snap)
	if !ok {
		return nil
	}
	s.stepPending = true
	s.stepSeq++
	s.stepPhase = s.snap.Phase
	seq := s.stepSeq
	return tea.Tick(step.Delay, func(time.Time) tea.Msg {
		return driverStepMsg{Seq: seq, Step: step}
	})
}

func (s *PlayScreen) handleStep(msg driverStepMsg) tea.Cmd {
	if msg.Seq != s.stepSeq || !s.stepPending {
		return nil
	}
	s.stepPending = false
	if s.busy || s.quitConfirm {
		return nil
	}
	if s.engine.State().Phase != s.stepPhase {
		return s.sync()
	}
	e, step := s.engine, msg.Step
	return s.run(step.Description, func(ctx context.Context) error {
		return step.Do(ctx, e)
	})
}

// run executes fn as a command and cancels any pending driver step.
func (s *PlayScreen) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	s.busy = true
	s.stepSeq++
	s.stepPending = false
	ctx := s.ctx
	return func() tea.Msg {
		return actionDoneMsg{Op: op, Err: fn(ctx)}
	}
}

func (s *PlayScreen) noteErr(op string, err error) {
	switch {
	case err == nil:
		s.lastErr = ""
	case errors.Is(err, context.Canceled),
		errors.Is(err, sess.ErrDisposed),
		errors.Is(err, sess.ErrNoWorkingSet),
		errors.Is(err, api.ErrRejected):
		// Rejections surface through the snapshot.
	default:
		s.lastErr = fmt.Sprintf("%s failed, try again", op)
	}
}

func (s *PlayScreen) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()

	if s.quitConfirm {
		switch key {
		case "y", "Y":
			sum := sess.BuildSummary(s.engine.State().Stats, s.now())
			return func() tea.Msg {
				return router.ReplaceScreenMsg{Screen: summary.New(sum)}
			}
		case "n", "N", "esc":
			s.quitConfirm = false
			return s.schedule()
		}
		return nil
	}

	if key == "esc" {
		s.quitConfirm = true
		s.stepSeq++
		s.stepPending = false
		return nil
	}

	switch s.snap.Phase {
	case sess.PhaseSolving, sess.PhaseSubmitting:
		return s.handleSolvingKey(msg)

	case sess.PhaseRewarding:
		if s.busy {
			return nil
		}
		e := s.engine
		switch key {
		case "enter", "d":
			return s.run("finish video", e.FinishVideo)
		case "x":
			return s.run("report video", e.VideoFailed)
		}

	case sess.PhaseError:
		if key == "r" && !s.busy {
			return s.run("reload", s.engine.Refresh)
		}
	}
	return nil
}

func (s *PlayScreen) handleSolvingKey(msg tea.KeyPressMsg) tea.Cmd {
	e := s.engine
	switch msg.String() {
	case "enter":
		value := strings.TrimSpace(s.input.Value())
		if value == "" || s.busy {
			return nil
		}
		return s.run("submit answer", func(ctx context.Context) error {
			_, err := e.SubmitAnswer(ctx, value)
			return err
		})
	case "ctrl+r":
		if s.busy {
			return nil
		}
		return s.run("report problem", func(ctx context.Context) error {
			return e.ReportBadProblem(ctx, "")
		})
	}

	var cmd tea.Cmd
	var changed bool
	s.input, cmd, changed = s.input.Update(msg)
	if changed {
		e.AnswerChanged()
	}
	return cmd
}

// rejectionNotice is the landing screen message for a refused session.
func rejectionNotice(err error) string {
	var re *api.RejectedError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	if errors.As(err, &re) {
		return fmt.Sprintf("The server refused this session (HTTP %d). Check your token.", re.StatusCode)
	}
	return "The server refused this session."
}
