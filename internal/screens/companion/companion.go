// Package companion is the observer screen: it follows a learner's current
// problem and attempts, refreshing on a timer while the terminal has focus.
package companion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/mikeymath/mathgame/internal/api"
	obs "github.com/mikeymath/mathgame/internal/companion"
	"github.com/mikeymath/mathgame/internal/problemgen"
	"github.com/mikeymath/mathgame/internal/router"
	"github.com/mikeymath/mathgame/internal/scheduler"
	"github.com/mikeymath/mathgame/internal/screen"
	"github.com/mikeymath/mathgame/internal/ui/layout"
	"github.com/mikeymath/mathgame/internal/ui/theme"
)

// refreshEvent is the only event type the companion scheduler carries.
const refreshEvent = "companion_refresh"

type reportMsg struct {
	Report *obs.Report
	Err    error
}

type tickMsg struct{}

// Deps are what the screen needs.
type Deps struct {
	Observer *obs.Observer
	Registry *scheduler.Registry
	Interval time.Duration

	// Ticker overrides the refresh timer (tests).
	Ticker scheduler.TickerFunc
}

// CompanionScreen shows one learner's progress.
type CompanionScreen struct {
	observer *obs.Observer
	handle   *scheduler.Handle
	ticks    chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	report   *obs.Report
	errMsg   string
	fetching bool
}

var _ screen.Screen = (*CompanionScreen)(nil)
var _ screen.KeyHintProvider = (*CompanionScreen)(nil)
var _ screen.StatusProvider = (*CompanionScreen)(nil)
var _ screen.Disposer = (*CompanionScreen)(nil)

// New creates the screen and acquires the companion refresh timer.
func New(d Deps) *CompanionScreen {
	ctx, cancel := context.WithCancel(context.Background())
	s := &CompanionScreen{
		observer: d.Observer,
		ticks:    make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.handle = d.Registry.Acquire(scheduler.PurposeCompanion, scheduler.Options{
		Interval: d.Interval,
		Ticker:   d.Ticker,
		Report: func(string, time.Duration) {
			select {
			case s.ticks <- struct{}{}:
			default:
			}
		},
	})
	s.handle.Register(refreshEvent)
	return s
}

func (s *CompanionScreen) Init() tea.Cmd {
	return tea.Batch(s.fetch(), s.waitForTick())
}

func (s *CompanionScreen) Title() string {
	return "Companion"
}

func (s *CompanionScreen) Status() string {
	if s.report == nil {
		return ""
	}
	return fmt.Sprintf("▶ %d/%d", s.report.GameState.Solved, s.report.GameState.Target)
}

func (s *CompanionScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "R", Description: "Refresh"},
		{Key: "Esc", Description: "Back"},
	}
}

// Dispose stops the refresh timer.
func (s *CompanionScreen) Dispose() {
	s.cancel()
	s.handle.Release()
}

func (s *CompanionScreen) fetch() tea.Cmd {
	if s.fetching {
		return nil
	}
	s.fetching = true
	o, ctx := s.observer, s.ctx
	return func() tea.Msg {
		r, err := o.Fetch(ctx)
		return reportMsg{Report: r, Err: err}
	}
}

func (s *CompanionScreen) waitForTick() tea.Cmd {
	ch, ctx := s.ticks, s.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return tickMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *CompanionScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case reportMsg:
		s.fetching = false
		switch {
		case msg.Err == nil:
			s.report = msg.Report
			s.errMsg = ""
		case errors.Is(msg.Err, api.ErrRejected):
			notice := "The server refused the companion view. Check your token."
			var re *api.RejectedError
			if errors.As(msg.Err, &re) && re.Message != "" {
				notice = re.Message
			}
			return s, func() tea.Msg { return router.HomeMsg{Notice: notice} }
		case errors.Is(msg.Err, context.Canceled):
		default:
			s.errMsg = "Could not refresh. Showing the last data."
		}
		return s, nil

	case tickMsg:
		return s, tea.Batch(s.fetch(), s.waitForTick())

	case tea.KeyPressMsg:
		switch msg.String() {
		case "r":
			return s, s.fetch()
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *CompanionScreen) View(width, height int) string {
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	if s.report == nil {
		if s.errMsg != "" {
			return center.Foreground(theme.Error).Render("\n\n" + s.errMsg)
		}
		return center.Foreground(theme.TextDim).Render("\n\n  Loading...")
	}
	r := s.report

	var b strings.Builder
	b.WriteString("\n")
	if r.Rewarding() {
		watching := "Watching a reward video"
		if r.Video != nil {
			watching = "Watching: " + r.Video.Title
		}
		b.WriteString(center.Foreground(theme.ArcadeYellow).Bold(true).Render(watching))
		b.WriteString("\n\n")
	}

	card := lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(r.Text) +
		"\n\n" +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render("Answer: ") +
		lipgloss.NewStyle().Foreground(theme.Success).Render(r.Problem.Answer)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
		theme.Card.Width(min(width-4, 64)).Align(lipgloss.Center).Render(card)))
	b.WriteString("\n\n")

	b.WriteString(center.Foreground(theme.TextDim).Render("Attempts"))
	b.WriteString("\n")
	if len(r.Attempts) == 0 {
		b.WriteString(center.Foreground(theme.TextDim).Italic(true).Render("No attempts yet"))
		b.WriteString("\n")
	}
	for i, a := range r.Attempts {
		mark := theme.Incorrect.Render("✗")
		if problemgen.AnswersEquivalent(a.Value, r.Problem.Answer) {
			mark = theme.Correct.Render("✓")
		}
		line := fmt.Sprintf("%2d. %-10s %s  %s", i+1, a.Value, mark,
			lipgloss.NewStyle().Foreground(theme.TextDim).Render(r.Ago(a.Timestamp)))
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	footer := "Updated " + r.FetchedAt.Local().Format("15:04:05")
	if s.errMsg != "" {
		footer = s.errMsg
	}
	b.WriteString(center.Foreground(theme.TextDim).Render(footer))
	return b.String()
}
