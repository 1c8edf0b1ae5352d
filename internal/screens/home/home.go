// Package home is the landing screen. Play and companion sessions start from
// here, and a refused session lands back here with the server's message.
package home

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/mikeymath/mathgame/internal/router"
	"github.com/mikeymath/mathgame/internal/screen"
	"github.com/mikeymath/mathgame/internal/ui/components"
	"github.com/mikeymath/mathgame/internal/ui/layout"
	"github.com/mikeymath/mathgame/internal/ui/theme"
)

const (
	titleFull    = "M  A  T  H  G  A  M  E"
	titleCompact = "MATHGAME"
	tagline      = "Solve problems. Earn videos."
)

// Options configures the landing screen.
type Options struct {
	// Play and Companion build fresh screens for each visit. A nil factory
	// hides its menu entry.
	Play      func() screen.Screen
	Companion func() screen.Screen

	// Learner labels who is signed in, e.g. "learner 7".
	Learner string

	// Notice is shown on first render, e.g. a rejection from a previous run.
	Notice string
}

// HomeScreen is the landing screen.
type HomeScreen struct {
	menu    components.Menu
	learner string
	notice  string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)

// New creates the landing screen.
func New(opts Options) *HomeScreen {
	var items []components.MenuItem
	if opts.Play != nil {
		items = append(items, components.MenuItem{Label: "PLAY", Action: push(opts.Play)})
	}
	if opts.Companion != nil {
		items = append(items, components.MenuItem{Label: "COMPANION", Action: push(opts.Companion)})
	}
	items = append(items, components.MenuItem{Label: "EXIT", Action: func() tea.Cmd { return tea.Quit }})

	return &HomeScreen{
		menu:    components.NewMenu(items),
		learner: opts.Learner,
		notice:  opts.Notice,
	}
}

func push(factory func() screen.Screen) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg {
			return router.PushScreenMsg{Screen: factory()}
		}
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// Notice returns the message on display, if any.
func (h *HomeScreen) Notice() string {
	return h.notice
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case router.HomeMsg:
		h.notice = msg.Notice
		return h, nil
	case tea.KeyPressMsg:
		// Any navigation dismisses the notice.
		h.notice = ""
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	// height is the content area; add back header and footer to estimate
	// the terminal.
	compact := layout.IsCompactHeight(height+layout.HeaderHeight+layout.FooterHeight) || layout.IsCompactWidth(width)
	cw := components.ContentWidth(width)
	center := lipgloss.NewStyle().Width(cw).Align(lipgloss.Center)

	var sections []string

	title := titleFull
	if compact {
		title = titleCompact
	}
	sections = append(sections,
		center.Foreground(theme.ArcadeYellow).Bold(true).Render(title)+"\n"+
			center.Foreground(theme.TextDim).Render(tagline))

	variant := MascotIdle
	if h.notice != "" {
		variant = MascotAlert
	}
	if !compact {
		sections = append(sections, center.Render(RenderMascot(variant)))
	}

	if h.notice != "" {
		sections = append(sections, center.Render(theme.Notice.Width(cw-2).Render(h.notice)))
	} else if h.learner != "" {
		sections = append(sections, center.Foreground(theme.ArcadeCyan).Render("Signed in as "+h.learner))
	}

	sections = append(sections, components.ArcadeMenu(h.menu.Labels(), h.menu.Selected, cw, compact))

	return components.CabinetFrame(strings.Join(sections, "\n\n"), width, height)
}
