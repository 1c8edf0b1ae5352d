package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/golang/glog"

	"github.com/mikeymath/mathgame/internal/activity"
	"github.com/mikeymath/mathgame/internal/router"
	"github.com/mikeymath/mathgame/internal/screen"
	"github.com/mikeymath/mathgame/internal/ui/layout"
)

// Options wires the program.
type Options struct {
	// Home is the landing screen at the bottom of the stack.
	Home screen.Screen

	// Start, if set, is pushed on launch so a command can open straight
	// into play or the companion view.
	Start screen.Screen

	// Gate receives terminal focus changes. Timers pause while it is blurred.
	Gate *activity.Gate
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	gate   *activity.Gate
	start  screen.Screen
	width  int
	height int
}

func newAppModel(opts Options) AppModel {
	return AppModel{
		router: router.New(opts.Home),
		gate:   opts.Gate,
		start:  opts.Start,
	}
}

func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.router.Active().Init()}
	if m.start != nil {
		start := m.start
		cmds = append(cmds, func() tea.Msg { return router.PushScreenMsg{Screen: start} })
	}
	return tea.Batch(cmds...)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.FocusMsg:
		glog.V(2).Info("[app] focus")
		if m.gate != nil {
			m.gate.SetFocused(true)
		}
		return m, nil

	case tea.BlurMsg:
		glog.V(2).Info("[app] blur")
		if m.gate != nil {
			m.gate.SetFocused(false)
		}
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			m.router.DisposeAll()
			return m, tea.Quit
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	v.ReportFocus = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.frame())
	return v
}

// frame renders header, active screen and footer at the current size.
func (m AppModel) frame() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	title, status := "", ""
	if active != nil {
		title = active.Title()
	}
	if sp, ok := active.(screen.StatusProvider); ok {
		status = sp.Status()
	}

	header := layout.RenderHeader(title, status, m.width)

	var footerHints []layout.KeyHint
	if kp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = kp.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// Run starts the Bubble Tea program and tears every screen down on exit.
func Run(opts Options) error {
	m := newAppModel(opts)
	defer m.router.DisposeAll()

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
