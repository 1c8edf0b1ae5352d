package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/mikeymath/mathgame/internal/router"
	"github.com/mikeymath/mathgame/internal/screen"
	"github.com/mikeymath/mathgame/internal/session"
	"github.com/mikeymath/mathgame/internal/ui/layout"
	"github.com/mikeymath/mathgame/internal/ui/theme"
)

// SummaryScreen displays what happened in a play session.
type SummaryScreen struct {
	summary session.Summary
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(summary session.Summary) *SummaryScreen {
	return &SummaryScreen{summary: summary}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Session Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Home"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyPressMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	sum := s.summary
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(center.Foreground(theme.Primary).Bold(true).Render(headline(sum)))
	b.WriteString("\n\n")

	mins := int(sum.Duration.Minutes())
	secs := int(sum.Duration.Seconds()) % 60
	b.WriteString(center.Foreground(theme.TextDim).Render(fmt.Sprintf("Time played: %d:%02d", mins, secs)))
	b.WriteString("\n\n")

	statsLine := fmt.Sprintf("Answers: %d        Solved: %d        Accuracy: %.0f%%",
		sum.Submissions, sum.ProblemsSolved, sum.Accuracy*100)
	b.WriteString(center.Foreground(theme.Text).Render(statsLine))
	b.WriteString("\n\n")

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", min(width-8, 60)))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n\n")

	videos := "No videos this time"
	switch sum.VideosWatched {
	case 0:
	case 1:
		videos = "1 video watched"
	default:
		videos = fmt.Sprintf("%d videos watched", sum.VideosWatched)
	}
	b.WriteString(center.Foreground(theme.ArcadeYellow).Render(videos))

	return b.String()
}

func headline(sum session.Summary) string {
	switch {
	case sum.Submissions == 0:
		return "See you next time!"
	case sum.Accuracy >= 0.8:
		return "Great work!"
	default:
		return "Session complete!"
	}
}
