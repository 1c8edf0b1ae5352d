package play

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	sess "github.com/mikeymath/mathgame/internal/session"
	"github.com/mikeymath/mathgame/internal/ui/components"
	"github.com/mikeymath/mathgame/internal/ui/theme"
)

func (s *PlayScreen) View(width, height int) string {
	if s.quitConfirm {
		return s.renderQuitConfirm(width, height)
	}

	var body string
	switch s.snap.Phase {
	case sess.PhaseSolving, sess.PhaseSubmitting:
		body = s.renderProblem(width)
	case sess.PhaseRewarding:
		body = s.renderReward(width)
	case sess.PhaseError:
		body = s.renderError(width)
	default:
		body = s.renderLoading(width)
	}

	if s.lastErr != "" {
		body += "\n\n" + lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.Error).
			Render(s.lastErr)
	}
	return body
}

func (s *PlayScreen) renderProgress(width int) string {
	p := s.snap.Progress
	bar := components.NewProgressBar("Next video", int(p.Solved), int(p.Target), min(width-8, 50))
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View())
}

func (s *PlayScreen) renderProblem(width int) string {
	prepared := s.snap.Problem
	if prepared == nil {
		return s.renderLoading(width)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(s.renderProgress(width))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	questionStyle := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Bold(true)
	if prepared.WordProblem {
		// Word problems wrap inside a narrower column.
		questionStyle = questionStyle.Width(min(width, 64)).Bold(false)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, questionStyle.Render(prepared.Text)))
	} else {
		b.WriteString(questionStyle.Render(prepared.Text))
	}
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render("Answer: " + s.input.View()))
	b.WriteString("\n\n")

	var status string
	switch {
	case s.snap.Phase == sess.PhaseSubmitting:
		status = lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).Render("Checking...")
	case s.snap.TryAgain:
		status = theme.TryAgain.Render("Not quite. Try again!")
	}
	if status != "" {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, status))
	}

	return b.String()
}

func (s *PlayScreen) renderReward(width int) string {
	v := s.snap.Video
	if v == nil {
		return s.renderLoading(width)
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Foreground(theme.ArcadeYellow).
		Bold(true).
		Render("You earned a video!"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(v.Title))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Underline(true).Render(v.URL))
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Render("Press Enter when it's over, or X if it won't play."))

	card := theme.Reward.Width(min(width-4, 70)).Align(lipgloss.Center).Render(b.String())
	return "\n\n" + lipgloss.PlaceHorizontal(width, lipgloss.Center, card)
}

func (s *PlayScreen) renderLoading(width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("\n\n  Loading...")
}

func (s *PlayScreen) renderError(width int) string {
	msg := "Something went wrong."
	if s.snap.Err != nil {
		msg = fmt.Sprintf("Something went wrong: %v", s.snap.Err)
	}
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render("\n\n" + msg + "\n\nPress R to retry.")
}

func (s *PlayScreen) renderQuitConfirm(width, height int) string {
	sum := sess.BuildSummary(s.engine.State().Stats, s.now())
	content := lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render("Stop playing?") +
		"\n\n" +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("%d solved so far", sum.ProblemsSolved)) +
		"\n\n" +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render("[Y]es  [N]o")

	box := theme.Card.Align(lipgloss.Center).Render(content)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
