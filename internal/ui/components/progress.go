package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/mikeymath/mathgame/internal/ui/theme"
)

// ProgressBar displays a horizontal progress bar with an optional
// "done/total" counter.
type ProgressBar struct {
	Label string
	Done  int
	Total int
	Width int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, done, total, width int) ProgressBar {
	return ProgressBar{
		Label: label,
		Done:  done,
		Total: total,
		Width: width,
	}
}

// Fraction is Done/Total clamped to [0,1]. A zero Total reads as full.
func (p ProgressBar) Fraction() float64 {
	if p.Total <= 0 {
		return 1
	}
	f := float64(p.Done) / float64(p.Total)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  ")
	}

	counter := ""
	if p.Total > 0 {
		counter = fmt.Sprintf("  %d/%d", p.Done, p.Total)
	}

	barWidth := p.Width - lipgloss.Width(b.String()) - len(counter)
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * p.Fraction())
	empty := barWidth - filled

	b.WriteString(theme.ProgressFilled.Render(strings.Repeat(" ", filled)))
	b.WriteString(theme.ProgressEmpty.Render(strings.Repeat(" ", empty)))

	if counter != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(counter))
	}
	return b.String()
}
