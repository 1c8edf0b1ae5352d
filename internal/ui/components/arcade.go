package components

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/mikeymath/mathgame/internal/ui/theme"
)

// ArcadeButtonWidth is the width of a landing menu button.
const ArcadeButtonWidth = 22

// ContentWidth is the inner width shared by every section inside the
// cabinet, clamped to [20, 60].
func ContentWidth(frameWidth int) int {
	return min(max(frameWidth-6, 20), 60)
}

// CabinetFrame draws the double border around the landing screen and
// centers content in it.
func CabinetFrame(content string, width, height int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Primary).
		Width(width-2).
		Height(height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

var buttonBase = lipgloss.NewStyle().
	Width(ArcadeButtonWidth).
	Align(lipgloss.Center).
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1)

// ArcadeButton renders one landing menu entry.
func ArcadeButton(label string, selected bool) string {
	if selected {
		return buttonBase.
			Bold(true).
			Foreground(theme.BgDark).
			Background(theme.ArcadeYellow).
			BorderForeground(theme.ArcadeYellow).
			Render("▸ " + label)
	}
	return buttonBase.
		Foreground(theme.Text).
		BorderForeground(theme.Border).
		Render(label)
}

// ArcadeMenu stacks the labels as buttons, or as single lines when compact.
func ArcadeMenu(labels []string, selected, cw int, compact bool) string {
	rows := make([]string, 0, len(labels))
	for i, label := range labels {
		switch {
		case !compact:
			rows = append(rows, ArcadeButton(label, i == selected))
		case i == selected:
			rows = append(rows, lipgloss.NewStyle().
				Foreground(theme.BgDark).
				Background(theme.ArcadeYellow).
				Bold(true).
				Render(" ▸ "+label+" "))
		default:
			rows = append(rows, lipgloss.NewStyle().Foreground(theme.Text).Render("   "+label))
		}
	}
	return lipgloss.NewStyle().Width(cw).Align(lipgloss.Center).Render(strings.Join(rows, "\n"))
}
