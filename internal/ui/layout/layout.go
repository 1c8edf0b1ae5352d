// Package layout draws the chrome around every screen: a header bar with
// the screen title and status, and a footer of key hints.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/mikeymath/mathgame/internal/ui/theme"
)

const (
	MinWidth  = 60
	MinHeight = 20

	// HeaderHeight and FooterHeight include the borders.
	HeaderHeight = 3
	FooterHeight = 3

	CompactWidthThreshold  = 100
	CompactHeightThreshold = 30
)

const brand = "Mathgame"

// KeyHint is one "key description" pair in the footer.
type KeyHint struct {
	Key         string
	Description string
}

func IsCompactWidth(width int) bool {
	return width < CompactWidthThreshold
}

func IsCompactHeight(height int) bool {
	return height < CompactHeightThreshold
}

// IsTooSmall reports whether the terminal is below MinWidth x MinHeight.
func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// RenderMinSizeMessage asks the user to enlarge the terminal.
func RenderMinSizeMessage(width, height int) string {
	body := fmt.Sprintf("%s needs a bigger window.\n\nAt least %d x %d, now %d x %d.",
		brand, MinWidth, MinHeight, width, height)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.Text).Align(lipgloss.Center).Render(body))
}

var bar = lipgloss.NewStyle().
	Background(theme.BgCard).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(theme.Border)

// RenderHeader draws the brand on the left, title in the middle and status
// on the right. status may be empty.
func RenderHeader(title, status string, width int) string {
	inner := max(width-4, 0)

	left := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(" " + brand)
	right := lipgloss.NewStyle().Foreground(theme.Accent).Render(status)
	side := max(lipgloss.Width(left), lipgloss.Width(right))

	mid := lipgloss.NewStyle().
		Foreground(theme.Text).
		Width(max(inner-2*side, 0)).
		Align(lipgloss.Center).
		Render(title)

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(side).Render(left),
		mid,
		lipgloss.NewStyle().Width(side).Align(lipgloss.Right).Render(right),
	)
	return bar.Width(width).Render(row)
}

// RenderFooter draws the key hints left to right.
func RenderFooter(hints []KeyHint, width int) string {
	key := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	desc := lipgloss.NewStyle().Foreground(theme.TextDim)

	var b strings.Builder
	b.WriteString(" ")
	for i, h := range hints {
		if i > 0 {
			b.WriteString(desc.Render("  ·  "))
		}
		b.WriteString(key.Render(h.Key) + " " + desc.Render(h.Description))
	}
	return bar.Width(width).Render(b.String())
}

// RenderFrame stacks header, content and footer, sizing the content to the
// height left between them.
func RenderFrame(header, content, footer string, width, height int) string {
	rest := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body := lipgloss.NewStyle().Width(width).Height(rest).MaxHeight(rest).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
