// Package theme holds the colors and shared lipgloss styles.
package theme

import (
	"charm.land/lipgloss/v2"
)

var (
	Primary   = lipgloss.Color("#8B5CF6")
	Secondary = lipgloss.Color("#14B8A6")
	Accent    = lipgloss.Color("#F97316")
	Success   = lipgloss.Color("#22C55E")
	Error     = lipgloss.Color("#F43F5E")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgDark    = lipgloss.Color("#0F172A")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")

	// Cabinet highlights on the landing screen and the reward panel.
	ArcadeYellow = lipgloss.Color("#FACC15")
	ArcadeCyan   = lipgloss.Color("#22D3EE")
)

var (
	Hint = lipgloss.NewStyle().Foreground(TextDim).Italic(true)

	// Card frames a problem.
	Card = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	Selected   = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	Unselected = lipgloss.NewStyle().Foreground(Text)

	// Correct and Incorrect mark past attempts in the companion view.
	Correct   = lipgloss.NewStyle().Foreground(Success).Bold(true)
	Incorrect = lipgloss.NewStyle().Foreground(Error).Bold(true)

	// TryAgain marks an answer the server did not accept.
	TryAgain = lipgloss.NewStyle().Foreground(Accent).Bold(true)

	// Notice is the landing screen banner for a refused session.
	Notice = lipgloss.NewStyle().
		Foreground(Error).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Error).
		Padding(0, 1)

	ProgressFilled = lipgloss.NewStyle().Background(Secondary)
	ProgressEmpty  = lipgloss.NewStyle().Background(Border)

	// Reward frames the video panel while rewarding.
	Reward = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(ArcadeYellow).
		Padding(1, 3)
)
