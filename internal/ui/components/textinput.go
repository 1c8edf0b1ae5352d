package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/mikeymath/mathgame/internal/ui/theme"
)

// answerRunes are the characters an answer may contain: integers,
// decimals, fractions and mixed numbers ("1 1/2").
const answerRunes = "0123456789-./ "

// TextInput wraps bubbles/textinput with Mathgame styling.
type TextInput struct {
	Model      textinput.Model
	AnswerOnly bool
	MaxWidth   int
	tryAgain   bool
}

// NewTextInput creates a new styled text input.
func NewTextInput(placeholder string, answerOnly bool, maxWidth int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()

	if maxWidth > 0 {
		ti.CharLimit = maxWidth
	}

	return TextInput{
		Model:      ti,
		AnswerOnly: answerOnly,
		MaxWidth:   maxWidth,
	}
}

// Init returns the initial command.
func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages. It reports whether the value changed so callers
// can treat any edit as the learner reconsidering.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd, bool) {
	if t.AnswerOnly {
		if kmsg, ok := msg.(tea.KeyPressMsg); ok && kmsg.Text != "" {
			for _, r := range kmsg.Text {
				if !strings.ContainsRune(answerRunes, r) {
					return t, nil, false
				}
			}
		}
	}

	before := t.Model.Value()
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	changed := t.Model.Value() != before
	if changed {
		t.tryAgain = false
	}
	return t, cmd, changed
}

// View renders the text input.
func (t TextInput) View() string {
	view := t.Model.View()
	if t.tryAgain {
		view += " " + lipgloss.NewStyle().Foreground(theme.Error).Render("✗")
	}
	return view
}

// Value returns the current input value.
func (t TextInput) Value() string {
	return t.Model.Value()
}

// SetTryAgain marks the current value as rejected until it is edited.
func (t *TextInput) SetTryAgain(v bool) {
	t.tryAgain = v
}

// Reset clears the value and any rejection mark.
func (t *TextInput) Reset() {
	t.Model.SetValue("")
	t.tryAgain = false
}
