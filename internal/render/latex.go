// Package render turns problem expressions, a small LaTeX subset as the
// generator writes them, into plain terminal text.
package render

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mikeymath/mathgame/internal/api"
)

// MalformedError reports an expression that cannot be prepared for display.
type MalformedError struct {
	Expression string
	Offset     int
	Reason     string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed expression at offset %d: %s", e.Offset, e.Reason)
}

// Prepared is a problem ready to show.
type Prepared struct {
	Problem     api.Problem
	Text        string
	WordProblem bool
}

// Prepare renders p's expression. The error is always a *MalformedError.
func Prepare(p api.Problem) (Prepared, error) {
	text, err := Expression(p.Expression)
	if err != nil {
		return Prepared{}, err
	}
	return Prepared{Problem: p, Text: text, WordProblem: IsWordProblem(p.Expression)}, nil
}

var textRun = regexp.MustCompile(`\\text\{[^}]+\}`)

// SplitTextRuns breaks every \text{...} at its whitespace into consecutive
// \text groups, so each word is its own run and can wrap on its own.
func SplitTextRuns(expr string) string {
	return textRun.ReplaceAllStringFunc(expr, func(m string) string {
		return strings.Join(strings.Fields(m), " }\\text{")
	})
}

// Expression renders a LaTeX-subset expression to terminal text.
func Expression(expr string) (string, error) {
	if strings.TrimSpace(expr) == "" {
		return "", &MalformedError{Expression: expr, Reason: "empty expression"}
	}
	p := &parser{src: SplitTextRuns(expr), orig: expr}
	out, err := p.sequence(false)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(out), " "), nil
}

// IsWordProblem reports whether expr carries prose: a \text group or any
// letter outside a command name.
func IsWordProblem(expr string) bool {
	if strings.Contains(expr, `\text`) {
		return true
	}
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c == '\\' {
			i++
			for i < len(expr) && isLetter(expr[i]) {
				i++
			}
			i--
			continue
		}
		if isLetter(c) {
			return true
		}
	}
	return false
}

var symbols = map[string]string{
	"times":        "×",
	"div":          "÷",
	"cdot":         "·",
	"pm":           "±",
	"mp":           "∓",
	"le":           "≤",
	"leq":          "≤",
	"ge":           "≥",
	"geq":          "≥",
	"ne":           "≠",
	"neq":          "≠",
	"approx":       "≈",
	"lt":           "<",
	"gt":           ">",
	"pi":           "π",
	"theta":        "θ",
	"alpha":        "α",
	"beta":         "β",
	"infty":        "∞",
	"circ":         "°",
	"degree":       "°",
	"angle":        "∠",
	"triangle":     "△",
	"square":       "□",
	"cdots":        "⋯",
	"ldots":        "…",
	"dots":         "…",
	"quad":         "  ",
	"qquad":        "    ",
	"colon":        ":",
	"displaystyle": "",
	"textstyle":    "",
}

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
	'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', 'n': 'ⁿ',
}

type parser struct {
	src  string
	orig string
	pos  int
}

func (p *parser) errorf(format string, args ...any) error {
	return &MalformedError{Expression: p.orig, Offset: p.pos, Reason: fmt.Sprintf(format, args...)}
}

// sequence renders until the end of input or, inside a group, the closing
// brace.
func (p *parser) sequence(inGroup bool) (string, error) {
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '}':
			if !inGroup {
				return "", p.errorf("unmatched '}'")
			}
			p.pos++
			return b.String(), nil
		case '{':
			p.pos++
			s, err := p.sequence(true)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case '\\':
			s, err := p.command()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case '^':
			p.pos++
			arg, err := p.argument()
			if err != nil {
				return "", err
			}
			b.WriteString(superscript(arg))
		case '_':
			p.pos++
			arg, err := p.argument()
			if err != nil {
				return "", err
			}
			b.WriteString("_" + wrap(arg))
		case '$':
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	if inGroup {
		return "", p.errorf("missing '}'")
	}
	return b.String(), nil
}

// argument renders one command argument: a braced group, a command or a
// single character.
func (p *parser) argument() (string, error) {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return "", p.errorf("missing argument")
	}
	switch c := p.src[p.pos]; c {
	case '{':
		p.pos++
		return p.sequence(true)
	case '\\':
		return p.command()
	case '}':
		return "", p.errorf("missing argument")
	}
	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += size
	return string(r), nil
}

func (p *parser) command() (string, error) {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return "", p.errorf("trailing backslash")
	}

	c := p.src[p.pos]
	if !isLetter(c) {
		p.pos++
		switch c {
		case ',', ';', ':', ' ':
			return " ", nil
		case '!':
			return "", nil
		case '{', '}', '$', '%', '&', '#', '_':
			return string(c), nil
		case '\\':
			return " ", nil
		}
		return "", p.errorf("unsupported escape \\%c", c)
	}

	start := p.pos
	for p.pos < len(p.src) && isLetter(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]

	if sym, ok := symbols[name]; ok {
		return sym, nil
	}

	switch name {
	case "text", "textrm", "textbf", "mathrm", "mathbf", "mbox":
		return p.argument()
	case "frac", "dfrac", "tfrac":
		num, err := p.argument()
		if err != nil {
			return "", err
		}
		den, err := p.argument()
		if err != nil {
			return "", err
		}
		return wrap(num) + "/" + wrap(den), nil
	case "sqrt":
		arg, err := p.argument()
		if err != nil {
			return "", err
		}
		return "√" + wrap(arg), nil
	case "left", "right":
		d, err := p.argument()
		if err != nil {
			return "", err
		}
		if d == "." {
			return "", nil
		}
		return d, nil
	}
	return "", p.errorf("unsupported command \\%s", name)
}

// wrap parenthesises s unless it is a single number or symbol.
func wrap(s string) string {
	s = strings.TrimSpace(s)
	if simple(s) {
		return s
	}
	return "(" + s + ")"
}

func simple(s string) bool {
	if s == "" {
		return false
	}
	if utf8.RuneCountInString(s) == 1 {
		return true
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && c != '.' && !isLetter(c) {
			return false
		}
	}
	return true
}

func superscript(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		sup, ok := superscripts[r]
		if !ok {
			return "^" + wrap(s)
		}
		b.WriteRune(sup)
	}
	if b.Len() == 0 {
		return "^" + wrap(s)
	}
	return b.String()
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
