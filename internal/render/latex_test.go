package render

import (
	"errors"
	"testing"

	"github.com/mikeymath/mathgame/internal/api"
)

func TestExpression(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2+2", "2+2"},
		{"3 \\times 4", "3 × 4"},
		{"12 \\div 3", "12 ÷ 3"},
		{"\\frac{1}{2} + \\frac{1}{4}", "1/2 + 1/4"},
		{"\\frac{x+1}{2}", "(x+1)/2"},
		{"x^2 + y^{10}", "x² + y¹⁰"},
		{"2^{x+1}", "2^(x+1)"},
		{"\\sqrt{16}", "√16"},
		{"\\left( 3 + 4 \\right) \\cdot 2", "( 3 + 4 ) · 2"},
		{"$5 - 3$", "5 - 3"},
		{"50\\%", "50%"},
		{"\\text{Sam has 3 apples. How many?}", "Sam has 3 apples. How many?"},
		{"\\text{Half of } \\frac{1}{2} \\text{ is}", "Half of 1/2 is"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Expression(tt.in)
			if err != nil {
				t.Fatalf("Expression(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Expression(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpression_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", "   "},
		{"unclosed group", "\\frac{1}{2"},
		{"stray close", "1 + 2}"},
		{"missing argument", "\\frac{1}"},
		{"unknown command", "\\integral x"},
		{"trailing backslash", "3 + \\"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expression(tt.in)
			var me *MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("Expression(%q) error = %v, want *MalformedError", tt.in, err)
			}
			if me.Reason == "" {
				t.Error("expected a reason")
			}
		})
	}
}

func TestSplitTextRuns(t *testing.T) {
	got := SplitTextRuns("\\text{Sam has} + 1")
	want := "\\text{Sam }\\text{has} + 1"
	if got != want {
		t.Errorf("SplitTextRuns = %q, want %q", got, want)
	}
}

func TestIsWordProblem(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2+2", false},
		{"3 \\times 4", false},
		{"\\frac{1}{2}", false},
		{"\\text{How many?}", true},
		{"Sam has 3 apples", true},
	}
	for _, tt := range tests {
		if got := IsWordProblem(tt.in); got != tt.want {
			t.Errorf("IsWordProblem(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrepare(t *testing.T) {
	p := api.Problem{ID: 3, Expression: "\\text{What is } 6 \\times 7?"}
	got, err := Prepare(p)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got.Text != "What is 6 × 7?" || !got.WordProblem || got.Problem.ID != 3 {
		t.Errorf("Prepare = %+v", got)
	}

	if _, err := Prepare(api.Problem{ID: 4, Expression: "\\frac{1"}); err == nil {
		t.Error("expected error for malformed expression")
	}
}
