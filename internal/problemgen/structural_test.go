package problemgen

import (
	"strings"
	"testing"
)

func validProblem() *Candidate {
	return &Candidate{
		ID:                1,
		ProblemTypeBitmap: uint64(Addition),
		Expression:        "345 + 278",
		Answer:            "623",
		Difficulty:        6.2,
	}
}

func TestStructural_ValidProblem(t *testing.T) {
	v := &StructuralValidator{}
	if err := v.Validate(validProblem()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestStructural_Failures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *Candidate)
		contains  string
		retryable bool
	}{
		{"empty expression", func(p *Candidate) { p.Expression = "" }, "empty", true},
		{"long expression", func(p *Candidate) { p.Expression = strings.Repeat("1 + ", 200) + "1" }, "500", true},
		{"non-numeric answer", func(p *Candidate) { p.Answer = "many" }, "not a number", true},
		{"empty bitmap", func(p *Candidate) { p.ProblemTypeBitmap = 0 }, "empty", false},
		{"bitmap mismatch", func(p *Candidate) { p.ProblemTypeBitmap = uint64(Subtraction) }, "does not match", true},
		{"negative difficulty", func(p *Candidate) { p.Difficulty = -1 }, "negative", true},
	}

	v := &StructuralValidator{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProblem()
			tt.mutate(p)
			err := v.Validate(p)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Validator != "structural" {
				t.Errorf("validator = %q, want structural", err.Validator)
			}
			if !strings.Contains(err.Message, tt.contains) {
				t.Errorf("message %q does not contain %q", err.Message, tt.contains)
			}
			if err.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", err.Retryable, tt.retryable)
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		expr string
		want ProblemType
	}{
		{"1 + 2", Addition},
		{"5 - 2", Subtraction},
		{"5 - 2 + 1", Addition | Subtraction},
		{"5", 0},
	}
	for _, tt := range tests {
		if got := TypeOf(tt.expr); got != tt.want {
			t.Errorf("TypeOf(%q) = %s, want %s", tt.expr, got, tt.want)
		}
	}
	if AllTypes.String() != "addition+subtraction" {
		t.Errorf("AllTypes = %s", AllTypes)
	}
}
