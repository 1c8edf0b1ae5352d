// Package problemgen produces and checks the arithmetic problems served by
// the demo server.
package problemgen

import "strings"

// ProblemType is a bitmap of the operations a problem exercises. Limited to
// 64 flags.
type ProblemType uint64

const (
	Addition ProblemType = 1 << iota
	Subtraction
)

// AllTypes is every operation the heuristic generator knows.
const AllTypes = Addition | Subtraction

// Has reports whether every bit of o is set in t.
func (t ProblemType) Has(o ProblemType) bool {
	return t&o == o
}

func (t ProblemType) String() string {
	var parts []string
	if t.Has(Addition) {
		parts = append(parts, "addition")
	}
	if t.Has(Subtraction) {
		parts = append(parts, "subtraction")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// operators returns the expression operators enabled by t.
func (t ProblemType) operators() []string {
	var ops []string
	if t.Has(Addition) {
		ops = append(ops, "+")
	}
	if t.Has(Subtraction) {
		ops = append(ops, "-")
	}
	return ops
}

// TypeOf derives the bitmap from an expression's operators.
func TypeOf(expression string) ProblemType {
	var t ProblemType
	if strings.Contains(expression, "+") {
		t |= Addition
	}
	if strings.Contains(expression, "-") {
		t |= Subtraction
	}
	return t
}

// Options controls a generation run.
type Options struct {
	// Types selects the operations to use. Must be non-zero.
	Types ProblemType

	// TargetDifficulty scales operand size and count, 1 (easiest) to 10.
	TargetDifficulty float64

	// Count is how many problems to produce.
	Count int
}
