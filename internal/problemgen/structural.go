package problemgen

import "fmt"

// StructuralValidator checks that required fields are present, within
// length limits, and consistent with each other.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(p *Candidate) *ValidationError {
	if p.Expression == "" {
		return &ValidationError{
			Validator: v.Name(),
			Message:   "expression is empty",
			Retryable: true,
		}
	}
	if len(p.Expression) > 500 {
		return &ValidationError{
			Validator: v.Name(),
			Message:   "expression exceeds 500 characters",
			Retryable: true,
		}
	}
	if _, ok := ParseAnswer(p.Answer); !ok {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("answer %q is not a number", p.Answer),
			Retryable: true,
		}
	}
	if p.ProblemTypeBitmap == 0 {
		return &ValidationError{
			Validator: v.Name(),
			Message:   "problem_type_bitmap is empty",
			Retryable: false,
		}
	}
	if got := TypeOf(p.Expression); uint64(got) != p.ProblemTypeBitmap {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("problem_type_bitmap %d does not match expression (%s)", p.ProblemTypeBitmap, got),
			Retryable: true,
		}
	}
	if p.Difficulty < 0 {
		return &ValidationError{
			Validator: v.Name(),
			Message:   "difficulty must not be negative",
			Retryable: true,
		}
	}
	return nil
}
