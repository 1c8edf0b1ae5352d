package problemgen

import (
	"fmt"

	"github.com/mikeymath/mathgame/internal/api"
)

// Candidate is a generated problem awaiting validation.
type Candidate = api.Problem

// Validator checks a generated problem for correctness.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator (for error messages
	// and logging), e.g. "structural", "math-check".
	Name() string

	// Validate returns nil if the problem passes.
	Validate(p *Candidate) *ValidationError
}

// ValidationError describes why a problem failed validation.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string // Human-readable description of the failure
	Retryable bool   // Whether regeneration is likely to fix this
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// validate runs the chain in order and stops at the first failure.
func validate(validators []Validator, p *Candidate) *ValidationError {
	for _, v := range validators {
		if err := v.Validate(p); err != nil {
			return err
		}
	}
	return nil
}
