package problemgen

// Config controls the behavior of the Heuristic generator.
type Config struct {
	// Validators is the ordered list of validators to run on every
	// generated problem. They execute in order; the first failure
	// stops the pipeline.
	Validators []Validator

	// MaxAttemptsPerProblem bounds regeneration when candidates fail
	// validation or collide with an id already produced.
	MaxAttemptsPerProblem int
}

// DefaultConfig returns a Config with the standard validator chain
// and recommended defaults.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&MathCheckValidator{},
		},
		MaxAttemptsPerProblem: 10,
	}
}
