package problemgen

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/mikeymath/mathgame/internal/api"
)

// Generator produces math problems.
type Generator interface {
	// Generate produces up to opts.Count validated problems with distinct
	// ids. All configured validators are run before returning.
	Generate(ctx context.Context, opts Options) ([]api.Problem, error)
}

// OptionsError reports options the generator cannot satisfy.
type OptionsError struct {
	Field   string
	Message string
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ErrExhausted is returned when no valid problem could be produced.
var ErrExhausted = errors.New("problemgen: no valid problem produced")

// Heuristic generates addition and subtraction chains whose operand size
// and length grow with the target difficulty.
type Heuristic struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic creates a generator. The same seed yields the same problems.
func NewHeuristic(cfg Config, seed uint64) *Heuristic {
	return &Heuristic{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Generate implements Generator.
func (h *Heuristic) Generate(ctx context.Context, opts Options) ([]api.Problem, error) {
	if err := checkOptions(opts); err != nil {
		return nil, err
	}

	attempts := h.cfg.MaxAttemptsPerProblem
	if attempts <= 0 {
		attempts = 1
	}

	seen := make(map[uint32]bool, opts.Count)
	out := make([]api.Problem, 0, opts.Count)
	for i := 0; i < opts.Count*attempts && len(out) < opts.Count; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		p := h.candidate(opts)
		if seen[p.ID] {
			continue
		}
		if verr := validate(h.cfg.Validators, &p); verr != nil {
			if !verr.Retryable {
				return out, verr
			}
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrExhausted
	}
	return out, nil
}

func checkOptions(opts Options) error {
	switch {
	case opts.Types == 0:
		return &OptionsError{Field: "types", Message: "no operations selected"}
	case opts.Types&^AllTypes != 0:
		return &OptionsError{Field: "types", Message: fmt.Sprintf("unsupported bits %#x", uint64(opts.Types&^AllTypes))}
	case opts.TargetDifficulty < 1 || opts.TargetDifficulty > 10:
		return &OptionsError{Field: "target_difficulty", Message: "must be between 1 and 10"}
	case opts.Count <= 0:
		return &OptionsError{Field: "count", Message: "must be positive"}
	}
	return nil
}

// candidate builds one unvalidated problem. Operands are chosen so that the
// running total never goes negative.
func (h *Heuristic) candidate(opts Options) api.Problem {
	h.mu.Lock()
	defer h.mu.Unlock()

	ops := opts.Types.operators()
	maxOperand := int(math.Round(5 * opts.TargetDifficulty * opts.TargetDifficulty))
	n := 2
	if opts.TargetDifficulty > 5 {
		n = 3
	}

	total := 1 + h.rng.IntN(maxOperand)
	largest := total
	var b strings.Builder
	b.WriteString(strconv.Itoa(total))
	for i := 1; i < n; i++ {
		op := ops[h.rng.IntN(len(ops))]
		var x int
		if op == "-" {
			x = h.rng.IntN(total + 1)
			total -= x
		} else {
			x = 1 + h.rng.IntN(maxOperand)
			total += x
		}
		largest = max(largest, x)
		fmt.Fprintf(&b, " %s %d", op, x)
	}

	expr := b.String()
	return api.Problem{
		ID:                problemID(expr),
		ProblemTypeBitmap: uint64(TypeOf(expr)),
		Expression:        expr,
		Answer:            strconv.Itoa(total),
		Difficulty:        difficulty(n, largest),
	}
}

// problemID hashes the expression so regenerating a problem yields the
// same id.
func problemID(expr string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(expr))
	return h.Sum32()
}

// difficulty grows with the operand count and the size of the largest
// operand, rounded to one decimal.
func difficulty(operands, largest int) float64 {
	d := float64(operands-1) + 2*math.Log10(float64(largest)+1)
	return math.Round(d*10) / 10
}
