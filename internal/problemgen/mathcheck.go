package problemgen

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// MathCheckValidator independently recomputes the answer from the
// expression. Expressions it cannot evaluate (word problems, anything with
// \text or brackets) pass through silently.
type MathCheckValidator struct{}

func (v *MathCheckValidator) Name() string { return "math-check" }

func (v *MathCheckValidator) Validate(p *Candidate) *ValidationError {
	computed, err := computeAnswer(p.Expression)
	if err != nil {
		return nil
	}
	if !AnswersEquivalent(computed, p.Answer) {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("computed %q but problem claims %q", computed, p.Answer),
			Retryable: true,
		}
	}
	return nil
}

var (
	latexOps = strings.NewReplacer(`\times`, "*", `\cdot`, "*", `\div`, "/", "×", "*", "÷", "/")

	// A number or a binary operator. Anything else makes the expression
	// non-computable.
	arithTokenRe = regexp.MustCompile(`^\s*(?:(\d+(?:\.\d+)?)|([+\-*/]))`)
)

// computeAnswer evaluates a flat arithmetic expression with the usual
// precedence and returns the exact result in lowest terms.
func computeAnswer(expression string) (string, error) {
	s := latexOps.Replace(expression)

	var (
		nums []*big.Rat
		ops  []string
	)
	expectNum := true
	for strings.TrimSpace(s) != "" {
		m := arithTokenRe.FindStringSubmatchIndex(s)
		if m == nil {
			return "", fmt.Errorf("not computable at %q", s)
		}
		switch {
		case m[2] >= 0:
			if !expectNum {
				return "", fmt.Errorf("unexpected number in %q", expression)
			}
			r, ok := new(big.Rat).SetString(s[m[2]:m[3]])
			if !ok {
				return "", fmt.Errorf("bad number %q", s[m[2]:m[3]])
			}
			nums = append(nums, r)
		default:
			if expectNum {
				return "", fmt.Errorf("unexpected operator in %q", expression)
			}
			ops = append(ops, s[m[4]:m[5]])
		}
		expectNum = !expectNum
		s = s[m[1]:]
	}
	if len(nums) == 0 || expectNum {
		return "", fmt.Errorf("incomplete expression %q", expression)
	}

	// Fold * and / first, leaving a sum of terms.
	terms := []*big.Rat{nums[0]}
	signs := []string{"+"}
	for i, op := range ops {
		next := nums[i+1]
		last := terms[len(terms)-1]
		switch op {
		case "*":
			last.Mul(last, next)
		case "/":
			if next.Sign() == 0 {
				return "", fmt.Errorf("division by zero")
			}
			last.Quo(last, next)
		default:
			terms = append(terms, next)
			signs = append(signs, op)
		}
	}

	result := new(big.Rat)
	for i, t := range terms {
		if signs[i] == "-" {
			result.Sub(result, t)
		} else {
			result.Add(result, t)
		}
	}
	return result.RatString(), nil
}
