package problemgen

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Mixed number: optional minus, whole part, space, proper fraction.
var mixedNumberRe = regexp.MustCompile(`^(-?\d+)\s+(\d+)/(\d+)$`)

// AnswersEquivalent reports whether the learner's answer has the same value
// as the correct one.
//
// Accepted forms:
// - Integers: "5", "-3", "007"
// - Decimals: "0.5", ".5", "-.5"
// - Fractions: "1/2", "2/4"
// - Mixed numbers: "1 1/2", "-1 1/2" (the sign applies to the whole value)
//
// Strings that do not parse as numbers only match themselves exactly, after
// trimming whitespace.
func AnswersEquivalent(learner, correct string) bool {
	learner = strings.TrimSpace(learner)
	correct = strings.TrimSpace(correct)
	if learner == "" {
		return false
	}
	if learner == correct {
		return true
	}
	l, okL := ParseAnswer(learner)
	c, okC := ParseAnswer(correct)
	if !okL || !okC {
		return false
	}
	return l.Cmp(c) == 0
}

// ParseAnswer parses an answer into a rational number.
func ParseAnswer(s string) (*big.Rat, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	} else if strings.HasPrefix(s, "-.") {
		s = "-0" + s[1:]
	}

	r := new(big.Rat)
	if _, ok := r.SetString(s); ok {
		return r, true
	}

	m := mixedNumberRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	whole, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, false
	}
	num, _ := strconv.ParseInt(m[2], 10, 64)
	den, _ := strconv.ParseInt(m[3], 10, 64)
	if den == 0 {
		return nil, false
	}
	frac := big.NewRat(num, den)
	r.SetInt64(abs(whole))
	r.Add(r, frac)
	if strings.HasPrefix(m[1], "-") {
		r.Neg(r)
	}
	return r, true
}

// abs returns the absolute value of n.
func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
