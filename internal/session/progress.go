package session

import (
	"fmt"

	"github.com/mikeymath/mathgame/internal/api"
)

// Progress is the learner's position in the current reward cycle.
type Progress struct {
	Solved uint32
	Target uint32
}

// ProgressOf extracts the cycle position from a game state.
func ProgressOf(gs api.GameState) Progress {
	return Progress{Solved: gs.Solved, Target: gs.Target}
}

// Fraction returns Solved/Target clamped to [0, 1]. A zero target counts as
// complete.
func (p Progress) Fraction() float64 {
	if p.Target == 0 {
		return 1
	}
	f := float64(p.Solved) / float64(p.Target)
	if f > 1 {
		return 1
	}
	return f
}

// Remaining returns how many problems are left before the video.
func (p Progress) Remaining() uint32 {
	if p.Solved >= p.Target {
		return 0
	}
	return p.Target - p.Solved
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Solved, p.Target)
}
