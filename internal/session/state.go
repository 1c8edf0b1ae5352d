package session

import (
	"context"
	"errors"

	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/render"
)

// Phase is where the engine is in the solve/reward loop.
type Phase int

const (
	PhaseLoading    Phase = iota // Waiting for a working set
	PhaseSolving                 // A problem is on screen
	PhaseSubmitting              // An answer is in flight
	PhaseRewarding               // A reward video is on screen
	PhaseError                   // Nothing usable; see Snapshot.Err
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSolving:
		return "solving"
	case PhaseSubmitting:
		return "submitting"
	case PhaseRewarding:
		return "rewarding"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

var (
	// ErrDisposed is returned by every engine call after Dispose.
	ErrDisposed = errors.New("session disposed")

	// ErrNoWorkingSet is returned by actions that need a problem or video
	// before one has been loaded.
	ErrNoWorkingSet = errors.New("no working set")
)

// Client is the server surface the engine uses. *api.Client satisfies it.
type Client interface {
	Play(ctx context.Context) (*api.PlayData, error)
	PostEvent(ctx context.Context, ev api.EventInput) (*api.PlayData, error)
	Send(ctx context.Context, ev api.EventInput) error
}

// workingSet is the server-owned triple. It is replaced as one value and
// never mutated in place.
type workingSet struct {
	gameState api.GameState
	problem   *render.Prepared
	video     *api.Video
}

// Snapshot is a consistent read of the engine.
type Snapshot struct {
	Phase     Phase
	GameState api.GameState
	Problem   *render.Prepared // set while solving or submitting
	Video     *api.Video       // set while rewarding

	// TryAgain is set when the server kept the same problem after the last
	// submission and the answer has not been edited since.
	TryAgain bool

	// Err is the cause of PhaseError, or the rejection that ended the
	// session.
	Err error

	Progress Progress
	Stats    Stats
}

// Rejected reports whether the server refused the session.
func (s Snapshot) Rejected() bool {
	return errors.Is(s.Err, api.ErrRejected)
}
