package play

import (
	sess "github.com/mikeymath/mathgame/internal/session"
)

// startedMsg is sent when the first working set has loaded (or failed to).
type startedMsg struct {
	Err error
}

// changedMsg is sent when the engine reports a state change.
type changedMsg struct{}

// actionDoneMsg is sent when an engine action finishes.
type actionDoneMsg struct {
	Op  string
	Err error
}

// driverStepMsg fires when a scheduled driver step is due. Seq guards
// against steps scheduled for a state that has since moved on.
type driverStepMsg struct {
	Seq  int
	Step sess.Step
}
