package tracker

import (
	"sync"

	"github.com/mikeymath/mathgame/internal/api"
)

// Silencer stops a recurring telemetry registration. *scheduler.Handle
// satisfies it.
type Silencer interface {
	Unregister(eventType string)
}

// Tracker decides whether a candidate answer should be submitted and
// remembers enough to tell the UI "that was wrong, try again" without asking
// the server.
type Tracker struct {
	mu sync.Mutex

	silencer Silencer

	// displayedProblemID is the problem currently on screen.
	displayedProblemID string

	// lastSubmitted and submittedProblemID describe the most recent accepted
	// submission.
	lastSubmitted      string
	submittedProblemID string

	// answerChanged is set by any edit of the input after a submission.
	answerChanged bool
}

// New creates a Tracker. silencer may be nil.
func New(silencer Silencer) *Tracker {
	return &Tracker{silencer: silencer}
}

// ReportAnswer records value as submitted for problemID unless it is empty or
// identical to the last submitted value. On acceptance it silences the
// working_on_problem registration and returns true; the caller sends the
// answered_problem event.
func (t *Tracker) ReportAnswer(value, problemID string) bool {
	t.mu.Lock()
	if value == "" || value == t.lastSubmitted {
		t.mu.Unlock()
		return false
	}
	t.lastSubmitted = value
	t.submittedProblemID = problemID
	t.answerChanged = false
	silencer := t.silencer
	t.mu.Unlock()

	if silencer != nil {
		silencer.Unregister(api.EventWorkingOnProblem)
	}
	return true
}

// SubmissionFailed forgets value as submitted for problemID when it never
// reached the server, so the learner can send it again.
func (t *Tracker) SubmissionFailed(value, problemID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastSubmitted != value || t.submittedProblemID != problemID {
		return
	}
	t.lastSubmitted = ""
	t.submittedProblemID = ""
}

// WasIncorrectAnswer reports whether the last submission was for problemID,
// was non-empty, and the input has not been edited since. Once the engine
// has seen the server keep the same problem after a submission, this is the
// "try again" signal.
func (t *Tracker) WasIncorrectAnswer(problemID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSubmitted != "" &&
		t.submittedProblemID == problemID &&
		t.displayedProblemID == problemID &&
		!t.answerChanged
}

// ProblemDisplayed records that problemID is on screen. A different problem
// starts a fresh submission scope.
func (t *Tracker) ProblemDisplayed(problemID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if problemID == t.displayedProblemID {
		return
	}
	t.displayedProblemID = problemID
	t.lastSubmitted = ""
	t.submittedProblemID = ""
	t.answerChanged = false
}

// AnswerChanged records an edit of the answer input.
func (t *Tracker) AnswerChanged() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answerChanged = true
}

// LastSubmitted returns the last accepted value.
func (t *Tracker) LastSubmitted() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSubmitted
}
