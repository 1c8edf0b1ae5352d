package api

import (
	"fmt"
	"strconv"
	"time"
)

// Event types. The set is closed; the server rejects anything else.
const (
	EventLoggedIn          = "logged_in"           // no value
	EventDisplayedProblem  = "displayed_problem"   // problem id
	EventSelectedProblem   = "selected_problem"    // problem id (v1 boundary)
	EventWorkingOnProblem  = "working_on_problem"  // reporting interval in ms
	EventAnsweredProblem   = "answered_problem"    // answer
	EventWatchingVideo     = "watching_video"      // reporting interval in ms
	EventDoneWatchingVideo = "done_watching_video" // video id
	EventErrorPlayingVideo = "error_playing_video" // video id
	EventBadProblemSystem  = "bad_problem_system"  // "<problem id>: <reason>"
	EventBadProblemUser    = "bad_problem_user"    // problem id
)

// KnownEventType reports whether t belongs to the closed event set.
func KnownEventType(t string) bool {
	switch t {
	case EventLoggedIn, EventDisplayedProblem, EventSelectedProblem,
		EventWorkingOnProblem, EventAnsweredProblem, EventWatchingVideo,
		EventDoneWatchingVideo, EventErrorPlayingVideo,
		EventBadProblemSystem, EventBadProblemUser:
		return true
	}
	return false
}

// GameState is the server's view of a learner's progress through one reward
// cycle.
type GameState struct {
	UserID    uint32 `json:"user_id"`
	ProblemID uint32 `json:"problem_id"`
	VideoID   uint32 `json:"video_id"`
	Solved    uint32 `json:"solved"`
	Target    uint32 `json:"target"`
}

// Rewarding reports whether the cycle target has been reached.
func (g GameState) Rewarding() bool {
	return g.Solved >= g.Target
}

// ProblemKey returns the problem id in the string form used by event values.
func (g GameState) ProblemKey() string {
	return strconv.FormatUint(uint64(g.ProblemID), 10)
}

func (g GameState) String() string {
	return fmt.Sprintf("UserID: %v, ProblemID: %v, VideoID: %v, Solved: %v, Target: %v",
		g.UserID, g.ProblemID, g.VideoID, g.Solved, g.Target)
}

// Problem is a math problem. Immutable once fetched.
type Problem struct {
	ID                uint32  `json:"id"`
	ProblemTypeBitmap uint64  `json:"problem_type_bitmap"`
	Expression        string  `json:"expression"`
	Answer            string  `json:"answer"`
	Difficulty        float64 `json:"difficulty"`
}

// Key returns the problem id in event-value form.
func (p Problem) Key() string {
	return strconv.FormatUint(uint64(p.ID), 10)
}

// Video is a reward video.
type Video struct {
	ID           uint32 `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailurl,omitempty"`
}

// Key returns the video id in event-value form.
func (v Video) Key() string {
	return strconv.FormatUint(uint64(v.ID), 10)
}

// Event is one entry of the append-only telemetry log.
type Event struct {
	ID        uint64    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	UserID    uint32    `json:"user_id,omitempty"`
	EventType string    `json:"event_type"`
	Value     string    `json:"value"`
}

// EventInput is the body of POST /events.
type EventInput struct {
	EventType string `json:"event_type"`
	Value     string `json:"value"`
}

// PlayData is the combined working set returned by GET /play and by event
// acknowledgements that cause a transition.
type PlayData struct {
	GameState *GameState `json:"gamestate"`
	Problem   *Problem   `json:"problem"`
	Video     *Video     `json:"video"`
}

// Complete reports whether the triple carries what its game state needs:
// a matching problem while solving, a matching video while rewarding.
func (p *PlayData) Complete() bool {
	if p == nil || p.GameState == nil {
		return false
	}
	if p.GameState.Rewarding() {
		return p.Video != nil && p.Video.ID == p.GameState.VideoID
	}
	return p.Problem != nil && p.Problem.ID == p.GameState.ProblemID
}

// Attempt is an answer given for one problem, derived from the event log.
type Attempt struct {
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}
