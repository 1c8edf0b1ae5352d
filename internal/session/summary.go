package session

import (
	"fmt"
	"time"
)

// Stats counts what happened since the engine started.
type Stats struct {
	StartedAt      time.Time
	Submissions    int
	ProblemsSolved int
	VideosWatched  int
	VideosFailed   int
	BadProblems    int
}

// Summary holds the data printed when a play session ends.
type Summary struct {
	Duration       time.Duration
	Submissions    int
	ProblemsSolved int
	VideosWatched  int
	Accuracy       float64
}

// BuildSummary creates a Summary from engine stats.
func BuildSummary(st Stats, now time.Time) Summary {
	var accuracy float64
	if st.Submissions > 0 {
		accuracy = float64(st.ProblemsSolved) / float64(st.Submissions)
	}
	var d time.Duration
	if !st.StartedAt.IsZero() {
		d = now.Sub(st.StartedAt).Round(time.Second)
	}
	return Summary{
		Duration:       d,
		Submissions:    st.Submissions,
		ProblemsSolved: st.ProblemsSolved,
		VideosWatched:  st.VideosWatched,
		Accuracy:       accuracy,
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("%d solved in %d answers (%.0f%%), %d videos, %v",
		s.ProblemsSolved, s.Submissions, s.Accuracy*100, s.VideosWatched, s.Duration)
}
