// Package history recovers per-problem answer attempts from the flat event
// log. The log has no session or attempt ids, so attempts are attributed to
// a problem by their position relative to the protocol's boundary events.
package history

import "github.com/mikeymath/mathgame/internal/api"

// Attempts returns the answered_problem events that belong to the most
// recent contiguous run of problemID, oldest first.
//
// events must be chronological. The log is walked newest to oldest; answers
// are buffered until a boundary event claims them. A boundary for problemID
// keeps the buffer, a boundary for any other problem ends the run and drops
// whatever was buffered behind it. Answers older than every boundary in the
// window are kept, since the lookback may have cut off their boundary.
func Attempts(events []api.Event, problemID string, p Protocol) []api.Attempt {
	var (
		kept   [][]api.Event // claimed batches, newest batch first
		buffer []api.Event   // newest first
	)

scan:
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		switch e.EventType {
		case api.EventAnsweredProblem:
			buffer = append(buffer, e)
		case p.Boundary:
			if e.Value != problemID {
				buffer = nil
				break scan
			}
			if len(buffer) > 0 {
				kept = append(kept, buffer)
			}
			buffer = nil
		}
	}
	if len(buffer) > 0 {
		kept = append(kept, buffer)
	}

	attempts := []api.Attempt{}
	for b := len(kept) - 1; b >= 0; b-- {
		batch := kept[b]
		for i := len(batch) - 1; i >= 0; i-- {
			attempts = append(attempts, api.Attempt{Value: batch[i].Value, Timestamp: batch[i].Timestamp})
		}
	}
	return attempts
}
