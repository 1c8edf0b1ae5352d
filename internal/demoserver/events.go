package demoserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/problemgen"
)

// errBadValue marks an event whose value cannot be interpreted.
var errBadValue = errors.New("bad event value")

// postEvent appends an event for the token's learner. Events that change
// the game state are answered with the new working set; the rest with
// 204 No Content.
func (s *Server) postEvent(c *gin.Context) {
	lp := logPrefix(c)
	ctx := c.Request.Context()
	userID := currentUser(c)

	var ev api.EventInput
	if err := c.ShouldBindJSON(&ev); err != nil {
		abort(c, http.StatusBadRequest, "Invalid event: "+err.Error())
		return
	}
	if !api.KnownEventType(ev.EventType) {
		msg := fmt.Sprintf("Invalid EventType: %s", ev.EventType)
		glog.Errorf("%s %s", lp, msg)
		abort(c, http.StatusBadRequest, msg)
		return
	}
	glog.V(1).Infof("%s user %d %s %q", lp, userID, ev.EventType, ev.Value)

	s.mu.Lock()
	defer s.mu.Unlock()

	gs, err := s.store.GameState(ctx, userID)
	if err != nil {
		s.lookupFailed(c, "gamestate", err)
		return
	}

	changed, err := s.processEventLocked(ctx, lp, &gs, ev)
	if errors.Is(err, errBadValue) {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.internal(c, "process "+ev.EventType, err)
		return
	}

	if _, err := s.store.AppendEvent(ctx, userID, ev, s.now()); err != nil {
		s.internal(c, "append event", err)
		return
	}
	if !changed {
		c.Status(http.StatusNoContent)
		return
	}

	if err := s.store.SaveGameState(ctx, gs); err != nil {
		s.internal(c, "save gamestate", err)
		return
	}
	glog.Infof("%s Gamestate: %v", lp, gs)
	pd, err := s.playDataLocked(ctx, &gs)
	if err != nil {
		s.internal(c, "play data", err)
		return
	}
	c.JSON(http.StatusOK, pd)
}

// processEventLocked applies ev to gs. It reports whether the event belongs
// to the state-changing set, in which case the caller replies with the
// working set even when nothing moved (a wrong answer).
func (s *Server) processEventLocked(ctx context.Context, lp string, gs *api.GameState, ev api.EventInput) (bool, error) {
	switch ev.EventType {
	case api.EventLoggedIn, api.EventDisplayedProblem, api.EventSelectedProblem,
		api.EventWorkingOnProblem, api.EventWatchingVideo:
		return false, nil

	case api.EventAnsweredProblem:
		if gs.Rewarding() {
			glog.Warningf("%s answer while rewarding, ignored", lp)
			return true, nil
		}
		problem, err := s.store.Problem(ctx, gs.ProblemID)
		if err != nil {
			return true, err
		}
		if !problemgen.AnswersEquivalent(ev.Value, problem.Answer) {
			glog.Infof("%s Incorrect answer: {%s}, expected: {%s}", lp, ev.Value, problem.Answer)
			return true, nil
		}
		gs.Solved++
		gs.ProblemID, err = s.selectProblemLocked(ctx, gs.UserID, map[uint32]bool{gs.ProblemID: true})
		return true, err

	case api.EventDoneWatchingVideo:
		if gs.Solved < gs.Target {
			glog.Errorf("%s Done watching video, but there's an inconsistency in problems solved: %v < %v", lp, gs.Solved, gs.Target)
		}
		gs.Solved = 0
		vid, err := s.selectVideoLocked(ctx, gs.UserID, map[uint32]bool{gs.VideoID: true})
		gs.VideoID = vid
		return true, err

	case api.EventErrorPlayingVideo:
		glog.Infof("%s Disabling video: %d", lp, gs.VideoID)
		if err := s.store.DisableVideo(ctx, gs.VideoID); err != nil {
			return true, err
		}
		vid, err := s.selectVideoLocked(ctx, gs.UserID, map[uint32]bool{gs.VideoID: true})
		gs.VideoID = vid
		return true, err

	case api.EventBadProblemSystem, api.EventBadProblemUser:
		id, err := problemIDOf(ev.Value)
		if err != nil {
			return true, err
		}
		if id != gs.ProblemID {
			// Stale report about a problem no longer on screen.
			return true, nil
		}
		glog.Infof("%s Disabling problem %d: %s", lp, id, ev.Value)
		if err := s.store.DisableProblem(ctx, id); err != nil {
			return true, err
		}
		gs.ProblemID, err = s.selectProblemLocked(ctx, gs.UserID, map[uint32]bool{id: true})
		return true, err
	}
	return false, fmt.Errorf("%w: unhandled event type %s", errBadValue, ev.EventType)
}

// problemIDOf reads the leading id of "<id>" or "<id>: <reason>".
func problemIDOf(value string) (uint32, error) {
	head, _, _ := strings.Cut(value, ":")
	id, err := strconv.ParseUint(strings.TrimSpace(head), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q has no problem id", errBadValue, value)
	}
	return uint32(id), nil
}
