package demoserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/problemgen"
	"github.com/mikeymath/mathgame/internal/store"
)

const maxEventsLimit = 10000

// DemoResponse is the body returned by POST /demo.
type DemoResponse struct {
	UserID uint32 `json:"user_id"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

// demoStart creates a learner with the seeded videos and a fresh game state.
// ?videos=N limits how many videos the learner gets.
func (s *Server) demoStart(c *gin.Context) {
	lp := logPrefix(c)
	ctx := c.Request.Context()

	limit := -1
	if q := c.Query("videos"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			abort(c, http.StatusBadRequest, "Invalid videos count")
			return
		}
		limit = n
	}

	user, err := s.store.CreateUser(ctx, "Friend")
	if err != nil {
		s.internal(c, "create user", err)
		return
	}
	videos, err := s.store.AllVideoIDs(ctx)
	if err != nil {
		s.internal(c, "list videos", err)
		return
	}
	if limit >= 0 && limit < len(videos) {
		videos = videos[:limit]
	}
	if err := s.store.AssignVideos(ctx, user.ID, videos...); err != nil {
		s.internal(c, "assign videos", err)
		return
	}

	s.mu.Lock()
	gs := api.GameState{UserID: user.ID, Target: s.target}
	gs.ProblemID, err = s.selectProblemLocked(ctx, user.ID, nil)
	if err == nil {
		gs.VideoID, err = s.selectVideoLocked(ctx, user.ID, nil)
	}
	if err == nil {
		err = s.store.SaveGameState(ctx, gs)
	}
	s.mu.Unlock()
	if err != nil {
		s.internal(c, "create gamestate", err)
		return
	}

	if _, err := s.store.AppendEvent(ctx, user.ID, api.EventInput{EventType: api.EventLoggedIn}, s.now()); err != nil {
		s.internal(c, "log in", err)
		return
	}

	token, err := IssueToken(s.secret, user.ID, s.now(), s.tokenTTL)
	if err != nil {
		s.internal(c, "issue token", err)
		return
	}
	glog.Infof("%s created demo user %d with %d videos", lp, user.ID, len(videos))
	c.JSON(http.StatusCreated, DemoResponse{UserID: user.ID, Name: user.Name, Token: token})
}

func (s *Server) getGameState(c *gin.Context) {
	gs, err := s.store.GameState(c.Request.Context(), currentUser(c))
	if err != nil {
		s.lookupFailed(c, "gamestate", err)
		return
	}
	c.JSON(http.StatusOK, gs)
}

func (s *Server) getProblem(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := s.store.Problem(c.Request.Context(), id)
	if err != nil {
		s.lookupFailed(c, "problem", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) getVideo(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	v, err := s.store.Video(c.Request.Context(), id)
	if err != nil {
		s.lookupFailed(c, "video", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// getPlay returns the learner's whole working set.
func (s *Server) getPlay(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	videos, err := s.store.EnabledVideoIDs(ctx, userID)
	if err != nil {
		s.internal(c, "count videos", err)
		return
	}
	if len(videos) < MinVideos {
		abort(c, http.StatusForbidden, "Add at least 3 videos via playlists in Settings to play.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	gs, err := s.store.GameState(ctx, userID)
	if err != nil {
		s.lookupFailed(c, "gamestate", err)
		return
	}
	pd, err := s.playDataLocked(ctx, &gs)
	if err != nil {
		s.internal(c, "play data", err)
		return
	}
	c.JSON(http.StatusOK, pd)
}

func (s *Server) listEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.Param("limit"))
	if err != nil || limit < 1 || limit > maxEventsLimit {
		abort(c, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxEventsLimit))
		return
	}
	events, err := s.store.ListEvents(c.Request.Context(), currentUser(c), store.QueryOpts{Limit: limit})
	if err != nil {
		s.internal(c, "list events", err)
		return
	}
	// The API serves the log newest-first.
	slices.Reverse(events)
	c.JSON(http.StatusOK, events)
}

// playDataLocked completes gs with its problem and video, replacing either
// when missing.
func (s *Server) playDataLocked(ctx context.Context, gs *api.GameState) (*api.PlayData, error) {
	changed := false

	p, err := s.store.Problem(ctx, gs.ProblemID)
	if errors.Is(err, store.ErrNotFound) {
		gs.ProblemID, err = s.selectProblemLocked(ctx, gs.UserID, nil)
		if err != nil {
			return nil, err
		}
		changed = true
		p, err = s.store.Problem(ctx, gs.ProblemID)
	}
	if err != nil {
		return nil, err
	}

	if gs.VideoID == 0 {
		if gs.VideoID, err = s.selectVideoLocked(ctx, gs.UserID, nil); err != nil {
			return nil, err
		}
		changed = gs.VideoID != 0 || changed
	}
	var video *api.Video
	if gs.VideoID != 0 {
		v, err := s.store.Video(ctx, gs.VideoID)
		if err != nil {
			return nil, err
		}
		video = &v
	}

	if changed {
		if err := s.store.SaveGameState(ctx, *gs); err != nil {
			return nil, err
		}
	}
	return &api.PlayData{GameState: gs, Problem: &p, Video: video}, nil
}

// selectProblemLocked picks an enabled problem not displayed to userID in
// the last recentWindow and not in exclude.
func (s *Server) selectProblemLocked(ctx context.Context, userID uint32, exclude map[uint32]bool) (uint32, error) {
	if err := s.topUpProblems(ctx); err != nil {
		return 0, err
	}
	ids, err := s.store.EnabledProblemIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, errors.New("no problems available")
	}

	recent, err := s.store.ListEvents(ctx, userID, store.QueryOpts{
		From:  s.now().Add(-recentWindow),
		Types: []string{api.EventDisplayedProblem, api.EventSelectedProblem},
	})
	if err != nil {
		return 0, err
	}
	seen := make(map[uint32]bool, len(recent)+len(exclude))
	for id := range exclude {
		seen[id] = true
	}
	for _, e := range recent {
		if id, err := strconv.ParseUint(e.Value, 10, 32); err == nil {
			seen[uint32(id)] = true
		}
	}

	candidates := problemgen.Unseen(ids, seen)
	return candidates[s.rng.IntN(len(candidates))], nil
}

// selectVideoLocked picks one of userID's enabled videos, avoiding exclude
// when possible. Zero means the learner has no videos.
func (s *Server) selectVideoLocked(ctx context.Context, userID uint32, exclude map[uint32]bool) (uint32, error) {
	ids, err := s.store.EnabledVideoIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		glog.Errorf("[demo] no videos for user %d", userID)
		return 0, nil
	}
	candidates := problemgen.Unseen(ids, exclude)
	return candidates[s.rng.IntN(len(candidates))], nil
}

func idParam(c *gin.Context) (uint32, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		abort(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint32(id), true
}

func (s *Server) lookupFailed(c *gin.Context, what string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		abort(c, http.StatusNotFound, fmt.Sprintf("%s not found", what))
		return
	}
	s.internal(c, "get "+what, err)
}

func (s *Server) internal(c *gin.Context, op string, err error) {
	glog.Errorf("%s %s: %v", logPrefix(c), op, err)
	abort(c, http.StatusInternalServerError, "Could not "+op)
}
