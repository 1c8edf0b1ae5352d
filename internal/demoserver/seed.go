package demoserver

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/problemgen"
)

// Videos every demo learner starts with.
var seedVideos = []api.Video{
	{ID: 1, Title: "Counting Stars", URL: "https://videos.example.com/counting-stars.mp4", ThumbnailURL: "https://videos.example.com/counting-stars.jpg"},
	{ID: 2, Title: "The Number Line Song", URL: "https://videos.example.com/number-line-song.mp4", ThumbnailURL: "https://videos.example.com/number-line-song.jpg"},
	{ID: 3, Title: "Adding Up Animals", URL: "https://videos.example.com/adding-up-animals.mp4", ThumbnailURL: "https://videos.example.com/adding-up-animals.jpg"},
	{ID: 4, Title: "Take It Away: Subtraction", URL: "https://videos.example.com/take-it-away.mp4", ThumbnailURL: "https://videos.example.com/take-it-away.jpg"},
	{ID: 5, Title: "Place Value Party", URL: "https://videos.example.com/place-value-party.mp4", ThumbnailURL: "https://videos.example.com/place-value-party.jpg"},
}

// Seed stores the demo videos and tops up the problem pool. Safe to call on
// every start.
func (s *Server) Seed(ctx context.Context) error {
	for _, v := range seedVideos {
		if err := s.store.SaveVideo(ctx, v); err != nil {
			return err
		}
	}
	return s.topUpProblems(ctx)
}

// topUpProblems generates problems when fewer than minProblemPool are
// enabled.
func (s *Server) topUpProblems(ctx context.Context) error {
	ids, err := s.store.EnabledProblemIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) >= minProblemPool {
		return nil
	}

	problems, err := s.gen.Generate(ctx, problemgen.Options{
		Types:            problemgen.AllTypes,
		TargetDifficulty: s.difficulty,
		Count:            2 * minProblemPool,
	})
	if err != nil {
		return fmt.Errorf("generate problems: %w", err)
	}
	for _, p := range problems {
		if err := s.store.SaveProblem(ctx, p); err != nil {
			return err
		}
	}
	glog.Infof("[demo] generated %d problems (difficulty %.1f)", len(problems), s.difficulty)
	return nil
}
