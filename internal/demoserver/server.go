// Package demoserver is a local stand-in for the mathgame backend. It serves
// the REST surface the terminal client consumes, backed by SQLite.
package demoserver

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/mikeymath/mathgame/internal/problemgen"
	"github.com/mikeymath/mathgame/internal/store"
)

const (
	// DefaultTarget is the number of problems per reward cycle.
	DefaultTarget = 5

	// MinVideos is how many enabled videos a learner needs before /play
	// will serve them.
	MinVideos = 3

	// recentWindow keeps recently displayed problems from being reselected.
	recentWindow = 30 * time.Minute

	// minProblemPool triggers generating more problems.
	minProblemPool = 10
)

// Options configures a Server.
type Options struct {
	Store     *store.Store
	Secret    []byte
	Generator problemgen.Generator

	// Difficulty passed to the generator, 1-10. Defaults to 3.
	Difficulty float64

	// Target problems per reward cycle. Defaults to DefaultTarget.
	Target uint32

	// TokenTTL bounds demo tokens. Zero never expires.
	TokenTTL time.Duration

	// Seed makes problem and video selection repeatable.
	Seed uint64

	Now func() time.Time
}

// Server handles the demo API.
type Server struct {
	store      *store.Store
	secret     []byte
	gen        problemgen.Generator
	difficulty float64
	target     uint32
	tokenTTL   time.Duration
	now        func() time.Time

	mu  sync.Mutex // guards rng and serializes game state updates
	rng *rand.Rand
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		store:      opts.Store,
		secret:     opts.Secret,
		gen:        opts.Generator,
		difficulty: opts.Difficulty,
		target:     opts.Target,
		tokenTTL:   opts.TokenTTL,
		now:        opts.Now,
		rng:        rand.New(rand.NewPCG(opts.Seed, opts.Seed+1)),
	}
	if s.gen == nil {
		s.gen = problemgen.NewHeuristic(problemgen.DefaultConfig(), opts.Seed)
	}
	if s.difficulty == 0 {
		s.difficulty = 3
	}
	if s.target == 0 {
		s.target = DefaultTarget
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(accessLog())

	router.POST("/demo", s.demoStart)

	authed := router.Group("/", s.authMiddleware())
	{
		authed.GET("/gamestates/:user_id", sameUser(), s.getGameState)
		authed.GET("/play/:user_id", sameUser(), s.getPlay)
		authed.GET("/events/:user_id/:limit", sameUser(), s.listEvents)
		authed.POST("/events", s.postEvent)
		authed.GET("/problems/:id", s.getProblem)
		authed.GET("/videos/:id", s.getVideo)
	}
	return router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		glog.Infof("[demo] listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		glog.Infof("[demo] stopped")
		return nil
	}
}
