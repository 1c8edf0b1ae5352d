package cmd

import (
	"fmt"
	"strconv"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/mikeymath/mathgame/internal/activity"
	"github.com/mikeymath/mathgame/internal/api"
	"github.com/mikeymath/mathgame/internal/app"
	obs "github.com/mikeymath/mathgame/internal/companion"
	"github.com/mikeymath/mathgame/internal/scheduler"
	"github.com/mikeymath/mathgame/internal/screen"
	"github.com/mikeymath/mathgame/internal/screens/companion"
	"github.com/mikeymath/mathgame/internal/screens/home"
	"github.com/mikeymath/mathgame/internal/screens/play"
	"github.com/mikeymath/mathgame/internal/session"
)

// startScreen picks what the TUI opens on top of the landing screen.
type startScreen int

const (
	startHome startScreen = iota
	startPlay
	startCompanion
)

// newClient builds the API client from cfg.
func newClient(cmd *cobra.Command) *api.Client {
	return api.NewClient(cmd.Context(), cfg.APIURL, cfg.UserID, cfg.Token,
		api.WithTimeout(cfg.Timeout()),
		api.WithFetchMode(cfg.FetchMode),
	)
}

// observedUser returns the user named by args[0], or the configured one.
func observedUser(args []string) (uint32, error) {
	if len(args) == 0 {
		return cfg.UserID, nil
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", args[0])
	}
	// A parent token may carry no user of its own.
	if cfg.UserID == 0 {
		cfg.UserID = uint32(id)
	}
	return uint32(id), nil
}

// runTUI wires the client, the focus gate and the scheduler registry into
// the screens and runs the program until the user quits.
func runTUI(cmd *cobra.Command, start startScreen, observe uint32) error {
	if err := validClientConfig(); err != nil {
		return err
	}
	protocol, err := cfg.Protocol()
	if err != nil {
		return err
	}
	if observe == 0 {
		observe = cfg.UserID
	}

	client := newClient(cmd)
	gate := activity.NewGate(true)
	defer gate.Dispose()
	registry := scheduler.NewRegistry(gate)
	defer registry.DisposeAll()

	var driver session.Driver = session.ManualDriver{}
	if cfg.DebugQuickplay {
		driver = session.NewScriptedDriver()
	}

	newPlay := func() screen.Screen {
		return play.New(play.Deps{
			Client:   client,
			Registry: registry,
			Interval: cfg.ReportingInterval(),
			Protocol: protocol,
			UserID:   cfg.UserID,
			Driver:   driver,
		})
	}

	observer := obs.NewObserver(obs.Options{
		Client:   client,
		UserID:   observe,
		Protocol: protocol,
		Lookback: cfg.EventsLookback,
	})
	newCompanion := func() screen.Screen {
		return companion.New(companion.Deps{
			Observer: observer,
			Registry: registry,
			Interval: cfg.CompanionInterval(),
		})
	}

	opts := app.Options{
		Home: home.New(home.Options{
			Play:      newPlay,
			Companion: newCompanion,
			Learner:   fmt.Sprintf("learner %d", cfg.UserID),
		}),
		Gate: gate,
	}
	switch start {
	case startPlay:
		opts.Start = newPlay()
	case startCompanion:
		opts.Start = newCompanion()
	}

	glog.Infof("[app] starting user=%d api=%s fetch=%s protocol=%s quickplay=%v",
		cfg.UserID, cfg.APIURL, cfg.FetchMode, protocol.Version, cfg.DebugQuickplay)
	defer glog.Flush()
	return app.Run(opts)
}
