package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/mikeymath/mathgame/internal/activity"
	"github.com/mikeymath/mathgame/internal/demoserver"
	"github.com/mikeymath/mathgame/internal/scheduler"
	"github.com/mikeymath/mathgame/internal/session"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a play session",
	Long: `Start a play session. With --demo a fresh demo learner is requested
from the server at --api-url first. With --headless the session is played
by the scripted driver without a UI and a summary is printed at the end.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if demo, _ := cmd.Flags().GetBool("demo"); demo {
			videos, _ := cmd.Flags().GetInt("demo-videos")
			if err := useDemoLearner(cmd, videos); err != nil {
				return err
			}
		}
		if headless, _ := cmd.Flags().GetBool("headless"); headless {
			maxSteps, _ := cmd.Flags().GetInt("max-steps")
			return runHeadless(cmd, maxSteps)
		}
		return runTUI(cmd, startPlay, 0)
	},
}

func init() {
	playCmd.Flags().Bool("headless", false, "Play with the scripted driver and no UI")
	playCmd.Flags().Int("max-steps", 20, "Stop a headless session after this many driver steps (0 = no limit)")
	playCmd.Flags().Bool("demo", false, "Request a demo learner from the server before playing")
	playCmd.Flags().Int("demo-videos", -1, "Videos to assign the demo learner (-1 = all)")
}

// useDemoLearner replaces the configured identity with a new demo learner.
func useDemoLearner(cmd *cobra.Command, videos int) error {
	demo, err := demoserver.RequestDemo(cmd.Context(), nil, cfg.APIURL, videos)
	if err != nil {
		return err
	}
	cfg.UserID = demo.UserID
	cfg.Token = demo.Token
	fmt.Fprintf(cmd.ErrOrStderr(), "Playing as %s (user %d)\n", demo.Name, demo.UserID)
	return nil
}

func runHeadless(cmd *cobra.Command, maxSteps int) error {
	if err := validClientConfig(); err != nil {
		return err
	}
	protocol, err := cfg.Protocol()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	gate := activity.NewGate(true)
	defer gate.Dispose()
	registry := scheduler.NewRegistry(gate)
	defer registry.DisposeAll()

	engine := session.New(session.Options{
		Client:   newClient(cmd),
		Registry: registry,
		Interval: cfg.ReportingInterval(),
		Protocol: protocol,
		UserID:   cfg.UserID,
	})
	defer engine.Dispose()

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	driver := session.NewScriptedDriver()
	runErr := session.Run(ctx, engine, driver, maxSteps)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	summary := session.BuildSummary(engine.State().Stats, time.Now())
	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	glog.Infof("[engine user=%d] headless session ended: %s", cfg.UserID, summary)
	glog.Flush()
	return runErr
}
