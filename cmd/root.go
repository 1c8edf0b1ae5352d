package cmd

import (
	"flag"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikeymath/mathgame/internal/config"
	"github.com/mikeymath/mathgame/internal/store"
)

// cfg is resolved once per invocation, before any command runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "mathgame",
	Short: "Solve math, earn videos",
	Long:  "Mathgame is a terminal client for the solve-math-earn-video loop, with a companion view for parents and a local demo server.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := c.ApplyFlags(cmd.Flags()); err != nil {
			return err
		}
		c.ResolveUserID()
		cfg = c
		return nil
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, startHome, 0)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to conf.json (default $XDG_CONFIG_HOME/mathgame/conf.json)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	// glog registers -v, -logtostderr, -log_dir and friends on the standard
	// flag set.
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(companionCmd)
	rootCmd.AddCommand(attemptsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// validClientConfig checks the settings a client command needs.
func validClientConfig() error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	return nil
}

// resolveDBPath returns the demo database path: --demo-db, then the
// default XDG data path.
func resolveDBPath() (string, error) {
	if cfg.DemoDB != "" {
		return cfg.DemoDB, store.EnsureDir(cfg.DemoDB)
	}
	return store.DefaultDBPath()
}
