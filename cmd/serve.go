package cmd

import (
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/mikeymath/mathgame/internal/demoserver"
	"github.com/mikeymath/mathgame/internal/problemgen"
	"github.com/mikeymath/mathgame/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local demo server",
	Long: `Run a local server implementing the API the client consumes, backed by a
SQLite database. POST /demo creates a learner and returns a token for it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dbPath, err := resolveDBPath()
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		secret := []byte(cfg.DemoSecret)
		if len(secret) == 0 {
			secret = make([]byte, 32)
			if _, err := rand.Read(secret); err != nil {
				return fmt.Errorf("generate secret: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "No demo_secret set; tokens will not survive a restart.")
		}

		difficulty, _ := cmd.Flags().GetFloat64("difficulty")
		target, _ := cmd.Flags().GetUint32("target")
		seed, _ := cmd.Flags().GetUint64("seed")
		ttl, _ := cmd.Flags().GetDuration("token-ttl")

		srv := demoserver.New(demoserver.Options{
			Store:      st,
			Secret:     secret,
			Generator:  problemgen.NewHeuristic(problemgen.DefaultConfig(), seed),
			Difficulty: difficulty,
			Target:     target,
			TokenTTL:   ttl,
			Seed:       seed,
		})
		if err := srv.Seed(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Demo server on %s (db %s)\n", cfg.DemoAddr, dbPath)
		defer glog.Flush()
		return srv.ListenAndServe(ctx, cfg.DemoAddr)
	},
}

func init() {
	serveCmd.Flags().Float64("difficulty", 3, "Problem difficulty, 1-10")
	serveCmd.Flags().Uint32("target", demoserver.DefaultTarget, "Problems per reward video")
	serveCmd.Flags().Uint64("seed", 1, "Seed for problem and video selection")
	serveCmd.Flags().Duration("token-ttl", 0, "Lifetime of demo tokens (0 = never expire)")
}
