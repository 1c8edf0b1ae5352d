package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	obs "github.com/mikeymath/mathgame/internal/companion"
	"github.com/mikeymath/mathgame/internal/problemgen"
	"github.com/mikeymath/mathgame/internal/session"
)

var attemptsCmd = &cobra.Command{
	Use:   "attempts [user]",
	Short: "Print a learner's attempts at their current problem",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := observedUser(args)
		if err != nil {
			return err
		}
		if err := validClientConfig(); err != nil {
			return err
		}
		protocol, err := cfg.Protocol()
		if err != nil {
			return err
		}

		observer := obs.NewObserver(obs.Options{
			Client:   newClient(cmd),
			UserID:   user,
			Protocol: protocol,
			Lookback: cfg.EventsLookback,
		})
		report, err := observer.Fetch(cmd.Context())
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), user, report)
		return nil
	},
}

func printReport(w io.Writer, user uint32, r *obs.Report) {
	fmt.Fprintf(w, "Learner %d: %s solved\n", user, session.ProgressOf(r.GameState))
	if r.Rewarding() && r.Video != nil {
		fmt.Fprintf(w, "Watching: %s (%s)\n", r.Video.Title, r.Video.URL)
	}
	fmt.Fprintf(w, "Problem #%d: %s\n", r.Problem.ID, r.Text)
	fmt.Fprintf(w, "Answer: %s\n", r.Problem.Answer)

	if len(r.Attempts) == 0 {
		fmt.Fprintln(w, "No attempts yet.")
		return
	}
	fmt.Fprintln(w, "Attempts:")
	for i, a := range r.Attempts {
		mark := "✗"
		if problemgen.AnswersEquivalent(a.Value, r.Problem.Answer) {
			mark = "✓"
		}
		fmt.Fprintf(w, "  %2d. %-10s %s  %s\n", i+1, a.Value, mark, r.Ago(a.Timestamp))
	}
}
