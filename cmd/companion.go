package cmd

import (
	"github.com/spf13/cobra"
)

var companionCmd = &cobra.Command{
	Use:   "companion [user]",
	Short: "Watch a learner's progress",
	Long: `Open the companion view: the learner's current problem with its answer,
their attempts at it, and the reward video they are watching. It refreshes
every --companion-refresh-interval milliseconds while the terminal is focused.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := observedUser(args)
		if err != nil {
			return err
		}
		return runTUI(cmd, startCompanion, user)
	},
}
