package cmd

import (
	"github.com/spf13/cobra"
)

// newRunCmd creates the 'run' subcommand: crawl then merge in one
// invocation.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs a crawl pass followed by a merge",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runCrawlCommand(cmd, args); err != nil {
				return err
			}
			return runMergeCommand(cmd, args)
		},
	}
}
