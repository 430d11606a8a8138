// Package cmd defines and implements the CLI commands for the
// racewatch executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/config"
	"github.com/racewatch/racewatch/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "racewatch",
		Short: "Crawls published race-result documents and consolidates extracted results",
		Long: `racewatch ingests periodically published race-result PDFs, extracts
structured result rows for the monitored clubs and athletes via an
external extraction service, and folds the staged output into a
deduplicated master dataset.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus RACEWATCH_* env)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newTargetsCmd())

	return cmd
}

// setup loads configuration and builds the logger shared by all
// subcommands.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
