package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/metrics"
)

// newMergeCmd creates the 'merge' subcommand: fold all staged output
// into the master dataset.
func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Consolidates staged extraction output into the master dataset",
		Long: `Unions all parseable staged files with the existing master dataset,
deduplicates by (Name, RaceName, Event) with later-encountered values
winning, sorts by (Date, RaceName, Name) and replaces the master file
atomically. Staged files are deleted only after the write succeeds;
unparseable ones are left in place for inspection.`,
		RunE: runMergeCommand,
	}
}

func runMergeCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	metrics.Init()

	engine, err := buildMergeEngine(cfg, logger)
	if err != nil {
		return err
	}

	stats, err := engine.Merge(cmd.Context())
	if err != nil {
		return err
	}
	metrics.ObserveMerge(stats.MasterRecords, stats.Superseded, stats.Quarantined)

	logger.Info("merge finished",
		zap.Int("files_consumed", stats.FilesConsumed),
		zap.Int("master_records", stats.MasterRecords),
		zap.Int("superseded", stats.Superseded),
		zap.Int("quarantined", stats.Quarantined),
	)
	return nil
}
