package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/clock/system"
	"github.com/racewatch/racewatch/internal/hash/sha256"
	"github.com/racewatch/racewatch/internal/store"
	"github.com/racewatch/racewatch/internal/targetgen"
)

// newTargetsCmd groups crawl-target maintenance commands.
func newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Maintains the crawl-target list",
	}
	cmd.AddCommand(newTargetsGenerateCmd())
	return cmd
}

// newTargetsGenerateCmd creates the 'targets generate' subcommand:
// build a fresh target list from the event calendar.
func newTargetsGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generates crawl targets from the event calendar",
		Long: `Reads the semicolon-delimited event calendar, derives one queued
crawl target per event (crawl window from the event date through one
year later) and replaces the persisted target list. With prefetch
dedup enabled, documents with byte-identical content behind different
locators are dropped up front.`,
		RunE: runTargetsGenerateCommand,
	}
}

func runTargetsGenerateCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	gen, err := targetgen.New(
		targetgen.Config{
			CalendarPath:  cfg.Targets.CalendarPath,
			URLTemplate:   cfg.Targets.URLTemplate,
			IDPrefix:      cfg.Targets.IDPrefix,
			NumberColumn:  cfg.Targets.NumberColumn,
			DateColumn:    cfg.Targets.DateColumn,
			PrefetchDedup: cfg.Targets.PrefetchDedup,
		},
		store.NewJSONFile(cfg.Data.TargetsPath, logger),
		buildFetcher(cfg, logger),
		sha256.New(),
		system.New(),
		logger,
	)
	if err != nil {
		return err
	}

	stats, err := gen.Generate(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("target generation finished",
		zap.Int("generated", stats.Generated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("duplicates", stats.Duplicate),
	)
	return nil
}
