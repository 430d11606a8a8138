package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/metrics"
	"github.com/racewatch/racewatch/internal/results"
)

// newCrawlCmd creates the 'crawl' subcommand: one scheduling pass over
// the target list, staging extraction output per target.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs one scheduling pass over the crawl targets",
		Long: `Selects all eligible crawl targets (queued or failed, inside their
crawl window), downloads each document, extracts the monitored results
and writes one staged file per target. The target list is saved once,
after the full pass.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	metrics.Init()

	criteria, err := results.LoadCriteria(cfg.Data.CriteriaPath)
	if err != nil {
		return err
	}
	if criteria.Empty() {
		logger.Warn("monitoring criteria are empty; extraction will match nothing")
	}

	r, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}

	summary, err := r.Crawl(cmd.Context(), criteria)
	if err != nil {
		return err
	}

	for _, outcome := range summary.Outcomes {
		fields := []zap.Field{
			zap.String("target_id", outcome.TargetID),
			zap.String("outcome", string(outcome.Disposition)),
			zap.Int("records", outcome.Records),
		}
		if outcome.Err != nil {
			fields = append(fields, zap.Error(outcome.Err))
		}
		logger.Info("target summary", fields...)
	}
	logger.Info("crawl finished",
		zap.String("run_id", summary.RunID),
		zap.Int("selected", summary.Selected),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("invalid", summary.Invalid),
		zap.Int("duplicates", summary.Duplicates),
	)
	return nil
}
