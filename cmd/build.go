package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/clock/system"
	"github.com/racewatch/racewatch/internal/config"
	"github.com/racewatch/racewatch/internal/extractor"
	"github.com/racewatch/racewatch/internal/fetcher"
	"github.com/racewatch/racewatch/internal/hash/sha256"
	"github.com/racewatch/racewatch/internal/id/uuid"
	"github.com/racewatch/racewatch/internal/merge"
	"github.com/racewatch/racewatch/internal/orchestrator"
	"github.com/racewatch/racewatch/internal/results"
	"github.com/racewatch/racewatch/internal/runner"
	"github.com/racewatch/racewatch/internal/scheduler"
	"github.com/racewatch/racewatch/internal/staging"
	"github.com/racewatch/racewatch/internal/store"
)

// buildExtractor constructs the extraction-service handle once per
// run from explicit configuration; it is passed by reference and
// never mutated.
func buildExtractor(cfg config.Config, logger *zap.Logger) (results.Extractor, error) {
	switch cfg.Extractor.Provider {
	case "gemini":
		client, err := extractor.NewGemini(extractor.GeminiConfig{
			Endpoint: cfg.Extractor.Endpoint,
			Model:    cfg.Extractor.Model,
			APIKey:   cfg.Extractor.APIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init gemini extractor: %w", err)
		}
		return client, nil
	case "dryrun":
		return extractor.NewDryRun(logger), nil
	default:
		return nil, fmt.Errorf("unknown extractor provider %q", cfg.Extractor.Provider)
	}
}

func buildFetcher(cfg config.Config, logger *zap.Logger) *fetcher.HTTP {
	return fetcher.New(fetcher.Config{
		Timeout:      cfg.FetchTimeout(),
		UserAgent:    cfg.HTTP.UserAgent,
		MaxBodyBytes: cfg.MaxBodyBytes(),
	}, logger)
}

func buildRunner(cfg config.Config, logger *zap.Logger) (*runner.Runner, error) {
	ext, err := buildExtractor(cfg, logger)
	if err != nil {
		return nil, err
	}
	area, err := staging.New(cfg.Data.StagingDir, logger)
	if err != nil {
		return nil, fmt.Errorf("init staging area: %w", err)
	}

	clk := system.New()
	orch := orchestrator.New(
		buildFetcher(cfg, logger),
		ext,
		sha256.New(),
		clk,
		area,
		config.DuplicatePolicy(cfg.Crawler.DuplicatePolicy),
		logger,
	)
	return runner.New(
		store.NewJSONFile(cfg.Data.TargetsPath, logger),
		scheduler.New(logger),
		orch,
		clk,
		uuid.New(),
		logger,
	), nil
}

func buildMergeEngine(cfg config.Config, logger *zap.Logger) (*merge.Engine, error) {
	area, err := staging.New(cfg.Data.StagingDir, logger)
	if err != nil {
		return nil, fmt.Errorf("init staging area: %w", err)
	}
	return merge.New(cfg.Data.MasterPath, area, logger), nil
}
