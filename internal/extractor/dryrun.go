package extractor

import (
	"context"

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/results"
)

// DryRun implements results.Extractor without calling any service.
// It logs the prompt that a live run would send and returns a single
// canned row, so the whole pipeline can be exercised offline.
type DryRun struct {
	logger *zap.Logger
}

// NewDryRun constructs a dry-run extractor.
func NewDryRun(logger *zap.Logger) *DryRun {
	return &DryRun{logger: logger}
}

// Extract logs the generated prompt and returns fixed CSV output.
func (d *DryRun) Extract(_ context.Context, document []byte, criteria results.Criteria) (string, error) {
	d.logger.Info("dry run: skipping extraction service call",
		zap.Int("document_bytes", len(document)),
		zap.String("prompt", BuildPrompt(criteria)),
	)
	return OutputHeader + "\nJohn Doe,U16,Dry Run Race,Slalom,Nowhere,1,2025-01-01\n", nil
}
