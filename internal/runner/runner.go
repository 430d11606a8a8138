// Package runner executes one full scheduling pass over the target list.
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/metrics"
	"github.com/racewatch/racewatch/internal/orchestrator"
	"github.com/racewatch/racewatch/internal/results"
	"github.com/racewatch/racewatch/internal/scheduler"
)

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Summary reports the per-run outcome, one entry per selected target.
type Summary struct {
	RunID      string
	Selected   int
	Succeeded  int
	Failed     int
	Invalid    int
	Duplicates int
	Outcomes   []orchestrator.Outcome
}

// Runner drives load → select → process-each → batch-save.
type Runner struct {
	store  results.TargetStore
	sched  *scheduler.Scheduler
	orch   *orchestrator.Orchestrator
	clock  results.Clock
	ids    IDGenerator
	logger *zap.Logger
}

// New constructs a Runner.
func New(
	store results.TargetStore,
	sched *scheduler.Scheduler,
	orch *orchestrator.Orchestrator,
	clock results.Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		store:  store,
		sched:  sched,
		orch:   orch,
		clock:  clock,
		ids:    ids,
		logger: logger,
	}
}

// Crawl runs one scheduling pass. Per-target failures never abort the
// run; store load/save failures do. The target list is saved exactly
// once, after the pass, also when the pass is cut short by ctx, so
// attempted targets keep their recorded attempts.
func (r *Runner) Crawl(ctx context.Context, criteria results.Criteria) (Summary, error) {
	runID, err := r.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	log := r.logger.With(zap.String("run_id", runID))
	summary := Summary{RunID: runID}

	targets, err := r.store.Load(ctx)
	if err != nil {
		return summary, err
	}

	now := r.clock.Now()
	selected := r.sched.Select(targets, now)
	summary.Selected = len(selected)
	metrics.ObserveSelected(len(selected))
	log.Info("scheduling pass started",
		zap.Int("targets", len(targets)),
		zap.Int("selected", len(selected)),
		zap.Time("now", now),
	)

	var canceled bool
	for _, target := range selected {
		if err := ctx.Err(); err != nil {
			// Abort between targets; unattempted ones stay eligible.
			log.Warn("run canceled, saving partial progress", zap.Error(err))
			canceled = true
			break
		}
		outcome := r.orch.Process(ctx, target, criteria)
		summary.record(outcome)
		metrics.ObserveTargetOutcome(string(outcome.Disposition))
		if outcome.Disposition == orchestrator.DispositionDuplicate {
			metrics.ObserveDuplicateDocument()
		}
		metrics.ObserveStagedRecords(outcome.Records)
	}

	if err := r.store.Save(ctx, targets); err != nil {
		return summary, err
	}

	log.Info("scheduling pass finished",
		zap.Int("selected", summary.Selected),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("invalid", summary.Invalid),
		zap.Int("duplicates", summary.Duplicates),
	)
	if canceled {
		return summary, ctx.Err()
	}
	return summary, nil
}

func (s *Summary) record(outcome orchestrator.Outcome) {
	s.Outcomes = append(s.Outcomes, outcome)
	switch outcome.Disposition {
	case orchestrator.DispositionSucceeded:
		s.Succeeded++
	case orchestrator.DispositionFailed:
		s.Failed++
	case orchestrator.DispositionInvalid:
		s.Invalid++
	case orchestrator.DispositionDuplicate:
		s.Duplicates++
	}
}
