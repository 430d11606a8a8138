// Package scheduler selects crawl targets eligible for the current run.
package scheduler

import (
	"time"

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/results"
)

// Scheduler filters the target list by lifecycle state and crawl window.
// It never mutates a target.
type Scheduler struct {
	logger *zap.Logger
}

// New constructs a Scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Eligible reports whether the target may be attempted at now:
// status is queued or failed, and now falls inside the crawl window
// (boundary-inclusive; absent bounds leave the target unrestricted).
func (s *Scheduler) Eligible(t results.Target, now time.Time) bool {
	switch t.Status {
	case results.StatusQueued, results.StatusFailed:
	default:
		return false
	}
	return t.Window.Contains(now)
}

// Select returns pointers to the eligible targets, preserving their
// original relative order. Skipped targets are logged with the reason
// and left untouched. Mutations through the returned pointers are
// visible in the caller's slice for the batch save.
func (s *Scheduler) Select(targets []results.Target, now time.Time) []*results.Target {
	var selected []*results.Target
	for i := range targets {
		t := &targets[i]
		switch t.Status {
		case results.StatusQueued, results.StatusFailed:
		default:
			s.logger.Debug("skipping target",
				zap.String("target_id", t.ID),
				zap.String("status", string(t.Status)),
				zap.String("reason", "terminal or in-flight status"),
			)
			continue
		}
		if !t.Window.Contains(now) {
			s.logger.Debug("skipping target",
				zap.String("target_id", t.ID),
				zap.String("status", string(t.Status)),
				zap.String("reason", "outside crawl window"),
			)
			continue
		}
		selected = append(selected, t)
	}
	return selected
}
