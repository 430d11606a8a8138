// Package orchestrator drives one crawl target through the
// download, extraction and staging pipeline.
package orchestrator

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/config"
	"github.com/racewatch/racewatch/internal/extractor"
	"github.com/racewatch/racewatch/internal/results"
	"github.com/racewatch/racewatch/internal/staging"
)

// Disposition classifies how a target left the pipeline.
type Disposition string

// Per-target outcomes reported in the run summary.
const (
	DispositionSucceeded Disposition = "succeeded"
	DispositionFailed    Disposition = "failed"
	DispositionInvalid   Disposition = "invalid"
	DispositionDuplicate Disposition = "duplicate"
)

// Outcome summarizes one target's trip through the pipeline.
type Outcome struct {
	TargetID    string
	Disposition Disposition
	Records     int
	Err         error
}

// Orchestrator executes the per-target pipeline. It never retries
// internally; retry is the scheduler's responsibility on a later run.
type Orchestrator struct {
	fetcher   results.Fetcher
	extractor results.Extractor
	hasher    results.Hasher
	clock     results.Clock
	area      *staging.Area
	dupPolicy config.DuplicatePolicy
	// seenHashes maps content digests to the target that produced
	// them, scoped to one run.
	seenHashes map[string]string
	logger     *zap.Logger
}

// New constructs an Orchestrator.
func New(
	fetcher results.Fetcher,
	ext results.Extractor,
	hasher results.Hasher,
	clock results.Clock,
	area *staging.Area,
	dupPolicy config.DuplicatePolicy,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		extractor:  ext,
		hasher:     hasher,
		clock:      clock,
		area:       area,
		dupPolicy:  dupPolicy,
		seenHashes: make(map[string]string),
		logger:     logger,
	}
}

// Process runs one target through validate, fetch, duplicate check,
// extract, normalize and stage, mutating the target's status and
// tracking block per the lifecycle rules.
func (o *Orchestrator) Process(ctx context.Context, target *results.Target, criteria results.Criteria) Outcome {
	if strings.TrimSpace(target.ID) == "" || strings.TrimSpace(target.URL) == "" {
		// Malformed target: no attempt is recorded and the status
		// stays as loaded.
		err := &results.InputError{Reason: fmt.Sprintf("target missing id or locator: %+v", target)}
		o.logger.Warn("skipping invalid target", zap.Error(err))
		return Outcome{TargetID: target.ID, Disposition: DispositionInvalid, Err: err}
	}

	log := o.logger.With(zap.String("target_id", target.ID), zap.String("url", target.URL))
	now := o.clock.Now()

	document, err := o.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		target.RecordAttempt(now)
		target.MarkFailed()
		log.Error("document fetch failed", zap.Error(err))
		return Outcome{TargetID: target.ID, Disposition: DispositionFailed, Err: err}
	}

	digest, err := o.hasher.Hash(document)
	if err != nil {
		target.RecordAttempt(now)
		target.MarkFailed()
		log.Error("content hash failed", zap.Error(err))
		return Outcome{TargetID: target.ID, Disposition: DispositionFailed, Err: err}
	}
	if firstID, seen := o.seenHashes[digest]; seen {
		return o.handleDuplicate(target, firstID, now, log)
	}

	raw, err := o.extractor.Extract(ctx, document, criteria)
	if err != nil {
		target.RecordAttempt(now)
		target.MarkFailed()
		log.Error("extraction failed", zap.Error(err))
		return Outcome{TargetID: target.ID, Disposition: DispositionFailed, Err: err}
	}

	records, err := parseRows(raw, target.URL)
	if err != nil {
		target.RecordAttempt(now)
		target.MarkFailed()
		log.Error("extraction output unparseable", zap.Error(err))
		return Outcome{TargetID: target.ID, Disposition: DispositionFailed, Err: err}
	}

	if err := o.area.WriteSet(target.ID, records); err != nil {
		target.RecordAttempt(now)
		target.MarkFailed()
		log.Error("staging write failed", zap.Error(err))
		return Outcome{TargetID: target.ID, Disposition: DispositionFailed, Err: err}
	}

	target.RecordAttempt(now)
	target.MarkProcessed(now)
	// The digest is registered only now: a target that failed before
	// staging its rows must not close out later carriers of the same
	// bytes.
	o.seenHashes[digest] = target.ID
	log.Info("target processed", zap.Int("records", len(records)))
	return Outcome{TargetID: target.ID, Disposition: DispositionSucceeded, Records: len(records)}
}

// handleDuplicate applies the configured policy when the fetched bytes
// match a document already processed this run.
func (o *Orchestrator) handleDuplicate(target *results.Target, firstID string, now time.Time, log *zap.Logger) Outcome {
	log = log.With(zap.String("duplicate_of", firstID))
	switch o.dupPolicy {
	case config.DuplicateDefer:
		// Leave the target untouched; a later run may see distinct
		// content behind the same locator.
		log.Info("duplicate document content, deferring target")
		return Outcome{TargetID: target.ID, Disposition: DispositionDuplicate}
	default:
		// DuplicateComplete: the result rows already exist under the
		// first target, so an empty staged set closes this one out.
		if err := o.area.WriteSet(target.ID, nil); err != nil {
			target.RecordAttempt(now)
			target.MarkFailed()
			log.Error("staging write failed for duplicate", zap.Error(err))
			return Outcome{TargetID: target.ID, Disposition: DispositionFailed, Err: err}
		}
		target.RecordAttempt(now)
		target.MarkProcessed(now)
		log.Info("duplicate document content, target completed empty")
		return Outcome{TargetID: target.ID, Disposition: DispositionDuplicate}
	}
}

// parseRows turns normalized extraction output into records, stamping
// each with the source locator. Header-only or empty output is a valid
// empty result set, not a failure.
func parseRows(raw string, sourceURL string) ([]results.Record, error) {
	lines := extractor.Normalize(raw)
	if len(lines) == 0 {
		return nil, nil
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &results.ExtractionError{Err: fmt.Errorf("parse output: %w", err)}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	start := 0
	if isHeaderRow(rows[0]) {
		start = 1
	}

	var records []results.Record
	for _, row := range rows[start:] {
		if len(row) != len(results.CSVHeader)-1 {
			return nil, &results.ExtractionError{
				Err: fmt.Errorf("row has %d columns, want %d", len(row), len(results.CSVHeader)-1),
			}
		}
		records = append(records, results.Record{
			Name:      row[0],
			Category:  row[1],
			RaceName:  row[2],
			Event:     row[3],
			Location:  row[4],
			Rank:      row[5],
			Date:      row[6],
			SourceURL: sourceURL,
		})
	}
	return records, nil
}

func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(row[0]), "name")
}
