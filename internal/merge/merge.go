// Package merge consolidates staged extraction output into the master
// dataset.
package merge

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/results"
	"github.com/racewatch/racewatch/internal/staging"
)

// Stats reports the result of one merge pass.
type Stats struct {
	FilesConsumed int
	Quarantined   int
	MasterRecords int
	Superseded    int
}

// Engine folds all staged per-target outputs into the master dataset.
// The merge is a full rebuild: union of master and staged rows,
// deduplicated by uniqueness key with later-encountered values
// winning, stably sorted, written atomically. Must not run
// concurrently with itself (advisory single-instance discipline).
type Engine struct {
	masterPath string
	area       *staging.Area
	logger     *zap.Logger
}

// New constructs an Engine.
func New(masterPath string, area *staging.Area, logger *zap.Logger) *Engine {
	return &Engine{masterPath: masterPath, area: area, logger: logger}
}

// Merge runs one consolidation pass. Staged files that fail to parse
// are logged and left in place for manual inspection; they never abort
// the merge of the others. Consumed files are deleted only after the
// master write succeeds, so a failed write is recoverable by rerunning.
func (e *Engine) Merge(ctx context.Context) (Stats, error) {
	var stats Stats

	master, err := e.readMaster()
	if err != nil {
		return stats, err
	}

	files, err := e.area.List()
	if err != nil {
		return stats, &results.PersistenceError{Op: "list staging", Err: err}
	}

	union := newUnion(master)
	var consumed []string
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		records, err := e.area.ReadSet(file.Path)
		if err != nil {
			stats.Quarantined++
			e.logger.Warn("staged file unparseable, leaving in place",
				zap.String("path", file.Path),
				zap.Error(err),
			)
			continue
		}
		for _, rec := range records {
			if union.add(rec) {
				stats.Superseded++
			}
		}
		consumed = append(consumed, file.Path)
	}

	merged := union.sorted()
	if err := e.writeMaster(merged); err != nil {
		return stats, err
	}
	stats.FilesConsumed = len(consumed)
	stats.MasterRecords = len(merged)

	for _, path := range consumed {
		if err := e.area.Remove(path); err != nil {
			// The next merge re-reads the file; dedup keeps the
			// outcome identical.
			e.logger.Warn("failed to delete consumed staged file", zap.String("path", path), zap.Error(err))
		}
	}

	e.logger.Info("merge finished",
		zap.Int("files_consumed", stats.FilesConsumed),
		zap.Int("quarantined", stats.Quarantined),
		zap.Int("master_records", stats.MasterRecords),
		zap.Int("superseded", stats.Superseded),
	)
	return stats, nil
}

// union keeps one record per uniqueness key in first-encounter order;
// a colliding later record replaces the values in place.
type union struct {
	order []results.Key
	byKey map[results.Key]results.Record
}

func newUnion(master []results.Record) *union {
	u := &union{byKey: make(map[results.Key]results.Record, len(master))}
	for _, rec := range master {
		u.add(rec)
	}
	return u
}

// add inserts or supersedes; it reports whether an existing record was
// replaced.
func (u *union) add(rec results.Record) bool {
	key := rec.Key()
	if _, exists := u.byKey[key]; exists {
		u.byKey[key] = rec
		return true
	}
	u.byKey[key] = rec
	u.order = append(u.order, key)
	return false
}

// sorted returns the records ordered by (Date, RaceName, Name)
// ascending; ties keep first-encounter order.
func (u *union) sorted() []results.Record {
	out := make([]results.Record, 0, len(u.order))
	for _, key := range u.order {
		out = append(out, u.byKey[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].RaceName != out[j].RaceName {
			return out[i].RaceName < out[j].RaceName
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// readMaster loads the existing master dataset. A missing file is an
// empty dataset; a corrupt one is fatal, never silently rebuilt.
func (e *Engine) readMaster() ([]results.Record, error) {
	f, err := os.Open(e.masterPath) // #nosec G304 -- path comes from operator configuration.
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &results.PersistenceError{Op: "read master", Err: err}
	}
	defer f.Close() //nolint:errcheck // read-only file

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, &results.PersistenceError{Op: "read master", Err: fmt.Errorf("%s: %w", e.masterPath, err)}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows[0]) != len(results.CSVHeader) {
		return nil, &results.PersistenceError{
			Op:  "read master",
			Err: fmt.Errorf("%s: unexpected header width %d", e.masterPath, len(rows[0])),
		}
	}

	records := make([]results.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, err := results.FromRow(row)
		if err != nil {
			return nil, &results.PersistenceError{Op: "read master", Err: fmt.Errorf("%s: %w", e.masterPath, err)}
		}
		records = append(records, rec)
	}
	return records, nil
}

// writeMaster persists the dataset atomically via temp-file-then-rename.
func (e *Engine) writeMaster(records []results.Record) error {
	dir := filepath.Dir(e.masterPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &results.PersistenceError{Op: "write master", Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(e.masterPath)+".tmp-*")
	if err != nil {
		return &results.PersistenceError{Op: "write master", Err: err}
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(results.CSVHeader)
	for _, rec := range records {
		if writeErr != nil {
			break
		}
		writeErr = w.Write(results.ToRow(rec))
	}
	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return &results.PersistenceError{Op: "write master", Err: writeErr}
	}
	if err := os.Rename(tmpName, e.masterPath); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return &results.PersistenceError{Op: "write master", Err: err}
	}
	return nil
}
