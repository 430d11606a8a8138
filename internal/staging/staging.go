// Package staging manages the transient area holding per-target
// extraction output awaiting consolidation.
package staging

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/results"
)

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// File describes one staged output awaiting merge.
type File struct {
	Path     string
	TargetID string
	ModTime  time.Time
}

// Area is a directory with one CSV file per processed target.
// Files are created by the orchestrator and consumed (then deleted)
// by the merge engine.
type Area struct {
	dir    string
	logger *zap.Logger
}

// New creates the staging directory if needed and returns the area.
func New(dir string, logger *zap.Logger) (*Area, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("staging directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create staging dir %s: %w", dir, err)
	}
	return &Area{dir: dir, logger: logger}, nil
}

// Dir returns the staging directory path.
func (a *Area) Dir() string {
	return a.dir
}

// path maps a target id to its staged file, rejecting ids that would
// escape the staging directory.
func (a *Area) path(targetID string) (string, error) {
	name := invalidFilenameChars.ReplaceAllString(targetID, "_")
	if name == "" || strings.Trim(name, "._") == "" {
		return "", fmt.Errorf("target id %q yields no usable filename", targetID)
	}
	full := filepath.Join(a.dir, name+".csv")
	if filepath.Dir(full) != filepath.Clean(a.dir) {
		return "", fmt.Errorf("target id %q escapes staging dir", targetID)
	}
	return full, nil
}

// WriteSet writes the staged result set for a target: the shared CSV
// header plus one row per record. An empty record set still produces
// a file, so "nothing matched" survives until the merge.
func (a *Area) WriteSet(targetID string, records []results.Record) error {
	target, err := a.path(targetID)
	if err != nil {
		return err
	}

	f, err := os.Create(target) // #nosec G304 -- path is sanitized above.
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(results.CSVHeader); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write staged header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(results.ToRow(rec)); err != nil {
			f.Close() //nolint:errcheck // write error takes precedence
			return fmt.Errorf("write staged row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close() //nolint:errcheck // flush error takes precedence
		return fmt.Errorf("flush staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close staged file: %w", err)
	}

	a.logger.Debug("staged result set written",
		zap.String("target_id", targetID),
		zap.String("path", target),
		zap.Int("records", len(records)),
	)
	return nil
}

// List enumerates staged files ordered by modification time, then
// name. The ordering makes "later-encountered wins" deterministic for
// the merge regardless of directory enumeration order.
func (a *Area) List() ([]File, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("read staging dir: %w", err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat staged file %s: %w", entry.Name(), err)
		}
		files = append(files, File{
			Path:     filepath.Join(a.dir, entry.Name()),
			TargetID: strings.TrimSuffix(entry.Name(), ".csv"),
			ModTime:  info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.Before(files[j].ModTime)
		}
		return files[i].TargetID < files[j].TargetID
	})
	return files, nil
}

// ReadSet parses one staged file back into records. A malformed header
// or row is an error; the caller decides whether to quarantine.
func (a *Area) ReadSet(path string) ([]results.Record, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from List over the staging dir.
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse staged file %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("staged file %s has no header", path)
	}
	if len(rows[0]) != len(results.CSVHeader) {
		return nil, fmt.Errorf("staged file %s: unexpected header width %d", path, len(rows[0]))
	}

	records := make([]results.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, err := results.FromRow(row)
		if err != nil {
			return nil, fmt.Errorf("staged file %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Remove deletes a consumed staged file.
func (a *Area) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}
