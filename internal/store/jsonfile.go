// Package store persists the crawl-target list as a single JSON document.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/results"
)

// JSONFile implements results.TargetStore on top of one JSON file.
// The whole list is read and written as one atomic unit per run; a
// crash mid-run leaves the previous durable state intact.
type JSONFile struct {
	path   string
	logger *zap.Logger
}

// NewJSONFile constructs a store rooted at path.
func NewJSONFile(path string, logger *zap.Logger) *JSONFile {
	return &JSONFile{path: path, logger: logger}
}

// Load reads the target list in file order. A missing or corrupt file,
// or a target carrying an unrecognized status, fails the load.
func (s *JSONFile) Load(_ context.Context) ([]results.Target, error) {
	data, err := os.ReadFile(s.path) // #nosec G304 -- path comes from operator configuration.
	if err != nil {
		return nil, &results.PersistenceError{Op: "load targets", Err: err}
	}

	var targets []results.Target
	if err := json.Unmarshal(data, &targets); err != nil {
		return nil, &results.PersistenceError{Op: "load targets", Err: fmt.Errorf("decode %s: %w", s.path, err)}
	}

	for i := range targets {
		if _, err := results.ParseStatus(string(targets[i].Status)); err != nil {
			return nil, fmt.Errorf("target %q: %w", targets[i].ID, err)
		}
	}

	s.logger.Debug("loaded crawl targets",
		zap.String("path", s.path),
		zap.Int("count", len(targets)),
	)
	return targets, nil
}

// Save replaces the persisted list atomically: the new content is
// written to a temp file in the same directory and renamed over the
// old one, so a half-written list is never observable.
func (s *JSONFile) Save(_ context.Context, targets []results.Target) error {
	payload, err := json.MarshalIndent(targets, "", "  ")
	if err != nil {
		return &results.PersistenceError{Op: "save targets", Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &results.PersistenceError{Op: "save targets", Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &results.PersistenceError{Op: "save targets", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()           //nolint:errcheck // write error takes precedence
		os.Remove(tmpName)    //nolint:errcheck // best-effort cleanup
		return &results.PersistenceError{Op: "save targets", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return &results.PersistenceError{Op: "save targets", Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return &results.PersistenceError{Op: "save targets", Err: err}
	}

	s.logger.Info("saved crawl targets",
		zap.String("path", s.path),
		zap.Int("count", len(targets)),
	)
	return nil
}
