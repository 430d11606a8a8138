package runner_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/config"
	"github.com/racewatch/racewatch/internal/hash/sha256"
	"github.com/racewatch/racewatch/internal/orchestrator"
	"github.com/racewatch/racewatch/internal/results"
	"github.com/racewatch/racewatch/internal/runner"
	"github.com/racewatch/racewatch/internal/scheduler"
	"github.com/racewatch/racewatch/internal/staging"
)

type memStore struct {
	targets []results.Target
	loadErr error
	saveErr error
	saves   int
}

func (s *memStore) Load(context.Context) ([]results.Target, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]results.Target, len(s.targets))
	copy(out, s.targets)
	return out, nil
}

func (s *memStore) Save(_ context.Context, targets []results.Target) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.targets = make([]results.Target, len(targets))
	copy(s.targets, targets)
	return nil
}

type seqFetcher struct {
	docs map[string][]byte
}

func (f *seqFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	doc, ok := f.docs[url]
	if !ok {
		return nil, &results.TransportError{URL: url, Err: errors.New("unexpected status 404")}
	}
	return doc, nil
}

type fixedExtractor struct{}

func (fixedExtractor) Extract(context.Context, []byte, results.Criteria) (string, error) {
	return "Name,Category,RaceName,Event,Location,Rank,Date\nJane Doe,U18,SlalomCup,Slalom,Adelboden,1,2025-02-01\n", nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedIDs struct{}

func (fixedIDs) NewID() (string, error) { return "run-1", nil }

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func queued(id, url string) results.Target {
	return results.Target{ID: id, URL: url, Status: results.StatusQueued}
}

func newRunner(t *testing.T, store *memStore, fetch results.Fetcher) *runner.Runner {
	t.Helper()
	area, err := staging.New(filepath.Join(t.TempDir(), "staging"), zap.NewNop())
	require.NoError(t, err)
	orch := orchestrator.New(fetch, fixedExtractor{}, sha256.New(), fixedClock{now: testNow}, area, config.DuplicateComplete, zap.NewNop())
	return runner.New(store, scheduler.New(zap.NewNop()), orch, fixedClock{now: testNow}, fixedIDs{}, zap.NewNop())
}

func TestCrawlFullPass(t *testing.T) {
	store := &memStore{targets: []results.Target{
		queued("t1", "https://example.com/1.pdf"),
		queued("t2", "https://example.com/missing.pdf"),
		{ID: "t3", URL: "https://example.com/3.pdf", Status: results.StatusProcessed},
	}}
	fetch := &seqFetcher{docs: map[string][]byte{
		"https://example.com/1.pdf": []byte("%PDF one"),
	}}

	r := newRunner(t, store, fetch)
	summary, err := r.Crawl(context.Background(), results.Criteria{})
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 2, summary.Selected)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Outcomes, 2)

	// Mutations reach the batch-saved list.
	require.Equal(t, 1, store.saves)
	assert.Equal(t, results.StatusProcessed, store.targets[0].Status)
	assert.Equal(t, 1, store.targets[0].Tracking.AttemptCount)
	assert.Equal(t, results.StatusFailed, store.targets[1].Status)
	assert.Equal(t, results.StatusProcessed, store.targets[2].Status)
	assert.Equal(t, 0, store.targets[2].Tracking.AttemptCount)
}

func TestCrawlLoadFailureIsFatal(t *testing.T) {
	store := &memStore{loadErr: &results.PersistenceError{Op: "load targets", Err: errors.New("missing")}}
	r := newRunner(t, store, &seqFetcher{})

	_, err := r.Crawl(context.Background(), results.Criteria{})
	require.Error(t, err)
	var perr *results.PersistenceError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, 0, store.saves)
}

func TestCrawlSaveFailureIsFatal(t *testing.T) {
	store := &memStore{
		targets: []results.Target{queued("t1", "https://example.com/1.pdf")},
		saveErr: &results.PersistenceError{Op: "save targets", Err: errors.New("disk full")},
	}
	fetch := &seqFetcher{docs: map[string][]byte{"https://example.com/1.pdf": []byte("%PDF")}}
	r := newRunner(t, store, fetch)

	_, err := r.Crawl(context.Background(), results.Criteria{})
	require.Error(t, err)
	var perr *results.PersistenceError
	assert.ErrorAs(t, err, &perr)
}

func TestCrawlCanceledBetweenTargetsStillSaves(t *testing.T) {
	store := &memStore{targets: []results.Target{
		queued("t1", "https://example.com/1.pdf"),
		queued("t2", "https://example.com/2.pdf"),
	}}
	fetch := &seqFetcher{docs: map[string][]byte{
		"https://example.com/1.pdf": []byte("%PDF one"),
		"https://example.com/2.pdf": []byte("%PDF two"),
	}}
	r := newRunner(t, store, fetch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := r.Crawl(ctx, results.Criteria{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, summary.Selected)
	assert.Equal(t, 0, summary.Succeeded)

	// Save still happened once; unattempted targets stay queued.
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, results.StatusQueued, store.targets[0].Status)
	assert.Equal(t, results.StatusQueued, store.targets[1].Status)
}

func TestCrawlScenarioWindowedTarget(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	target := queued("T1", "https://example.com/t1.pdf")
	target.Window = results.Window{ValidFrom: &from, ValidUntil: &until}

	store := &memStore{targets: []results.Target{target}}
	fetch := &seqFetcher{docs: map[string][]byte{"https://example.com/t1.pdf": []byte("%PDF t1")}}
	r := newRunner(t, store, fetch)

	summary, err := r.Crawl(context.Background(), results.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Selected)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, results.StatusProcessed, store.targets[0].Status)
	assert.Equal(t, 1, store.targets[0].Tracking.AttemptCount)
}
