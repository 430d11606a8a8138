package merge_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/merge"
	"github.com/racewatch/racewatch/internal/results"
	"github.com/racewatch/racewatch/internal/staging"
)

type fixture struct {
	engine *merge.Engine
	area   *staging.Area
	master string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	area, err := staging.New(filepath.Join(dir, "staging"), zap.NewNop())
	require.NoError(t, err)
	master := filepath.Join(dir, "results.csv")
	return fixture{
		engine: merge.New(master, area, zap.NewNop()),
		area:   area,
		master: master,
	}
}

func rec(name, race, event, rank, date string) results.Record {
	return results.Record{
		Name:      name,
		Category:  "U18",
		RaceName:  race,
		Event:     event,
		Location:  "Adelboden",
		Rank:      rank,
		Date:      date,
		SourceURL: "https://example.com/doc.pdf",
	}
}

func readMaster(t *testing.T, fx fixture) []results.Record {
	t.Helper()
	recs, err := fx.area.ReadSet(fx.master)
	require.NoError(t, err)
	return recs
}

func stage(t *testing.T, fx fixture, id string, mtime time.Time, recs ...results.Record) {
	t.Helper()
	require.NoError(t, fx.area.WriteSet(id, recs))
	path := filepath.Join(fx.area.Dir(), id+".csv")
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMergeEmptyStagingLeavesMasterUnchanged(t *testing.T) {
	fx := newFixture(t)
	stage(t, fx, "seed", t0, rec("Jane Doe", "SlalomCup", "Slalom", "5", "2025-02-01"))

	_, err := fx.engine.Merge(context.Background())
	require.NoError(t, err)
	before := readMaster(t, fx)

	stats, err := fx.engine.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesConsumed)
	assert.Equal(t, before, readMaster(t, fx))
}

func TestMergeDedupLaterWins(t *testing.T) {
	fx := newFixture(t)
	stage(t, fx, "a", t0, rec("Jane Doe", "SlalomCup", "Slalom", "5", "2025-02-01"))
	stage(t, fx, "b", t0.Add(time.Minute), rec("Jane Doe", "SlalomCup", "Slalom", "3", "2025-02-01"))

	stats, err := fx.engine.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesConsumed)
	assert.Equal(t, 1, stats.Superseded)
	assert.Equal(t, 1, stats.MasterRecords)

	master := readMaster(t, fx)
	require.Len(t, master, 1)
	assert.Equal(t, "3", master[0].Rank)
}

func TestMergeStagedSupersedesMaster(t *testing.T) {
	fx := newFixture(t)
	stage(t, fx, "first", t0, rec("Jane Doe", "SlalomCup", "Slalom", "5", "2025-02-01"))
	_, err := fx.engine.Merge(context.Background())
	require.NoError(t, err)

	// A correction arrives in a later staged file.
	stage(t, fx, "fix", t0.Add(time.Hour), rec("Jane Doe", "SlalomCup", "Slalom", "1", "2025-02-01"))
	_, err = fx.engine.Merge(context.Background())
	require.NoError(t, err)

	master := readMaster(t, fx)
	require.Len(t, master, 1)
	assert.Equal(t, "1", master[0].Rank)
}

func TestMergeSortOrder(t *testing.T) {
	fx := newFixture(t)
	stage(t, fx, "a", t0,
		rec("Zoe", "BetaCup", "Slalom", "2", "2025-03-01"),
		rec("Amy", "BetaCup", "Slalom", "1", "2025-03-01"),
		rec("Mia", "AlphaCup", "Giant Slalom", "4", "2025-03-01"),
		rec("Ben", "AnyCup", "Downhill", "9", "2025-01-15"),
	)

	_, err := fx.engine.Merge(context.Background())
	require.NoError(t, err)

	master := readMaster(t, fx)
	require.Len(t, master, 4)
	assert.Equal(t, "Ben", master[0].Name)  // earliest date first
	assert.Equal(t, "Mia", master[1].Name)  // AlphaCup before BetaCup
	assert.Equal(t, "Amy", master[2].Name)  // name breaks the race tie
	assert.Equal(t, "Zoe", master[3].Name)
}

func TestMergeDeterministicAcrossEnumerationOrder(t *testing.T) {
	build := func(t *testing.T, firstID, secondID string) []results.Record {
		fx := newFixture(t)
		stage(t, fx, firstID, t0, rec("Jane Doe", "SlalomCup", "Slalom", "5", "2025-02-01"))
		stage(t, fx, secondID, t0.Add(time.Minute), rec("Jane Doe", "SlalomCup", "Slalom", "3", "2025-02-01"))
		_, err := fx.engine.Merge(context.Background())
		require.NoError(t, err)
		return readMaster(t, fx)
	}

	// Staged order is decided by mtime, not by name, so swapping the
	// names leaves the outcome identical.
	a := build(t, "x-late-name", "a-early-name")
	b := build(t, "a-early-name", "x-late-name")
	assert.Equal(t, a, b)
	require.Len(t, a, 1)
	assert.Equal(t, "3", a[0].Rank)
}

func TestMergeQuarantinesUnparseableFile(t *testing.T) {
	fx := newFixture(t)
	stage(t, fx, "good", t0, rec("Jane Doe", "SlalomCup", "Slalom", "5", "2025-02-01"))
	broken := filepath.Join(fx.area.Dir(), "broken.csv")
	require.NoError(t, os.WriteFile(broken, []byte("Name,Rank\nJane,1\n"), 0o600))

	stats, err := fx.engine.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Quarantined)
	assert.Equal(t, 1, stats.FilesConsumed)
	assert.Equal(t, 1, stats.MasterRecords)

	// The broken file is left in place for inspection; the good one
	// was consumed.
	_, err = os.Stat(broken)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(fx.area.Dir(), "good.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestMergeCorruptMasterIsFatal(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.WriteFile(fx.master, []byte("Name,Rank\nJane,1\n"), 0o600))
	stage(t, fx, "a", t0, rec("Jane Doe", "SlalomCup", "Slalom", "5", "2025-02-01"))

	_, err := fx.engine.Merge(context.Background())
	require.Error(t, err)
	var perr *results.PersistenceError
	assert.ErrorAs(t, err, &perr)

	// Staged input survives for the next run.
	_, err = os.Stat(filepath.Join(fx.area.Dir(), "a.csv"))
	assert.NoError(t, err)
}

func TestMergeMasterWriteFailureKeepsStagedFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	fx := newFixture(t)
	stage(t, fx, "a", t0, rec("Jane Doe", "SlalomCup", "Slalom", "5", "2025-02-01"))

	// A read-only master directory makes the temp-file write fail.
	masterDir := filepath.Dir(fx.master)
	require.NoError(t, os.Chmod(masterDir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(masterDir, 0o750) })

	_, err := fx.engine.Merge(context.Background())
	require.Error(t, err)
	var perr *results.PersistenceError
	assert.ErrorAs(t, err, &perr)

	// Nothing was consumed; the staged set survives for a rerun.
	_, err = os.Stat(filepath.Join(fx.area.Dir(), "a.csv"))
	require.NoError(t, err)

	// Once the directory is writable again the rerun picks it up.
	require.NoError(t, os.Chmod(masterDir, 0o750))
	stats, err := fx.engine.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesConsumed)
	master := readMaster(t, fx)
	require.Len(t, master, 1)
	assert.Equal(t, "5", master[0].Rank)
}

func TestMergeRerunOnIdenticalContentIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	row := rec("Jane Doe", "SlalomCup", "Slalom", "5", "2025-02-01")
	stage(t, fx, "a", t0, row)
	_, err := fx.engine.Merge(context.Background())
	require.NoError(t, err)
	first := readMaster(t, fx)

	// Re-creating identical staged content and merging again yields
	// the same dataset: the key, not the insertion count, decides.
	stage(t, fx, "a", t0.Add(time.Hour), row)
	_, err = fx.engine.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, readMaster(t, fx))
}

func TestMergeMissingMasterStartsEmpty(t *testing.T) {
	fx := newFixture(t)
	stats, err := fx.engine.Merge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.MasterRecords)
	assert.Empty(t, readMaster(t, fx))
}
