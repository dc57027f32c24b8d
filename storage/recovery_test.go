package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vdb/core"
	"github.com/hupe1980/vdb/internal/fs"
	"github.com/hupe1980/vdb/testutil"
)

// seedCollection creates a collection with n items and closes it cleanly.
func seedCollection(t *testing.T, dir string, n int, dim uint32) []core.Item {
	t.Helper()

	s, err := Create(dir, "col", dim, core.MetricCosine)
	require.NoError(t, err)

	rng := testutil.NewRNG(42)
	items := rng.Items(n, dim)
	for _, item := range items {
		require.NoError(t, s.Append(item))
	}
	require.NoError(t, s.Close())

	return items
}

// appendWithFault opens the collection through a FaultyFS, attempts one
// append, and closes the handle, simulating a crash at the fault point.
func appendWithFault(t *testing.T, dir string, item core.Item, pattern string, fault fs.Fault) error {
	t.Helper()

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule(pattern, fault)

	s, err := Open(dir, "col", func(o *Options) { o.FS = ffs })
	require.NoError(t, err)

	appendErr := s.Append(item)
	_ = s.Close()
	return appendErr
}

// collectIDs reopens the collection and returns all stored ids plus the
// handle's recovery stats.
func collectIDs(t *testing.T, dir string) ([]string, Stats) {
	t.Helper()

	s, err := Open(dir, "col")
	require.NoError(t, err)
	defer s.Close()

	var ids []string
	require.NoError(t, s.Iterate(func(item core.Item) bool {
		ids = append(ids, item.ID)
		return true
	}))
	return ids, s.Stats()
}

func TestRecoveryTornWALWrite(t *testing.T) {
	dir := t.TempDir()
	items := seedCollection(t, dir, 3, 4)

	next := testutil.NewRNG(7).Item(100, 4)
	err := appendWithFault(t, dir, next, WALFileName, fs.Fault{FailWriteAfter: 5})
	assert.ErrorIs(t, err, ErrIO)

	// The torn record is discarded; nothing was applied.
	ids, stats := collectIDs(t, dir)
	assert.Len(t, ids, len(items))
	assert.Equal(t, uint64(0), stats.Replays)
}

func TestRecoveryWALSyncFailure(t *testing.T) {
	dir := t.TempDir()
	items := seedCollection(t, dir, 3, 4)

	next := testutil.NewRNG(7).Item(100, 4)
	err := appendWithFault(t, dir, next, WALFileName, fs.Fault{FailWriteAfter: -1, FailOnSync: true})
	assert.ErrorIs(t, err, ErrIO)

	// The record was fully written before the failed sync, so recovery
	// applies it exactly once; the segments were never touched directly.
	ids, stats := collectIDs(t, dir)
	require.Len(t, ids, len(items)+1)
	assert.Equal(t, next.ID, ids[len(ids)-1])
	assert.Equal(t, uint64(1), stats.Replays)
}

func TestRecoveryCrashBeforeSegmentWrites(t *testing.T) {
	dir := t.TempDir()
	items := seedCollection(t, dir, 3, 4)

	next := testutil.NewRNG(7).Item(100, 4)
	err := appendWithFault(t, dir, next, EmbeddingsFileName, fs.Fault{FailWriteAfter: 0})
	assert.ErrorIs(t, err, ErrIO)

	ids, stats := collectIDs(t, dir)
	require.Len(t, ids, len(items)+1)
	assert.Equal(t, next.ID, ids[len(ids)-1])
	assert.Equal(t, uint64(1), stats.Replays)

	// Recovery is idempotent: a second open finds the record applied.
	ids, stats = collectIDs(t, dir)
	assert.Len(t, ids, len(items)+1)
	assert.Equal(t, uint64(0), stats.Replays)
}

func TestRecoveryTornSegmentWrite(t *testing.T) {
	dir := t.TempDir()
	items := seedCollection(t, dir, 3, 4)

	// The embedding stride is 16 bytes; tear it halfway through.
	next := testutil.NewRNG(7).Item(100, 4)
	err := appendWithFault(t, dir, next, EmbeddingsFileName, fs.Fault{FailWriteAfter: 8})
	assert.ErrorIs(t, err, ErrIO)

	ids, stats := collectIDs(t, dir)
	require.Len(t, ids, len(items)+1)
	assert.Equal(t, next.ID, ids[len(ids)-1])
	assert.Equal(t, uint64(1), stats.Replays)
}

func TestRecoveryTornIDWrite(t *testing.T) {
	dir := t.TempDir()
	items := seedCollection(t, dir, 3, 4)

	// Embeddings land, then the id slot write tears: the segments disagree.
	next := testutil.NewRNG(7).Item(100, 4)
	err := appendWithFault(t, dir, next, IDsFileName, fs.Fault{FailWriteAfter: 10})
	assert.ErrorIs(t, err, ErrIO)

	ids, stats := collectIDs(t, dir)
	require.Len(t, ids, len(items)+1)
	assert.Equal(t, next.ID, ids[len(ids)-1])
	assert.Equal(t, uint64(1), stats.Replays)
}

func TestRecoveryWALTruncateFailure(t *testing.T) {
	dir := t.TempDir()
	items := seedCollection(t, dir, 3, 4)

	// The append itself succeeds; only the trailing truncate fails.
	next := testutil.NewRNG(7).Item(100, 4)
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule(WALFileName, fs.Fault{FailWriteAfter: -1, FailOnTruncate: true})

	s, err := Open(dir, "col", func(o *Options) { o.FS = ffs })
	require.NoError(t, err)
	require.NoError(t, s.Append(next))
	assert.Equal(t, uint64(len(items)+1), s.Count())
	require.NoError(t, s.Close())

	// The stale WAL record is detected as already applied, not replayed.
	ids, stats := collectIDs(t, dir)
	require.Len(t, ids, len(items)+1)
	assert.Equal(t, next.ID, ids[len(ids)-1])
	assert.Equal(t, uint64(0), stats.Replays)

	// And the WAL is now empty.
	data, err := os.ReadFile(NewPaths(dir, "col").WAL())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestAppendAfterWALTruncateFailure(t *testing.T) {
	dir := t.TempDir()
	items := seedCollection(t, dir, 1, 4)

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule(WALFileName, fs.Fault{FailWriteAfter: -1, FailOnTruncate: true})

	s, err := Open(dir, "col", func(o *Options) { o.FS = ffs })
	require.NoError(t, err)

	rng := testutil.NewRNG(7)
	first := rng.Item(100, 4)
	second := rng.Item(101, 4)

	// The first append succeeds; only its trailing truncate fails, leaving
	// the applied record behind in the WAL.
	require.NoError(t, s.Append(first))

	// The next append must not stack a second record behind the stale one:
	// it retries the truncate and refuses when the WAL cannot be emptied.
	assert.ErrorIs(t, s.Append(second), ErrIO)
	assert.Equal(t, uint64(len(items)+1), s.Count())

	// Once truncation works again, appends resume on the same handle.
	ffs.ClearRule(WALFileName)
	require.NoError(t, s.Append(second))
	require.NoError(t, s.Close())

	// Every acknowledged item is stored exactly once.
	ids, stats := collectIDs(t, dir)
	require.Len(t, ids, len(items)+2)
	assert.Equal(t, first.ID, ids[len(ids)-2])
	assert.Equal(t, second.ID, ids[len(ids)-1])
	assert.Equal(t, uint64(0), stats.Replays)
}

func TestRecoveryFailedHandleIsSticky(t *testing.T) {
	dir := t.TempDir()
	seedCollection(t, dir, 1, 4)

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule(EmbeddingsFileName, fs.Fault{FailWriteAfter: 0})

	s, err := Open(dir, "col", func(o *Options) { o.FS = ffs })
	require.NoError(t, err)
	defer s.Close()

	rng := testutil.NewRNG(7)
	require.ErrorIs(t, s.Append(rng.Item(100, 4)), ErrIO)

	// Further appends are refused until the collection is reopened.
	ffs.ClearRule(EmbeddingsFileName)
	assert.ErrorIs(t, s.Append(rng.Item(101, 4)), ErrIO)
}

func TestOpenCorruptedSegmentsEmptyWAL(t *testing.T) {
	dir := t.TempDir()
	seedCollection(t, dir, 3, 4)

	// Segments disagree and there is no WAL record to repair from.
	p := NewPaths(dir, "col")
	require.NoError(t, os.Truncate(p.IDs(), 3*core.IDSlotSize-10))

	_, err := Open(dir, "col")
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestOpenCountsFromSegmentsNotMeta(t *testing.T) {
	dir := t.TempDir()
	seedCollection(t, dir, 3, 4)

	// Simulate a crash after appends but before the clean-close metadata
	// update: rewrite the meta with a stale count.
	p := NewPaths(dir, "col")
	require.NoError(t, WriteMeta(fs.Default, p.Meta(), Meta{Dim: 4, Metric: core.MetricCosine, Count: 1}))

	s, err := Open(dir, "col")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, uint64(3), s.Count())
}
