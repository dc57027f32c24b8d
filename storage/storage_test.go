package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vdb/core"
	"github.com/hupe1980/vdb/internal/fs"
	"github.com/hupe1980/vdb/testutil"
)

func TestCreateValidation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		colName string
		dim     uint32
		metric  core.Metric
		wantErr error
	}{
		{"empty name", "", 8, core.MetricCosine, ErrInvalidArgument},
		{"name too long", strings.Repeat("x", 64), 8, core.MetricCosine, ErrInvalidArgument},
		{"name with slash", "a/b", 8, core.MetricCosine, ErrInvalidArgument},
		{"zero dim", "col", 0, core.MetricCosine, ErrInvalidArgument},
		{"dim too large", "col", core.MaxDim + 1, core.MetricCosine, ErrInvalidArgument},
		{"bad metric", "col", 8, core.Metric(9), ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(dir, tt.colName, tt.dim, tt.metric)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateAlreadyExists(t *testing.T) {
	dir := t.TempDir()

	s, err := Create(dir, "col", 8, core.MetricCosine)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Create(dir, "col", 8, core.MetricCosine)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestOpenNotFound(t *testing.T) {
	_, err := Open(t.TempDir(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendIterateReopen(t *testing.T) {
	dir := t.TempDir()
	rng := testutil.NewRNG(10)
	items := rng.Items(25, 16)

	s, err := Create(dir, "col", 16, core.MetricEuclidean)
	require.NoError(t, err)

	for _, item := range items {
		require.NoError(t, s.Append(item))
	}
	assert.Equal(t, uint64(len(items)), s.Count())

	stats := s.Stats()
	assert.Equal(t, uint64(len(items)), stats.Appends)
	assert.Equal(t, uint64(len(items)), stats.WALTruncates)
	// One WAL sync plus three segment syncs per append.
	assert.Equal(t, uint64(4*len(items)), stats.Fsyncs)

	require.NoError(t, s.Close())

	s, err = Open(dir, "col")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, uint64(len(items)), s.Count())
	assert.Equal(t, uint64(0), s.Stats().Replays)

	info := s.Info()
	assert.Equal(t, "col", info.Name)
	assert.Equal(t, uint32(16), info.Dimension)
	assert.Equal(t, core.MetricEuclidean, info.Metric)
	assert.Equal(t, uint64(len(items)), info.Count)

	var got []core.Item
	require.NoError(t, s.Iterate(func(item core.Item) bool {
		got = append(got, item)
		return true
	}))
	require.Len(t, got, len(items))
	for i, want := range items {
		assert.Equal(t, want.ID, got[i].ID)
		assert.Equal(t, want.Vector, got[i].Vector)
		assert.Equal(t, want.Metadata, got[i].Metadata)
	}
}

func TestAppendValidation(t *testing.T) {
	dir := t.TempDir()

	s, err := Create(dir, "col", 4, core.MetricCosine)
	require.NoError(t, err)
	defer s.Close()

	item := core.Item{ID: "", Vector: core.MakeVector(make([]float32, 4))}
	assert.ErrorIs(t, s.Append(item), ErrInvalidArgument)

	item = core.Item{ID: "a\x00b", Vector: core.MakeVector(make([]float32, 4))}
	assert.ErrorIs(t, s.Append(item), ErrInvalidArgument)

	item = core.Item{ID: "ok", Vector: core.Vector{Dim: 4, Data: make([]float32, 3)}}
	assert.ErrorIs(t, s.Append(item), ErrInvalidArgument)

	item = core.Item{ID: "ok", Vector: core.MakeVector(make([]float32, 3))}
	err = s.Append(item)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)
	assert.Equal(t, 3, dm.Actual)

	// An empty vector is a mismatch too, not a generic argument error.
	item = core.Item{ID: "ok", Vector: core.MakeVector(nil)}
	err = s.Append(item)
	dm = nil
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)
	assert.Equal(t, 0, dm.Actual)

	// Nothing was stored.
	assert.Equal(t, uint64(0), s.Count())
}

func TestClosedHandle(t *testing.T) {
	dir := t.TempDir()

	s, err := Create(dir, "col", 4, core.MetricCosine)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close()) // idempotent

	item := core.Item{ID: "a", Vector: core.MakeVector(make([]float32, 4))}
	assert.ErrorIs(t, s.Append(item), ErrClosed)
	assert.ErrorIs(t, s.Iterate(func(core.Item) bool { return true }), ErrClosed)
}

func TestCountPersistedOnClose(t *testing.T) {
	dir := t.TempDir()
	p := NewPaths(dir, "col")

	s, err := Create(dir, "col", 4, core.MetricCosine)
	require.NoError(t, err)

	rng := testutil.NewRNG(11)
	for _, item := range rng.Items(3, 4) {
		require.NoError(t, s.Append(item))
	}
	require.NoError(t, s.Close())

	meta, err := ReadMeta(fs.Default, p.Meta())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), meta.Count)
}

func TestIterateEmptyCollection(t *testing.T) {
	dir := t.TempDir()

	s, err := Create(dir, "col", 4, core.MetricCosine)
	require.NoError(t, err)
	defer s.Close()

	calls := 0
	require.NoError(t, s.Iterate(func(core.Item) bool {
		calls++
		return true
	}))
	assert.Zero(t, calls)
}
