package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vdb/core"
	"github.com/hupe1980/vdb/internal/fs"
)

func testItem() core.Item {
	return core.Item{
		ID:       "item-1",
		Vector:   core.MakeVector([]float32{1.5, -2.25, 0}),
		Metadata: []byte(`{"k":"v"}`),
	}
}

func TestWALRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		item core.Item
	}{
		{"with metadata", testItem()},
		{"no metadata", core.Item{ID: "x", Vector: core.MakeVector([]float32{3.5})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := encodeWALRecord(tt.item)
			require.NoError(t, err)

			got, err := decodeWALRecord(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.item.ID, got.ID)
			assert.Equal(t, tt.item.Vector, got.Vector)
			assert.Equal(t, tt.item.Metadata, got.Metadata)
		})
	}
}

func TestDecodeWALRecordTorn(t *testing.T) {
	full, err := encodeWALRecord(testItem())
	require.NoError(t, err)

	// Every proper prefix of a record is torn.
	for _, cut := range []int{0, 1, walHeaderSize - 1, walHeaderSize, len(full) - 1} {
		_, err := decodeWALRecord(full[:cut])
		assert.ErrorIs(t, err, errTornWALRecord, "cut at %d", cut)
	}
}

func TestDecodeWALRecordImplausible(t *testing.T) {
	full, err := encodeWALRecord(testItem())
	require.NoError(t, err)

	// Unknown record type.
	bad := append([]byte(nil), full...)
	bad[0] = 99
	_, err = decodeWALRecord(bad)
	assert.ErrorIs(t, err, errTornWALRecord)

	// Garbage id length.
	bad = append([]byte(nil), full...)
	bad[1], bad[2], bad[3], bad[4] = 0xff, 0xff, 0xff, 0xff
	_, err = decodeWALRecord(bad)
	assert.ErrorIs(t, err, errTornWALRecord)
}

func TestDecodeWALRecordTrailingBytes(t *testing.T) {
	full, err := encodeWALRecord(testItem())
	require.NoError(t, err)

	got, err := decodeWALRecord(append(full, 0xde, 0xad))
	require.NoError(t, err)
	assert.Equal(t, "item-1", got.ID)
}

func TestWALAppendTruncate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, WALFileName)

	w, err := openWAL(fs.Default, path)
	require.NoError(t, err)
	defer w.Close()

	var c counters
	require.NoError(t, w.appendAndSync(testItem(), &c))
	assert.Equal(t, uint64(1), c.snapshot().Fsyncs)

	data, err := w.contents()
	require.NoError(t, err)
	got, err := decodeWALRecord(data)
	require.NoError(t, err)
	assert.Equal(t, "item-1", got.ID)

	require.NoError(t, w.truncate())
	data, err = w.contents()
	require.NoError(t, err)
	assert.Empty(t, data)
}
