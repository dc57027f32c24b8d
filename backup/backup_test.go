package backup

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vdb"
	"github.com/hupe1980/vdb/blobstore"
	"github.com/hupe1980/vdb/resource"
	"github.com/hupe1980/vdb/storage"
)

// seedCollection creates a small collection and closes it cleanly.
func seedCollection(t *testing.T, baseDir, name string) {
	t.Helper()

	col, err := vdb.Create(baseDir, name, 4, vdb.MetricCosine)
	require.NoError(t, err)

	require.NoError(t, col.Append("doc-1", []float32{1, 2, 3, 4}, []byte(`{"n":1}`)))
	require.NoError(t, col.Append("doc-2", []float32{5, 6, 7, 8}, nil))
	require.NoError(t, col.Close())
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	codecs := []Codec{Zstd{}, LZ4{}, None{}}

	for _, codec := range codecs {
		t.Run(codec.Name(), func(t *testing.T) {
			ctx := context.Background()
			srcDir := t.TempDir()
			dstDir := t.TempDir()
			store := blobstore.NewMemoryStore()

			seedCollection(t, srcDir, "col")

			m, err := Snapshot(ctx, srcDir, "col", store, func(o *Options) {
				o.Codec = codec
			})
			require.NoError(t, err)
			assert.Equal(t, "col", m.Collection)
			assert.Equal(t, uint32(4), m.Dimension)
			assert.Equal(t, "cosine", m.Metric)
			assert.Equal(t, uint64(2), m.Count)
			assert.Equal(t, codec.Name(), m.Codec)
			assert.Len(t, m.Files, 5)

			require.NoError(t, Restore(ctx, store, "col", dstDir))

			// Byte-identical collection files.
			for _, f := range m.Files {
				want, err := os.ReadFile(filepath.Join(srcDir, "col", f.Name))
				require.NoError(t, err)
				got, err := os.ReadFile(filepath.Join(dstDir, "col", f.Name))
				require.NoError(t, err)
				assert.Equal(t, want, got, f.Name)
			}

			// And the restored collection opens.
			col, err := vdb.Open(dstDir, "col")
			require.NoError(t, err)
			defer col.Close()
			assert.Equal(t, uint64(2), col.Count())
		})
	}
}

func TestSnapshotWithRateLimit(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	store := blobstore.NewMemoryStore()

	seedCollection(t, srcDir, "col")

	ctrl := resource.NewController(resource.Config{
		MaxWorkers:         2,
		IOLimitBytesPerSec: 1 << 20,
	})

	_, err := Snapshot(ctx, srcDir, "col", store, func(o *Options) {
		o.Controller = ctrl
	})
	require.NoError(t, err)

	names, err := store.List(ctx, "col/")
	require.NoError(t, err)
	assert.Len(t, names, 6) // five files plus the manifest
}

func TestRestoreRefusesExisting(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	store := blobstore.NewMemoryStore()

	seedCollection(t, srcDir, "col")
	_, err := Snapshot(ctx, srcDir, "col", store)
	require.NoError(t, err)

	// Restoring over the source collection must fail.
	err = Restore(ctx, store, "col", srcDir)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestRestoreMissingBackup(t *testing.T) {
	err := Restore(context.Background(), blobstore.NewMemoryStore(), "absent", t.TempDir())
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestRestoreSizeMismatch(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	store := blobstore.NewMemoryStore()

	seedCollection(t, srcDir, "col")
	m, err := Snapshot(ctx, srcDir, "col", store, func(o *Options) {
		o.Codec = None{}
	})
	require.NoError(t, err)

	// Corrupt one blob by chopping its tail.
	key := fileKey("col", m.Files[1].Name)
	blob, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(blob)
	require.NoError(t, err)
	require.NoError(t, blob.Close())
	require.NoError(t, store.Put(ctx, key, data[:len(data)-4]))

	err = Restore(ctx, store, "col", t.TempDir())
	assert.ErrorIs(t, err, storage.ErrCorrupted)
}

func TestReadManifestRejectsWrongVersion(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	require.NoError(t, store.Put(ctx, manifestKey("col"), []byte(`{"version":99,"collection":"col"}`)))

	_, err := ReadManifest(ctx, store, "col")
	assert.Error(t, err)
}

func TestCodecByName(t *testing.T) {
	for _, name := range []string{"zstd", "lz4", "none"} {
		c, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}

	_, err := ByName("gzip")
	assert.Error(t, err)
}
