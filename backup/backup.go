package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vdb/blobstore"
	"github.com/hupe1980/vdb/internal/fs"
	"github.com/hupe1980/vdb/resource"
	"github.com/hupe1980/vdb/storage"
)

// Options configure Snapshot and Restore.
type Options struct {
	// Codec compresses uploaded streams. Defaults to zstd. Restore
	// ignores this and uses the codec recorded in the manifest.
	Codec Codec

	// Controller throttles transfer concurrency and throughput.
	// Nil means no limits beyond one upload per file.
	Controller *resource.Controller

	// Logger receives structured transfer events.
	Logger *slog.Logger
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Codec:  Default,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = Default
	}
	return opts
}

// collectionFiles are the members of a collection directory, in upload
// order. The WAL is included so a snapshot taken after a crash still
// restores to a recoverable state.
var collectionFiles = []string{
	storage.MetaFileName,
	storage.EmbeddingsFileName,
	storage.IDsFileName,
	storage.MetadataFileName,
	storage.WALFileName,
}

// Snapshot uploads the collection under baseDir to the blob store. The
// collection must not have an open writer. Files are uploaded in parallel;
// the manifest is written last, so an interrupted snapshot is never
// restorable.
func Snapshot(ctx context.Context, baseDir, name string, store blobstore.Store, optFns ...func(o *Options)) (*Manifest, error) {
	opts := applyOptions(optFns)

	p := storage.NewPaths(baseDir, name)
	meta, err := storage.ReadMeta(fs.Default, p.Meta())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sizes := make([]int64, len(collectionFiles))

	g, gctx := errgroup.WithContext(ctx)
	for i, fn := range collectionFiles {
		i, fn := i, fn
		g.Go(func() error {
			if err := opts.Controller.AcquireWorker(gctx); err != nil {
				return err
			}
			defer opts.Controller.ReleaseWorker()

			n, err := uploadFile(gctx, opts, store, p.File(fn), fileKey(name, fn))
			if err != nil {
				return fmt.Errorf("upload %s: %w", fn, err)
			}
			sizes[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Manifest{
		Version:    ManifestVersion,
		Collection: name,
		Dimension:  meta.Dim,
		Metric:     meta.Metric.String(),
		Count:      meta.Count,
		Codec:      opts.Codec.Name(),
		CreatedAt:  time.Now().UTC(),
	}
	for i, fn := range collectionFiles {
		m.Files = append(m.Files, File{Name: fn, Size: sizes[i]})
	}

	if err := writeManifest(ctx, store, m); err != nil {
		return nil, err
	}

	opts.Logger.Info("snapshot completed",
		"collection", name,
		"count", m.Count,
		"codec", m.Codec,
		"duration", time.Since(start),
	)

	return m, nil
}

// uploadFile streams one local file into the blob store, compressed.
// Returns the uncompressed byte count.
func uploadFile(ctx context.Context, opts Options, store blobstore.Store, localPath, key string) (int64, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	blob, err := store.Create(ctx, key)
	if err != nil {
		return 0, err
	}

	cw, err := opts.Codec.Compress(opts.Controller.LimitedWriter(ctx, blob))
	if err != nil {
		_ = blob.Close()
		return 0, err
	}

	n, err := io.Copy(cw, src)
	if err != nil {
		_ = cw.Close()
		_ = blob.Close()
		return 0, err
	}
	if err := cw.Close(); err != nil {
		_ = blob.Close()
		return 0, err
	}
	if err := blob.Close(); err != nil {
		return 0, err
	}

	opts.Logger.Debug("file uploaded", "key", key, "bytes", n)

	return n, nil
}
