package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vdb/blobstore"
	"github.com/hupe1980/vdb/internal/fs"
	"github.com/hupe1980/vdb/storage"
)

// Restore downloads the named collection backup into baseDir. It refuses to
// overwrite an existing collection. Every file is fsynced before Restore
// returns, so the restored collection is immediately openable and durable.
func Restore(ctx context.Context, store blobstore.Store, name, baseDir string, optFns ...func(o *Options)) error {
	opts := applyOptions(optFns)

	m, err := ReadManifest(ctx, store, name)
	if err != nil {
		return err
	}

	codec, err := ByName(m.Codec)
	if err != nil {
		return err
	}

	p := storage.NewPaths(baseDir, name)
	if _, err := os.Stat(p.Dir()); err == nil {
		return fmt.Errorf("%w: collection %q", storage.ErrAlreadyExists, name)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %w", storage.ErrIO, p.Dir(), err)
	}
	if err := os.MkdirAll(p.Dir(), 0o750); err != nil {
		return fmt.Errorf("%w: create %s: %w", storage.ErrIO, p.Dir(), err)
	}

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range m.Files {
		f := f
		g.Go(func() error {
			if err := opts.Controller.AcquireWorker(gctx); err != nil {
				return err
			}
			defer opts.Controller.ReleaseWorker()

			if err := downloadFile(gctx, opts, codec, store, fileKey(name, f.Name), p.File(f.Name), f.Size); err != nil {
				return fmt.Errorf("download %s: %w", f.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Make the directory entries durable before declaring success.
	if err := fs.SyncDir(fs.Default, p.Dir()); err != nil {
		return fmt.Errorf("%w: sync dir %s: %w", storage.ErrIO, p.Dir(), err)
	}
	if err := fs.SyncDir(fs.Default, baseDir); err != nil {
		return fmt.Errorf("%w: sync dir %s: %w", storage.ErrIO, baseDir, err)
	}

	opts.Logger.Info("restore completed",
		"collection", name,
		"count", m.Count,
		"duration", time.Since(start),
	)

	return nil
}

// downloadFile streams one blob to a local file, decompressed, and verifies
// the uncompressed size against the manifest.
func downloadFile(ctx context.Context, opts Options, codec Codec, store blobstore.Store, key, localPath string, wantSize int64) error {
	blob, err := store.Open(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = blob.Close() }()

	cr, err := codec.Decompress(opts.Controller.LimitedReader(ctx, blob))
	if err != nil {
		return err
	}
	defer func() { _ = cr.Close() }()

	dst, err := os.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	n, err := io.Copy(dst, cr)
	if err != nil {
		_ = dst.Close()
		return err
	}
	if n != wantSize {
		_ = dst.Close()
		return fmt.Errorf("%w: %s decompressed to %d bytes, manifest says %d",
			storage.ErrCorrupted, key, n, wantSize)
	}
	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	opts.Logger.Debug("file restored", "key", key, "bytes", n)

	return nil
}
