package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/vdb/core"
	"github.com/hupe1980/vdb/internal/fs"
)

// Options configure a Store.
type Options struct {
	// FS is the file system the store operates on. Defaults to the local
	// file system; tests swap in a fault-injecting implementation.
	FS fs.FileSystem

	// Logger receives structured progress and recovery events. Defaults
	// to a discard logger.
	Logger *slog.Logger
}

func defaultOptions() Options {
	return Options{
		FS:     fs.Default,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Info describes an open collection.
type Info struct {
	Name      string
	Dimension uint32
	Metric    core.Metric
	Count     uint64
}

// Store is an open handle to one collection's files. It owns the file
// descriptors of the three segments and the WAL and is the single writer
// for the collection; it is not safe for concurrent use.
type Store struct {
	fsys   fs.FileSystem
	logger *slog.Logger
	paths  Paths
	meta   Meta
	segs   *segmentSet
	wal    *wal
	c      counters
	closed bool

	// failed is set when an append died between the WAL write and the
	// segment writes. The on-disk state is then ahead of the handle and
	// only a reopen (which runs recovery) may resolve it.
	failed bool

	// walDirty is set when a best-effort WAL truncate fails and an
	// already-applied record is still on disk. The WAL holds at most one
	// record, so the next append must clear it before writing its own.
	walDirty bool
}

// Create initializes a new collection under baseDir and returns an open
// handle to it. It fails with ErrAlreadyExists if the collection directory
// is already present.
func Create(baseDir, name string, dim uint32, metric core.Metric, optFns ...func(o *Options)) (*Store, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if !core.ValidName(name) {
		return nil, fmt.Errorf("%w: invalid collection name %q", ErrInvalidArgument, name)
	}
	if !core.ValidDim(dim) {
		return nil, fmt.Errorf("%w: invalid dimension %d", ErrInvalidArgument, dim)
	}
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: invalid metric %d", ErrInvalidArgument, uint32(metric))
	}

	p := NewPaths(baseDir, name)

	if _, err := opts.FS.Stat(p.Dir()); err == nil {
		return nil, fmt.Errorf("%w: collection %q", ErrAlreadyExists, name)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, p.Dir(), err)
	}

	if err := EnsureDir(opts.FS, baseDir); err != nil {
		return nil, err
	}
	if err := EnsureDir(opts.FS, p.Dir()); err != nil {
		return nil, err
	}

	meta := Meta{Dim: dim, Metric: metric, Count: 0}
	if err := WriteMeta(opts.FS, p.Meta(), meta); err != nil {
		return nil, err
	}

	segs, err := openSegments(opts.FS, p, true)
	if err != nil {
		return nil, err
	}

	w, err := openWAL(opts.FS, p.WAL())
	if err != nil {
		_ = segs.Close()
		return nil, err
	}
	if err := w.truncate(); err != nil {
		_ = segs.Close()
		_ = w.Close()
		return nil, err
	}

	if err := syncDir(opts.FS, p.Dir()); err != nil {
		_ = segs.Close()
		_ = w.Close()
		return nil, fmt.Errorf("%w: sync dir %s: %w", ErrIO, p.Dir(), err)
	}

	opts.Logger.Info("collection created",
		"collection", name,
		"dimension", dim,
		"metric", metric.String(),
	)

	return &Store{
		fsys:   opts.FS,
		logger: opts.Logger,
		paths:  p,
		meta:   meta,
		segs:   segs,
		wal:    w,
	}, nil
}

// Open attaches to an existing collection and runs WAL recovery before
// returning, so the handle always starts from a reconciled state. It fails
// with ErrNotFound if the collection directory or its metadata is absent.
func Open(baseDir, name string, optFns ...func(o *Options)) (*Store, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if !core.ValidName(name) {
		return nil, fmt.Errorf("%w: invalid collection name %q", ErrInvalidArgument, name)
	}

	p := NewPaths(baseDir, name)

	st, err := opts.FS.Stat(p.Dir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: collection %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, p.Dir(), err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, p.Dir())
	}

	meta, err := ReadMeta(opts.FS, p.Meta())
	if err != nil {
		return nil, err
	}

	segs, err := openSegments(opts.FS, p, false)
	if err != nil {
		return nil, err
	}

	w, err := openWAL(opts.FS, p.WAL())
	if err != nil {
		_ = segs.Close()
		return nil, err
	}

	s := &Store{
		fsys:   opts.FS,
		logger: opts.Logger,
		paths:  p,
		meta:   meta,
		segs:   segs,
		wal:    w,
	}

	if err := s.recoverWAL(); err != nil {
		_ = segs.Close()
		_ = w.Close()
		return nil, err
	}

	opts.Logger.Info("collection opened",
		"collection", name,
		"dimension", meta.Dim,
		"metric", meta.Metric.String(),
		"count", meta.Count,
	)

	return s, nil
}

// Append durably adds one item. The record is first written and fsynced to
// the WAL, then appended and fsynced to each of the three segments; only
// then is the count advanced. The trailing WAL truncation is best effort:
// if it fails, the next Open detects the already-applied record and clears
// the log without replaying it, and the next Append on this handle must
// clear it before writing its own record.
func (s *Store) Append(item core.Item) error {
	if s.closed {
		return ErrClosed
	}
	if s.failed {
		return fmt.Errorf("%w: previous append failed, reopen to recover", ErrIO)
	}
	if !core.ValidID(item.ID) {
		return fmt.Errorf("%w: invalid id %q", ErrInvalidArgument, item.ID)
	}
	// The dimension comparison comes first so that an empty or
	// wrong-sized vector always reports a mismatch, not a generic
	// argument error.
	if item.Vector.Dim != s.meta.Dim {
		return &ErrDimensionMismatch{Expected: int(s.meta.Dim), Actual: int(item.Vector.Dim)}
	}
	if !item.Vector.Valid() {
		return fmt.Errorf("%w: vector dimension tag %d does not match %d data values",
			ErrInvalidArgument, item.Vector.Dim, len(item.Vector.Data))
	}
	if len(item.Metadata) > maxMetadataLen {
		return fmt.Errorf("%w: metadata of %d bytes exceeds limit of %d", ErrInvalidArgument, len(item.Metadata), maxMetadataLen)
	}

	// A stale applied record from a tolerated truncate failure must be
	// cleared first: recovery only ever reads the first record, so two
	// stacked records would duplicate or lose a write.
	if s.walDirty {
		if err := s.wal.truncate(); err != nil {
			return fmt.Errorf("%w: WAL still holds a stale record: %w", ErrIO, err)
		}
		s.walDirty = false
		s.c.walTruncates.Add(1)
	}

	if err := s.wal.appendAndSync(item, &s.c); err != nil {
		return err
	}

	if err := s.segs.append(item, &s.c); err != nil {
		// The WAL record is durable, the segments may be torn. Recovery
		// on the next open completes or discards the append; this handle
		// can no longer trust its view.
		s.failed = true
		return err
	}

	s.meta.Count++
	s.c.appends.Add(1)

	if err := s.wal.truncate(); err != nil {
		s.walDirty = true
		s.logger.Warn("WAL truncate failed, next open will reconcile",
			"collection", s.paths.Name,
			"error", err,
		)
	} else {
		s.c.walTruncates.Add(1)
	}

	s.logger.Debug("item appended",
		"collection", s.paths.Name,
		"id", item.ID,
		"count", s.meta.Count,
	)

	return nil
}

// Iterate streams every stored item in insertion order to visit. The
// visitor may stop the scan early by returning false. Item buffers are
// owned by the visitor; each call receives fresh allocations.
func (s *Store) Iterate(visit func(item core.Item) bool) error {
	if s.closed {
		return ErrClosed
	}
	if visit == nil {
		return fmt.Errorf("%w: nil visitor", ErrInvalidArgument)
	}
	return Iterate(s.fsys, s.paths, s.meta.Dim, visit)
}

// Count returns the number of durably stored items.
func (s *Store) Count() uint64 { return s.meta.Count }

// Info returns the collection descriptor.
func (s *Store) Info() Info {
	return Info{
		Name:      s.paths.Name,
		Dimension: s.meta.Dim,
		Metric:    s.meta.Metric,
		Count:     s.meta.Count,
	}
}

// Stats returns a snapshot of the handle's storage counters.
func (s *Store) Stats() Stats { return s.c.snapshot() }

// Close writes the final item count to the metadata file and releases all
// file handles. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error

	if !s.failed {
		if err := WriteMeta(s.fsys, s.paths.Meta(), s.meta); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.segs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("%w: close segments: %w", ErrIO, err))
	}
	if err := s.wal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("%w: close WAL: %w", ErrIO, err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Info("collection closed",
		"collection", s.paths.Name,
		"count", s.meta.Count,
	)

	return nil
}
