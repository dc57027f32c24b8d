package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hupe1980/vdb/core"
	"github.com/hupe1980/vdb/internal/fs"
)

// Meta is the collection-level metadata record: the immutable dimension and
// metric, plus the item count as of the last clean close.
type Meta struct {
	Dim    uint32
	Metric core.Metric
	Count  uint64
}

// WriteMeta persists m to path, replacing the whole file. The record is
// written to a temp file, fsynced, and renamed into place, followed by a
// directory sync, so the old metadata survives a crash mid-write.
func WriteMeta(fsys fs.FileSystem, path string, m Meta) error {
	content := fmt.Sprintf("dimension=%d\nmetric=%d\ncount=%d\n", m.Dim, uint32(m.Metric), m.Count)

	tmp := path + ".tmp"
	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIO, tmp, err)
	}

	if _, err := io.WriteString(f, content); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return fmt.Errorf("%w: write %s: %w", ErrIO, tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return fmt.Errorf("%w: sync %s: %w", ErrIO, tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("%w: close %s: %w", ErrIO, tmp, err)
	}

	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %w", ErrIO, tmp, err)
	}
	if err := syncDir(fsys, filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: sync dir %s: %w", ErrIO, filepath.Dir(path), err)
	}

	return nil
}

// ReadMeta loads and validates the metadata record at path. It returns
// ErrNotFound if the file is absent and ErrCorrupted if the three fields
// cannot be parsed or fail validation.
func ReadMeta(fsys fs.FileSystem, path string) (Meta, error) {
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Meta{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Meta{}, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return Meta{}, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		return Meta{}, fmt.Errorf("%w: metadata has %d lines, want 3", ErrCorrupted, len(lines))
	}

	dim, err := parseMetaField(lines[0], "dimension", 32)
	if err != nil {
		return Meta{}, err
	}
	metric, err := parseMetaField(lines[1], "metric", 32)
	if err != nil {
		return Meta{}, err
	}
	count, err := parseMetaField(lines[2], "count", 64)
	if err != nil {
		return Meta{}, err
	}

	m := Meta{Dim: uint32(dim), Metric: core.Metric(metric), Count: count}
	if !core.ValidDim(m.Dim) {
		return Meta{}, fmt.Errorf("%w: invalid dimension %d", ErrCorrupted, m.Dim)
	}
	if !m.Metric.Valid() {
		return Meta{}, fmt.Errorf("%w: invalid metric %d", ErrCorrupted, uint32(m.Metric))
	}

	return m, nil
}

// parseMetaField parses one "key=value" line. The fields are written in a
// fixed order, so the key is part of the format, not a lookup.
func parseMetaField(line, key string, bits int) (uint64, error) {
	value, ok := strings.CutPrefix(line, key+"=")
	if !ok {
		return 0, fmt.Errorf("%w: expected %q field, got %q", ErrCorrupted, key, line)
	}
	v, err := strconv.ParseUint(value, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %w", ErrCorrupted, key, err)
	}
	return v, nil
}
