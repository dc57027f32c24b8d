package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/vdb/internal/fs"
)

// Member file names of a collection directory.
const (
	MetaFileName       = "collection.meta"
	EmbeddingsFileName = "embeddings.seg"
	IDsFileName        = "ids.seg"
	MetadataFileName   = "metadata.seg"
	WALFileName        = "wal.log"
)

// Paths derives the on-disk locations of one collection. It performs no
// I/O; joins are purely deterministic.
type Paths struct {
	BaseDir string
	Name    string
}

// NewPaths returns the path set for a collection under baseDir.
func NewPaths(baseDir, name string) Paths {
	return Paths{BaseDir: baseDir, Name: name}
}

// Dir returns the collection directory.
func (p Paths) Dir() string { return filepath.Join(p.BaseDir, p.Name) }

// File returns the path of a named member file.
func (p Paths) File(filename string) string { return filepath.Join(p.BaseDir, p.Name, filename) }

// Meta returns the metadata file path.
func (p Paths) Meta() string { return p.File(MetaFileName) }

// Embeddings returns the embeddings segment path.
func (p Paths) Embeddings() string { return p.File(EmbeddingsFileName) }

// IDs returns the ids segment path.
func (p Paths) IDs() string { return p.File(IDsFileName) }

// Metadata returns the metadata segment path.
func (p Paths) Metadata() string { return p.File(MetadataFileName) }

// WAL returns the write-ahead log path.
func (p Paths) WAL() string { return p.File(WALFileName) }

// EnsureDir creates path and any missing ancestors. It succeeds if the
// directory already exists, and returns ErrAlreadyExists if the path exists
// but is not a directory.
func EnsureDir(fsys fs.FileSystem, path string) error {
	st, err := fsys.Stat(path)
	if err == nil {
		if st.IsDir() {
			return nil
		}
		return fmt.Errorf("%w: %s is not a directory", ErrAlreadyExists, path)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}
	if err := fsys.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, path, err)
	}
	return nil
}

// syncDir syncs a directory so that created or renamed entries are durable.
func syncDir(fsys fs.FileSystem, dir string) error {
	return fs.SyncDir(fsys, dir)
}
