package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/hupe1980/vdb/blobstore"
)

const (
	// ManifestVersion is the current manifest format version.
	ManifestVersion = 1

	// ManifestName is the blob name of the manifest within a backup.
	ManifestName = "manifest.json"
)

// Manifest describes one collection backup. It is written last, so a backup
// without a readable manifest is incomplete and must not be restored.
type Manifest struct {
	Version    int       `json:"version"`
	Collection string    `json:"collection"`
	Dimension  uint32    `json:"dimension"`
	Metric     string    `json:"metric"`
	Count      uint64    `json:"count"`
	Codec      string    `json:"codec"`
	CreatedAt  time.Time `json:"created_at"`
	Files      []File    `json:"files"`
}

// File records one collection file within a backup.
type File struct {
	// Name is the file name inside the collection directory.
	Name string `json:"name"`
	// Size is the uncompressed size in bytes.
	Size int64 `json:"size"`
}

// manifestKey returns the blob name of a collection's manifest.
func manifestKey(collection string) string {
	return path.Join(collection, ManifestName)
}

// fileKey returns the blob name of one backed-up collection file.
func fileKey(collection, name string) string {
	return path.Join(collection, name)
}

// writeManifest marshals and uploads the manifest.
func writeManifest(ctx context.Context, store blobstore.Store, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return store.Put(ctx, manifestKey(m.Collection), data)
}

// ReadManifest loads and validates a backup manifest from the store.
func ReadManifest(ctx context.Context, store blobstore.Store, collection string) (*Manifest, error) {
	blob, err := store.Open(ctx, manifestKey(collection))
	if err != nil {
		return nil, fmt.Errorf("open manifest for %q: %w", collection, err)
	}
	defer func() { _ = blob.Close() }()

	data, err := io.ReadAll(blob)
	if err != nil {
		return nil, fmt.Errorf("read manifest for %q: %w", collection, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest for %q: %w", collection, err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d (expected %d)", m.Version, ManifestVersion)
	}

	return &m, nil
}
