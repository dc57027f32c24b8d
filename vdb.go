package vdb

import (
	"github.com/hupe1980/vdb/core"
	"github.com/hupe1980/vdb/storage"
)

// Metric re-exports the distance metrics stored in collection metadata.
type Metric = core.Metric

// Supported metrics.
const (
	MetricCosine    = core.MetricCosine
	MetricEuclidean = core.MetricEuclidean
)

// Info describes a collection: its immutable parameters and current size.
type Info struct {
	Name      string
	Dimension uint32
	Metric    Metric
	Count     uint64
}

// Stats re-exports the storage counters of an open collection.
type Stats = storage.Stats

// Collection is an open handle to one vector collection. It is the single
// writer for the collection's files and is not safe for concurrent use.
type Collection struct {
	store  *storage.Store
	logger *Logger
}

// Create initializes a new collection under baseDir and returns an open
// handle. The dimension and metric are fixed for the collection's lifetime.
func Create(baseDir, name string, dim uint32, metric Metric, optFns ...Option) (*Collection, error) {
	opts := applyOptions(optFns)
	logger := opts.logger.WithCollection(name)

	store, err := storage.Create(baseDir, name, dim, metric, func(o *storage.Options) {
		o.Logger = logger.Logger
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &Collection{store: store, logger: logger}, nil
}

// Open attaches to an existing collection. WAL recovery runs before Open
// returns, so the handle always reflects a reconciled on-disk state.
func Open(baseDir, name string, optFns ...Option) (*Collection, error) {
	opts := applyOptions(optFns)
	logger := opts.logger.WithCollection(name)

	store, err := storage.Open(baseDir, name, func(o *storage.Options) {
		o.Logger = logger.Logger
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &Collection{store: store, logger: logger}, nil
}

// Append durably stores one item. The vector dimension must match the
// collection; metadata is an optional opaque blob (typically JSON) and may
// be nil. The write is acknowledged only after it is fsynced to the WAL and
// all three segment files.
func (c *Collection) Append(id string, vector []float32, metadata []byte) error {
	err := c.store.Append(core.Item{
		ID:       id,
		Vector:   core.MakeVector(vector),
		Metadata: metadata,
	})
	c.logger.LogAppend(id, len(vector), err)
	return translateError(err)
}

// Iterate streams every stored item in insertion order. The visitor may
// stop the scan early by returning false. The item passed to visit owns its
// buffers; it is safe to retain.
func (c *Collection) Iterate(visit func(item core.Item) bool) error {
	return translateError(c.store.Iterate(visit))
}

// Count returns the number of durably stored items.
func (c *Collection) Count() uint64 {
	return c.store.Count()
}

// Info returns the collection descriptor.
func (c *Collection) Info() Info {
	si := c.store.Info()
	return Info{
		Name:      si.Name,
		Dimension: si.Dimension,
		Metric:    si.Metric,
		Count:     si.Count,
	}
}

// Stats returns a snapshot of the handle's storage counters.
func (c *Collection) Stats() Stats {
	return c.store.Stats()
}

// Close persists the final item count and releases all file handles.
// Closing twice is a no-op.
func (c *Collection) Close() error {
	return translateError(c.store.Close())
}
