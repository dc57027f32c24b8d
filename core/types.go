// Package core defines the shared value types of the vdb storage layer:
// distance metrics, dimension-tagged vectors, and stored items.
//
// The types here are deliberately plain. Vectors own their data; copies are
// explicit via Clone and never aliased across Item instances.
package core

import (
	"fmt"
)

// MaxDim is the maximum supported vector dimension.
// 64K dimensions is plenty for any practical embedding model.
const MaxDim = 65536

// Metric identifies the distance metric of a collection.
//
// The numeric values are part of the on-disk metadata format and must not
// be reordered.
type Metric uint32

const (
	// MetricCosine is cosine similarity (higher = more similar).
	MetricCosine Metric = iota
	// MetricEuclidean is Euclidean (L2) distance (lower = more similar).
	MetricEuclidean
)

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	return m == MetricCosine || m == MetricEuclidean
}

// String returns the human-readable metric name.
func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricEuclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// ParseMetric parses a metric name ("cosine" or "euclidean").
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "cosine":
		return MetricCosine, nil
	case "euclidean":
		return MetricEuclidean, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

// ValidDim reports whether dim is within the supported range.
func ValidDim(dim uint32) bool {
	return dim >= 1 && dim <= MaxDim
}

// Vector is a dimension-tagged float32 buffer. The dimension is carried
// explicitly so that storage code can validate strides without trusting
// slice lengths from callers.
type Vector struct {
	Dim  uint32
	Data []float32
}

// NewVector allocates a zero-initialized vector of the given dimension.
func NewVector(dim uint32) (Vector, error) {
	if !ValidDim(dim) {
		return Vector{}, fmt.Errorf("invalid dimension: %d", dim)
	}
	return Vector{Dim: dim, Data: make([]float32, dim)}, nil
}

// MakeVector wraps an existing slice. The vector takes ownership of data.
func MakeVector(data []float32) Vector {
	return Vector{Dim: uint32(len(data)), Data: data}
}

// Valid reports whether the dimension tag matches the backing slice and is
// within bounds.
func (v Vector) Valid() bool {
	return ValidDim(v.Dim) && uint32(len(v.Data)) == v.Dim
}

// Clone returns a deep copy of the vector.
func (v Vector) Clone() Vector {
	data := make([]float32, len(v.Data))
	copy(data, v.Data)
	return Vector{Dim: v.Dim, Data: data}
}

// Item is a single stored record: an id, a vector, and an optional opaque
// metadata blob (typically JSON). Items are immutable once appended.
type Item struct {
	ID       string
	Vector   Vector
	Metadata []byte
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	var md []byte
	if it.Metadata != nil {
		md = make([]byte, len(it.Metadata))
		copy(md, it.Metadata)
	}
	return Item{ID: it.ID, Vector: it.Vector.Clone(), Metadata: md}
}
