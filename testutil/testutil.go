package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/vdb/core"
)

// RNG encapsulates a seeded random number generator.
// It is thread-safe and reproducible from its seed.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Vector returns a random vector of the given dimension with components
// in [-1, 1).
func (r *RNG) Vector(dim uint32) core.Vector {
	data := make([]float32, dim)
	for i := range data {
		data[i] = r.Float32()*2 - 1
	}
	return core.Vector{Dim: dim, Data: data}
}

// Item returns a random item with the given sequence number baked into its
// id and metadata, so test assertions can tie records back to their index.
func (r *RNG) Item(seq int, dim uint32) core.Item {
	return core.Item{
		ID:       fmt.Sprintf("item-%06d", seq),
		Vector:   r.Vector(dim),
		Metadata: fmt.Appendf(nil, `{"seq":%d}`, seq),
	}
}

// Items returns n random items with sequential ids.
func (r *RNG) Items(n int, dim uint32) []core.Item {
	items := make([]core.Item, n)
	for i := range items {
		items[i] = r.Item(i, dim)
	}
	return items
}
