package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetric(t *testing.T) {
	assert.True(t, MetricCosine.Valid())
	assert.True(t, MetricEuclidean.Valid())
	assert.False(t, Metric(2).Valid())

	assert.Equal(t, "cosine", MetricCosine.String())
	assert.Equal(t, "euclidean", MetricEuclidean.String())
	assert.Equal(t, "unknown", Metric(99).String())

	// On-disk values are fixed.
	assert.Equal(t, uint32(0), uint32(MetricCosine))
	assert.Equal(t, uint32(1), uint32(MetricEuclidean))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("cosine")
	require.NoError(t, err)
	assert.Equal(t, MetricCosine, m)

	m, err = ParseMetric("euclidean")
	require.NoError(t, err)
	assert.Equal(t, MetricEuclidean, m)

	_, err = ParseMetric("manhattan")
	assert.Error(t, err)
}

func TestValidDim(t *testing.T) {
	assert.False(t, ValidDim(0))
	assert.True(t, ValidDim(1))
	assert.True(t, ValidDim(MaxDim))
	assert.False(t, ValidDim(MaxDim+1))
}

func TestNewVector(t *testing.T) {
	v, err := NewVector(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), v.Dim)
	assert.Len(t, v.Data, 4)
	assert.True(t, v.Valid())

	_, err = NewVector(0)
	assert.Error(t, err)
}

func TestVectorValid(t *testing.T) {
	assert.True(t, MakeVector([]float32{1, 2, 3}).Valid())
	assert.False(t, Vector{Dim: 3, Data: []float32{1, 2}}.Valid())
	assert.False(t, Vector{}.Valid())
}

func TestVectorClone(t *testing.T) {
	v := MakeVector([]float32{1, 2, 3})
	c := v.Clone()
	c.Data[0] = 42

	assert.Equal(t, float32(1), v.Data[0])
	assert.Equal(t, v.Dim, c.Dim)
}

func TestItemClone(t *testing.T) {
	it := Item{
		ID:       "a",
		Vector:   MakeVector([]float32{1}),
		Metadata: []byte(`{"k":"v"}`),
	}
	c := it.Clone()
	c.Metadata[0] = 'X'
	c.Vector.Data[0] = 42

	assert.Equal(t, byte('{'), it.Metadata[0])
	assert.Equal(t, float32(1), it.Vector.Data[0])

	// nil metadata stays nil
	assert.Nil(t, Item{ID: "b", Vector: MakeVector([]float32{1})}.Clone().Metadata)
}
