package bin_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/gbdtcore/bin"
)

func TestMapperBinCapRespectsMaxBin(t *testing.T) {
	values := make([]float64, 10000)
	r := rand.New(rand.NewSource(1))
	for i := range values {
		values[i] = r.Float64() * 1000
	}

	m := bin.NewMapper()
	m.FindBin(values, 64)

	assert.LessOrEqual(t, m.NumBins(), 64)
}

func TestMapperValueToBinIsMonotonic(t *testing.T) {
	values := make([]float64, 2000)
	r := rand.New(rand.NewSource(2))
	for i := range values {
		values[i] = r.NormFloat64()
	}

	m := bin.NewMapper()
	m.FindBin(values, 32)

	probe := make([]float64, 500)
	for i := range probe {
		probe[i] = r.NormFloat64() * 3
	}

	for i := 0; i < len(probe); i++ {
		for j := i + 1; j < len(probe); j++ {
			v1, v2 := probe[i], probe[j]
			if v1 > v2 {
				v1, v2 = v2, v1
			}
			assert.LessOrEqual(t, m.ValueToBin(v1), m.ValueToBin(v2))
		}
	}
}

func TestMapperTrivialWhenConstant(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = 5.0
	}

	m := bin.NewMapper()
	m.FindBin(values, 255)

	assert.True(t, m.IsTrivial())
	assert.Equal(t, 1, m.NumBins())
}

func TestMapperDefaultValueAlwaysBinsZero(t *testing.T) {
	values := []float64{-5, -1, 0, 1, 2, 3, 4, 5}
	m := bin.NewMapper()
	m.FindBin(values, 8)

	assert.Equal(t, uint32(0), m.ValueToBin(bin.DefaultValue))
}

func TestMapperRoundTripsThroughCopyToFrom(t *testing.T) {
	values := make([]float64, 5000)
	r := rand.New(rand.NewSource(3))
	for i := range values {
		values[i] = r.Float64() * 500
	}

	const maxBin = 255
	m := bin.NewMapper()
	m.FindBin(values, maxBin)

	buf := make([]byte, bin.SizeFor(maxBin))
	m.CopyTo(buf, maxBin)

	restored := bin.NewMapper()
	require.NoError(t, restored.CopyFrom(buf, maxBin))

	assert.Equal(t, m.NumBins(), restored.NumBins())
	for _, v := range values[:100] {
		assert.Equal(t, m.ValueToBin(v), restored.ValueToBin(v))
	}
}

func TestSizeForIsFixedAcrossFittedBoundaryCounts(t *testing.T) {
	const maxBin = 32
	sparse := bin.NewMapper()
	sparse.FindBin([]float64{1, 2, 2, 2, 2}, maxBin)

	dense := bin.NewMapper()
	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i)
	}
	dense.FindBin(values, maxBin)

	bufSparse := make([]byte, bin.SizeFor(maxBin))
	bufDense := make([]byte, bin.SizeFor(maxBin))
	sparse.CopyTo(bufSparse, maxBin)
	dense.CopyTo(bufDense, maxBin)

	assert.Equal(t, len(bufSparse), len(bufDense))
}
