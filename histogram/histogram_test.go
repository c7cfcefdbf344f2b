package histogram_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezoic/gbdtcore/histogram"
)

func TestSubtractionIdentityHoldsPerBin(t *testing.T) {
	const numBins = 16
	r := rand.New(rand.NewSource(42))

	parent := histogram.NewFeatureHistogram(0, numBins)
	smaller := histogram.NewFeatureHistogram(0, numBins)
	larger := histogram.NewFeatureHistogram(0, numBins)

	for b := 0; b < numBins; b++ {
		for i := 0; i < 20; i++ {
			g, h := r.NormFloat64(), r.Float64()+0.1
			parent.Add(uint32(b), g, h)
			if i%2 == 0 {
				smaller.Add(uint32(b), g, h)
			} else {
				larger.Add(uint32(b), g, h)
			}
		}
	}

	derived := histogram.NewFeatureHistogram(0, numBins)
	for i, e := range parent.Bins {
		derived.Bins[i] = e
	}
	derived.Subtract(smaller)

	for b := 0; b < numBins; b++ {
		assert.InDelta(t, larger.Bins[b].SumGradients, derived.Bins[b].SumGradients, 1e-9)
		assert.InDelta(t, larger.Bins[b].SumHessians, derived.Bins[b].SumHessians, 1e-9)
		assert.Equal(t, larger.Bins[b].Count, derived.Bins[b].Count)
	}
}

func TestFindBestThresholdRejectsBelowMinDataInLeaf(t *testing.T) {
	h := histogram.NewFeatureHistogram(0, 4)
	h.Add(0, -1, 1)
	h.Add(1, 1, 1)
	h.Add(2, -1, 1)
	h.Add(3, 1, 1)

	best := h.FindBestThreshold(0, 3, 0)
	assert.False(t, best.Found)
}

func TestFindBestThresholdFindsSeparatingSplit(t *testing.T) {
	h := histogram.NewFeatureHistogram(0, 4)
	for i := 0; i < 10; i++ {
		h.Add(0, -1, 1)
		h.Add(1, -1, 1)
	}
	for i := 0; i < 10; i++ {
		h.Add(2, 1, 1)
		h.Add(3, 1, 1)
	}

	best := h.FindBestThreshold(0, 1, 0)
	assert.True(t, best.Found)
	assert.Equal(t, uint32(1), best.Threshold)
	assert.Greater(t, best.Gain, 0.0)
}

func TestFindBestThresholdNoSplitSentinelWhenAllRejected(t *testing.T) {
	h := histogram.NewFeatureHistogram(0, 2)
	h.Add(0, 1, 1)
	h.Add(1, 1, 1)

	best := h.FindBestThreshold(0, 100, 0)
	assert.False(t, best.Found)
	assert.True(t, math.IsInf(best.Gain, -1))
}

func TestIsSplittableRequiresCountAndHessianMass(t *testing.T) {
	h := histogram.NewFeatureHistogram(0, 2)
	h.Add(0, 1, 0.4)
	h.Add(1, 1, 0.4)

	assert.False(t, h.IsSplittable(1, 1.0))
	assert.True(t, h.IsSplittable(1, 0.3))
}
