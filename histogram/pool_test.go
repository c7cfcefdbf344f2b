package histogram_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/gbdtcore/histogram"
)

func newTestPool(capacity, numFeatures, numBins int) *histogram.Pool {
	p := histogram.NewPool()
	p.ResetSize(capacity)
	p.Fill(func() histogram.LeafHistograms {
		hists := make(histogram.LeafHistograms, numFeatures)
		for f := range hists {
			hists[f] = histogram.NewFeatureHistogram(f, numBins)
		}
		return hists
	})
	return p
}

func TestPoolGetMissBindsFreeSlot(t *testing.T) {
	p := newTestPool(2, 3, 8)

	hists, hit := p.Get(0)
	assert.False(t, hit)
	require.Len(t, hists, 3)

	again, hit := p.Get(0)
	assert.True(t, hit)
	assert.Same(t, hists[0], again[0])
}

func TestPoolEvictsLeastRecentlyUsedWhenFull(t *testing.T) {
	p := newTestPool(2, 1, 4)

	h0, _ := p.Get(0)
	_, _ = p.Get(1)
	// touch leaf 0 again so leaf 1 becomes LRU
	_, _ = p.Get(0)

	_, hit := p.Get(2)
	assert.False(t, hit)

	// leaf 1 was evicted; leaf 0's slot must be untouched
	h0Again, hit := p.Get(0)
	assert.True(t, hit)
	assert.Same(t, h0[0], h0Again[0])

	_, hit = p.Get(1)
	assert.False(t, hit) // re-binding leaf 1 is a fresh miss
}

func TestPoolMoveRebindsWithoutCopy(t *testing.T) {
	p := newTestPool(3, 1, 4)

	hists, _ := p.Get(0)
	hists[0].Add(2, 1.5, 1.0)

	p.Move(0, 5)

	moved, hit := p.Get(5)
	assert.True(t, hit)
	assert.Equal(t, 1.5, moved[0].Bins[2].SumGradients)

	// leaf 0 no longer bound; Get(0) now must be a fresh miss
	fresh, hit := p.Get(0)
	assert.False(t, hit)
	assert.Equal(t, 0.0, fresh[0].Bins[2].SumGradients)
}

func TestClampCapacityBounds(t *testing.T) {
	assert.Equal(t, 2, histogram.ClampCapacity(0, 10))
	assert.Equal(t, 2, histogram.ClampCapacity(1, 10))
	assert.Equal(t, 5, histogram.ClampCapacity(5, 10))
	assert.Equal(t, 10, histogram.ClampCapacity(999, 10))
	assert.Equal(t, 3, histogram.ClampCapacity(999, 3))
}
