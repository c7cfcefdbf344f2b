package tree_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezoic/gbdtcore/tree"
)

func TestNewTreeStartsWithOneLeaf(t *testing.T) {
	tr := tree.NewTree()
	assert.Equal(t, 1, tr.NumLeaves())
	assert.Equal(t, 0, tr.LeafDepth(0))
}

func TestSplitAddsTwoLeavesAndIncrementsDepth(t *testing.T) {
	tr := tree.NewTree()
	right := tr.Split(0, 2, 5, 1.25, -0.1, 0.4, 0.9)

	assert.Equal(t, 2, tr.NumLeaves())
	assert.Equal(t, 1, right)
	assert.Equal(t, 1, tr.LeafDepth(0))
	assert.Equal(t, 1, tr.LeafDepth(1))
}

func TestPredictRoutesOnRealThreshold(t *testing.T) {
	tr := tree.NewTree()
	tr.Split(0, 0, 3, 1.5, -1.0, 2.0, 0.5)

	assert.Equal(t, -1.0, tr.Predict([]float64{1.0}))
	assert.Equal(t, 2.0, tr.Predict([]float64{2.0}))
}

func TestSplitInfoValidity(t *testing.T) {
	invalid := tree.SplitInfo{Gain: math.Inf(-1)}
	assert.False(t, invalid.IsValid())

	valid := tree.SplitInfo{Gain: 0.5}
	assert.True(t, valid.IsValid())
}
