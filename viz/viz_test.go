package viz_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/gbdtcore/histogram"
	"github.com/ezoic/gbdtcore/tree"
	"github.com/ezoic/gbdtcore/viz"
)

func TestPlotHistogramWritesFile(t *testing.T) {
	h := histogram.NewFeatureHistogram(0, 4)
	h.Add(0, 1.0, 1.0)
	h.Add(1, -2.0, 1.0)
	h.Add(2, 3.0, 1.0)
	h.Add(3, 0.5, 1.0)

	path := filepath.Join(t.TempDir(), "hist.png")
	require.NoError(t, viz.PlotHistogram(h, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPlotBinCountsWritesFile(t *testing.T) {
	h := histogram.NewFeatureHistogram(0, 3)
	h.Add(0, 1.0, 1.0)
	h.Add(0, 1.0, 1.0)
	h.Add(2, -1.0, 1.0)

	path := filepath.Join(t.TempDir(), "counts.png")
	require.NoError(t, viz.PlotBinCounts(h, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPlotTreeWritesFile(t *testing.T) {
	tr := tree.NewTree()
	tr.Split(0, 0, 2, 1.5, -1.0, 1.0, 0.5)

	path := filepath.Join(t.TempDir(), "tree.png")
	require.NoError(t, viz.PlotTree(tr, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
