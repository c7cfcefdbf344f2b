package dataset_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/gbdtcore/dataset"
)

func TestSaveLoadBinaryFileRoundTrip(t *testing.T) {
	const rows = 120
	m := buildMatrix(t, rows, 3, func(r, c int) float64 {
		switch c {
		case 0:
			return float64(r % 5)
		case 1:
			return float64(r)
		default:
			return float64((r * 7) % 13)
		}
	})
	labels := make([]float64, rows)
	for i := range labels {
		labels[i] = float64(i) * 0.5
	}

	ds, err := dataset.Construct(m, labels, dataset.DefaultIOParams(), 4, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dataset.SaveBinaryFile(&buf, ds, uint64(rows), 255, true))

	loaded, err := dataset.LoadBinaryFile(&buf)
	require.NoError(t, err)

	assert.Equal(t, ds.NumData(), loaded.NumData())
	assert.Equal(t, ds.NumFeature(), loaded.NumFeature())
	assert.Equal(t, ds.NumTotalFeature(), loaded.NumTotalFeature())
	assert.Equal(t, ds.UsedFeatureMap, loaded.UsedFeatureMap)
	assert.Equal(t, ds.Labels, loaded.Labels)

	for f := 0; f < ds.NumFeature(); f++ {
		for r := 0; r < rows; r++ {
			assert.Equal(t, ds.Columns[f].BinAt(r), loaded.Columns[f].BinAt(r), "feature %d row %d", f, r)
		}
	}
}

func TestLoadBinaryFileRejectsTruncatedHeader(t *testing.T) {
	_, err := dataset.LoadBinaryFile(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}
