// Package dataset builds the column-binned training representation the
// tree learner consumes: it samples rows, fits a bin.Mapper per feature,
// projects every row into a bin.Column, and (de)serializes the result
// to spec.md §6's binary file format.
package dataset

import (
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/gbdtcore/bin"
	"github.com/ezoic/gbdtcore/core/model"
	gbdterrors "github.com/ezoic/gbdtcore/pkg/errors"
	"github.com/ezoic/gbdtcore/pkg/log"
)

// Dataset owns every BinMapper and Feature column built from a source
// matrix, plus the metadata (labels, weights, query boundaries) a
// SerialTreeLearner needs for one training run.
type Dataset struct {
	state *model.StateManager

	numData          int
	numTotalFeatures int

	// UsedFeatureMap[i] is the index into Columns for total-feature i,
	// or -1 if the feature was dropped (trivial, per spec.md §4.1).
	UsedFeatureMap []int32
	FeatureNames   []string
	Mappers        []*bin.Mapper // len == len(Columns); parallel to Columns
	Columns        []*bin.Column

	Labels          []float64
	Weights         []float64
	QueryBoundaries []int32
	InitScores      []float64
}

// NumData returns the number of rows in the dataset.
func (d *Dataset) NumData() int { return d.numData }

// NumFeature returns the number of used (non-trivial) features.
func (d *Dataset) NumFeature() int { return len(d.Columns) }

// NumTotalFeature returns the number of columns in the source matrix,
// including trivial features dropped from training.
func (d *Dataset) NumTotalFeature() int { return d.numTotalFeatures }

// IsReady reports whether Construct has finished building this dataset.
func (d *Dataset) IsReady() bool { return d.state.IsReady() }

// Construct samples up to MaxSampleRows rows of data (the full matrix if
// smaller), fits a bin.Mapper per column, drops trivial columns with a
// TooFewBinsWarning, and projects every row of data into the resulting
// bin.Columns. numThreads bounds the fan-out used for projection,
// matching the per-feature/per-row fork-join pattern of §5.
func Construct(data mat.Matrix, labels []float64, io IOParams, numThreads int, logger log.Logger) (*Dataset, error) {
	if logger == nil {
		logger = log.GetLoggerWithName("dataset")
	}
	if numThreads < 1 {
		numThreads = 1
	}

	numRows, numCols := data.Dims()
	if numRows == 0 || numCols == 0 {
		return nil, gbdterrors.NewConsistencyError("dataset", "data matrix is empty")
	}
	if labels != nil && len(labels) != numRows {
		return nil, gbdterrors.NewDimensionError("dataset.Construct", numRows, len(labels), 0)
	}

	maxBin := io.MaxBin
	if maxBin <= 0 {
		maxBin = 255
	}

	rng := rand.New(rand.NewSource(1))
	sampleRows := SampleRowIndices(numRows, MaxSampleRows, rng)

	ds := &Dataset{
		state:            model.NewStateManager(),
		numData:          numRows,
		numTotalFeatures: numCols,
		UsedFeatureMap:   make([]int32, numCols),
		FeatureNames:     make([]string, numCols),
		Labels:           labels,
	}

	mappers := make([]*bin.Mapper, numCols)
	trivial := make([]bool, numCols)

	var wg sync.WaitGroup
	sem := make(chan struct{}, numThreads)
	for f := 0; f < numCols; f++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(f int) {
			defer wg.Done()
			defer func() { <-sem }()

			values := make([]float64, len(sampleRows))
			for i, r := range sampleRows {
				values[i] = data.At(r, f)
			}
			m := bin.NewMapper()
			m.FindBin(values, maxBin)
			mappers[f] = m
			trivial[f] = m.IsTrivial()
		}(f)
	}
	wg.Wait()

	usedIndex := int32(0)
	for f := 0; f < numCols; f++ {
		if trivial[f] {
			ds.UsedFeatureMap[f] = -1
			logger.Warn(gbdterrors.NewTooFewBinsWarning(f, ds.FeatureNames[f]).Error(), "feature_index", f)
			continue
		}
		ds.UsedFeatureMap[f] = usedIndex
		usedIndex++
	}
	if usedIndex == 0 {
		return nil, gbdterrors.NewConsistencyError("dataset", "every feature is trivial, nothing to train on")
	}

	ds.Mappers = make([]*bin.Mapper, usedIndex)
	ds.Columns = make([]*bin.Column, usedIndex)
	for f := 0; f < numCols; f++ {
		used := ds.UsedFeatureMap[f]
		if used < 0 {
			continue
		}
		ds.Mappers[used] = mappers[f]
		ds.Columns[used] = bin.NewColumn(int(used), mappers[f], numRows, numThreads)
	}

	if err := ds.project(data, numThreads); err != nil {
		return nil, err
	}

	ds.state.SetReady()
	return ds, nil
}

// project pushes every row of data into its column's per-thread
// buffers, sharding rows across numThreads goroutines, then finalizes
// every column (merge, sort, dense/sparse decision).
func (d *Dataset) project(data mat.Matrix, numThreads int) error {
	numRows, numCols := data.Dims()

	var wg sync.WaitGroup
	for t := 0; t < numThreads; t++ {
		wg.Add(1)
		go func(threadID int) {
			defer wg.Done()
			for row := threadID; row < numRows; row += numThreads {
				for f := 0; f < numCols; f++ {
					used := d.UsedFeatureMap[f]
					if used < 0 {
						continue
					}
					d.Columns[used].Push(threadID, row, data.At(row, f))
				}
			}
		}(t)
	}
	wg.Wait()

	for _, col := range d.Columns {
		col.FinishLoad()
	}
	return nil
}
