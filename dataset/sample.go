package dataset

import (
	"math/rand"
	"sort"
)

// MaxSampleRows bounds how many rows bin-mapper construction samples
// from the full dataset, matching spec.md §4.8.
const MaxSampleRows = 50000

// SampleRowIndices returns up to maxSamples row indices in [0, numRows)
// via reservoir sampling, in ascending order. If numRows <= maxSamples
// every row is returned. rng is required so callers can make sampling
// reproducible (feature_fraction_seed's sibling for bin construction).
func SampleRowIndices(numRows, maxSamples int, rng *rand.Rand) []int {
	if numRows <= maxSamples {
		out := make([]int, numRows)
		for i := range out {
			out[i] = i
		}
		return out
	}

	reservoir := make([]int, maxSamples)
	for i := 0; i < maxSamples; i++ {
		reservoir[i] = i
	}
	for i := maxSamples; i < numRows; i++ {
		j := rng.Intn(i + 1)
		if j < maxSamples {
			reservoir[j] = i
		}
	}

	sort.Ints(reservoir)
	return reservoir
}

// StratifiedWorkerRows decides which rows rank owns when sampling
// without a pre-partitioned file: rank == random.Intn(numWorkers) is
// evaluated once per row (i.i.d. per spec.md §4.8) and the row is kept
// iff it matches. rng must be advanced identically and in the same row
// order on every worker so each worker's filter is consistent with
// what every other worker would compute for the same row.
func StratifiedWorkerRows(numRows, rank, numWorkers int, rng *rand.Rand) []int {
	var out []int
	for row := 0; row < numRows; row++ {
		if rng.Intn(numWorkers) == rank {
			out = append(out, row)
		}
	}
	return out
}

// StratifiedWorkerQueries is StratifiedWorkerRows for ranking mode: the
// random draw happens once per query (not per row) so every row of a
// query lands on the same worker, per spec.md §4.8 ("queries are kept
// whole"). queryBoundaries follows the §6 convention: boundary[0] == 0,
// boundary[len-1] == numRows, query q owns rows
// [queryBoundaries[q], queryBoundaries[q+1]).
func StratifiedWorkerQueries(queryBoundaries []int32, rank, numWorkers int, rng *rand.Rand) []int {
	var out []int
	numQueries := len(queryBoundaries) - 1
	for q := 0; q < numQueries; q++ {
		if rng.Intn(numWorkers) != rank {
			continue
		}
		for row := queryBoundaries[q]; row < queryBoundaries[q+1]; row++ {
			out = append(out, int(row))
		}
	}
	return out
}
