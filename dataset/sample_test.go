package dataset_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezoic/gbdtcore/dataset"
)

func TestSampleRowIndicesReturnsEverythingWhenUnderCap(t *testing.T) {
	rows := dataset.SampleRowIndices(10, 50, rand.New(rand.NewSource(1)))
	assert.Len(t, rows, 10)
	for i, r := range rows {
		assert.Equal(t, i, r)
	}
}

func TestSampleRowIndicesCapsAndStaysSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rows := dataset.SampleRowIndices(1000, 100, rng)
	assert.Len(t, rows, 100)
	for i := 1; i < len(rows); i++ {
		assert.Less(t, rows[i-1], rows[i])
		assert.GreaterOrEqual(t, rows[i], 0)
		assert.Less(t, rows[i], 1000)
	}
}

func TestStratifiedWorkerRowsPartitionsAcrossWorkers(t *testing.T) {
	const numRows = 500
	const numWorkers = 4

	seen := make(map[int]int)
	for rank := 0; rank < numWorkers; rank++ {
		rows := dataset.StratifiedWorkerRows(numRows, rank, numWorkers, rand.New(rand.NewSource(7)))
		for _, r := range rows {
			seen[r]++
		}
	}
	// Every row assigned to exactly one worker since each worker replays
	// the same seeded draw sequence over the same row order.
	assert.Len(t, seen, numRows)
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

func TestStratifiedWorkerQueriesKeepsQueriesWhole(t *testing.T) {
	// 3 queries of sizes 2,3,4 -> boundaries 0,2,5,9
	boundaries := []int32{0, 2, 5, 9}
	const numWorkers = 3

	assignedQuery := make(map[int]int)
	for rank := 0; rank < numWorkers; rank++ {
		rows := dataset.StratifiedWorkerQueries(boundaries, rank, numWorkers, rand.New(rand.NewSource(3)))
		queryOf := func(row int) int {
			for q := 0; q < len(boundaries)-1; q++ {
				if int32(row) >= boundaries[q] && int32(row) < boundaries[q+1] {
					return q
				}
			}
			return -1
		}
		for _, r := range rows {
			q := queryOf(r)
			if prev, ok := assignedQuery[q]; ok {
				assert.Equal(t, prev, rank, "query %d split across workers", q)
			}
			assignedQuery[q] = rank
		}
	}
}
