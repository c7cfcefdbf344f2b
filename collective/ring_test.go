package collective_test

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/gbdtcore/collective"
)

// newMeshRings wires up a full mesh of net.Pipe connections between
// `world` in-process ranks and returns one *Ring per rank, so Allgather
// and AllreduceSum can be exercised without real sockets.
func newMeshRings(world int) []*collective.Ring {
	conns := make([]map[int]collective.Conn, world)
	for i := range conns {
		conns[i] = make(map[int]collective.Conn, world-1)
	}
	for i := 0; i < world; i++ {
		for j := i + 1; j < world; j++ {
			a, b := net.Pipe()
			conns[i][j] = a
			conns[j][i] = b
		}
	}
	rings := make([]*collective.Ring, world)
	for i := 0; i < world; i++ {
		rings[i] = collective.NewRing(i, world, conns[i])
	}
	return rings
}

func TestAllgatherAssemblesFullWorldOrderedArray(t *testing.T) {
	const world = 4
	rings := newMeshRings(world)

	results := make([][][]byte, world)
	var wg sync.WaitGroup
	for i := 0; i < world; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			local := []byte{byte('A' + rank)}
			out, err := rings[rank].Allgather(local)
			require.NoError(t, err)
			results[rank] = out
		}(i)
	}
	wg.Wait()

	expected := [][]byte{{'A'}, {'B'}, {'C'}, {'D'}}
	for rank := 0; rank < world; rank++ {
		assert.Equal(t, expected, results[rank], "rank %d", rank)
	}
}

func TestAllreduceSumPowerOfTwoWorld(t *testing.T) {
	const world = 4
	rings := newMeshRings(world)

	results := make([][]float64, world)
	var wg sync.WaitGroup
	for i := 0; i < world; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			data := []float64{float64(rank + 1), float64(10 * (rank + 1))}
			err := rings[rank].AllreduceSum(data)
			require.NoError(t, err)
			results[rank] = data
		}(i)
	}
	wg.Wait()

	// sum of 1..4 = 10, sum of 10..40 = 100
	for rank := 0; rank < world; rank++ {
		assert.InDelta(t, 10.0, results[rank][0], 1e-9, "rank %d", rank)
		assert.InDelta(t, 100.0, results[rank][1], 1e-9, "rank %d", rank)
	}
}

func TestAllreduceSumNonPowerOfTwoWorldUsesGatherBroadcast(t *testing.T) {
	const world = 3
	rings := newMeshRings(world)

	results := make([][]float64, world)
	var wg sync.WaitGroup
	for i := 0; i < world; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			data := []float64{float64(rank + 1)}
			err := rings[rank].AllreduceSum(data)
			require.NoError(t, err)
			results[rank] = data
		}(i)
	}
	wg.Wait()

	for rank := 0; rank < world; rank++ {
		assert.InDelta(t, 6.0, results[rank][0], 1e-9, "rank %d", rank)
	}
}

func TestAllreduceSumSingleRankIsNoop(t *testing.T) {
	ring := collective.NewRing(0, 1, nil)
	data := []float64{1, 2, 3}
	require.NoError(t, ring.AllreduceSum(data))
	assert.Equal(t, []float64{1, 2, 3}, data)
}
