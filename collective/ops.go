package collective

import (
	"encoding/binary"
	"math"

	gbdterrors "github.com/ezoic/gbdtcore/pkg/errors"
)

// Allgather assembles every rank's local record into a full world-ordered
// slice, using Bruck's doubling schedule: log2(ceil)(world) rounds, each
// roughly doubling the amount of data held locally, so the bandwidth
// cost matches a recursive-halving/doubling all-gather regardless of
// whether world is a power of two.
func (r *Ring) Allgather(local []byte) ([][]byte, error) {
	n := r.world
	if n == 1 {
		return [][]byte{local}, nil
	}

	// items[j] is the record logically owned by rank (r.rank+j) mod n.
	items := [][]byte{append([]byte(nil), local...)}

	for d := 1; d < n; d *= 2 {
		sendTo := ((r.rank-d)%n + n) % n
		recvFrom := (r.rank + d) % n

		payload := encodeItems(items)
		recvPayload, err := r.sendRecv(sendTo, payload, recvFrom)
		if err != nil {
			return nil, gbdterrors.NewNetworkError("allgather", "bruck-round", err)
		}
		items = append(items, decodeItems(recvPayload)...)
		if len(items) > n {
			items = items[:n]
		}
	}

	result := make([][]byte, n)
	for j, it := range items {
		owner := (r.rank + j) % n
		result[owner] = it
	}
	return result, nil
}

// AllreduceSum sums data element-wise across every rank, in place.
// When world is a power of two it runs the classic recursive-doubling
// butterfly schedule (log2(world) rounds, every rank ends with the
// full sum). For other world sizes it falls back to a gather-to-rank-0
// reduce followed by a broadcast, which is O(world) rounds but correct
// for any world size; distributed GBDT deployments overwhelmingly use
// power-of-two worker counts, so the fast path is the common case.
func (r *Ring) AllreduceSum(data []float64) error {
	if r.world == 1 {
		return nil
	}
	if isPowerOfTwo(r.world) {
		return r.allreduceButterfly(data)
	}
	return r.allreduceGatherBroadcast(data)
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func (r *Ring) allreduceButterfly(data []float64) error {
	for d := 1; d < r.world; d *= 2 {
		partner := r.rank ^ d
		payload := encodeFloats(data)
		recvPayload, err := r.sendRecv(partner, payload, partner)
		if err != nil {
			return gbdterrors.NewNetworkError("allreduce", "butterfly-round", err)
		}
		recv := decodeFloats(recvPayload)
		for i := range data {
			data[i] += recv[i]
		}
	}
	return nil
}

func (r *Ring) allreduceGatherBroadcast(data []float64) error {
	if r.rank == 0 {
		sum := append([]float64(nil), data...)
		for peer := 1; peer < r.world; peer++ {
			payload, err := readLenPrefixed(r.conns[peer])
			if err != nil {
				return gbdterrors.NewNetworkError("allreduce", "gather", err)
			}
			recv := decodeFloats(payload)
			for i := range sum {
				sum[i] += recv[i]
			}
		}
		for peer := 1; peer < r.world; peer++ {
			if err := writeLenPrefixed(r.conns[peer], encodeFloats(sum)); err != nil {
				return gbdterrors.NewNetworkError("allreduce", "broadcast", err)
			}
		}
		copy(data, sum)
		return nil
	}

	if err := writeLenPrefixed(r.conns[0], encodeFloats(data)); err != nil {
		return gbdterrors.NewNetworkError("allreduce", "gather", err)
	}
	payload, err := readLenPrefixed(r.conns[0])
	if err != nil {
		return gbdterrors.NewNetworkError("allreduce", "broadcast", err)
	}
	copy(data, decodeFloats(payload))
	return nil
}

func encodeFloats(data []float64) []byte {
	buf := make([]byte, len(data)*8)
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeFloats(buf []byte) []float64 {
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}

func encodeItems(items [][]byte) []byte {
	var buf []byte
	var header [4]byte
	for _, it := range items {
		binary.LittleEndian.PutUint32(header[:], uint32(len(it)))
		buf = append(buf, header[:]...)
		buf = append(buf, it...)
	}
	return buf
}

func decodeItems(buf []byte) [][]byte {
	var items [][]byte
	for off := 0; off < len(buf); {
		n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		items = append(items, buf[off:off+n])
		off += n
	}
	return items
}
