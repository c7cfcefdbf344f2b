package dataset

import (
	"github.com/ezoic/gbdtcore/bin"
	gbdterrors "github.com/ezoic/gbdtcore/pkg/errors"
)

// AllgatherRing is the subset of *collective.Ring distributed binning
// needs, so tests can stub it without standing up a real mesh.
type AllgatherRing interface {
	Allgather(local []byte) ([][]byte, error)
}

// GatherBinMappers implements spec.md §4.7.2a: each worker has already
// fit bin mappers for its contiguous slice [start, start+len) of the
// global feature set from its local sample; this all-gathers every
// worker's slice (serialized to the fixed size_for(maxBin) stride so
// every rank can compute offsets without negotiation) and returns the
// full per-feature mapper set in global feature order.
func GatherBinMappers(ring AllgatherRing, localMappers []*bin.Mapper, localStart, numTotalFeatures, maxBin int) ([]*bin.Mapper, error) {
	stride := bin.SizeFor(maxBin)

	local := make([]byte, 8+len(localMappers)*stride)
	local[0] = byte(localStart)
	local[1] = byte(localStart >> 8)
	local[2] = byte(localStart >> 16)
	local[3] = byte(localStart >> 24)
	n := len(localMappers)
	local[4] = byte(n)
	local[5] = byte(n >> 8)
	local[6] = byte(n >> 16)
	local[7] = byte(n >> 24)
	for i, m := range localMappers {
		m.CopyTo(local[8+i*stride:8+(i+1)*stride], maxBin)
	}

	gathered, err := ring.Allgather(local)
	if err != nil {
		return nil, gbdterrors.NewNetworkError("allgather", "bin-mappers", err)
	}

	result := make([]*bin.Mapper, numTotalFeatures)
	for _, rec := range gathered {
		if len(rec) < 8 {
			return nil, gbdterrors.NewIOFormatError("bin-mappers", "record-header", 8, int64(len(rec)))
		}
		start := int(rec[0]) | int(rec[1])<<8 | int(rec[2])<<16 | int(rec[3])<<24
		count := int(rec[4]) | int(rec[5])<<8 | int(rec[6])<<16 | int(rec[7])<<24
		want := int64(8 + count*stride)
		if int64(len(rec)) < want {
			return nil, gbdterrors.NewIOFormatError("bin-mappers", "record-body", want, int64(len(rec)))
		}
		for i := 0; i < count; i++ {
			m := bin.NewMapper()
			if err := m.CopyFrom(rec[8+i*stride:8+(i+1)*stride], maxBin); err != nil {
				return nil, err
			}
			result[start+i] = m
		}
	}
	return result, nil
}
