// Package bin implements per-feature discretization: learning bin
// boundaries from a sample of values (Mapper), storing a column of bin
// codes for all rows (Column), and an optional sparse-row scratch used
// during leaf-wise histogram construction (OrderedBin).
package bin

import (
	"encoding/binary"
	"math"
	"sort"

	gbdterrors "github.com/ezoic/gbdtcore/pkg/errors"
)

// DefaultValue is the feature value that always maps to bin 0, matching
// the "zero default" bin storage convention used by sparse columns.
const DefaultValue = 0.0

// Mapper learns bin boundaries for one feature from a sample of values
// and converts arbitrary values to their bin code.
type Mapper struct {
	upperBounds []float64
	maxBin      int
	trivial     bool
}

// NewMapper returns an empty, not-yet-fitted Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// FindBin learns bin boundaries from values, a sample of the feature's
// observed values. Values are sorted internally; the input is not
// mutated. maxBin caps the number of learned bins.
func (m *Mapper) FindBin(values []float64, maxBin int) {
	m.maxBin = maxBin

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	unique := distinctCount(sorted)
	if unique <= 1 {
		m.trivial = true
		m.upperBounds = nil
		return
	}
	m.trivial = false

	if unique <= maxBin {
		m.upperBounds = boundariesFromDistinct(sorted)
		return
	}

	m.upperBounds = boundariesEqualFrequency(sorted, maxBin)
}

func distinctCount(sorted []float64) int {
	if len(sorted) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			n++
		}
	}
	return n
}

// boundariesFromDistinct gives every distinct value its own bin, with
// upper boundaries at midpoints between consecutive distinct values.
func boundariesFromDistinct(sorted []float64) []float64 {
	var bounds []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			continue
		}
		bounds = append(bounds, (sorted[i-1]+sorted[i])/2)
	}
	return bounds
}

// boundariesEqualFrequency walks sorted values in order and closes a
// bin once its accumulated count reaches ceil(N/maxBin); a bin is never
// split across a run of equal values.
func boundariesEqualFrequency(sorted []float64, maxBin int) []float64 {
	target := (len(sorted) + maxBin - 1) / maxBin
	if target < 1 {
		target = 1
	}

	var bounds []float64
	count := 0
	for i := 0; i < len(sorted); i++ {
		count++
		last := i+1 >= len(sorted)
		if !last && count >= target && sorted[i] != sorted[i+1] {
			bounds = append(bounds, (sorted[i]+sorted[i+1])/2)
			count = 0
			if len(bounds) == maxBin-1 {
				break
			}
		}
	}
	return bounds
}

// NumBins returns the number of bins this mapper produces, B_f.
func (m *Mapper) NumBins() int {
	if m.trivial {
		return 1
	}
	return len(m.upperBounds) + 1
}

// IsTrivial reports whether the sampled feature had fewer than two
// distinct values; trivial features are dropped from training.
func (m *Mapper) IsTrivial() bool {
	return m.trivial
}

// ValueToBin maps v to its bin code. Values equal to DefaultValue
// always map to bin 0, independent of where the boundary search would
// otherwise place them; this keeps sparse columns' implicit zeros
// consistent with the stored zero-density bin.
func (m *Mapper) ValueToBin(v float64) uint32 {
	if v == DefaultValue {
		return 0
	}
	lo, hi := 0, len(m.upperBounds)
	for lo < hi {
		mid := (lo + hi) / 2
		if v <= m.upperBounds[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return uint32(lo)
}

// BinToValue returns a representative real-valued threshold for bin,
// used as a tree split's human-readable threshold. Only meaningful for
// bins that have an upper boundary (0 .. NumBins()-2).
func (m *Mapper) BinToValue(bin uint32) float64 {
	if int(bin) < len(m.upperBounds) {
		return m.upperBounds[bin]
	}
	if len(m.upperBounds) == 0 {
		return DefaultValue
	}
	return m.upperBounds[len(m.upperBounds)-1]
}

// SizeFor returns the fixed serialized byte size of a Mapper fitted
// with the given maxBin, independent of how many bins it actually
// learned. Every rank uses the same maxBin, so all-gather can use a
// uniform per-rank stride.
func SizeFor(maxBin int) int {
	slots := maxBin - 1
	if slots < 0 {
		slots = 0
	}
	return 1 + 4 + 8*slots
}

// CopyTo serializes m into buf, which must be at least SizeFor(maxBin)
// bytes. Unused boundary slots (when the mapper learned fewer than
// maxBin-1 boundaries) are padded with NaN.
func (m *Mapper) CopyTo(buf []byte, maxBin int) {
	size := SizeFor(maxBin)
	if len(buf) < size {
		panic("bin: CopyTo buffer too small")
	}
	if m.trivial {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(m.upperBounds)))

	slots := maxBin - 1
	off := 5
	for i := 0; i < slots; i++ {
		var v float64
		if i < len(m.upperBounds) {
			v = m.upperBounds[i]
		} else {
			v = math.NaN()
		}
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v))
		off += 8
	}
}

// CopyFrom deserializes a Mapper record written by CopyTo, using the
// same maxBin the writer used.
func (m *Mapper) CopyFrom(buf []byte, maxBin int) error {
	size := SizeFor(maxBin)
	if len(buf) < size {
		return gbdterrors.NewIOFormatError("mapper-record", "bin.Mapper", int64(size), int64(len(buf)))
	}
	m.trivial = buf[0] != 0
	m.maxBin = maxBin
	count := int(binary.LittleEndian.Uint32(buf[1:5]))

	slots := maxBin - 1
	bounds := make([]float64, 0, count)
	off := 5
	for i := 0; i < slots; i++ {
		bits := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		if i < count {
			bounds = append(bounds, math.Float64frombits(bits))
		}
	}
	m.upperBounds = bounds
	return nil
}
