// Package partition maps the leaves of a growing tree onto contiguous
// ranges of a permutation of row indices, so that histogram
// construction and split admission only need a [begin, end) range per
// leaf rather than a per-row leaf lookup.
package partition

// BinAtLookup resolves a feature's bin code for a row. Implemented by
// bin.Column; kept as an interface here so partition does not import
// bin, avoiding a cyclic package dependency.
type BinAtLookup interface {
	BinAt(row int) uint32
}

// DataPartition holds a permutation of [0, N) and, per leaf, the
// contiguous range of that permutation currently assigned to it.
type DataPartition struct {
	idx       []int32
	leafBegin []int
	leafEnd   []int
	numData   int
}

// New allocates a DataPartition for numData rows and up to numLeaves
// leaves.
func New(numData, numLeaves int) *DataPartition {
	return &DataPartition{
		idx:       make([]int32, numData),
		leafBegin: make([]int, numLeaves),
		leafEnd:   make([]int, numLeaves),
		numData:   numData,
	}
}

// Init resets every row to leaf 0 in natural order [0, N).
func (p *DataPartition) Init() {
	for i := range p.idx {
		p.idx[i] = int32(i)
	}
	for l := range p.leafBegin {
		p.leafBegin[l] = 0
		p.leafEnd[l] = 0
	}
	p.leafEnd[0] = p.numData
}

// InitWithIndices resets leaf 0 to exactly the given (bagged) row
// subset, in the order given.
func (p *DataPartition) InitWithIndices(bagged []int32) {
	p.idx = p.idx[:0]
	p.idx = append(p.idx, bagged...)
	for l := range p.leafBegin {
		p.leafBegin[l] = 0
		p.leafEnd[l] = 0
	}
	p.leafEnd[0] = len(p.idx)
}

// Indices returns the full permutation array backing every leaf range.
// Callers must not retain it across a Split call.
func (p *DataPartition) Indices() []int32 { return p.idx }

// LeafBegin returns the start offset of leaf's range into Indices().
func (p *DataPartition) LeafBegin(leaf int) int { return p.leafBegin[leaf] }

// LeafCount returns the number of rows currently assigned to leaf.
func (p *DataPartition) LeafCount(leaf int) int { return p.leafEnd[leaf] - p.leafBegin[leaf] }

// LeafIndices returns the row indices currently assigned to leaf.
func (p *DataPartition) LeafIndices(leaf int) []int32 {
	return p.idx[p.leafBegin[leaf]:p.leafEnd[leaf]]
}

// Split reorders parentLeaf's range in place so rows with
// col.BinAt(row) <= threshold form a prefix that stays in parentLeaf,
// and the remainder becomes a new contiguous range assigned to
// rightLeaf. Relative row order is preserved within each side.
func (p *DataPartition) Split(parentLeaf int, col BinAtLookup, threshold uint32, rightLeaf int) {
	begin, end := p.leafBegin[parentLeaf], p.leafEnd[parentLeaf]
	span := p.idx[begin:end]

	left := make([]int32, 0, len(span))
	right := make([]int32, 0, len(span))
	for _, row := range span {
		if col.BinAt(int(row)) <= threshold {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	copy(span, left)
	copy(span[len(left):], right)

	p.leafBegin[parentLeaf] = begin
	p.leafEnd[parentLeaf] = begin + len(left)
	p.leafBegin[rightLeaf] = begin + len(left)
	p.leafEnd[rightLeaf] = end
}
