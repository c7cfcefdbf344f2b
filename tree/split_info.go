package tree

import "math"

// negInfGain is the sentinel gain meaning "no valid split here".
var negInfGain = math.Inf(-1)

// SplitInfo is a candidate split: which feature, which bin threshold,
// its gain, and the precomputed per-child sums a Split call uses to
// seed the two children's LeafSplits without re-summing their rows.
type SplitInfo struct {
	Feature       int
	Threshold     uint32
	RealThreshold float64
	Gain          float64

	LeftCount  int32
	RightCount int32

	LeftSumGrad  float64
	LeftSumHess  float64
	RightSumGrad float64
	RightSumHess float64

	LeftOutput  float64
	RightOutput float64
}

// IsValid reports whether this SplitInfo represents an admissible
// split rather than the "no split found" sentinel.
func (s SplitInfo) IsValid() bool {
	return s.Gain > negInfGain
}
