// Package histogram implements per-leaf per-feature gradient/hessian
// histograms, the sibling-subtraction trick that avoids rebuilding a
// split's larger child from scratch, and the best-threshold scan used
// to pick a leaf's split.
package histogram

import "math"

// BinEntry accumulates the gradient/hessian sums and row count for one
// bin of one feature's histogram.
type BinEntry struct {
	SumGradients float64
	SumHessians  float64
	Count        int32
}

// FeatureHistogram is one feature's array of per-bin sums for one
// leaf.
type FeatureHistogram struct {
	FeatureIndex int
	Bins         []BinEntry
}

// NewFeatureHistogram allocates a histogram with numBins entries, all
// zeroed.
func NewFeatureHistogram(featureIndex, numBins int) *FeatureHistogram {
	return &FeatureHistogram{FeatureIndex: featureIndex, Bins: make([]BinEntry, numBins)}
}

// Reset zeroes every bin in place, reusing the backing array.
func (h *FeatureHistogram) Reset() {
	for i := range h.Bins {
		h.Bins[i] = BinEntry{}
	}
}

// Add accumulates one row's gradient and hessian into bin b with plain
// running sums (no Kahan compensation).
func (h *FeatureHistogram) Add(b uint32, grad, hess float64) {
	e := &h.Bins[b]
	e.SumGradients += grad
	e.SumHessians += hess
	e.Count++
}

// Subtract sets h's bins to (h - smaller), turning h from the parent's
// cached histogram into the larger child's histogram without touching
// the larger child's rows. smaller must have the same bin count as h.
func (h *FeatureHistogram) Subtract(smaller *FeatureHistogram) {
	for i := range h.Bins {
		h.Bins[i].SumGradients -= smaller.Bins[i].SumGradients
		h.Bins[i].SumHessians -= smaller.Bins[i].SumHessians
		h.Bins[i].Count -= smaller.Bins[i].Count
	}
}

// Totals sums every bin, returning the leaf-level (G, H, C) triple.
func (h *FeatureHistogram) Totals() (sumGrad, sumHess float64, count int32) {
	for _, e := range h.Bins {
		sumGrad += e.SumGradients
		sumHess += e.SumHessians
		count += e.Count
	}
	return
}

// IsSplittable reports whether the histogram holds enough rows and
// hessian mass to admit any split at all.
func (h *FeatureHistogram) IsSplittable(minDataInLeaf int, minSumHessianInLeaf float64) bool {
	_, sumHess, count := h.Totals()
	return int(count) >= 2*minDataInLeaf && sumHess >= 2*minSumHessianInLeaf
}

// BestThreshold is the outcome of scanning one feature's histogram for
// its best split point.
type BestThreshold struct {
	Found             bool
	Threshold         uint32
	Gain              float64
	LeftCount         int32
	RightCount        int32
	LeftSumGradients  float64
	LeftSumHessians   float64
	RightSumGradients float64
	RightSumHessians  float64
	LeftOutput        float64
	RightOutput       float64
}

// noSplitGain is the sentinel gain value meaning "no valid split was
// found in this histogram".
var noSplitGain = math.Inf(-1)

// FindBestThreshold scans h left to right, accumulating (GL, HL, CL)
// and evaluating the regularized gain at every candidate threshold in
// [0, numBins-2]. Ties keep the lowest bin index, matching a
// leftmost-wins linear scan.
func (h *FeatureHistogram) FindBestThreshold(lambda float64, minDataInLeaf int, minSumHessianInLeaf float64) BestThreshold {
	totalGrad, totalHess, totalCount := h.Totals()
	baseScore := totalGrad * totalGrad / (totalHess + lambda)

	best := BestThreshold{Gain: noSplitGain}

	var leftGrad, leftHess float64
	var leftCount int32
	for t := 0; t < len(h.Bins)-1; t++ {
		leftGrad += h.Bins[t].SumGradients
		leftHess += h.Bins[t].SumHessians
		leftCount += h.Bins[t].Count

		rightCount := totalCount - leftCount
		if leftCount < int32(minDataInLeaf) || rightCount < int32(minDataInLeaf) {
			continue
		}
		if leftHess < minSumHessianInLeaf || totalHess-leftHess < minSumHessianInLeaf {
			continue
		}

		rightGrad := totalGrad - leftGrad
		rightHess := totalHess - leftHess

		gain := leftGrad*leftGrad/(leftHess+lambda) + rightGrad*rightGrad/(rightHess+lambda) - baseScore
		if gain > best.Gain {
			best = BestThreshold{
				Found:             true,
				Threshold:         uint32(t),
				Gain:              gain,
				LeftCount:         leftCount,
				RightCount:        rightCount,
				LeftSumGradients:  leftGrad,
				LeftSumHessians:   leftHess,
				RightSumGradients: rightGrad,
				RightSumHessians:  rightHess,
				LeftOutput:        -leftGrad / (leftHess + lambda),
				RightOutput:       -rightGrad / (rightHess + lambda),
			}
		}
	}
	return best
}
