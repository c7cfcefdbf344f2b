package collective

import "sort"

// SelectVotingFeatures returns a mask of which features should
// participate in a full histogram all-reduce this split, given each
// feature's locally estimated gain: only the topK highest-scoring
// features are kept; which of several equal-gain features is kept is
// not defined. SerialTreeLearner does not consult this mask: its reduce
// step all-reduces the histogram of every used feature.
func SelectVotingFeatures(localGains []float64, topK int) []bool {
	n := len(localGains)
	mask := make([]bool, n)
	if topK >= n {
		for i := range mask {
			mask[i] = true
		}
		return mask
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return localGains[order[a]] > localGains[order[b]] })

	for _, f := range order[:topK] {
		mask[f] = true
	}
	return mask
}
