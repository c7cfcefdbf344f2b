package tree

import (
	"math/rand"
	"sync"

	gbdterrors "github.com/ezoic/gbdtcore/pkg/errors"
	"github.com/ezoic/gbdtcore/pkg/log"

	"github.com/ezoic/gbdtcore/bin"
	"github.com/ezoic/gbdtcore/histogram"
	"github.com/ezoic/gbdtcore/partition"
)

// HistogramReducer sums a distributed, per-bin (gradient, hessian,
// count) vector across every worker in place. Supplied by the
// collective package in distributed mode; nil for single-worker
// training.
type HistogramReducer interface {
	AllreduceSum(data []float64) error
}

// TrainContext carries the ambient execution parameters a tree
// learner needs but that are not part of its per-tree hyperparameters,
// replacing the source's global thread-count queries and static
// initializers with an explicit value passed at construction.
type TrainContext struct {
	NumThreads int
}

// Params are the regularization and growth hyperparameters for one
// SerialTreeLearner, matching spec.md §6's configuration options.
type Params struct {
	NumLeaves            int
	MinDataInLeaf        int
	MinSumHessianInLeaf  float64
	FeatureFraction      float64
	FeatureFractionSeed  int64
	MaxDepth             int // -1 means unlimited
	Lambda               float64
	HistogramPoolSizeMiB float64 // -1 means cap == NumLeaves
	Reducer              HistogramReducer
}

// SerialTreeLearner grows one tree at a time, leaf-wise, over a fixed
// set of bin-coded feature columns borrowed from a Dataset.
type SerialTreeLearner struct {
	params Params
	ctx    TrainContext
	logger log.Logger

	columns     []*bin.Column
	numData     int
	numFeatures int

	histPool    *histogram.Pool
	partition   *partition.DataPartition
	orderedBins []*bin.OrderedBin

	isFeatureUsed []bool
	rng           *rand.Rand

	leafSplits []*LeafSplits

	gradients []float64
	hessians  []float64
}

// NewSerialTreeLearner returns a learner ready for Init.
func NewSerialTreeLearner(params Params, ctx TrainContext, logger log.Logger) *SerialTreeLearner {
	if ctx.NumThreads < 1 {
		ctx.NumThreads = 1
	}
	if logger == nil {
		logger = log.GetLoggerWithName("tree.SerialTreeLearner")
	}
	return &SerialTreeLearner{params: params, ctx: ctx, logger: logger}
}

// Init binds the learner to a dataset's bin-coded columns. Columns are
// borrowed for the lifetime of every subsequent Train call.
func (l *SerialTreeLearner) Init(columns []*bin.Column, numData int) {
	l.columns = columns
	l.numFeatures = len(columns)
	l.numData = numData

	l.partition = partition.New(numData, l.params.NumLeaves)

	l.histPool = histogram.NewPool()
	capacity := l.poolCapacity()
	l.histPool.ResetSize(capacity)
	l.histPool.Fill(func() histogram.LeafHistograms {
		hists := make(histogram.LeafHistograms, l.numFeatures)
		for f, col := range columns {
			hists[f] = histogram.NewFeatureHistogram(f, col.NumBin())
		}
		return hists
	})

	l.orderedBins = make([]*bin.OrderedBin, l.numFeatures)
	for f, col := range columns {
		l.orderedBins[f] = col.MaybeOrderedBin()
	}

	l.isFeatureUsed = make([]bool, l.numFeatures)
	l.rng = rand.New(rand.NewSource(l.params.FeatureFractionSeed))

	l.leafSplits = make([]*LeafSplits, l.params.NumLeaves)
	for i := range l.leafSplits {
		l.leafSplits[i] = NewLeafSplits(l.numFeatures)
	}
}

const histogramBinEntryBytes = 24 // two float64 sums + one int32 count, padded

func (l *SerialTreeLearner) poolCapacity() int {
	if l.params.HistogramPoolSizeMiB < 0 {
		return l.params.NumLeaves
	}
	totalBins := 0
	for _, c := range l.columns {
		totalBins += c.NumBin()
	}
	if totalBins == 0 {
		return l.params.NumLeaves
	}
	budget := l.params.HistogramPoolSizeMiB * 1024 * 1024
	perLeaf := float64(totalBins) * histogramBinEntryBytes
	cap := int(budget / perLeaf)
	return histogram.ClampCapacity(cap, l.params.NumLeaves)
}

// Train grows one tree against the externally supplied gradients and
// hessians (one value per row, borrowed for the call).
func (l *SerialTreeLearner) Train(gradients, hessians []float64) (*Tree, error) {
	if len(gradients) != l.numData || len(hessians) != l.numData {
		return nil, gbdterrors.NewDimensionError("SerialTreeLearner.Train", l.numData, len(gradients), 0)
	}
	l.gradients = gradients
	l.hessians = hessians

	t := NewTree()
	if err := l.beforeTrain(); err != nil {
		return nil, err
	}

	for splitIter := 0; splitIter < l.params.NumLeaves-1; splitIter++ {
		bestLeaf, bestSplit := l.bestLeafAcrossTree(t)
		if !bestSplit.IsValid() || bestSplit.Gain <= 0 {
			break
		}
		if err := l.applySplit(t, bestLeaf, bestSplit); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (l *SerialTreeLearner) bestLeafAcrossTree(t *Tree) (int, SplitInfo) {
	best := SplitInfo{Gain: negInfGain}
	bestLeaf := -1
	for leaf := 0; leaf < t.NumLeaves(); leaf++ {
		s := l.leafSplits[leaf].BestSplit()
		if s.Gain > best.Gain {
			best = s
			bestLeaf = leaf
		}
	}
	return bestLeaf, best
}

// beforeTrain resets every stateful structure for a new tree: the
// histogram pool's leaf bindings, the data partition, the ordered
// bins, and the sampled feature subset; then primes the root leaf and
// evaluates its first round of candidate splits.
func (l *SerialTreeLearner) beforeTrain() error {
	l.histPool.ResetMap()
	l.partition.Init()
	l.sampleFeatures()

	for _, ob := range l.orderedBins {
		if ob != nil {
			ob.Init(nil, l.params.NumLeaves)
		}
	}

	l.leafSplits[0].InitRoot(0, l.gradients, l.hessians)

	hists, _ := l.histPool.Get(0)
	if err := l.buildAndEvaluate(0, hists, nil, 0); err != nil {
		return err
	}
	return nil
}

func (l *SerialTreeLearner) sampleFeatures() {
	frac := l.params.FeatureFraction
	if frac <= 0 || frac > 1 {
		frac = 1
	}
	k := int(float64(l.numFeatures) * frac)
	if k < 1 {
		k = 1
	}
	if k >= l.numFeatures {
		for i := range l.isFeatureUsed {
			l.isFeatureUsed[i] = true
		}
		return
	}

	for i := range l.isFeatureUsed {
		l.isFeatureUsed[i] = false
	}
	perm := l.rng.Perm(l.numFeatures)
	for _, f := range perm[:k] {
		l.isFeatureUsed[f] = true
	}
}

// applySplit commits bestSplit against bestLeaf: writes the tree node,
// repartitions rows, rebinds histograms (smaller built fresh, larger
// via subtraction when the parent's histogram is still cached), and
// evaluates both children's candidate splits for the next iteration.
func (l *SerialTreeLearner) applySplit(t *Tree, leaf int, split SplitInfo) error {
	col := l.columns[split.Feature]
	realThreshold := col.Mapper.BinToValue(split.Threshold)

	right := t.Split(leaf, split.Feature, split.Threshold, realThreshold, split.LeftOutput, split.RightOutput, split.Gain)
	left := leaf

	parentHists, parentHit := l.histPool.Get(left)
	var parentHist histogram.LeafHistograms
	if parentHit {
		parentHist = parentHists
	}

	l.partition.Split(left, col, split.Threshold, right)

	l.leafSplits[left].InitFromSums(left, int(split.LeftCount), split.LeftSumGrad, split.LeftSumHess)
	l.leafSplits[right].InitFromSums(right, int(split.RightCount), split.RightSumGrad, split.RightSumHess)

	smaller, larger := left, right
	if l.partition.LeafCount(left) > l.partition.LeafCount(right) {
		smaller, larger = right, left
	}

	mask := l.membershipMask(left)
	for _, ob := range l.orderedBins {
		if ob != nil {
			ob.Split(left, right, mask)
		}
	}

	if parentHist != nil {
		l.histPool.Move(left, larger)
	}

	childDepth := t.LeafDepth(smaller)

	var skip func(int) bool
	if parentHist != nil {
		skip = func(f int) bool { return !parentHist[f].IsSplittable(l.params.MinDataInLeaf, l.params.MinSumHessianInLeaf) }
	}

	smallerHists, _ := l.histPool.Get(smaller)
	if err := l.buildAndEvaluate(smaller, smallerHists, skip, childDepth); err != nil {
		return err
	}

	largerHists, _ := l.histPool.Get(larger)
	if parentHist != nil {
		if err := l.subtractAndEvaluate(larger, largerHists, parentHist, smallerHists, childDepth); err != nil {
			return err
		}
	} else {
		if err := l.buildAndEvaluate(larger, largerHists, nil, childDepth); err != nil {
			return err
		}
	}

	return nil
}

// membershipMask returns a per-row boolean: true when the row belongs
// to leftLeaf after the just-applied partition split.
func (l *SerialTreeLearner) membershipMask(leftLeaf int) []bool {
	mask := make([]bool, l.numData)
	for _, row := range l.partition.LeafIndices(leftLeaf) {
		mask[row] = true
	}
	return mask
}

// buildAndEvaluate constructs a fresh histogram for every used feature
// from leaf's current partition range (or ordered-bin entries), then
// finds each feature's best threshold and records the leaf-wide best
// in BestSplitPerFeature / BestSplit.
func (l *SerialTreeLearner) buildAndEvaluate(leaf int, hists histogram.LeafHistograms, skip func(int) bool, depth int) error {
	leafSplits := l.leafSplits[leaf]

	if l.params.MaxDepth > 0 && depth >= l.params.MaxDepth {
		for f := range leafSplits.BestSplitPerFeature {
			leafSplits.BestSplitPerFeature[f] = SplitInfo{Gain: negInfGain}
		}
		return nil
	}

	rows := l.partition.LeafIndices(leaf)

	var wg sync.WaitGroup
	sem := make(chan struct{}, l.ctx.NumThreads)
	errs := make([]error, l.numFeatures)

	for f := range l.columns {
		if !l.isFeatureUsed[f] || (skip != nil && skip(f)) {
			leafSplits.BestSplitPerFeature[f] = SplitInfo{Gain: negInfGain}
			continue
		}
		f := f
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			h := hists[f]
			h.Reset()
			l.scanFeature(f, leaf, rows, h)

			if err := l.reduce(h); err != nil {
				errs[f] = err
				return
			}

			leafSplits.BestSplitPerFeature[f] = l.toSplitInfo(f, h)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// subtractAndEvaluate derives larger's histogram as parent - smaller
// per bin, then evaluates every used feature's best threshold on the
// result without touching larger's rows at all.
func (l *SerialTreeLearner) subtractAndEvaluate(leaf int, hists, parent, smaller histogram.LeafHistograms, depth int) error {
	leafSplits := l.leafSplits[leaf]

	if l.params.MaxDepth > 0 && depth >= l.params.MaxDepth {
		for f := range leafSplits.BestSplitPerFeature {
			leafSplits.BestSplitPerFeature[f] = SplitInfo{Gain: negInfGain}
		}
		return nil
	}

	for f := range l.columns {
		if !l.isFeatureUsed[f] {
			leafSplits.BestSplitPerFeature[f] = SplitInfo{Gain: negInfGain}
			continue
		}
		h := hists[f]
		for i, e := range parent[f].Bins {
			h.Bins[i] = e
		}
		h.Subtract(smaller[f])
		leafSplits.BestSplitPerFeature[f] = l.toSplitInfo(f, h)
	}
	return nil
}

func (l *SerialTreeLearner) scanFeature(f, leaf int, rows []int32, h *histogram.FeatureHistogram) {
	if ob := l.orderedBins[f]; ob != nil {
		var nzGrad, nzHess float64
		var nzCount int32
		ob.ForEachInLeaf(leaf, func(row int32, b uint32) {
			h.Add(b, l.gradients[row], l.hessians[row])
			nzGrad += l.gradients[row]
			nzHess += l.hessians[row]
			nzCount++
		})
		// The ordered bin lists only nonzero bins; the leaf's remaining
		// rows belong to bin 0.
		var leafGrad, leafHess float64
		for _, row := range rows {
			leafGrad += l.gradients[row]
			leafHess += l.hessians[row]
		}
		h.Bins[0].SumGradients += leafGrad - nzGrad
		h.Bins[0].SumHessians += leafHess - nzHess
		h.Bins[0].Count += int32(len(rows)) - nzCount
		return
	}
	col := l.columns[f]
	for _, row := range rows {
		h.Add(col.BinAt(int(row)), l.gradients[row], l.hessians[row])
	}
}

func (l *SerialTreeLearner) reduce(h *histogram.FeatureHistogram) error {
	if l.params.Reducer == nil {
		return nil
	}
	n := len(h.Bins)
	flat := make([]float64, n*3)
	for i, e := range h.Bins {
		flat[3*i] = e.SumGradients
		flat[3*i+1] = e.SumHessians
		flat[3*i+2] = float64(e.Count)
	}
	if err := l.params.Reducer.AllreduceSum(flat); err != nil {
		return gbdterrors.NewNetworkError("allreduce", "histogram", err)
	}
	for i := range h.Bins {
		h.Bins[i].SumGradients = flat[3*i]
		h.Bins[i].SumHessians = flat[3*i+1]
		h.Bins[i].Count = int32(flat[3*i+2])
	}
	return nil
}

func (l *SerialTreeLearner) toSplitInfo(feature int, h *histogram.FeatureHistogram) SplitInfo {
	if !h.IsSplittable(l.params.MinDataInLeaf, l.params.MinSumHessianInLeaf) {
		return SplitInfo{Gain: negInfGain}
	}
	best := h.FindBestThreshold(l.params.Lambda, l.params.MinDataInLeaf, l.params.MinSumHessianInLeaf)
	if !best.Found {
		return SplitInfo{Gain: negInfGain}
	}
	return SplitInfo{
		Feature:      feature,
		Threshold:    best.Threshold,
		Gain:         best.Gain,
		LeftCount:    best.LeftCount,
		RightCount:   best.RightCount,
		LeftSumGrad:  best.LeftSumGradients,
		LeftSumHess:  best.LeftSumHessians,
		RightSumGrad: best.RightSumGradients,
		RightSumHess: best.RightSumHessians,
		LeftOutput:   best.LeftOutput,
		RightOutput:  best.RightOutput,
	}
}
