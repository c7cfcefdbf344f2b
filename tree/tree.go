package tree

// Node is one node of a grown Tree: either an internal split node
// (IsLeaf == false) or a leaf with a prediction output.
type Node struct {
	ParentID int
	IsLeaf   bool
	Depth    int

	// Internal node fields.
	SplitFeature  int
	Threshold     uint32
	RealThreshold float64
	Gain          float64
	LeftChild     int
	RightChild    int

	// Leaf node fields.
	LeafValue float64
}

// Tree is a grown regression tree: a binary tree of Nodes, plus a
// leafNode index mapping leaf id (the id SerialTreeLearner tracks
// during growth) to its Node slot, since leaf ids are assigned
// independently of node order.
type Tree struct {
	Nodes         []Node
	ShrinkageRate float64

	leafNode []int
}

// NewTree returns a single-leaf tree (the state before any split has
// been made).
func NewTree() *Tree {
	t := &Tree{
		ShrinkageRate: 1.0,
		Nodes:         []Node{{ParentID: -1, IsLeaf: true, Depth: 0}},
		leafNode:      []int{0},
	}
	return t
}

// NumLeaves returns the current number of leaves.
func (t *Tree) NumLeaves() int { return len(t.leafNode) }

// LeafDepth returns the depth of the node currently backing leaf.
func (t *Tree) LeafDepth(leaf int) int { return t.Nodes[t.leafNode[leaf]].Depth }

// Split turns leaf into an internal node with the given split, and
// allocates two new leaves: leaf itself is kept as the id of the left
// child (its underlying Node slot changes), and a new leaf id is
// returned for the right child.
func (t *Tree) Split(leaf, feature int, threshold uint32, realThreshold, leftOutput, rightOutput, gain float64) (rightLeaf int) {
	nodeIdx := t.leafNode[leaf]
	depth := t.Nodes[nodeIdx].Depth

	t.Nodes[nodeIdx].IsLeaf = false
	t.Nodes[nodeIdx].SplitFeature = feature
	t.Nodes[nodeIdx].Threshold = threshold
	t.Nodes[nodeIdx].RealThreshold = realThreshold
	t.Nodes[nodeIdx].Gain = gain

	leftIdx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{ParentID: nodeIdx, IsLeaf: true, LeafValue: leftOutput, Depth: depth + 1})
	rightIdx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{ParentID: nodeIdx, IsLeaf: true, LeafValue: rightOutput, Depth: depth + 1})

	t.Nodes[nodeIdx].LeftChild = leftIdx
	t.Nodes[nodeIdx].RightChild = rightIdx

	t.leafNode[leaf] = leftIdx
	rightLeaf = len(t.leafNode)
	t.leafNode = append(t.leafNode, rightIdx)

	return rightLeaf
}

// Predict walks the tree from the root using real-valued thresholds:
// at each internal node, features[SplitFeature] <= RealThreshold
// routes to the left child.
func (t *Tree) Predict(features []float64) float64 {
	node := t.Nodes[0]
	for !node.IsLeaf {
		if features[node.SplitFeature] <= node.RealThreshold {
			node = t.Nodes[node.LeftChild]
		} else {
			node = t.Nodes[node.RightChild]
		}
	}
	return node.LeafValue * t.ShrinkageRate
}
