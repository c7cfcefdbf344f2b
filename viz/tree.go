package viz

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/gbdtcore/tree"
)

// PlotTree renders a tree's split structure: one point per node
// positioned by (in-order x, depth), with a line from each node to its
// parent. Nodes carry no labels; leaf output values are not drawn.
func PlotTree(t *tree.Tree, path string) error {
	p := plot.New()
	p.Title.Text = "tree structure"
	p.X.Label.Text = "in-order position"
	p.Y.Label.Text = "depth"

	xPos := make([]float64, len(t.Nodes))
	next := 0.0
	assignX(t, 0, &next, xPos)

	points := make(plotter.XYs, len(t.Nodes))
	for i, n := range t.Nodes {
		points[i] = plotter.XY{X: xPos[i], Y: -float64(n.Depth)}
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return err
	}
	p.Add(scatter)

	for i, n := range t.Nodes {
		if n.ParentID < 0 {
			continue
		}
		edge, err := plotter.NewLine(plotter.XYs{points[n.ParentID], points[i]})
		if err != nil {
			return err
		}
		p.Add(edge)
	}

	p.Title.Text = fmt.Sprintf("tree structure (%d nodes)", len(t.Nodes))
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// assignX walks the tree in-order, assigning each visited node the next
// increasing x coordinate so siblings never overlap.
func assignX(t *tree.Tree, nodeIdx int, next *float64, out []float64) {
	n := t.Nodes[nodeIdx]
	if n.IsLeaf {
		out[nodeIdx] = *next
		*next++
		return
	}
	assignX(t, n.LeftChild, next, out)
	out[nodeIdx] = *next
	*next++
	assignX(t, n.RightChild, next, out)
}
