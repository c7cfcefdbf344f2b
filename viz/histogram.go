// Package viz renders diagnostic plots for the bin/histogram/tree
// packages using gonum.org/v1/plot (plotter.BarChart here,
// plotter.Scatter and plotter.Line in tree.go), the pattern the
// teacher's examples/iris_regression uses. Nothing here sits
// on the training hot path: callers opt in explicitly to dump a PNG for
// debugging.
package viz

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/gbdtcore/histogram"
)

// PlotHistogram renders one feature histogram's per-bin gradient sum as
// a bar chart and saves it as a PNG at path.
func PlotHistogram(h *histogram.FeatureHistogram, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("feature %d histogram", h.FeatureIndex)
	p.X.Label.Text = "bin"
	p.Y.Label.Text = "sum_gradients"

	values := make(plotter.Values, len(h.Bins))
	for i, b := range h.Bins {
		values[i] = b.SumGradients
	}

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return err
	}
	p.Add(bars)

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// PlotBinCounts renders the per-bin row count for a feature histogram,
// useful for spotting skewed/near-empty bins during bin-mapper review.
func PlotBinCounts(h *histogram.FeatureHistogram, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("feature %d bin occupancy", h.FeatureIndex)
	p.X.Label.Text = "bin"
	p.Y.Label.Text = "count"

	values := make(plotter.Values, len(h.Bins))
	for i, b := range h.Bins {
		values[i] = float64(b.Count)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return err
	}
	p.Add(bars)

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
