// Package plot renders the diagnostic figures of a search. Callers depend on
// the Plotter interface; GonumPlotter is the default renderer.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Figure describes the text and destination of one chart. The image format
// follows the extension of Path.
type Figure struct {
	Title  string
	XLabel string
	YLabel string
	Path   string
}

// Series is a named line of y values plotted against their index.
type Series struct {
	Label  string
	Values []float64
}

// Plotter renders figures to disk.
type Plotter interface {
	Scatter(fig Figure, x, y []float64) error
	Histogram(fig Figure, values []float64, bins int) error
	Lines(fig Figure, series ...Series) error
}

// GonumPlotter renders with gonum/plot.
type GonumPlotter struct {
	Width  vg.Length
	Height vg.Length
}

// NewGonumPlotter returns a renderer producing 6x4 inch figures.
func NewGonumPlotter() *GonumPlotter {
	return &GonumPlotter{Width: 6 * vg.Inch, Height: 4 * vg.Inch}
}

// Scatter draws y against x with circle markers. Pairs with a NaN are dropped.
func (g *GonumPlotter) Scatter(fig Figure, x, y []float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("plot: %s: x has %d values, y has %d", fig.Title, len(x), len(y))
	}
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	p := newPlot(fig)
	if len(pts) > 0 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("plot: %s: %w", fig.Title, err)
		}
		s.GlyphStyle.Color = color.RGBA{B: 200, A: 255}
		p.Add(s)
	}
	return g.save(p, fig)
}

// Histogram bins the finite values.
func (g *GonumPlotter) Histogram(fig Figure, values []float64, bins int) error {
	if bins <= 0 {
		bins = 10
	}
	finite := make(plotter.Values, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	p := newPlot(fig)
	if len(finite) > 0 {
		h, err := plotter.NewHist(finite, bins)
		if err != nil {
			return fmt.Errorf("plot: %s: %w", fig.Title, err)
		}
		p.Add(h)
	}
	return g.save(p, fig)
}

// Lines draws each series with line and point markers ("o--" style) and a legend.
func (g *GonumPlotter) Lines(fig Figure, series ...Series) error {
	p := newPlot(fig)
	var args []any
	for _, s := range series {
		pts := make(plotter.XYs, 0, len(s.Values))
		for i, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(i), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		args = append(args, s.Label, pts)
	}
	if len(args) > 0 {
		if err := plotutil.AddLinePoints(p, args...); err != nil {
			return fmt.Errorf("plot: %s: %w", fig.Title, err)
		}
	}
	return g.save(p, fig)
}

func newPlot(fig Figure) *gplot.Plot {
	p := gplot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XLabel
	p.Y.Label.Text = fig.YLabel
	return p
}

func (g *GonumPlotter) save(p *gplot.Plot, fig Figure) error {
	if fig.Path == "" {
		return fmt.Errorf("plot: %s: output path is required", fig.Title)
	}
	if err := os.MkdirAll(filepath.Dir(fig.Path), 0o755); err != nil {
		return fmt.Errorf("plot: ensure dir: %w", err)
	}
	width, height := g.Width, g.Height
	if width <= 0 || height <= 0 {
		width, height = 6*vg.Inch, 4*vg.Inch
	}
	if err := p.Save(width, height, fig.Path); err != nil {
		return fmt.Errorf("plot: save %s: %w", fig.Path, err)
	}
	return nil
}
