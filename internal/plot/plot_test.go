package plot

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGonumPlotterWritesImages(t *testing.T) {
	dir := t.TempDir()
	g := NewGonumPlotter()

	scatter := Figure{Title: "Correlation vs Fisher", XLabel: "Correlation", YLabel: "Fisher value", Path: filepath.Join(dir, "scatter.png")}
	require.NoError(t, g.Scatter(scatter, []float64{0.1, 0.5, math.NaN()}, []float64{3, 2, 1}))

	hist := Figure{Title: "Histogram of Fisher values", Path: filepath.Join(dir, "stats", "hist.png")}
	require.NoError(t, g.Histogram(hist, []float64{1, 2, 2, 3, math.NaN()}, 100))

	lines := Figure{Title: "Sorted Train vs Test Accuracy", Path: filepath.Join(dir, "lines.png")}
	require.NoError(t, g.Lines(lines,
		Series{Label: "train accuracy", Values: []float64{0.5, 0.75, 1}},
		Series{Label: "test accuracy", Values: []float64{0.5, 0.5, 0.75}},
	))

	for _, path := range []string{scatter.Path, hist.Path, lines.Path} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Greater(t, info.Size(), int64(0), path)
	}
}

func TestGonumPlotterErrors(t *testing.T) {
	g := &GonumPlotter{}
	assert.Error(t, g.Scatter(Figure{Path: filepath.Join(t.TempDir(), "x.png")}, []float64{1}, nil))
	assert.Error(t, g.Histogram(Figure{Title: "no path"}, []float64{1, 2}, 5))
}
