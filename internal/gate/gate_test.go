package gate

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/gatesearch/internal/algorithm"
	"github.com/kingrea/gatesearch/internal/config"
	"github.com/kingrea/gatesearch/internal/logbook"
	"github.com/kingrea/gatesearch/internal/plot"
)

// fakeOptimizer answers with a scripted output and counts calls.
type fakeOptimizer struct {
	calls   int
	output  func(p algorithm.Problem) []float64
	targets []float64
	err     error
}

func (f *fakeOptimizer) Optimize(_ context.Context, p algorithm.Problem) (*algorithm.Results, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := append([]float64(nil), p.Target...)
	if f.output != nil {
		out = f.output(p)
	}
	r := &algorithm.Results{
		BestOutput:      out,
		BestPerformance: 0.1,
		Accuracy:        math.NaN(),
		Correlation:     math.NaN(),
		ControlVoltages: []float64{0.2, -0.3},
		Targets:         f.targets,
	}
	if err := algorithm.Judge(r, p); err != nil {
		return nil, err
	}
	return r, nil
}

type recordingPlotter struct {
	lines []plot.Figure
}

func (r *recordingPlotter) Scatter(plot.Figure, []float64, []float64) error { return nil }
func (r *recordingPlotter) Histogram(plot.Figure, []float64, int) error    { return nil }
func (r *recordingPlotter) Lines(fig plot.Figure, _ ...plot.Series) error {
	r.lines = append(r.lines, fig)
	return nil
}

func geneticConfig() *config.Config {
	cfg := config.Default()
	cfg.Algorithm = config.AlgorithmGenetic
	cfg.Processor.Platform = config.PlatformHardware
	return cfg
}

var xorInputs = [][]float64{{-1.2, -1.2}, {-1.2, 0.6}, {0.6, -1.2}, {0.6, 0.6}}

func TestFindLabelSkipsConstantLabel(t *testing.T) {
	opt := &fakeOptimizer{}
	task, err := New(geneticConfig(), opt, nil)
	require.NoError(t, err)

	for _, label := range [][]float64{{0, 0, 0, 0}, {1, 1, 1, 1}} {
		res, err := task.FindLabel(context.Background(), xorInputs, label, label, nil, 0.99)
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.True(t, math.IsNaN(res.Accuracy))
		assert.True(t, math.IsNaN(res.BestPerformance))
		assert.True(t, math.IsNaN(res.Correlation))
		assert.Nil(t, res.BestOutput)
		assert.Nil(t, res.ControlVoltages)
		assert.Equal(t, label, res.Label)
		assert.Equal(t, label, res.EncodedLabel)
	}
	assert.Equal(t, 0, opt.calls)
}

func TestFindLabelThresholdComparison(t *testing.T) {
	// A ramp output reproduces AND perfectly but XOR only at 0.75.
	ramp := func(p algorithm.Problem) []float64 { return []float64{0, 1, 2, 3} }
	cases := []struct {
		label     []float64
		threshold float64
		accuracy  float64
		found     bool
	}{
		{label: []float64{0, 0, 0, 1}, threshold: 0.9, accuracy: 1, found: true},
		{label: []float64{0, 1, 1, 0}, threshold: 0.9, accuracy: 0.75, found: false},
		{label: []float64{0, 1, 1, 0}, threshold: 0.75, accuracy: 0.75, found: true},
		{label: []float64{0, 1, 1, 0}, threshold: 0.5, accuracy: 0.75, found: true},
	}
	for _, tc := range cases {
		opt := &fakeOptimizer{output: ramp}
		task, err := New(geneticConfig(), opt, nil)
		require.NoError(t, err)
		res, err := task.FindLabel(context.Background(), xorInputs, tc.label, tc.label, nil, tc.threshold)
		require.NoError(t, err)
		assert.Equal(t, 1, opt.calls)
		assert.Equal(t, tc.accuracy, res.Accuracy)
		assert.Equal(t, tc.found, res.Found)
		assert.Equal(t, tc.found, res.Accuracy >= tc.threshold)
		assert.True(t, math.IsNaN(res.Correlation), "array path leaves correlation unset")
	}
}

func TestFindLabelAcceptsAtThreshold(t *testing.T) {
	// 100 samples on a ramp; flipping the first k labels costs k samples.
	const n = 100
	inputs := make([][]float64, n)
	ramp := make([]float64, n)
	for i := range ramp {
		inputs[i] = []float64{float64(i)}
		ramp[i] = float64(i)
	}
	opt := &fakeOptimizer{output: func(algorithm.Problem) []float64 { return ramp }}
	task, err := New(geneticConfig(), opt, nil)
	require.NoError(t, err)

	var accuracies []float64
	var found []bool
	for _, k := range []int{5, 20, 1} {
		label := make([]float64, n)
		for i := range label {
			if i >= n/2 || i < k {
				label[i] = 1
			}
		}
		res, err := task.FindLabel(context.Background(), inputs, label, label, nil, 0.9)
		require.NoError(t, err)
		accuracies = append(accuracies, res.Accuracy)
		found = append(found, res.Found)
	}
	assert.InDeltaSlice(t, []float64{0.95, 0.80, 0.99}, accuracies, 1e-12)
	assert.Equal(t, []bool{true, false, true}, found)
}

func TestFindLabelRespectsMask(t *testing.T) {
	// The unmasked sample would break separability.
	opt := &fakeOptimizer{output: func(algorithm.Problem) []float64 { return []float64{0, 1, 1, -5} }}
	task, err := New(geneticConfig(), opt, nil)
	require.NoError(t, err)
	label := []float64{0, 1, 1, 0}
	res, err := task.FindLabel(context.Background(), xorInputs, label, label, []bool{true, true, true, false}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Accuracy)
	assert.True(t, res.Found)
}

func TestTensorPathReportsCorrelation(t *testing.T) {
	cfg := config.Default()
	require.True(t, cfg.UsesTensorPath())
	opt := &fakeOptimizer{output: func(algorithm.Problem) []float64 { return []float64{0, 2, 2, 0} }}
	task, err := New(cfg, opt, nil)
	require.NoError(t, err)
	label := []float64{0, 1, 1, 0}
	res, err := task.FindLabel(context.Background(), xorInputs, label, label, nil, 0.9)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Correlation, 1e-12)
	assert.True(t, res.Found)
}

func TestFindLabelPropagatesOptimizerErrors(t *testing.T) {
	boom := errors.New("diverged")
	task, err := New(geneticConfig(), &fakeOptimizer{err: boom}, nil)
	require.NoError(t, err)
	label := []float64{0, 1, 1, 0}
	_, err = task.FindLabel(context.Background(), xorInputs, label, label, nil, 0.9)
	assert.ErrorIs(t, err, boom)

	_, err = New(nil, &fakeOptimizer{}, nil)
	assert.Error(t, err)
	_, err = New(geneticConfig(), nil, nil)
	assert.Error(t, err)
}

func TestTruthTable(t *testing.T) {
	table, err := NewTruthTable(2, -1.2, 0.6)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, table.Inputs)
	assert.Equal(t, xorInputs, table.Encoded)

	labels := table.Labels()
	require.Len(t, labels, 16)
	assert.Equal(t, []float64{0, 0, 0, 0}, labels[0])
	assert.Equal(t, []float64{0, 1, 1, 0}, labels[6])
	assert.Equal(t, []float64{1, 1, 1, 1}, labels[15])
	assert.Equal(t, "XOR", GateName(labels[6]))
	assert.Equal(t, "0011", GateName(labels[3]))

	_, err = NewTruthTable(0, 0, 1)
	assert.Error(t, err)
}

func TestTruthTableBoundsInputs(t *testing.T) {
	table, err := NewTruthTable(MaxInputs, 0, 1)
	require.NoError(t, err)
	assert.Len(t, table.Inputs, 16)
	assert.Len(t, table.Labels(), 1<<16)

	for _, n := range []int{MaxInputs + 1, 6, 64} {
		_, err := NewTruthTable(n, 0, 1)
		assert.Error(t, err, "n=%d", n)
	}
}

func TestFinderSweepsAllLabels(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "db", "gates.db"))
	require.NoError(t, err)
	defer store.Close()

	opt := &fakeOptimizer{}
	task, err := New(geneticConfig(), opt, nil)
	require.NoError(t, err)
	plotter := &recordingPlotter{}
	finder := &Finder{Task: task, Store: store, Plotter: plotter, PlotDir: dir, Threshold: 0.9}

	table, err := NewTruthTable(2, -1.2, 0.6)
	require.NoError(t, err)
	summary, err := finder.FindGates(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, 16, summary.Total)
	assert.Equal(t, 16, summary.Found)
	assert.Equal(t, 1.0, summary.Capacity())
	assert.Equal(t, 14, opt.calls, "constant labels are not optimized")
	assert.Len(t, plotter.lines, 14)

	rows, err := store.Rows(context.Background(), summary.SessionID)
	require.NoError(t, err)
	require.Len(t, rows, 16)
	assert.Equal(t, "0000", rows[0].Label)
	assert.True(t, math.IsNaN(rows[0].Accuracy))
	assert.Nil(t, rows[0].ControlVoltages)
	assert.Equal(t, "XOR", rows[6].Gate)
	assert.Equal(t, 1.0, rows[6].Accuracy)
	assert.Equal(t, []float64{0.2, -0.3}, rows[6].ControlVoltages)
}

func TestFinderJournalsMissedLabels(t *testing.T) {
	journal, err := logbook.New(filepath.Join(t.TempDir(), logbook.FileName))
	require.NoError(t, err)
	opt := &fakeOptimizer{output: func(p algorithm.Problem) []float64 {
		out := make([]float64, len(p.Inputs))
		for i, in := range p.Inputs {
			out[i] = in[0]
		}
		return out
	}}
	task, err := New(geneticConfig(), opt, nil)
	require.NoError(t, err)
	finder := &Finder{Task: task, Logbook: journal, Threshold: 0.9}

	table, err := NewTruthTable(2, -1.2, 0.6)
	require.NoError(t, err)
	summary, err := finder.FindGates(context.Background(), table)
	require.NoError(t, err)
	assert.Less(t, summary.Found, summary.Total)

	entries, total := journal.Entries(16)
	require.Equal(t, 16, total)
	messages := map[logbook.Level][]string{}
	for _, e := range entries {
		messages[e.Level] = append(messages[e.Level], e.Message)
	}
	assert.Contains(t, messages[logbook.LevelWarn], "gate XOR not found: accuracy 0.500 below 0.90")
	assert.Contains(t, messages[logbook.LevelInfo], "gate 0000 ignored: constant label")
	assert.Contains(t, messages[logbook.LevelInfo], "gate 0011 found: accuracy 1.000")
	assert.Len(t, messages[logbook.LevelWarn], summary.Total-summary.Found)
}
