package ring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/kingrea/gatesearch/internal/algorithm"
	"github.com/kingrea/gatesearch/internal/performance"
	"github.com/kingrea/gatesearch/internal/plot"
	"github.com/kingrea/gatesearch/internal/session"
)

// ReproducibilityFile is written to the reproducibility directory for the best
// run seen so far.
const ReproducibilityFile = "results.json"

// Task is one classification trial as seen by the Searcher.
type Task interface {
	// Reset clears state kept between runs of a search.
	Reset()
	// InitDirs tells the task where the current session writes.
	InitDirs(s *session.Session)
	// RunTask trains on data and returns judged results with Processor set.
	// accuracyPlot names the figure of the training decision.
	RunTask(ctx context.Context, data Dataset, seed int64, accuracyPlot string) (*algorithm.Results, error)
	PlotResults(results *algorithm.Results) error
	SaveReproducibilityData(results *algorithm.Results) error
}

// Classifier is the default Task: one optimizer call followed by a perceptron
// accuracy on the masked output.
type Classifier struct {
	Optimizer algorithm.Optimizer
	Plotter   plot.Plotter

	session *session.Session
}

// NewClassifier builds a classifier around opt. A nil plotter disables figures.
func NewClassifier(opt algorithm.Optimizer, p plot.Plotter) *Classifier {
	return &Classifier{Optimizer: opt, Plotter: p}
}

// Reset implements Task.
func (c *Classifier) Reset() {}

// InitDirs implements Task.
func (c *Classifier) InitDirs(s *session.Session) {
	c.session = s
}

// RunTask implements Task.
func (c *Classifier) RunTask(ctx context.Context, data Dataset, seed int64, accuracyPlot string) (*algorithm.Results, error) {
	if c.Optimizer == nil {
		return nil, fmt.Errorf("ring: classifier has no optimizer")
	}
	results, err := c.Optimizer.Optimize(ctx, algorithm.Problem{
		Inputs: data.Inputs,
		Target: data.Targets,
		Mask:   data.Mask,
		Seed:   seed,
	})
	if err != nil {
		return nil, err
	}
	output := results.MaskedOutput()
	target := performance.Masked(results.Targets, results.Mask)
	decision, err := performance.Perceptron(output, target)
	if err != nil {
		return nil, fmt.Errorf("ring: training accuracy: %w", err)
	}
	results.Accuracy = decision.Accuracy
	if math.IsNaN(results.Correlation) {
		results.Correlation = performance.Correlation(output, target)
	}
	if c.Plotter != nil && accuracyPlot != "" {
		if err := plotDecision(c.Plotter, "Training accuracy", accuracyPlot, output, decision); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// PlotResults draws the best output against the targets at the session root.
func (c *Classifier) PlotResults(results *algorithm.Results) error {
	if c.Plotter == nil || c.session == nil {
		return nil
	}
	return c.Plotter.Lines(plot.Figure{
		Title:  fmt.Sprintf("Best output (run %d)", results.Index),
		XLabel: "Sample",
		YLabel: "Current (nA)",
		Path:   filepath.Join(c.session.Root(), "best_output.png"),
	},
		plot.Series{Label: "output", Values: results.MaskedOutput()},
		plot.Series{Label: "target", Values: performance.Masked(results.Targets, results.Mask)},
	)
}

// SaveReproducibilityData writes the scalar results and control voltages of
// results as JSON. Metrics that do not apply are written as null.
func (c *Classifier) SaveReproducibilityData(results *algorithm.Results) error {
	if c.session == nil {
		return fmt.Errorf("ring: classifier dirs not initialized")
	}
	record := reproducibility{
		Index:           results.Index,
		Seed:            results.Seed,
		BestPerformance: jsonFloat(results.BestPerformance),
		Correlation:     jsonFloat(results.Correlation),
		Accuracy:        jsonFloat(results.Accuracy),
		TestAccuracy:    jsonFloat(results.TestAccuracy),
		AccuracyNode:    results.AccuracyNode,
		ControlVoltages: results.ControlVoltages,
		BestOutput:      results.BestOutput,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("ring: encode reproducibility data: %w", err)
	}
	path := filepath.Join(c.session.ReproducibilityDir(), ReproducibilityFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ring: write %s: %w", path, err)
	}
	return nil
}

type reproducibility struct {
	Index           int       `json:"index"`
	Seed            int64     `json:"seed"`
	BestPerformance *float64  `json:"best_performance"`
	Correlation     *float64  `json:"correlation"`
	Accuracy        *float64  `json:"accuracy"`
	TestAccuracy    *float64  `json:"test_accuracy"`
	AccuracyNode    string    `json:"accuracy_node,omitempty"`
	ControlVoltages []float64 `json:"control_voltages"`
	BestOutput      []float64 `json:"best_output"`
}

func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// plotDecision scatters the output against the predicted class, with the
// decision threshold in the title.
func plotDecision(p plot.Plotter, title, path string, output []float64, d performance.Decision) error {
	classes := make([]float64, len(d.Predicted))
	for i, positive := range d.Predicted {
		if positive {
			classes[i] = 1
		}
	}
	return p.Scatter(plot.Figure{
		Title:  fmt.Sprintf("%s %.2f%% (threshold %.3f)", title, 100*d.Accuracy, d.Threshold),
		XLabel: "Output",
		YLabel: "Predicted class",
		Path:   path,
	}, output, classes)
}
