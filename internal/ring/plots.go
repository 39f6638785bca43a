package ring

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/kingrea/gatesearch/internal/plot"
	"github.com/kingrea/gatesearch/internal/session"
)

// HistogramBins is the bin count of the search histograms.
const HistogramBins = 100

// SearchPlots lists the figures written when a search closes.
var SearchPlots = []string{
	"correlation_vs_fisher",
	"train_accuracy_vs_fisher",
	"test_accuracy_vs_fisher",
	"fisher_values_histogram",
	"train_accuracy_histogram",
	"test_accuracy_histogram",
	"train_vs_test_accuracy",
	"fisher_vs_test_train_accuracy",
}

const plotExtension = "png"

func plotSearchResults(p plot.Plotter, sess *session.Session, stats *RunStats) error {
	path := func(name string) string { return sess.StatsPlotPath(name, plotExtension) }

	scatters := []struct {
		name, title, ylabel string
		y                   []float64
	}{
		{"correlation_vs_fisher", "Correlation vs Fisher", "Correlation", stats.Correlation},
		{"train_accuracy_vs_fisher", "Training accuracy vs Fisher", "Training accuracy", stats.Accuracy},
		{"test_accuracy_vs_fisher", "Test accuracy vs Fisher", "Test accuracy", stats.TestAccuracy},
	}
	for _, sc := range scatters {
		fig := plot.Figure{Title: sc.title, XLabel: "Fisher value", YLabel: sc.ylabel, Path: path(sc.name)}
		if err := p.Scatter(fig, stats.Performance, sc.y); err != nil {
			return fmt.Errorf("ring: plot %s: %w", sc.name, err)
		}
	}

	histograms := []struct {
		name, title, xlabel string
		values              []float64
	}{
		{"fisher_values_histogram", "Fisher values", "Fisher value", stats.Performance},
		{"train_accuracy_histogram", "Training accuracy", "Accuracy", stats.Accuracy},
		{"test_accuracy_histogram", "Test accuracy", "Accuracy", stats.TestAccuracy},
	}
	for _, h := range histograms {
		fig := plot.Figure{Title: h.title, XLabel: h.xlabel, YLabel: "Counts", Path: path(h.name)}
		if err := p.Histogram(fig, h.values, HistogramBins); err != nil {
			return fmt.Errorf("ring: plot %s: %w", h.name, err)
		}
	}

	// Runs sorted by training accuracy; the title carries the best test run.
	order := argsort(stats.Accuracy)
	bestTest := floats.MaxIdx(stats.TestAccuracy)
	if err := p.Lines(plot.Figure{
		Title: fmt.Sprintf("Train %.2f / Test %.2f (run %d)",
			stats.Accuracy[bestTest], stats.TestAccuracy[bestTest], bestTest),
		XLabel: "Run (sorted by training accuracy)",
		YLabel: "Accuracy",
		Path:   path("train_vs_test_accuracy"),
	},
		plot.Series{Label: "train", Values: pick(stats.Accuracy, order)},
		plot.Series{Label: "test", Values: pick(stats.TestAccuracy, order)},
	); err != nil {
		return fmt.Errorf("ring: plot train_vs_test_accuracy: %w", err)
	}

	order = argsort(stats.Performance)
	maxFisher := floats.MaxIdx(stats.Performance)
	if err := p.Lines(plot.Figure{
		Title: fmt.Sprintf("Max Fisher %.3g: train %.2f / test %.2f",
			stats.Performance[maxFisher], stats.Accuracy[maxFisher], stats.TestAccuracy[maxFisher]),
		XLabel: "Run (sorted by Fisher value)",
		YLabel: "Value",
		Path:   path("fisher_vs_test_train_accuracy"),
	},
		plot.Series{Label: "fisher", Values: pick(stats.Performance, order)},
		plot.Series{Label: "train", Values: pick(stats.Accuracy, order)},
		plot.Series{Label: "test", Values: pick(stats.TestAccuracy, order)},
	); err != nil {
		return fmt.Errorf("ring: plot fisher_vs_test_train_accuracy: %w", err)
	}
	return nil
}

func argsort(values []float64) []int {
	sorted := append([]float64(nil), values...)
	order := make([]int, len(values))
	floats.Argsort(sorted, order)
	return order
}

func pick(values []float64, order []int) []float64 {
	out := make([]float64, len(order))
	for i, idx := range order {
		out[i] = values[idx]
	}
	return out
}
