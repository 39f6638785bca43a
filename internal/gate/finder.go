package gate

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kingrea/gatesearch/internal/algorithm"
	"github.com/kingrea/gatesearch/internal/logbook"
	"github.com/kingrea/gatesearch/internal/logging"
	"github.com/kingrea/gatesearch/internal/performance"
	"github.com/kingrea/gatesearch/internal/plot"
)

// Summary is the outcome of a full truth-table sweep.
type Summary struct {
	SessionID string
	Results   []*algorithm.Results
	Found     int
	Total     int
}

// Capacity is the fraction of labels realized.
func (s Summary) Capacity() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Found) / float64(s.Total)
}

// Finder sweeps every label of a truth table through a Task.
type Finder struct {
	Task      *Task
	Store     *Store
	Plotter   plot.Plotter
	Logbook   *logbook.Logbook
	Logger    *zap.Logger
	PlotDir   string
	Threshold float64
}

// FindGates evaluates all labels of table. Nothing is retried; the first
// failing label aborts the sweep.
func (f *Finder) FindGates(ctx context.Context, table TruthTable) (Summary, error) {
	if f.Task == nil {
		return Summary{}, fmt.Errorf("gate: finder has no task")
	}
	logger := logging.OrNop(f.Logger)
	summary := Summary{}
	if f.Store != nil {
		summary.SessionID = f.Store.NewSessionID()
	}
	mask := make([]bool, len(table.Encoded))
	for i := range mask {
		mask[i] = true
	}

	for _, label := range table.Labels() {
		name := GateName(label)
		results, err := f.Task.FindLabel(ctx, table.Encoded, label, label, mask, f.Threshold)
		if err != nil {
			f.Logbook.Error("gate %s failed: %v", name, err)
			return summary, err
		}
		summary.Results = append(summary.Results, results)
		summary.Total++
		if results.Found {
			summary.Found++
		}
		logger.Info("gate evaluated",
			zap.String("gate", name),
			zap.Bool("found", results.Found),
			zap.Float64("accuracy", results.Accuracy),
			zap.Float64("performance", results.BestPerformance),
		)
		switch {
		case !results.Applicable():
			f.Logbook.Info("gate %s ignored: constant label", name)
		case results.Found:
			f.Logbook.Info("gate %s found: accuracy %.3f", name, results.Accuracy)
		default:
			f.Logbook.Warn("gate %s not found: accuracy %.3f below %.2f", name, results.Accuracy, f.Threshold)
		}

		if f.Store != nil {
			if err := f.Store.Record(ctx, summary.SessionID, results); err != nil {
				return summary, err
			}
		}
		if f.Plotter != nil && f.PlotDir != "" && results.Applicable() {
			path := filepath.Join(f.PlotDir, fmt.Sprintf("gate_%s.png", LabelString(label)))
			if err := PlotGate(f.Plotter, results, path); err != nil {
				return summary, err
			}
		}
	}
	logger.Info("gate sweep finished",
		zap.Int("found", summary.Found),
		zap.Int("total", summary.Total),
		zap.Float64("capacity", summary.Capacity()),
	)
	return summary, nil
}

// PlotGate draws the masked best output against the encoded label.
func PlotGate(p plot.Plotter, results *algorithm.Results, path string) error {
	return p.Lines(plot.Figure{
		Title:  fmt.Sprintf("Gate %s", GateName(results.Label)),
		XLabel: "Time",
		YLabel: "Current (nA)",
		Path:   path,
	},
		plot.Series{Label: "output", Values: results.MaskedOutput()},
		plot.Series{Label: "target", Values: performance.Masked(results.EncodedLabel, results.Mask)},
	)
}
