// Package gate searches device configurations that reproduce boolean truth
// tables. Task evaluates one label; Finder sweeps every label of a truth table
// and records the outcome.
package gate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kingrea/gatesearch/internal/algorithm"
	"github.com/kingrea/gatesearch/internal/config"
	"github.com/kingrea/gatesearch/internal/logging"
	"github.com/kingrea/gatesearch/internal/performance"
)

// Task decides, label by label, whether the processor can realize a gate.
type Task struct {
	core   labelCore
	logger *zap.Logger
}

// New builds a task around opt. The evaluation path is fixed here from the
// configured algorithm and platform.
func New(cfg *config.Config, opt algorithm.Optimizer, logger *zap.Logger) (*Task, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gate: config is required")
	}
	if opt == nil {
		return nil, fmt.Errorf("gate: optimizer is required")
	}
	var core labelCore = arrayCore{optimizer: opt}
	if cfg.UsesTensorPath() {
		core = tensorCore{arrayCore{optimizer: opt}}
	}
	return &Task{core: core, logger: logging.OrNop(logger)}, nil
}

// FindLabel evaluates one truth-table column. A constant label is not
// optimized: it comes back as a not-applicable placeholder marked found.
// Otherwise the label is found when the perceptron accuracy on the masked
// output reaches threshold.
func (t *Task) FindLabel(ctx context.Context, encodedInputs [][]float64, label, encodedLabel []float64, mask []bool, threshold float64) (*algorithm.Results, error) {
	var (
		results *algorithm.Results
		err     error
	)
	if performance.Unique(label) == 1 {
		t.logger.Info("label ignored", zap.Float64s("label", label))
		results = t.core.ignore(encodedLabel)
	} else {
		results, err = t.core.find(ctx, encodedInputs, encodedLabel, mask)
		if err != nil {
			return nil, fmt.Errorf("gate: label %s: %w", LabelString(label), err)
		}
		results.Found = results.Accuracy >= threshold
	}
	results.Label = append([]float64(nil), label...)
	return results, nil
}

// labelCore is the evaluation strategy. Both implementations return the same
// Results contract.
type labelCore interface {
	find(ctx context.Context, encodedInputs [][]float64, encodedLabel []float64, mask []bool) (*algorithm.Results, error)
	ignore(encodedLabel []float64) *algorithm.Results
}

// arrayCore scores the optimizer's best output with the perceptron only.
type arrayCore struct {
	optimizer algorithm.Optimizer
}

func (c arrayCore) find(ctx context.Context, encodedInputs [][]float64, encodedLabel []float64, mask []bool) (*algorithm.Results, error) {
	results, err := c.optimizer.Optimize(ctx, algorithm.Problem{
		Inputs: encodedInputs,
		Target: encodedLabel,
		Mask:   mask,
	})
	if err != nil {
		return nil, err
	}
	accuracy, err := performance.Accuracy(results.MaskedOutput(), performance.Masked(encodedLabel, results.Mask))
	if err != nil {
		return nil, err
	}
	results.Accuracy = accuracy
	results.EncodedLabel = append([]float64(nil), encodedLabel...)
	return results, nil
}

func (c arrayCore) ignore(encodedLabel []float64) *algorithm.Results {
	results := algorithm.NotApplicable()
	results.EncodedLabel = append([]float64(nil), encodedLabel...)
	return results
}

// tensorCore is used on the differentiable simulation path, where the
// optimizer also exposes its internal targets; the correlation between the
// masked output and those targets is reported alongside the accuracy.
type tensorCore struct {
	arrayCore
}

func (c tensorCore) find(ctx context.Context, encodedInputs [][]float64, encodedLabel []float64, mask []bool) (*algorithm.Results, error) {
	results, err := c.arrayCore.find(ctx, encodedInputs, encodedLabel, mask)
	if err != nil {
		return nil, err
	}
	results.Correlation = performance.Correlation(results.MaskedOutput(), performance.Masked(results.Targets, results.Mask))
	return results, nil
}
