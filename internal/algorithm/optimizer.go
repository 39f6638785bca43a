package algorithm

import (
	"context"
	"fmt"
	"math"
)

// Problem is one optimization request: reproduce Target from Inputs on the
// samples selected by Mask.
type Problem struct {
	Inputs [][]float64
	Target []float64
	Mask   []bool
	Seed   int64
}

// Optimizer trains a processor on a Problem. Implementations return judged
// results (see Judge).
type Optimizer interface {
	Optimize(ctx context.Context, p Problem) (*Results, error)
}

// Processor evaluates a trained device or model on new inputs.
type Processor interface {
	Forward(ctx context.Context, inputs [][]float64) ([]float64, error)
}

// Validate checks the shape of the problem.
func (p Problem) Validate() error {
	if len(p.Inputs) == 0 {
		return fmt.Errorf("algorithm: problem has no inputs")
	}
	if len(p.Target) != len(p.Inputs) {
		return fmt.Errorf("algorithm: %d inputs but %d targets", len(p.Inputs), len(p.Target))
	}
	if p.Mask != nil && len(p.Mask) != len(p.Inputs) {
		return fmt.Errorf("algorithm: mask has %d entries, want %d", len(p.Mask), len(p.Inputs))
	}
	return nil
}

// Judge completes a raw backend answer: the mask and targets fall back to the
// problem's, and the best output must line up with the target.
func Judge(r *Results, p Problem) error {
	if r == nil {
		return fmt.Errorf("algorithm: backend returned no results")
	}
	if len(r.BestOutput) != len(p.Target) {
		return fmt.Errorf("algorithm: best output has %d samples, target has %d", len(r.BestOutput), len(p.Target))
	}
	if r.Mask == nil {
		if p.Mask != nil {
			r.Mask = append([]bool(nil), p.Mask...)
		} else {
			r.Mask = make([]bool, len(p.Target))
			for i := range r.Mask {
				r.Mask[i] = true
			}
		}
	}
	if len(r.Mask) != len(r.BestOutput) {
		return fmt.Errorf("algorithm: result mask has %d entries, want %d", len(r.Mask), len(r.BestOutput))
	}
	if r.Targets == nil {
		r.Targets = append([]float64(nil), p.Target...)
	}
	if math.IsNaN(r.BestPerformance) {
		return fmt.Errorf("algorithm: best performance is NaN")
	}
	r.Seed = p.Seed
	return nil
}
