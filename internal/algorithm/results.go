// Package algorithm is the facade over external optimization algorithms and
// the processors (hardware or simulated) they train. Nothing here optimizes
// anything itself: backends forward problems to an external bridge process or
// an interpreted Go script and translate the answer into a Results bundle.
package algorithm

import (
	"math"

	"github.com/kingrea/gatesearch/internal/performance"
)

// Results is the bundle produced for every evaluation. Numeric fields that do
// not apply (a skipped label, a metric the backend did not report) hold NaN.
type Results struct {
	BestOutput      []float64
	BestPerformance float64
	Accuracy        float64
	Correlation     float64
	Found           bool

	Label        []float64
	EncodedLabel []float64
	Mask         []bool
	Targets      []float64

	ControlVoltages []float64
	AccuracyNode    string
	Seed            int64
	Index           int

	TestAccuracy float64
	TestInputs   [][]float64
	TestTargets  []float64
	TestMask     []bool

	// Processor is the trained model snapshot; used to validate on held-out data.
	Processor Processor
}

// NotApplicable returns the placeholder bundle used for labels that were not
// optimized. It is marked found.
func NotApplicable() *Results {
	nan := math.NaN()
	return &Results{
		BestPerformance: nan,
		Accuracy:        nan,
		Correlation:     nan,
		TestAccuracy:    nan,
		Found:           true,
		Index:           -1,
	}
}

// Applicable reports whether the numeric fields carry values.
func (r *Results) Applicable() bool {
	return r != nil && !math.IsNaN(r.BestPerformance)
}

// MaskedOutput returns the best output restricted to the mask.
func (r *Results) MaskedOutput() []float64 {
	return performance.Masked(r.BestOutput, r.Mask)
}
