package ring

import (
	"fmt"
	"math"

	"github.com/kingrea/gatesearch/internal/algorithm"
)

// RunStats holds one entry per run of a search. Every slice is allocated at
// full length when the search starts and filled in run order.
type RunStats struct {
	Performance     []float64
	Correlation     []float64
	Accuracy        []float64
	TestAccuracy    []float64
	Seeds           []int64
	Outputs         [][]float64
	ControlVoltages [][]float64

	outputLen int
	recorded  []bool
}

// NewRunStats allocates statistics for runs runs of outputLen samples each.
func NewRunStats(runs, outputLen int) *RunStats {
	s := &RunStats{
		Performance:     filled(runs),
		Correlation:     filled(runs),
		Accuracy:        filled(runs),
		TestAccuracy:    filled(runs),
		Seeds:           make([]int64, runs),
		Outputs:         make([][]float64, runs),
		ControlVoltages: make([][]float64, runs),
		outputLen:       outputLen,
		recorded:        make([]bool, runs),
	}
	for i := range s.Outputs {
		s.Outputs[i] = make([]float64, outputLen)
	}
	return s
}

// Len returns the configured run count.
func (s *RunStats) Len() int {
	return len(s.recorded)
}

// Record stores the results of run.
func (s *RunStats) Record(run int, r *algorithm.Results) error {
	if run < 0 || run >= s.Len() {
		return fmt.Errorf("ring: run %d out of range [0, %d)", run, s.Len())
	}
	if len(r.BestOutput) != s.outputLen {
		return fmt.Errorf("ring: run %d produced %d outputs, want %d", run, len(r.BestOutput), s.outputLen)
	}
	s.Performance[run] = r.BestPerformance
	s.Correlation[run] = r.Correlation
	s.Accuracy[run] = r.Accuracy
	s.TestAccuracy[run] = r.TestAccuracy
	s.Seeds[run] = r.Seed
	copy(s.Outputs[run], r.BestOutput)
	s.ControlVoltages[run] = append([]float64(nil), r.ControlVoltages...)
	s.recorded[run] = true
	return nil
}

// Complete reports whether every run has been recorded.
func (s *RunStats) Complete() bool {
	for _, ok := range s.recorded {
		if !ok {
			return false
		}
	}
	return true
}

// ControlVoltageMatrix returns the control voltages as a runs x k matrix when
// every run reported k > 0 voltages, and false otherwise.
func (s *RunStats) ControlVoltageMatrix() ([][]float64, bool) {
	if len(s.ControlVoltages) == 0 {
		return nil, false
	}
	k := len(s.ControlVoltages[0])
	if k == 0 {
		return nil, false
	}
	for _, row := range s.ControlVoltages {
		if len(row) != k {
			return nil, false
		}
	}
	return s.ControlVoltages, true
}

func filled(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// BestIndex returns the run with the lowest performance, or -1 when every
// entry is NaN. Ties go to the earlier run.
func BestIndex(values []float64) int {
	best := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v < values[best] {
			best = i
		}
	}
	return best
}
