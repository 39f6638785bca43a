// Package performance scores device outputs against target labels.
package performance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmpty is returned when there is nothing to score.
var ErrEmpty = errors.New("performance: no samples")

// Decision is the linear separator fit by Perceptron.
type Decision struct {
	// Accuracy is the fraction (0..1) of samples classified correctly.
	Accuracy float64
	// Threshold splits the output; see Polarity for which side is positive.
	Threshold float64
	// Polarity is +1 when outputs above Threshold are class 1, -1 otherwise.
	Polarity  int
	Predicted []bool
}

// Perceptron fits the best single-feature linear separator to output and
// reports how well it reproduces target. Target values are binarized at the
// midpoint of their range.
func Perceptron(output, target []float64) (Decision, error) {
	n := len(output)
	if n == 0 {
		return Decision{}, ErrEmpty
	}
	if len(target) != n {
		return Decision{}, fmt.Errorf("performance: output has %d samples, target has %d", n, len(target))
	}
	for _, v := range output {
		if math.IsNaN(v) {
			return Decision{}, fmt.Errorf("performance: output contains NaN")
		}
	}
	classes := Binarize(target)

	sorted := append([]float64(nil), output...)
	order := make([]int, n)
	floats.Argsort(sorted, order)

	positives := 0
	for _, c := range classes {
		if c {
			positives++
		}
	}

	// Split k predicts the k lowest outputs negative. Splits only fall between
	// distinct values so ties always share a class.
	bestCorrect, bestSplit, bestPolarity := -1, 0, 1
	negBelow, posBelow := 0, 0
	for k := 0; k <= n; k++ {
		if k > 0 {
			if classes[order[k-1]] {
				posBelow++
			} else {
				negBelow++
			}
		}
		if k > 0 && k < n && sorted[k] == sorted[k-1] {
			continue
		}
		correct := negBelow + (positives - posBelow)
		if correct > bestCorrect {
			bestCorrect, bestSplit, bestPolarity = correct, k, 1
		}
		if n-correct > bestCorrect {
			bestCorrect, bestSplit, bestPolarity = n-correct, k, -1
		}
	}

	threshold := splitThreshold(sorted, bestSplit)
	predicted := make([]bool, n)
	for i, v := range output {
		above := v > threshold
		if bestPolarity > 0 {
			predicted[i] = above
		} else {
			predicted[i] = !above
		}
	}
	return Decision{
		Accuracy:  float64(bestCorrect) / float64(n),
		Threshold: threshold,
		Polarity:  bestPolarity,
		Predicted: predicted,
	}, nil
}

// Accuracy is Perceptron reduced to its accuracy.
func Accuracy(output, target []float64) (float64, error) {
	d, err := Perceptron(output, target)
	if err != nil {
		return math.NaN(), err
	}
	return d.Accuracy, nil
}

// Correlation returns the Pearson coefficient of x and y, or NaN when it is
// undefined (mismatched lengths, fewer than two samples, a constant side).
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	if stat.StdDev(x, nil) == 0 || stat.StdDev(y, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// Binarize maps values to classes by thresholding at the midpoint of their
// range. A constant input maps entirely to false.
func Binarize(values []float64) []bool {
	out := make([]bool, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := floats.Min(values), floats.Max(values)
	mid := lo + (hi-lo)/2
	for i, v := range values {
		out[i] = hi > lo && v > mid
	}
	return out
}

// Unique returns the number of distinct values, treating every NaN as equal.
func Unique(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	nan := false
	for _, v := range values {
		if math.IsNaN(v) {
			nan = true
			continue
		}
		seen[v] = struct{}{}
	}
	if nan {
		return len(seen) + 1
	}
	return len(seen)
}

// Masked selects values whose mask entry is true. A nil mask selects all.
func Masked(values []float64, mask []bool) []float64 {
	if mask == nil {
		return append([]float64(nil), values...)
	}
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if i < len(mask) && mask[i] {
			out = append(out, v)
		}
	}
	return out
}

func splitThreshold(sorted []float64, k int) float64 {
	switch {
	case k == 0:
		return sorted[0] - 1
	case k == len(sorted):
		return sorted[len(sorted)-1]
	default:
		return sorted[k-1] + (sorted[k]-sorted[k-1])/2
	}
}
