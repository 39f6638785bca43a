package gate

import (
	"fmt"
	"math"
	"strings"
)

// MaxInputs bounds the table size: n inputs give 2^(2^n) labels, so five
// inputs would already enumerate 2^32 columns.
const MaxInputs = 4

// TruthTable is the set of logical input combinations for a gate with n
// inputs, in binary counting order, together with their voltage encoding.
type TruthTable struct {
	Inputs  [][]float64
	Encoded [][]float64
}

// NewTruthTable enumerates the 2^n input rows, encoding logical 0 as low and
// logical 1 as high.
func NewTruthTable(n int, low, high float64) (TruthTable, error) {
	if n < 1 || n > MaxInputs {
		return TruthTable{}, fmt.Errorf("gate: inputs must be within [1, %d], got %d", MaxInputs, n)
	}
	rows := 1 << n
	table := TruthTable{Inputs: make([][]float64, rows), Encoded: make([][]float64, rows)}
	for r := 0; r < rows; r++ {
		logical := make([]float64, n)
		encoded := make([]float64, n)
		for bit := 0; bit < n; bit++ {
			// Most significant input first: row 1 of a 2-input table is [0 1].
			if r&(1<<(n-1-bit)) != 0 {
				logical[bit], encoded[bit] = 1, high
			} else {
				encoded[bit] = low
			}
		}
		table.Inputs[r] = logical
		table.Encoded[r] = encoded
	}
	return table, nil
}

// Labels returns every possible output column for the table, from all-zero to
// all-one. Column k has bit r of k as its value on row r (row 0 is the most
// significant bit), so the 2-input XOR column is [0 1 1 0].
func (t TruthTable) Labels() [][]float64 {
	rows := len(t.Inputs)
	count := 1 << rows
	labels := make([][]float64, count)
	for k := 0; k < count; k++ {
		label := make([]float64, rows)
		for r := 0; r < rows; r++ {
			if k&(1<<(rows-1-r)) != 0 {
				label[r] = 1
			}
		}
		labels[k] = label
	}
	return labels
}

// LabelString renders a label as its digit string, e.g. "0110".
func LabelString(label []float64) string {
	var b strings.Builder
	for _, v := range label {
		switch {
		case math.IsNaN(v):
			b.WriteByte('?')
		case v > 0.5:
			b.WriteByte('1')
		default:
			b.WriteByte('0')
		}
	}
	return b.String()
}

// GateName returns the conventional name of a 2-input label, or the digit
// string for anything else.
func GateName(label []float64) string {
	s := LabelString(label)
	if name, ok := twoInputNames[s]; ok {
		return name
	}
	return s
}

var twoInputNames = map[string]string{
	"0001": "AND",
	"0111": "OR",
	"0110": "XOR",
	"1110": "NAND",
	"1000": "NOR",
	"1001": "XNOR",
}
