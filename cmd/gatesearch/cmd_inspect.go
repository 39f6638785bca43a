package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kingrea/gatesearch/internal/archive"
	"github.com/kingrea/gatesearch/internal/ring"
)

var inspectField string

var inspectCmd = &cobra.Command{
	Use:   "inspect <archive.npz>",
	Short: "List the arrays stored in a search archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectField, "field", "", "Print the values of one vector field")
}

func runInspect(cmd *cobra.Command, args []string) error {
	r, err := archive.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	out := cmd.OutOrStdout()
	if inspectField != "" {
		parts, err := fieldValues(r, inspectField)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FIELD", "SHAPE")
	for _, name := range r.Keys() {
		shape, err := r.Shape(name)
		if err != nil {
			return err
		}
		dims := make([]string, len(shape))
		for i, d := range shape {
			dims[i] = strconv.Itoa(d)
		}
		t.Row(name, "("+strings.Join(dims, ", ")+")")
	}
	fmt.Fprintln(out, t.String())

	if r.Has("performance") {
		perf, err := r.Floats("performance")
		if err != nil {
			return err
		}
		if best := ring.BestIndex(perf); best >= 0 {
			fmt.Fprintf(out, "best run %d: performance %s\n", best, formatMetric(perf[best]))
		}
	}
	return nil
}

func fieldValues(r *archive.Reader, name string) ([]string, error) {
	if r.IsInt(name) {
		values, err := r.Ints(name)
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = strconv.FormatInt(v, 10)
		}
		return parts, nil
	}
	values, err := r.Floats(name)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatMetric(v)
	}
	return parts, nil
}

// formatMetric renders NaN as "n/a".
func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}
