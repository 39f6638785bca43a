package ring

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/kingrea/gatesearch/internal/archive"
)

// Dataset is one split of the ring classification problem.
type Dataset struct {
	Inputs  [][]float64
	Targets []float64
	Mask    []bool
}

// Validate checks that all three arrays line up.
func (d Dataset) Validate() error {
	if len(d.Inputs) == 0 {
		return fmt.Errorf("ring: dataset has no inputs")
	}
	if len(d.Targets) != len(d.Inputs) {
		return fmt.Errorf("ring: dataset has %d inputs but %d targets", len(d.Inputs), len(d.Targets))
	}
	if len(d.Mask) != len(d.Inputs) {
		return fmt.Errorf("ring: dataset has %d inputs but %d mask entries", len(d.Inputs), len(d.Mask))
	}
	return nil
}

// DataProvider supplies training (test=false) and held-out (test=true) data
// for a ring of the given gap.
type DataProvider interface {
	Data(ctx context.Context, gap float64, test bool) (Dataset, error)
}

// NPZLoader reads datasets from ring_<gap>mV_{train,test}.npz files holding
// "inputs" (samples x electrodes), "targets" and "mask".
type NPZLoader struct {
	Dir string
}

// Path returns the file backing a split.
func (l NPZLoader) Path(gap float64, test bool) string {
	split := "train"
	if test {
		split = "test"
	}
	name := fmt.Sprintf("ring_%smV_%s.npz", strconv.FormatFloat(gap, 'g', -1, 64), split)
	return filepath.Join(l.Dir, name)
}

// Data implements DataProvider.
func (l NPZLoader) Data(ctx context.Context, gap float64, test bool) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	path := l.Path(gap, test)
	r, err := archive.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("ring: load data: %w", err)
	}
	defer r.Close()

	inputs, err := r.Matrix("inputs")
	if err != nil {
		return Dataset{}, fmt.Errorf("ring: %s: %w", path, err)
	}
	targets, err := r.Floats("targets")
	if err != nil {
		return Dataset{}, fmt.Errorf("ring: %s: %w", path, err)
	}
	mask, err := r.Bools("mask")
	if err != nil {
		return Dataset{}, fmt.Errorf("ring: %s: %w", path, err)
	}
	d := Dataset{Inputs: archive.Rows(inputs), Targets: targets, Mask: mask}
	if err := d.Validate(); err != nil {
		return Dataset{}, fmt.Errorf("%w (%s)", err, path)
	}
	return d, nil
}
