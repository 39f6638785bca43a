// Package archive stores named numeric arrays in NumPy .npz files so search
// statistics can be inspected with the usual scientific tooling.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sbinet/npyio/npz"
	"gonum.org/v1/gonum/mat"
)

const npySuffix = ".npy"

// Field is one named array. Value must be []float64, []int64, []bool or
// *mat.Dense.
type Field struct {
	Name  string
	Value any
}

// Floats builds a vector field.
func Floats(name string, values []float64) Field {
	return Field{Name: name, Value: append([]float64(nil), values...)}
}

// Ints builds an integer vector field. Seeds need all 64 bits, which a
// float64 array cannot hold.
func Ints(name string, values []int64) Field {
	return Field{Name: name, Value: append([]int64(nil), values...)}
}

// Bools builds a boolean vector field.
func Bools(name string, values []bool) Field {
	return Field{Name: name, Value: append([]bool(nil), values...)}
}

// Matrix builds a 2-D field from rows of equal length. Empty input produces a
// 0x0 placeholder stored as an empty vector.
func Matrix(name string, rows [][]float64) Field {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Field{Name: name, Value: []float64{}}
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return Field{Name: name, Value: m}
}

// Write creates path (and its directory) and stores every field.
func Write(path string, fields ...Field) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive: ensure dir: %w", err)
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("archive: field name is required")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("archive: duplicate field %s", f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Value.(type) {
		case []float64, []int64, []bool, *mat.Dense:
		default:
			return fmt.Errorf("archive: field %s has unsupported type %T", f.Name, f.Value)
		}
	}

	w, err := npz.Create(path)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", path, err)
	}
	for _, f := range fields {
		if err := w.Write(f.Name, f.Value); err != nil {
			_ = w.Close()
			return fmt.Errorf("archive: write %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: close %s: %w", path, err)
	}
	return nil
}

// Reader gives access to an archive written by Write.
type Reader struct {
	r    *npz.Reader
	keys map[string]string
}

// Open opens an archive for reading.
func Open(path string) (*Reader, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	keys := make(map[string]string)
	for _, raw := range r.Keys() {
		keys[strings.TrimSuffix(raw, npySuffix)] = raw
	}
	return &Reader{r: r, keys: keys}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.r.Close()
}

// Keys returns the sorted field names.
func (r *Reader) Keys() []string {
	names := make([]string, 0, len(r.keys))
	for name := range r.keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the archive holds name.
func (r *Reader) Has(name string) bool {
	_, ok := r.keys[name]
	return ok
}

// Shape returns the stored dimensions of name.
func (r *Reader) Shape(name string) ([]int, error) {
	raw, ok := r.keys[name]
	if !ok {
		return nil, fmt.Errorf("archive: no field %s", name)
	}
	hdr := r.r.Header(raw)
	if hdr == nil {
		return nil, fmt.Errorf("archive: no header for %s", name)
	}
	return append([]int(nil), hdr.Descr.Shape...), nil
}

// Floats reads a vector field.
func (r *Reader) Floats(name string) ([]float64, error) {
	raw, ok := r.keys[name]
	if !ok {
		return nil, fmt.Errorf("archive: no field %s", name)
	}
	var out []float64
	if err := r.r.Read(raw, &out); err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", name, err)
	}
	return out, nil
}

// IsInt reports whether name holds 64-bit integers.
func (r *Reader) IsInt(name string) bool {
	raw, ok := r.keys[name]
	if !ok {
		return false
	}
	hdr := r.r.Header(raw)
	return hdr != nil && strings.HasSuffix(hdr.Descr.Type, "i8")
}

// Ints reads an integer vector field.
func (r *Reader) Ints(name string) ([]int64, error) {
	raw, ok := r.keys[name]
	if !ok {
		return nil, fmt.Errorf("archive: no field %s", name)
	}
	var out []int64
	if err := r.r.Read(raw, &out); err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", name, err)
	}
	return out, nil
}

// Bools reads a boolean vector field.
func (r *Reader) Bools(name string) ([]bool, error) {
	raw, ok := r.keys[name]
	if !ok {
		return nil, fmt.Errorf("archive: no field %s", name)
	}
	var out []bool
	if err := r.r.Read(raw, &out); err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", name, err)
	}
	return out, nil
}

// Matrix reads a 2-D field.
func (r *Reader) Matrix(name string) (*mat.Dense, error) {
	raw, ok := r.keys[name]
	if !ok {
		return nil, fmt.Errorf("archive: no field %s", name)
	}
	var m mat.Dense
	if err := r.r.Read(raw, &m); err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", name, err)
	}
	return &m, nil
}

// Rows converts a matrix into row slices.
func Rows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}
