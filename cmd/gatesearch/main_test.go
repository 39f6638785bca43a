package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/gatesearch/internal/archive"
	"github.com/kingrea/gatesearch/internal/config"
)

// resetFlags restores every flag to its default so one Execute does not leak
// into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func run(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(args...)
	require.NoError(t, err, out)
	return out
}

// processorScript reproduces every target exactly and reads the first input
// as its forward output. Performance depends on the seed only.
const processorScript = `package main

func Optimize(algorithm string, hyperparameters map[string]any, inputs [][]float64, target []float64, mask []bool, seed int64) (map[string]any, error) {
	out := make([]float64, len(target))
	copy(out, target)
	return map[string]any{
		"best_output":      out,
		"best_performance": float64(seed%1000) / 1000,
		"control_voltages": []float64{0.1, -0.2},
	}, nil
}

func Forward(inputs [][]float64, controlVoltages []float64) ([]float64, error) {
	out := make([]float64, len(inputs))
	for i, in := range inputs {
		out[i] = in[0]
	}
	return out, nil
}
`

// scriptWorkspace writes a config using the script backend, the script and
// a ring dataset for gap 0.5, and returns the config path.
func scriptWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "processor.go"), []byte(processorScript), 0o644))
	doc := `algorithm: genetic
results_base_dir: results
runs: 3
seed: 11
processor:
  platform: simulation
  backend: script
  script: processor.go
ring_data:
  gap: 0.5
  data_dir: data
gate:
  inputs: 2
`
	path := filepath.Join(dir, config.DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	require.NoError(t, archive.Write(filepath.Join(dir, "data", "ring_0.5mV_train.npz"),
		archive.Matrix("inputs", [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}),
		archive.Floats("targets", []float64{0, 0, 1, 1}),
		archive.Bools("mask", []bool{true, true, true, true}),
	))
	require.NoError(t, archive.Write(filepath.Join(dir, "data", "ring_0.5mV_test.npz"),
		archive.Matrix("inputs", [][]float64{{0.1, 0}, {0.9, 1}, {0.2, 0}, {1, 0.8}}),
		archive.Floats("targets", []float64{0, 1, 0, 1}),
		archive.Bools("mask", []bool{true, true, true, true}),
	))
	return path
}

// lineValue returns the text after prefix on the first output line holding it.
func lineValue(t *testing.T, out, prefix string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if i := strings.Index(line, prefix); i >= 0 {
			return strings.TrimSpace(line[i+len(prefix):])
		}
	}
	t.Fatalf("output has no %q:\n%s", prefix, out)
	return ""
}

func TestRingRunsScriptBackendEndToEnd(t *testing.T) {
	cfgPath := scriptWorkspace(t)
	out := execute(t, "ring", "--config", cfgPath)
	assert.Contains(t, out, "train 100.00%, test 100.00%")

	archivePath := lineValue(t, out, "archive: ")
	assert.Equal(t, "search_data_3_runs.npz", filepath.Base(archivePath))
	r, err := archive.Open(archivePath)
	require.NoError(t, err)
	defer r.Close()

	seeds, err := r.Ints("seed")
	require.NoError(t, err)
	require.Len(t, seeds, 3)
	perf, err := r.Floats("performance")
	require.NoError(t, err)
	for i, seed := range seeds {
		assert.Equal(t, float64(seed%1000)/1000, perf[i])
	}
	assert.True(t, r.Has("mask_test"))

	out = execute(t, "inspect", archivePath, "--field", "seed")
	assert.Len(t, strings.Fields(out), 3)
}

func TestRingRejectsInvalidOverrides(t *testing.T) {
	cfgPath := scriptWorkspace(t)
	_, err := run("ring", "--config", cfgPath, "--runs", "0")
	assert.ErrorContains(t, err, "runs must be >= 1")
	_, err = run("ring", "--config", cfgPath, "--gap", "-1")
	assert.ErrorContains(t, err, "ring_data.gap")
}

func TestGateSweepsAndShowsSession(t *testing.T) {
	cfgPath := scriptWorkspace(t)
	out := execute(t, "gate", "--config", cfgPath, "--no-plots")
	assert.Contains(t, out, "found 16/16 labels")
	assert.Contains(t, out, "XOR")

	session := lineValue(t, out, "session ")
	require.NotEmpty(t, session)
	out = execute(t, "gate", "--config", cfgPath, "--session", session)
	assert.Contains(t, out, "found 16/16 labels, session "+session)
	assert.Contains(t, out, "NAND")

	_, err := run("gate", "--config", cfgPath, "--session", "unknown")
	assert.ErrorContains(t, err, "no stored results")
}

func TestGateRejectsInvalidOverrides(t *testing.T) {
	cfgPath := scriptWorkspace(t)
	for _, args := range [][]string{
		{"--inputs", "5"},
		{"--inputs", "6"},
		{"--inputs", "0"},
		{"--threshold", "1.5"},
	} {
		_, err := run(append([]string{"gate", "--config", cfgPath}, args...)...)
		assert.Error(t, err, args)
	}
}

func TestInitAppliesAndSavesFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultFileName)
	script := filepath.Join(dir, "processor.go")
	require.NoError(t, os.WriteFile(script, []byte(processorScript), 0o644))

	execute(t, "init", "--config", path, "--algorithm", "genetic", "--backend", "script", "--script", script)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.AlgorithmGenetic, cfg.Algorithm)
	assert.Equal(t, config.BackendScript, cfg.Processor.Backend)
	assert.Equal(t, script, cfg.Processor.Script)

	_, err = run("init", "--config", path, "--backend", "script", "--script", "")
	assert.Error(t, err)
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", config.DefaultFileName)
	out := execute(t, "init", "--config", path)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.AlgorithmGradientDescent, cfg.Algorithm)
}

func TestInspectListsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search_data_2_runs.npz")
	require.NoError(t, archive.Write(path,
		archive.Floats("performance", []float64{0.5, 0.25}),
		archive.Matrix("outputs", [][]float64{{1, 2, 3}, {4, 5, 6}}),
	))

	out := execute(t, "inspect", path)
	assert.Contains(t, out, "performance")
	assert.Contains(t, out, "(2, 3)")
	assert.Contains(t, out, "best run 1: performance 0.25")

	out = execute(t, "inspect", path, "--field", "performance")
	assert.Equal(t, "0.5 0.25", strings.TrimSpace(out))
}

func TestInspectPrintsSeedsExactly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search_data_1_runs.npz")
	require.NoError(t, archive.Write(path, archive.Ints("seed", []int64{8475284246537043955})))
	out := execute(t, "inspect", path, "--field", "seed")
	assert.Equal(t, "8475284246537043955", strings.TrimSpace(out))
}

func TestInspectMissingArchive(t *testing.T) {
	_, err := run("inspect", filepath.Join(t.TempDir(), "missing.npz"))
	assert.Error(t, err)
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "n/a", formatMetric(math.NaN()))
	assert.Equal(t, "0.75", formatMetric(0.75))
}
