package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadOrDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOrDefault(filepath.Join(dir, DefaultFileName))
	if err != nil {
		t.Fatalf("LoadOrDefault returned error: %v", err)
	}
	if cfg.Runs != 10 {
		t.Fatalf("expected default runs == 10, got %d", cfg.Runs)
	}
	if cfg.Algorithm != AlgorithmGradientDescent {
		t.Fatalf("expected default algorithm %q, got %q", AlgorithmGradientDescent, cfg.Algorithm)
	}
	if !strings.HasPrefix(cfg.ResultsBaseDir, dir) {
		t.Fatalf("expected results dir under %s, got %s", dir, cfg.ResultsBaseDir)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	dir := t.TempDir()
	configYAML := strings.TrimSpace(`
algorithm: Genetic
results_base_dir: out
runs: 25
threshold: 0.75
processor:
  platform: hardware
  backend: script
  script: processors/device.go
ring_data:
  gap: 0.2
  data_dir: datasets
`)
	path := filepath.Join(dir, "experiment.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Algorithm != AlgorithmGenetic {
		t.Fatalf("algorithm not normalized: %q", cfg.Algorithm)
	}
	if cfg.Runs != 25 || cfg.Threshold != 0.75 {
		t.Fatalf("unexpected runs/threshold: %d %v", cfg.Runs, cfg.Threshold)
	}
	if cfg.Processor.Script != filepath.Join(dir, "processors", "device.go") {
		t.Fatalf("script path not resolved: %s", cfg.Processor.Script)
	}
	if cfg.RingData.DataDir != filepath.Join(dir, "datasets") {
		t.Fatalf("data dir not resolved: %s", cfg.RingData.DataDir)
	}
	if cfg.UsesTensorPath() {
		t.Fatalf("genetic on hardware must not use the tensor path")
	}
	if cfg.GateDatabasePath() != filepath.Join(dir, "out", "gates.db") {
		t.Fatalf("unexpected database path: %s", cfg.GateDatabasePath())
	}
}

func TestResultsDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ResultsDirEnv, "/tmp/override")
	cfg, err := Parse([]byte("algorithm: genetic\nprocessor:\n  command: [bridge]\n"), dir)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.ResultsBaseDir != "/tmp/override" {
		t.Fatalf("expected env override, got %s", cfg.ResultsBaseDir)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"unknown algorithm": "algorithm: annealing\nprocessor:\n  command: [bridge]\n",
		"negative runs":     "algorithm: genetic\nruns: -1\nprocessor:\n  command: [bridge]\n",
		"threshold":         "algorithm: genetic\nthreshold: 1.5\nprocessor:\n  command: [bridge]\n",
		"missing command":   "algorithm: genetic\nprocessor:\n  backend: command\n",
		"missing script":    "algorithm: genetic\nprocessor:\n  backend: script\n",
		"bad platform":      "algorithm: genetic\nprocessor:\n  platform: fpga\n  command: [bridge]\n",
		"zero runs":         "algorithm: genetic\nruns: 0\nprocessor:\n  command: [bridge]\n",
		"zero inputs":       "algorithm: genetic\nprocessor:\n  command: [bridge]\ngate:\n  inputs: 0\n",
		"too many inputs":   "algorithm: genetic\nprocessor:\n  command: [bridge]\ngate:\n  inputs: 5\n",
		"equal levels":      "algorithm: genetic\nprocessor:\n  command: [bridge]\ngate:\n  input_low: 0\n  input_high: 0\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc), t.TempDir()); err == nil {
				t.Fatalf("expected validation error but got none")
			}
		})
	}
}

func TestExplicitZeroIsKept(t *testing.T) {
	doc := "algorithm: genetic\nthreshold: 0\nprocessor:\n  command: [bridge]\ngate:\n  input_low: 0\n  input_high: 1\n"
	cfg, err := Parse([]byte(doc), t.TempDir())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Threshold != 0 {
		t.Fatalf("threshold = %v, want the explicit 0", cfg.Threshold)
	}
	if cfg.Gate.InputLow != 0 || cfg.Gate.InputHigh != 1 {
		t.Fatalf("levels = %v/%v, want 0/1", cfg.Gate.InputLow, cfg.Gate.InputHigh)
	}

	cfg, err = Parse([]byte("algorithm: genetic\nprocessor:\n  command: [bridge]\n"), t.TempDir())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Threshold != defaultThreshold || cfg.Runs != 1 || cfg.Gate.Inputs != defaultGateInputs {
		t.Fatalf("missing keys not defaulted: threshold=%v runs=%d inputs=%d", cfg.Threshold, cfg.Runs, cfg.Gate.Inputs)
	}
	if cfg.Gate.InputLow != defaultInputLow || cfg.Gate.InputHigh != defaultInputHigh {
		t.Fatalf("levels = %v/%v, want defaults", cfg.Gate.InputLow, cfg.Gate.InputHigh)
	}
}

func TestValidateCatchesOverrides(t *testing.T) {
	cfg := Default()
	cfg.Processor.Command = []string{"bridge"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.Gate.Inputs = 6
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "gate.inputs") {
		t.Fatalf("expected gate.inputs error, got %v", err)
	}
	cfg.Gate.Inputs = 2
	cfg.Threshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected threshold error")
	}
}

func TestPluginDirAllowsCustomAlgorithm(t *testing.T) {
	base := t.TempDir()
	doc := "algorithm: Annealing\nprocessor:\n  command: [bridge]\n  plugin_dir: plugins\n"
	cfg, err := Parse([]byte(doc), base)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Algorithm != "annealing" {
		t.Fatalf("algorithm = %q, want annealing", cfg.Algorithm)
	}
	if want := filepath.Join(base, "plugins"); cfg.Processor.PluginDir != want {
		t.Fatalf("plugin dir = %q, want %q", cfg.Processor.PluginDir, want)
	}
	if cfg.UsesTensorPath() {
		t.Fatalf("plugin algorithms evaluate on the array path")
	}
}

func TestWriteDefaultIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := os.WriteFile(path, []byte("algorithm: genetic\nprocessor:\n  command: [x]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault second call: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Algorithm != AlgorithmGenetic {
		t.Fatalf("existing config was overwritten")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Runs = 3
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Runs != 3 {
		t.Fatalf("expected runs == 3 after save, got %d", reloaded.Runs)
	}
	if reloaded.ResultsBaseDir != cfg.ResultsBaseDir {
		t.Fatalf("results dir moved: %s -> %s", cfg.ResultsBaseDir, reloaded.ResultsBaseDir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), filepath.Dir(path)) {
		t.Fatalf("saved config holds absolute paths:\n%s", data)
	}
}
