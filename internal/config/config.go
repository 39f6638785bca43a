// internal/config/config.go
//
// This package loads the experiment configuration document. A single YAML
// file describes which algorithm to run, which processor backend executes
// it, how many seeded runs a search performs and where results land.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileName is looked up in the working directory when no --config is given.
	DefaultFileName = "gatesearch.yaml"

	// ResultsDirEnv overrides results_base_dir when set.
	ResultsDirEnv = "GATESEARCH_RESULTS_DIR"

	defaultResultsDir = "results"
	defaultThreshold  = 0.9
	defaultDatabase   = "gates.db"
	defaultDataDir    = "data"
	defaultGateInputs = 2
	defaultInputLow   = -1.2
	defaultInputHigh  = 0.6
	maxGateInputs     = 4
)

// Algorithm identifiers understood by the algorithm registry.
const (
	AlgorithmGradientDescent = "gradient_descent"
	AlgorithmGenetic         = "genetic"
)

// Processor platforms.
const (
	PlatformSimulation = "simulation"
	PlatformHardware   = "hardware"
)

// Processor backends.
const (
	BackendCommand = "command"
	BackendScript  = "script"
)

const defaultConfigYAML = `# gatesearch experiment configuration
algorithm: gradient_descent
results_base_dir: results
runs: 10
seed: 0
show_plots: false
threshold: 0.9

processor:
  platform: simulation
  # backend: command runs an external bridge speaking JSON on stdin/stdout.
  # backend: script interprets a Go file defining Optimize and Forward.
  backend: command
  command: ["python3", "processor_bridge.py"]

algorithm_configs:
  hyperparameters:
    epochs: 100

ring_data:
  gap: 0.00625
  generate_data: false
  data_dir: data

gate:
  database: gates.db
  inputs: 2
  input_low: -1.2
  input_high: 0.6
`

// ProcessorConfig selects the device/simulation backend.
type ProcessorConfig struct {
	Platform string   `yaml:"platform"`
	Backend  string   `yaml:"backend"`
	Command  []string `yaml:"command,omitempty"`
	Script   string   `yaml:"script,omitempty"`

	// PluginDir holds extra algorithms as Go scripts, one per file.
	PluginDir string `yaml:"plugin_dir,omitempty"`
}

// AlgorithmConfig carries opaque hyperparameters forwarded to the optimizer.
type AlgorithmConfig struct {
	Hyperparameters map[string]any `yaml:"hyperparameters,omitempty"`
}

// RingData configures the ring classification dataset.
type RingData struct {
	Gap          float64 `yaml:"gap"`
	GenerateData bool    `yaml:"generate_data"`
	DataDir      string  `yaml:"data_dir"`
}

// GateConfig configures the boolean gate sweep. Logical 0 and 1 inputs are
// applied as InputLow and InputHigh volts.
type GateConfig struct {
	Database  string  `yaml:"database"`
	Inputs    int     `yaml:"inputs"`
	InputLow  float64 `yaml:"input_low"`
	InputHigh float64 `yaml:"input_high"`
}

// Config models the experiment document.
type Config struct {
	Algorithm        string          `yaml:"algorithm"`
	ResultsBaseDir   string          `yaml:"results_base_dir"`
	Runs             int             `yaml:"runs"`
	Seed             int64           `yaml:"seed"`
	ShowPlots        bool            `yaml:"show_plots"`
	Threshold        float64         `yaml:"threshold"`
	Processor        ProcessorConfig `yaml:"processor"`
	AlgorithmConfigs AlgorithmConfig `yaml:"algorithm_configs"`
	RingData         RingData        `yaml:"ring_data"`
	Gate             GateConfig      `yaml:"gate"`

	// Path is the file this config was loaded from, if any.
	Path string `yaml:"-"`
}

// presence records which keys with a meaningful zero value the document
// sets, so an explicit 0 is not mistaken for a missing key.
type presence struct {
	Runs      *int     `yaml:"runs"`
	Threshold *float64 `yaml:"threshold"`
	Gate      struct {
		Inputs    *int     `yaml:"inputs"`
		InputLow  *float64 `yaml:"input_low"`
		InputHigh *float64 `yaml:"input_high"`
	} `yaml:"gate"`
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	var set presence
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	cfg.applyDefaults(set)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := decode([]byte(defaultConfigYAML))
	if err != nil {
		panic(fmt.Sprintf("config: embedded default is invalid: %v", err))
	}
	return cfg
}

// Load reads and validates the config at path. Relative paths inside the
// document resolve against the directory that holds it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file does
// not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		cfg.normalize(filepath.Dir(path))
		return cfg, cfg.Validate()
	}
	return nil, err
}

// Parse decodes a YAML document. base is used to resolve relative paths.
func Parse(data []byte, base string) (*Config, error) {
	parsed, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	parsed.normalize(base)
	if err := parsed.Validate(); err != nil {
		return nil, err
	}
	return parsed, nil
}

// WriteDefault creates a starter config at path unless one already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: ensure dir: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// Save writes the config back to its Path. Paths under the config's directory
// are stored relative to it, as Load expects.
func (c *Config) Save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("config: no path to save to")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	doc := *c
	base := filepath.Dir(c.Path)
	doc.ResultsBaseDir = relativePath(base, doc.ResultsBaseDir)
	doc.RingData.DataDir = relativePath(base, doc.RingData.DataDir)
	doc.Processor.Script = relativePath(base, doc.Processor.Script)
	doc.Processor.PluginDir = relativePath(base, doc.Processor.PluginDir)
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.Path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", c.Path, err)
	}
	return nil
}

// UsesTensorPath reports whether labels are evaluated on the differentiable
// simulation path (gradient descent on a simulated processor).
func (c *Config) UsesTensorPath() bool {
	return c.Algorithm == AlgorithmGradientDescent && c.Processor.Platform == PlatformSimulation
}

// GateDatabasePath returns the sqlite file for gate sweeps.
func (c *Config) GateDatabasePath() string {
	if filepath.IsAbs(c.Gate.Database) {
		return c.Gate.Database
	}
	return filepath.Join(c.ResultsBaseDir, c.Gate.Database)
}

func (c *Config) applyDefaults(set presence) {
	if set.Runs == nil {
		c.Runs = 1
	}
	if set.Threshold == nil {
		c.Threshold = defaultThreshold
	}
	if c.ResultsBaseDir == "" {
		c.ResultsBaseDir = defaultResultsDir
	}
	if c.Processor.Platform == "" {
		c.Processor.Platform = PlatformSimulation
	}
	if c.Processor.Backend == "" {
		c.Processor.Backend = BackendCommand
	}
	if c.RingData.DataDir == "" {
		c.RingData.DataDir = defaultDataDir
	}
	if c.Gate.Database == "" {
		c.Gate.Database = defaultDatabase
	}
	if set.Gate.Inputs == nil {
		c.Gate.Inputs = defaultGateInputs
	}
	if set.Gate.InputLow == nil {
		c.Gate.InputLow = defaultInputLow
	}
	if set.Gate.InputHigh == nil {
		c.Gate.InputHigh = defaultInputHigh
	}
	if c.AlgorithmConfigs.Hyperparameters == nil {
		c.AlgorithmConfigs.Hyperparameters = map[string]any{}
	}
}

func (c *Config) normalize(base string) {
	c.Algorithm = normalizeName(c.Algorithm)
	c.Processor.Platform = normalizeName(c.Processor.Platform)
	c.Processor.Backend = normalizeName(c.Processor.Backend)
	if override := strings.TrimSpace(os.Getenv(ResultsDirEnv)); override != "" {
		c.ResultsBaseDir = override
	}
	c.ResultsBaseDir = resolvePath(base, c.ResultsBaseDir)
	c.RingData.DataDir = resolvePath(base, c.RingData.DataDir)
	c.Processor.Script = resolvePath(base, c.Processor.Script)
	c.Processor.PluginDir = resolvePath(base, c.Processor.PluginDir)
	trimmed := c.Processor.Command[:0]
	for _, arg := range c.Processor.Command {
		if arg = strings.TrimSpace(arg); arg != "" {
			trimmed = append(trimmed, arg)
		}
	}
	c.Processor.Command = trimmed
}

// Validate checks the document. Callers that override fields after loading,
// such as command-line flags, must call it again.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Algorithm {
	case AlgorithmGradientDescent, AlgorithmGenetic:
	case "":
		return fmt.Errorf("algorithm is required")
	default:
		if c.Processor.PluginDir != "" {
			// Plugin names are only known once the directory is scanned.
			break
		}
		return fmt.Errorf("algorithm must be %q or %q, got %q", AlgorithmGradientDescent, AlgorithmGenetic, c.Algorithm)
	}
	if c.Runs < 1 {
		return fmt.Errorf("runs must be >= 1")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1]")
	}
	switch c.Processor.Platform {
	case PlatformSimulation, PlatformHardware:
	default:
		return fmt.Errorf("processor.platform must be %q or %q", PlatformSimulation, PlatformHardware)
	}
	switch c.Processor.Backend {
	case BackendCommand:
		if len(c.Processor.Command) == 0 {
			return fmt.Errorf("processor.command is required for the command backend")
		}
	case BackendScript:
		if c.Processor.Script == "" {
			return fmt.Errorf("processor.script is required for the script backend")
		}
	default:
		return fmt.Errorf("processor.backend must be %q or %q", BackendCommand, BackendScript)
	}
	if c.Gate.Inputs < 1 || c.Gate.Inputs > maxGateInputs {
		return fmt.Errorf("gate.inputs must be within [1, %d]", maxGateInputs)
	}
	if c.Gate.InputLow == c.Gate.InputHigh {
		return fmt.Errorf("gate.input_low and gate.input_high must differ")
	}
	if c.RingData.Gap < 0 {
		return fmt.Errorf("ring_data.gap must be >= 0")
	}
	return nil
}

func relativePath(base, path string) string {
	if path == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func normalizeName(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) || base == "" {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
