package algorithm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kingrea/gatesearch/internal/config"
)

// Factory constructs an optimizer from the experiment configuration.
type Factory func(*config.Config) (Optimizer, error)

// Registry maintains known algorithm factories keyed by algorithm name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry returns a registry with the built-in algorithms installed.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	return reg
}

// RegisterBuiltins installs gradient descent and genetic search. Both are
// executed by the configured processor backend, which receives the algorithm
// name and hyperparameters with every optimization.
func RegisterBuiltins(reg *Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(config.AlgorithmGradientDescent, backendFactory(config.AlgorithmGradientDescent))
	reg.MustRegister(config.AlgorithmGenetic, backendFactory(config.AlgorithmGenetic))
}

// Register installs a factory. Returns an error if the name already exists.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("algorithm: name is required")
	}
	if factory == nil {
		return fmt.Errorf("algorithm: factory is required for %s", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("algorithm: %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Resolve constructs the optimizer named by cfg.Algorithm.
func (r *Registry) Resolve(cfg *config.Config) (Optimizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("algorithm: config is required")
	}
	r.mu.RLock()
	factory, ok := r.factories[cfg.Algorithm]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("algorithm: unknown algorithm %q (registered: %s)", cfg.Algorithm, strings.Join(r.Names(), ", "))
	}
	return factory(cfg)
}

// Names returns the sorted registered algorithm names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func backendFactory(algorithmName string) Factory {
	return func(cfg *config.Config) (Optimizer, error) {
		switch cfg.Processor.Backend {
		case config.BackendCommand:
			return NewCommandOptimizer(algorithmName, cfg.Processor, cfg.AlgorithmConfigs.Hyperparameters)
		case config.BackendScript:
			return LoadScriptOptimizer(cfg.Processor.Script, algorithmName, cfg.AlgorithmConfigs.Hyperparameters)
		default:
			return nil, fmt.Errorf("algorithm: unsupported processor backend %q", cfg.Processor.Backend)
		}
	}
}
