package algorithm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/gatesearch/internal/config"
)

// ScriptPlugin is a Go script found in a plugin directory.
type ScriptPlugin struct {
	Name string
	Path string
}

// DiscoverScriptPlugins lists the *.go files of dir, sorted by name. The
// algorithm name is the lower-cased file name without extension. A missing
// dir yields no plugins.
func DiscoverScriptPlugins(dir string) ([]ScriptPlugin, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("algorithm: read plugin dir %s: %w", trimmed, err)
	}
	var plugins []ScriptPlugin
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		plugins = append(plugins, ScriptPlugin{
			Name: strings.ToLower(strings.TrimSuffix(name, ".go")),
			Path: filepath.Join(trimmed, name),
		})
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	return plugins, nil
}

// RegisterScriptPlugins registers every plugin of dir. Scripts are interpreted
// lazily, when the algorithm is resolved. A plugin may not shadow a built-in.
func RegisterScriptPlugins(reg *Registry, dir string) error {
	if reg == nil {
		return nil
	}
	plugins, err := DiscoverScriptPlugins(dir)
	if err != nil {
		return err
	}
	for _, plugin := range plugins {
		name, path := plugin.Name, plugin.Path
		if err := reg.Register(name, func(cfg *config.Config) (Optimizer, error) {
			return LoadScriptOptimizer(path, name, cfg.AlgorithmConfigs.Hyperparameters)
		}); err != nil {
			return fmt.Errorf("algorithm: plugin %s: %w", path, err)
		}
	}
	return nil
}

// ResolveConfigured builds the optimizer for cfg from the built-ins and the
// plugins of cfg.Processor.PluginDir.
func ResolveConfigured(cfg *config.Config) (Optimizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("algorithm: config is required")
	}
	reg := DefaultRegistry()
	if err := RegisterScriptPlugins(reg, cfg.Processor.PluginDir); err != nil {
		return nil, err
	}
	return reg.Resolve(cfg)
}
