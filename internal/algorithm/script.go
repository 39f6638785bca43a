package algorithm

import (
	"context"
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const (
	scriptOptimizeFunc = "Optimize"
	scriptForwardFunc  = "Forward"
)

type (
	scriptOptimize func(algorithm string, hyperparameters map[string]any, inputs [][]float64, target []float64, mask []bool, seed int64) (map[string]any, error)
	scriptForward  func(inputs [][]float64, controlVoltages []float64) ([]float64, error)
)

// ScriptOptimizer runs an interpreted Go file as the processor backend. The
// file must declare, in package main:
//
//	func Optimize(algorithm string, hyperparameters map[string]any, inputs [][]float64, target []float64, mask []bool, seed int64) (map[string]any, error)
//	func Forward(inputs [][]float64, controlVoltages []float64) ([]float64, error)
//
// Optimize receives the configured algorithm name and hyperparameters, as the
// command bridge does, and answers with the same keys (best_output,
// best_performance, correlation, control_voltages, mask, ...).
type ScriptOptimizer struct {
	path            string
	algorithm       string
	hyperparameters map[string]any
	optimize        scriptOptimize
	forward         scriptForward
}

// LoadScriptOptimizer interprets the file at path. algorithmName and hyper
// are passed to every Optimize call.
func LoadScriptOptimizer(path, algorithmName string, hyper map[string]any) (*ScriptOptimizer, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("algorithm: read script %s: %w", path, err)
	}
	return NewScriptOptimizer(path, string(code), algorithmName, hyper)
}

// NewScriptOptimizer interprets source; name is only used in error messages.
func NewScriptOptimizer(name, source, algorithmName string, hyper map[string]any) (*ScriptOptimizer, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("algorithm: script %s is empty", name)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("algorithm: load stdlib symbols: %w", err)
	}
	if _, err := i.Eval(source); err != nil {
		return nil, fmt.Errorf("algorithm: interpret %s: %w", name, err)
	}
	optValue, err := i.Eval(scriptOptimizeFunc)
	if err != nil {
		return nil, fmt.Errorf("algorithm: %s must define %s: %w", name, scriptOptimizeFunc, err)
	}
	fwdValue, err := i.Eval(scriptForwardFunc)
	if err != nil {
		return nil, fmt.Errorf("algorithm: %s must define %s: %w", name, scriptForwardFunc, err)
	}
	optimize, ok := funcValue(optValue).(func(string, map[string]any, [][]float64, []float64, []bool, int64) (map[string]any, error))
	if !ok {
		return nil, fmt.Errorf("algorithm: %s: %s has the wrong signature", name, scriptOptimizeFunc)
	}
	forward, ok := funcValue(fwdValue).(func([][]float64, []float64) ([]float64, error))
	if !ok {
		return nil, fmt.Errorf("algorithm: %s: %s has the wrong signature", name, scriptForwardFunc)
	}
	if hyper == nil {
		hyper = map[string]any{}
	}
	return &ScriptOptimizer{
		path:            name,
		algorithm:       algorithmName,
		hyperparameters: hyper,
		optimize:        optimize,
		forward:         forward,
	}, nil
}

// Optimize implements Optimizer.
func (s *ScriptOptimizer) Optimize(ctx context.Context, p Problem) (*Results, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := s.optimize(s.algorithm, s.hyperparameters, p.Inputs, p.Target, p.Mask, p.Seed)
	if err != nil {
		return nil, fmt.Errorf("algorithm: %s: %w", s.path, err)
	}
	results, err := resultsFromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("algorithm: %s: %w", s.path, err)
	}
	results.Processor = &scriptProcessor{forward: s.forward, controlVoltages: results.ControlVoltages}
	if err := Judge(results, p); err != nil {
		return nil, err
	}
	return results, nil
}

type scriptProcessor struct {
	forward         scriptForward
	controlVoltages []float64
}

func (sp *scriptProcessor) Forward(ctx context.Context, inputs [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := sp.forward(inputs, sp.controlVoltages)
	if err != nil {
		return nil, fmt.Errorf("algorithm: forward: %w", err)
	}
	if len(out) != len(inputs) {
		return nil, fmt.Errorf("algorithm: forward returned %d samples for %d inputs", len(out), len(inputs))
	}
	return out, nil
}

func funcValue(v reflect.Value) any {
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil
	}
	return v.Interface()
}

func resultsFromMap(raw map[string]any) (*Results, error) {
	if raw == nil {
		return nil, fmt.Errorf("optimize returned no results")
	}
	perf, ok := floatValue(raw["best_performance"])
	if !ok {
		return nil, fmt.Errorf("best_performance is missing or not a number")
	}
	output, ok := floatSlice(raw["best_output"])
	if !ok {
		return nil, fmt.Errorf("best_output is missing or not a number list")
	}
	results := &Results{
		BestOutput:      output,
		BestPerformance: perf,
		Accuracy:        math.NaN(),
		Correlation:     math.NaN(),
		TestAccuracy:    math.NaN(),
	}
	if corr, ok := floatValue(raw["correlation"]); ok {
		results.Correlation = corr
	}
	if cv, ok := floatSlice(raw["control_voltages"]); ok {
		results.ControlVoltages = cv
	}
	if targets, ok := floatSlice(raw["targets"]); ok {
		results.Targets = targets
	}
	if mask, ok := raw["mask"].([]bool); ok {
		results.Mask = mask
	}
	if node, ok := raw["accuracy_node"].(string); ok {
		results.AccuracyNode = node
	}
	return results, nil
}

func floatValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func floatSlice(value any) ([]float64, bool) {
	switch v := value.(type) {
	case []float64:
		return append([]float64(nil), v...), true
	case []any:
		out := make([]float64, len(v))
		for i, item := range v {
			f, ok := floatValue(item)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}
