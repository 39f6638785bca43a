package algorithm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"github.com/kingrea/gatesearch/internal/config"
)

// Bridge operations understood by an external processor command.
const (
	opOptimize = "optimize"
	opForward  = "forward"
)

// bridgeRequest is written as a single JSON document to the command's stdin.
type bridgeRequest struct {
	Op              string         `json:"op"`
	Algorithm       string         `json:"algorithm,omitempty"`
	Platform        string         `json:"platform,omitempty"`
	Seed            int64          `json:"seed"`
	Inputs          [][]float64    `json:"inputs"`
	Target          []float64      `json:"target,omitempty"`
	Mask            []bool         `json:"mask,omitempty"`
	Hyperparameters map[string]any `json:"hyperparameters,omitempty"`
	ControlVoltages []float64      `json:"control_voltages,omitempty"`
}

// bridgeResponse is the JSON document the command prints on stdout.
type bridgeResponse struct {
	BestOutput      []float64 `json:"best_output"`
	BestPerformance *float64  `json:"best_performance"`
	Correlation     *float64  `json:"correlation"`
	ControlVoltages []float64 `json:"control_voltages"`
	Mask            []bool    `json:"mask"`
	Targets         []float64 `json:"targets"`
	AccuracyNode    string    `json:"accuracy_node"`
	Output          []float64 `json:"output"`
	Error           string    `json:"error"`
}

// CommandOptimizer delegates optimization to an external process, one
// invocation per problem.
type CommandOptimizer struct {
	algorithm       string
	platform        string
	argv            []string
	hyperparameters map[string]any
}

// NewCommandOptimizer validates the processor command and returns an optimizer.
func NewCommandOptimizer(algorithmName string, proc config.ProcessorConfig, hyper map[string]any) (*CommandOptimizer, error) {
	if len(proc.Command) == 0 || strings.TrimSpace(proc.Command[0]) == "" {
		return nil, fmt.Errorf("algorithm: processor command is empty")
	}
	return &CommandOptimizer{
		algorithm:       algorithmName,
		platform:        proc.Platform,
		argv:            append([]string(nil), proc.Command...),
		hyperparameters: hyper,
	}, nil
}

// Optimize implements Optimizer.
func (c *CommandOptimizer) Optimize(ctx context.Context, p Problem) (*Results, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	resp, err := runBridge(ctx, c.argv, bridgeRequest{
		Op:              opOptimize,
		Algorithm:       c.algorithm,
		Platform:        c.platform,
		Seed:            p.Seed,
		Inputs:          p.Inputs,
		Target:          p.Target,
		Mask:            p.Mask,
		Hyperparameters: c.hyperparameters,
	})
	if err != nil {
		return nil, err
	}
	if resp.BestPerformance == nil {
		return nil, fmt.Errorf("algorithm: %s did not report best_performance", c.argv[0])
	}
	results := &Results{
		BestOutput:      resp.BestOutput,
		BestPerformance: *resp.BestPerformance,
		Accuracy:        math.NaN(),
		Correlation:     math.NaN(),
		TestAccuracy:    math.NaN(),
		ControlVoltages: resp.ControlVoltages,
		Mask:            resp.Mask,
		Targets:         resp.Targets,
		AccuracyNode:    resp.AccuracyNode,
	}
	if resp.Correlation != nil {
		results.Correlation = *resp.Correlation
	}
	results.Processor = &CommandProcessor{
		argv:            c.argv,
		platform:        c.platform,
		controlVoltages: append([]float64(nil), resp.ControlVoltages...),
	}
	if err := Judge(results, p); err != nil {
		return nil, err
	}
	return results, nil
}

// CommandProcessor replays a trained configuration through the bridge.
type CommandProcessor struct {
	argv            []string
	platform        string
	controlVoltages []float64
}

// Forward implements Processor.
func (cp *CommandProcessor) Forward(ctx context.Context, inputs [][]float64) ([]float64, error) {
	resp, err := runBridge(ctx, cp.argv, bridgeRequest{
		Op:              opForward,
		Platform:        cp.platform,
		Inputs:          inputs,
		ControlVoltages: cp.controlVoltages,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Output) != len(inputs) {
		return nil, fmt.Errorf("algorithm: forward returned %d samples for %d inputs", len(resp.Output), len(inputs))
	}
	return resp.Output, nil
}

func runBridge(ctx context.Context, argv []string, req bridgeRequest) (bridgeResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return bridgeResponse{}, fmt.Errorf("algorithm: encode %s request: %w", req.Op, err)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return bridgeResponse{}, fmt.Errorf("algorithm: %s %s: %w: %s", argv[0], req.Op, err, detail)
		}
		return bridgeResponse{}, fmt.Errorf("algorithm: %s %s: %w", argv[0], req.Op, err)
	}
	var resp bridgeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return bridgeResponse{}, fmt.Errorf("algorithm: decode %s response: %w", req.Op, err)
	}
	if resp.Error != "" {
		return bridgeResponse{}, fmt.Errorf("algorithm: %s %s: %s", argv[0], req.Op, resp.Error)
	}
	return resp, nil
}
