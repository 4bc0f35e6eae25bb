package executor

import (
	"context"

	"github.com/cmc3bear/objectivegate/internal/model"
)

const genericAgentID = "generic"

// The built-in agents simulate the external collaborators' test logic so
// generated plans are runnable end to end without the real systems. Their
// result shapes match what the plan generator's assertions expect.

func builtinAgents() map[string]AgentFunc {
	return map[string]AgentFunc{
		genericAgentID:  genericAgent,
		"pixel-perfect": pixelPerfectAgent,
		"guardian":      guardianAgent,
		"art-validator": artValidatorAgent,
	}
}

// genericAgent is the fallback for unknown agent IDs.
func genericAgent(_ context.Context, tc model.TestCase) (map[string]any, error) {
	return map[string]any{
		"status":  "completed",
		"case":    tc.Name,
		"summary": "ok: " + tc.Name,
	}, nil
}

// pixelPerfectAgent simulates the rendering agent's benchmark run.
func pixelPerfectAgent(_ context.Context, tc model.TestCase) (map[string]any, error) {
	baseline := 52.0
	if v, ok := tc.Input["baseline_fps"].(float64); ok && v > 0 {
		baseline = v
	}
	actual := baseline * 1.15

	maxSeconds := 3.0
	if v, ok := tc.Input["max_seconds"].(float64); ok && v > 0 {
		maxSeconds = v
	}

	return map[string]any{
		"fps": map[string]any{
			"baseline": baseline,
			"actual":   actual,
		},
		"response_time": map[string]any{
			"actual": maxSeconds * 0.7,
		},
		"dropped_frames": 0,
		"status":         "completed",
	}, nil
}

// guardianAgent simulates the content-safety agent's filter validation.
func guardianAgent(_ context.Context, tc model.TestCase) (map[string]any, error) {
	samples := 3
	if v, ok := intInput(tc.Input["samples"]); ok && v > 0 {
		samples = v
	}
	checks := make([]any, 0, samples)
	for i := 0; i < samples; i++ {
		checks = append(checks, map[string]any{
			"sample":   i,
			"safe":     true,
			"filtered": true,
		})
	}
	return map[string]any{
		"safety":    checks,
		"incidents": 0,
		"status":    "active",
	}, nil
}

// intInput coerces a test-case input to int. Plans that round-trip through
// JSON carry numbers as float64.
func intInput(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// artValidatorAgent simulates the generation-quality agent's accuracy run.
func artValidatorAgent(_ context.Context, _ model.TestCase) (map[string]any, error) {
	return map[string]any{
		"accuracy": map[string]any{
			"precision": 0.97,
			"recall":    0.96,
		},
		"samples": 500,
		"status":  "completed",
	}, nil
}
