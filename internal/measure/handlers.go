package measure

import (
	"context"

	"github.com/cmc3bear/objectivegate/internal/model"
)

// The built-in handlers are simulators: they fabricate plausible readings
// from the spec's baseline instead of instrumenting a real system. They are
// the test-only implementation of the handler contract — production wires
// real telemetry under the same method tags.

// Simulated improvement factors per method.
const (
	simRenderGain    = 1.15 // +15% frame rate
	simPrecisionGain = 1.02 // +2% classifier precision
	simRecallGain    = 1.01 // +1% statistical validation
	simResponseCut   = 0.70 // -30% response time
)

func builtinHandlers() map[string]Handler {
	return map[string]Handler{
		"render_benchmark":          HandlerFunc(simulateRenderBenchmark),
		"confusion_matrix_analysis": HandlerFunc(simulateConfusionMatrix),
		"statistical_validation":    HandlerFunc(simulateStatValidation),
		"response_time_measurement": HandlerFunc(simulateResponseTime),
		"regression_testing":        HandlerFunc(simulateRegressionTests),
	}
}

func simulateRenderBenchmark(_ context.Context, spec model.MeasurementSpec, _ model.Change) (Reading, error) {
	actual := spec.Baseline * simRenderGain
	return Reading{
		Baseline: spec.Baseline,
		Actual:   actual,
		Details: map[string]any{
			"frames_sampled": 600,
			"baseline_fps":   spec.Baseline,
			"actual_fps":     actual,
			"dropped_frames": 0,
		},
	}, nil
}

func simulateConfusionMatrix(_ context.Context, spec model.MeasurementSpec, _ model.Change) (Reading, error) {
	actual := spec.Baseline * simPrecisionGain
	return Reading{
		Baseline: spec.Baseline,
		Actual:   actual,
		Details: map[string]any{
			"true_positives":  485,
			"false_positives": 9,
			"false_negatives": 6,
			"samples":         500,
		},
	}, nil
}

func simulateStatValidation(_ context.Context, spec model.MeasurementSpec, _ model.Change) (Reading, error) {
	actual := spec.Baseline * simRecallGain
	return Reading{
		Baseline: spec.Baseline,
		Actual:   actual,
		Details: map[string]any{
			"samples":    500,
			"iterations": 30,
		},
	}, nil
}

func simulateResponseTime(_ context.Context, spec model.MeasurementSpec, _ model.Change) (Reading, error) {
	actual := spec.Baseline * simResponseCut
	return Reading{
		Baseline: spec.Baseline,
		Actual:   actual,
		Details: map[string]any{
			"requests":   100,
			"p50_s":      actual,
			"p95_s":      actual * 1.4,
			"timeouts":   0,
			"target_s":   spec.Target,
			"baseline_s": spec.Baseline,
		},
	}, nil
}

func simulateRegressionTests(_ context.Context, spec model.MeasurementSpec, _ model.Change) (Reading, error) {
	// Stability runs demand an exact match: actual equals baseline.
	return Reading{
		Baseline: spec.Baseline,
		Actual:   spec.Baseline,
		Details: map[string]any{
			"suites_run": 12,
			"failures":   0,
		},
	}, nil
}
