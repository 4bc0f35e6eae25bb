package claims

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cmc3bear/objectivegate/internal/model"
)

// Change types the generator branches on.
const (
	TypePerformance = "performance"
	TypeSafety      = "safety"
	TypeAccuracy    = "accuracy"
	TypeFeature     = "feature"
	TypeGeneric     = "generic"
)

// Measurement method tags for the built-in branches. The engine's handler
// registry is open; these are just the tags the generator emits.
const (
	MethodRenderBenchmark  = "render_benchmark"
	MethodConfusionMatrix  = "confusion_matrix_analysis"
	MethodStatValidation   = "statistical_validation"
	MethodResponseTime     = "response_time_measurement"
	MethodRegressionTests  = "regression_testing"
)

// Branch defaults. Baselines are the reference figures the simulated
// handlers start from; tolerances are the literal pass bands per branch.
const (
	defaultFPSBaseline     = 52.0
	fpsTolerancePct        = 5.0
	defaultFilterBaseline  = 99.0
	filterTolerancePct     = 1.0
	defaultPrecisionBase   = 95.0
	precisionTolerancePct  = 2.0
	defaultRecallBase      = 94.0
	recallTolerancePct     = 1.0
	defaultResponseBase    = 3.0
	responseTolerancePct   = 10.0
	stabilityTolerancePct  = 0.0 // exact match required
	defaultStabilityTarget = 100.0
)

var changeTypeKeywords = []struct {
	changeType string
	words      []string
}{
	{TypePerformance, []string{"fps", "performance", "render", "speed", "optimiz", "latency", "frame"}},
	{TypeSafety, []string{"safety", "filter", "content", "guideline", "moderation"}},
	{TypeAccuracy, []string{"accuracy", "precision", "recall", "correct", "quality"}},
}

// ClassifyChangeType scans description and kind into one of the generator's
// branches. First matching keyword category wins; the "feature" kind is a
// fallback only when no keyword category matched.
func ClassifyChangeType(change model.Change) string {
	desc := strings.ToLower(change.Description)
	for _, cat := range changeTypeKeywords {
		for _, w := range cat.words {
			if strings.Contains(desc, w) {
				return cat.changeType
			}
		}
	}
	if change.Kind == model.KindFeature {
		return TypeFeature
	}
	return TypeGeneric
}

// Generator builds a TestPlan from a change, using an Extractor for claims.
type Generator struct {
	extractor Extractor
}

// NewGenerator creates a Generator. A nil extractor gets the reference
// pattern extractor.
func NewGenerator(extractor Extractor) *Generator {
	if extractor == nil {
		extractor = NewPatternExtractor()
	}
	return &Generator{extractor: extractor}
}

// Generate emits the branch-specific test cases and measurement specs for a
// change. Cases and assertions are ordered; ordering is part of the plan.
func (g *Generator) Generate(change model.Change) (*model.TestPlan, error) {
	if change.ID == "" {
		return nil, fmt.Errorf("change ID is required")
	}

	changeType := ClassifyChangeType(change)
	extracted := merge(g.extractor.Extract(change.Description))

	plan := &model.TestPlan{
		ID:         uuid.NewString(),
		ChangeID:   change.ID,
		ChangeType: changeType,
	}

	switch changeType {
	case TypePerformance:
		g.performanceBranch(plan, extracted)
	case TypeSafety:
		g.safetyBranch(plan)
	case TypeAccuracy:
		g.accuracyBranch(plan)
	case TypeFeature:
		g.featureBranch(plan)
	default:
		g.genericBranch(plan)
	}

	for i := range plan.Cases {
		plan.Cases[i].ID = fmt.Sprintf("case-%s-%d", change.ID, i+1)
	}
	return plan, nil
}

func (g *Generator) performanceBranch(plan *model.TestPlan, extracted []Claim) {
	plan.RequiredPassRate = 90
	plan.Preconditions = []string{"baseline_metrics_available"}

	fpsBaseline := defaultFPSBaseline
	fpsTarget := fpsBaseline * (1 + implicitFPSPct/100)
	var responseClaim *Claim
	for i, c := range extracted {
		switch c.Metric {
		case "fps":
			if c.Baseline > 0 {
				fpsBaseline = c.Baseline
			}
			if c.Target > 0 {
				fpsTarget = c.Target
			} else if c.ImprovementPct > 0 {
				fpsTarget = fpsBaseline * (1 + c.ImprovementPct/100)
			}
		case "response_time":
			responseClaim = &extracted[i]
		}
	}

	plan.Cases = append(plan.Cases, model.TestCase{
		Name:    "frame rate benchmark",
		AgentID: "pixel-perfect",
		Input:   map[string]any{"baseline_fps": fpsBaseline},
		Assertions: []model.Assertion{
			model.GreaterThanAssertion{
				Name:  "fps improves over baseline",
				Path:  model.ParsePath("fps.actual"),
				Bound: fpsBaseline,
			},
			model.EqualsAssertion{
				Name:     "no dropped frames",
				Path:     model.ParsePath("dropped_frames"),
				Expected: 0,
			},
		},
	})
	plan.Specs = append(plan.Specs, model.MeasurementSpec{
		Metric:       "fps",
		Baseline:     fpsBaseline,
		Target:       fpsTarget,
		Unit:         "fps",
		TolerancePct: fpsTolerancePct,
		Method:       MethodRenderBenchmark,
	})

	if responseClaim != nil {
		plan.Cases = append(plan.Cases, model.TestCase{
			Name:    "response time check",
			AgentID: "pixel-perfect",
			Input:   map[string]any{"max_seconds": responseClaim.Target},
			Assertions: []model.Assertion{
				model.LessThanAssertion{
					Name:  "response under limit",
					Path:  model.ParsePath("response_time.actual"),
					Bound: responseClaim.Target,
				},
			},
		})
		plan.Specs = append(plan.Specs, model.MeasurementSpec{
			Metric:       "response_time",
			Baseline:     defaultResponseBase,
			Target:       responseClaim.Target,
			Unit:         "seconds",
			TolerancePct: responseTolerancePct,
			Method:       MethodResponseTime,
		})
	}
}

func (g *Generator) safetyBranch(plan *model.TestPlan) {
	plan.RequiredPassRate = 100
	plan.Preconditions = []string{"content_filter_enabled"}

	plan.Cases = append(plan.Cases, model.TestCase{
		Name:    "content filter validation",
		AgentID: "guardian",
		Input:   map[string]any{"samples": 3},
		Assertions: []model.Assertion{
			model.EqualsAssertion{
				Name:     "first sample filtered safely",
				Path:     model.ParsePath("safety.0.safe"),
				Expected: true,
			},
			model.EqualsAssertion{
				Name:     "zero incidents",
				Path:     model.ParsePath("incidents"),
				Expected: 0,
			},
			model.MatchesAssertion{
				Name:    "filter status reported",
				Path:    model.ParsePath("status"),
				Pattern: regexp.MustCompile(`^(active|enforcing)$`),
			},
		},
	})
	plan.Specs = append(plan.Specs,
		model.MeasurementSpec{
			Metric:       "content_filter_accuracy",
			Baseline:     defaultFilterBaseline,
			Target:       100,
			Unit:         "%",
			TolerancePct: filterTolerancePct,
			Method:       MethodConfusionMatrix,
		},
		model.MeasurementSpec{
			Metric:       "stability",
			Baseline:     defaultStabilityTarget,
			Target:       defaultStabilityTarget,
			Unit:         "%",
			TolerancePct: stabilityTolerancePct,
			Method:       MethodRegressionTests,
		},
	)
}

func (g *Generator) accuracyBranch(plan *model.TestPlan) {
	plan.RequiredPassRate = 90
	plan.Preconditions = []string{"validation_set_available"}

	plan.Cases = append(plan.Cases, model.TestCase{
		Name:    "accuracy validation",
		AgentID: "art-validator",
		Input:   map[string]any{"samples": 500},
		Assertions: []model.Assertion{
			model.GreaterThanAssertion{
				Name:  "precision above floor",
				Path:  model.ParsePath("accuracy.precision"),
				Bound: 0.9,
			},
			model.GreaterThanAssertion{
				Name:  "recall above floor",
				Path:  model.ParsePath("accuracy.recall"),
				Bound: 0.9,
			},
		},
	})
	plan.Specs = append(plan.Specs,
		model.MeasurementSpec{
			Metric:       "precision",
			Baseline:     defaultPrecisionBase,
			Target:       defaultPrecisionBase + 2,
			Unit:         "%",
			TolerancePct: precisionTolerancePct,
			Method:       MethodConfusionMatrix,
		},
		model.MeasurementSpec{
			Metric:       "recall",
			Baseline:     defaultRecallBase,
			Target:       defaultRecallBase + 2,
			Unit:         "%",
			TolerancePct: recallTolerancePct,
			Method:       MethodStatValidation,
		},
	)
}

func (g *Generator) featureBranch(plan *model.TestPlan) {
	plan.RequiredPassRate = 80

	plan.Cases = append(plan.Cases,
		model.TestCase{
			Name:    "feature smoke test",
			AgentID: "generic",
			Assertions: []model.Assertion{
				model.EqualsAssertion{
					Name:     "feature run completes",
					Path:     model.ParsePath("status"),
					Expected: "completed",
				},
			},
		},
		model.TestCase{
			Name:    "regression guard",
			AgentID: "generic",
			Assertions: []model.Assertion{
				model.ContainsAssertion{
					Name:      "no regression marker",
					Path:      model.ParsePath("summary"),
					Substring: "ok",
				},
			},
		},
	)
	plan.Specs = append(plan.Specs, model.MeasurementSpec{
		Metric:       "stability",
		Baseline:     defaultStabilityTarget,
		Target:       defaultStabilityTarget,
		Unit:         "%",
		TolerancePct: stabilityTolerancePct,
		Method:       MethodRegressionTests,
	})
}

func (g *Generator) genericBranch(plan *model.TestPlan) {
	plan.RequiredPassRate = 80

	plan.Cases = append(plan.Cases, model.TestCase{
		Name:    "sanity check",
		AgentID: "generic",
		Assertions: []model.Assertion{
			model.EqualsAssertion{
				Name:     "run completes",
				Path:     model.ParsePath("status"),
				Expected: "completed",
			},
		},
	})
	plan.Specs = append(plan.Specs, model.MeasurementSpec{
		Metric:       "stability",
		Baseline:     defaultStabilityTarget,
		Target:       defaultStabilityTarget,
		Unit:         "%",
		TolerancePct: stabilityTolerancePct,
		Method:       MethodRegressionTests,
	})
}
