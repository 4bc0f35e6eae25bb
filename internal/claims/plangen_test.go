package claims

import (
	"fmt"
	"testing"

	"github.com/cmc3bear/objectivegate/internal/model"
)

func TestClassifyChangeType(t *testing.T) {
	tests := []struct {
		desc string
		kind model.ChangeKind
		want string
	}{
		{"Optimize canvas rendering to improve FPS", model.KindFeature, TypePerformance},
		{"Remove safety filters", model.KindRefactor, TypeSafety},
		{"Improve generation accuracy", model.KindFix, TypeAccuracy},
		{"Add a sticker export feature", model.KindFeature, TypeFeature},
		{"Bump a dependency", model.KindConfig, TypeGeneric},
		// First matching category wins: performance beats safety here.
		{"Speed up the safety filter", model.KindRefactor, TypePerformance},
	}
	for _, tt := range tests {
		change := model.Change{Description: tt.desc, Kind: tt.kind}
		if got := ClassifyChangeType(change); got != tt.want {
			t.Errorf("ClassifyChangeType(%q) = %q, want %q", tt.desc, got, tt.want)
		}
	}
}

func TestGenerateRequiresChangeID(t *testing.T) {
	g := NewGenerator(nil)
	if _, err := g.Generate(model.Change{Description: "improve fps by 10%"}); err == nil {
		t.Fatal("expected error for missing change ID")
	}
}

func TestGeneratePerformancePlan(t *testing.T) {
	g := NewGenerator(nil)
	change := model.Change{
		ID:          "chg-001",
		Description: "Optimize canvas rendering to improve FPS by 15% achieving 60+ FPS target",
		Kind:        model.KindFeature,
	}
	plan, err := g.Generate(change)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if plan.ChangeType != TypePerformance {
		t.Fatalf("expected performance plan, got %q", plan.ChangeType)
	}
	if plan.RequiredPassRate != 90 {
		t.Fatalf("expected required pass rate 90, got %v", plan.RequiredPassRate)
	}
	if len(plan.Preconditions) != 1 || plan.Preconditions[0] != "baseline_metrics_available" {
		t.Fatalf("unexpected preconditions: %v", plan.Preconditions)
	}

	if len(plan.Specs) != 1 {
		t.Fatalf("expected 1 measurement spec, got %d", len(plan.Specs))
	}
	spec := plan.Specs[0]
	if spec.Metric != "fps" || spec.Method != MethodRenderBenchmark {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if spec.Baseline != defaultFPSBaseline || spec.Target != 60 || spec.TolerancePct != fpsTolerancePct {
		t.Fatalf("unexpected spec figures: %+v", spec)
	}

	if len(plan.Cases) != 1 {
		t.Fatalf("expected 1 case, got %d", len(plan.Cases))
	}
	if plan.Cases[0].AgentID != "pixel-perfect" {
		t.Fatalf("expected pixel-perfect agent, got %q", plan.Cases[0].AgentID)
	}
	if len(plan.Cases[0].Assertions) != 2 {
		t.Fatalf("expected 2 assertions, got %d", len(plan.Cases[0].Assertions))
	}
}

func TestGeneratePerformancePlanWithResponseTimeClaim(t *testing.T) {
	g := NewGenerator(nil)
	change := model.Change{
		ID:          "chg-010",
		Description: "Optimize the render pipeline so exports finish under 3 seconds",
		Kind:        model.KindRefactor,
	}
	plan, err := g.Generate(change)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(plan.Cases) != 2 || len(plan.Specs) != 2 {
		t.Fatalf("expected response-time case and spec added, got %d cases %d specs",
			len(plan.Cases), len(plan.Specs))
	}
	rt := plan.Specs[1]
	if rt.Metric != "response_time" || rt.Target != 3 || rt.Method != MethodResponseTime {
		t.Fatalf("unexpected response time spec: %+v", rt)
	}
}

func TestGenerateSafetyPlan(t *testing.T) {
	g := NewGenerator(nil)
	plan, err := g.Generate(model.Change{
		ID:          "chg-002",
		Description: "Tighten the content filter guidelines",
		Kind:        model.KindFix,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if plan.ChangeType != TypeSafety {
		t.Fatalf("expected safety plan, got %q", plan.ChangeType)
	}
	if plan.RequiredPassRate != 100 {
		t.Fatalf("safety plans require 100%% pass rate, got %v", plan.RequiredPassRate)
	}
	if len(plan.Cases) != 1 || len(plan.Cases[0].Assertions) != 3 {
		t.Fatalf("expected 1 case with 3 assertions, got %+v", plan.Cases)
	}
	if len(plan.Specs) != 2 {
		t.Fatalf("expected filter accuracy and stability specs, got %d", len(plan.Specs))
	}
	if plan.Specs[1].TolerancePct != 0 {
		t.Fatalf("stability spec must require an exact match, got tolerance %v", plan.Specs[1].TolerancePct)
	}
}

func TestGenerateFeatureAndGenericPlans(t *testing.T) {
	g := NewGenerator(nil)

	feat, err := g.Generate(model.Change{
		ID:          "chg-003",
		Description: "Add sticker export",
		Kind:        model.KindFeature,
	})
	if err != nil {
		t.Fatalf("generate feature: %v", err)
	}
	if feat.ChangeType != TypeFeature || feat.RequiredPassRate != 80 || len(feat.Cases) != 2 {
		t.Fatalf("unexpected feature plan: %+v", feat)
	}

	gen, err := g.Generate(model.Change{
		ID:          "chg-004",
		Description: "Bump a dependency",
		Kind:        model.KindConfig,
	})
	if err != nil {
		t.Fatalf("generate generic: %v", err)
	}
	if gen.ChangeType != TypeGeneric || len(gen.Cases) != 1 {
		t.Fatalf("unexpected generic plan: %+v", gen)
	}
}

func TestGenerateCaseIDs(t *testing.T) {
	g := NewGenerator(nil)
	plan, err := g.Generate(model.Change{
		ID:          "chg-005",
		Description: "Add sticker export",
		Kind:        model.KindFeature,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, tc := range plan.Cases {
		want := fmt.Sprintf("case-chg-005-%d", i+1)
		if tc.ID != want {
			t.Fatalf("case %d: expected ID %q, got %q", i, want, tc.ID)
		}
	}
	if plan.ID == "" {
		t.Fatal("expected a generated plan ID")
	}
}
