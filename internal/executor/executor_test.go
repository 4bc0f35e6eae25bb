package executor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cmc3bear/objectivegate/internal/model"
)

func passingPlan() *model.TestPlan {
	return &model.TestPlan{
		ID:               "plan-1",
		ChangeID:         "chg-1",
		RequiredPassRate: 90,
		Cases: []model.TestCase{{
			ID:      "case-chg-1-1",
			Name:    "frame rate benchmark",
			AgentID: "pixel-perfect",
			Input:   map[string]any{"baseline_fps": 52.0},
			Assertions: []model.Assertion{
				model.GreaterThanAssertion{
					Name: "fps improves over baseline", Path: model.ParsePath("fps.actual"), Bound: 52,
				},
				model.EqualsAssertion{
					Name: "no dropped frames", Path: model.ParsePath("dropped_frames"), Expected: 0,
				},
			},
		}},
	}
}

func TestExecutePlanAllPass(t *testing.T) {
	e := NewExecutor()
	exec := e.ExecutePlan(context.Background(), passingPlan())

	if exec.Status != model.ExecPassed {
		t.Fatalf("expected passed, got %s (%s)", exec.Status, exec.Reason)
	}
	if len(exec.Results) != 1 || !exec.Results[0].Passed {
		t.Fatalf("unexpected results: %+v", exec.Results)
	}
	if exec.ID == "" || exec.PlanID != "plan-1" || exec.ChangeID != "chg-1" {
		t.Fatalf("unexpected execution identity: %+v", exec)
	}
	if exec.FinishedAt.Before(exec.StartedAt) {
		t.Fatal("finished before started")
	}
}

func TestExecutePlanAssertionFailure(t *testing.T) {
	plan := passingPlan()
	plan.Cases[0].Assertions = append(plan.Cases[0].Assertions, model.EqualsAssertion{
		Name: "impossible", Path: model.ParsePath("status"), Expected: "impossible",
	})

	e := NewExecutor()
	exec := e.ExecutePlan(context.Background(), plan)
	if exec.Status != model.ExecFailed {
		t.Fatalf("expected failed, got %s", exec.Status)
	}
	want := "0/1 cases passed (required 90%)"
	if exec.Reason != want {
		t.Fatalf("expected reason %q, got %q", want, exec.Reason)
	}
}

func TestExecutePlanPassRateGate(t *testing.T) {
	// One of two cases passing is 50%: below the 80% bar even though the
	// failure itself would already gate it; drop the bar to 40 and the
	// remaining failed case still forces a failure.
	plan := passingPlan()
	plan.RequiredPassRate = 40
	plan.Cases = append(plan.Cases, model.TestCase{
		ID: "case-chg-1-2", Name: "doomed", AgentID: "generic",
		Assertions: []model.Assertion{
			model.EqualsAssertion{Name: "never", Path: model.ParsePath("status"), Expected: "never"},
		},
	})

	e := NewExecutor()
	exec := e.ExecutePlan(context.Background(), plan)
	if exec.Status != model.ExecFailed {
		t.Fatalf("any failed case fails the plan, got %s", exec.Status)
	}
	if !strings.Contains(exec.Reason, "1/2 cases passed") {
		t.Fatalf("unexpected reason: %q", exec.Reason)
	}
}

func TestExecutePlanBlockedPrecondition(t *testing.T) {
	plan := passingPlan()
	plan.Preconditions = []string{"baseline_metrics_available"}

	e := NewExecutor(WithPreconditionCheck(func(name string) error {
		return fmt.Errorf("%s: store offline", name)
	}))
	exec := e.ExecutePlan(context.Background(), plan)

	if exec.Status != model.ExecBlocked {
		t.Fatalf("expected blocked, got %s", exec.Status)
	}
	if len(exec.Results) != 0 {
		t.Fatalf("blocked plans must run zero cases, got %d results", len(exec.Results))
	}
	if !strings.Contains(exec.Reason, "baseline_metrics_available") {
		t.Fatalf("unexpected reason: %q", exec.Reason)
	}
}

func TestExecutePlanAgentPanicIsolated(t *testing.T) {
	e := NewExecutor()
	e.RegisterAgent("crashy", func(context.Context, model.TestCase) (map[string]any, error) {
		panic("agent fell over")
	})

	plan := passingPlan()
	plan.Cases = append([]model.TestCase{{
		ID: "case-chg-1-0", Name: "crash case", AgentID: "crashy",
		Assertions: []model.Assertion{
			model.EqualsAssertion{Name: "unreached", Path: model.ParsePath("status"), Expected: "completed"},
		},
	}}, plan.Cases...)

	exec := e.ExecutePlan(context.Background(), plan)
	if exec.Status != model.ExecFailed {
		t.Fatalf("expected failed, got %s", exec.Status)
	}
	crash := exec.Results[0]
	if crash.Passed {
		t.Fatal("expected crash case to fail")
	}
	if !strings.Contains(crash.Error, "agent panic") {
		t.Fatalf("unexpected error: %q", crash.Error)
	}
	if !exec.Results[1].Passed {
		t.Fatal("expected sibling case to survive the panic")
	}
}

func TestExecutePlanUnknownAgentFallsBack(t *testing.T) {
	plan := &model.TestPlan{
		ID: "plan-2", ChangeID: "chg-2", RequiredPassRate: 80,
		Cases: []model.TestCase{{
			ID: "case-chg-2-1", Name: "sanity check", AgentID: "no-such-agent",
			Assertions: []model.Assertion{
				model.EqualsAssertion{Name: "run completes", Path: model.ParsePath("status"), Expected: "completed"},
			},
		}},
	}
	e := NewExecutor()
	exec := e.ExecutePlan(context.Background(), plan)
	if exec.Status != model.ExecPassed {
		t.Fatalf("expected generic fallback to pass, got %s (%s)", exec.Status, exec.Reason)
	}
}

func TestExecutePlanZeroCases(t *testing.T) {
	plan := &model.TestPlan{ID: "plan-3", ChangeID: "chg-3", RequiredPassRate: 100}
	e := NewExecutor()
	exec := e.ExecutePlan(context.Background(), plan)
	if exec.Status != model.ExecPassed {
		t.Fatalf("empty plan defaults to 100%% pass rate, got %s", exec.Status)
	}
}

func TestGuardianAgentShape(t *testing.T) {
	out, err := guardianAgent(context.Background(), model.TestCase{Input: map[string]any{"samples": 3}})
	if err != nil {
		t.Fatalf("guardian: %v", err)
	}
	a := model.EqualsAssertion{Name: "first safe", Path: model.ParsePath("safety.0.safe"), Expected: true}
	if r := a.Check(out); !r.Passed {
		t.Fatalf("guardian output fails safety assertion: %+v", r)
	}
	if out["status"] != "active" {
		t.Fatalf("expected active status, got %v", out["status"])
	}
}

func TestGuardianAgentSamplesSurviveJSONRoundTrip(t *testing.T) {
	// Plans loaded from disk carry numbers as float64.
	out, err := guardianAgent(context.Background(), model.TestCase{Input: map[string]any{"samples": float64(5)}})
	if err != nil {
		t.Fatalf("guardian: %v", err)
	}
	checks, ok := out["safety"].([]any)
	if !ok || len(checks) != 5 {
		t.Fatalf("expected 5 safety checks, got %v", out["safety"])
	}
}
