package decision

import (
	"strings"
	"testing"
	"time"

	"github.com/cmc3bear/objectivegate/internal/model"
	"github.com/cmc3bear/objectivegate/internal/objective"
)

func newTestRegistry(t *testing.T) *objective.Registry {
	t.Helper()
	r := objective.NewRegistry()
	min, max := 30.0, 0.0
	objectives := []model.Objective{
		{ID: "s2_fps", Level: model.LevelCritical, Target: 60, Current: 52, Unit: "fps",
			Threshold: &model.Threshold{Min: &min}},
		{ID: "s1_safety_incidents", Level: model.LevelCritical, Target: 0, Current: 0, Unit: "count",
			Threshold: &model.Threshold{Max: &max}},
		{ID: "c1_guideline_compliance", Level: model.LevelCore, Target: 95, Current: 92, Unit: "%"},
		{ID: "g1_monthly_active_creators", Level: model.LevelGrowth, Target: 1000, Current: 850, Unit: "creators"},
	}
	for _, obj := range objectives {
		if err := r.Register(obj); err != nil {
			t.Fatalf("register %s: %v", obj.ID, err)
		}
	}
	return r
}

func TestCheckCriticalViolations(t *testing.T) {
	e := NewEngine(newTestRegistry(t))

	// Projected fps under the floor.
	v := e.CheckCriticalViolations([]model.ObjectiveImpact{
		{ObjectiveID: "s2_fps", ProjectedValue: 29, Impact: -44},
	})
	if v == nil {
		t.Fatal("expected violation for projected threshold breach")
	}
	if v.ObjectiveID != "s2_fps" {
		t.Fatalf("expected s2_fps violation, got %q", v.ObjectiveID)
	}

	// Projected fps inside the band: no violation even though negative.
	v = e.CheckCriticalViolations([]model.ObjectiveImpact{
		{ObjectiveID: "s2_fps", ProjectedValue: 46.8, Impact: -10},
	})
	if v != nil {
		t.Fatalf("unexpected violation: %+v", v)
	}

	// CORE objectives never veto through this path.
	v = e.CheckCriticalViolations([]model.ObjectiveImpact{
		{ObjectiveID: "c1_guideline_compliance", ProjectedValue: 0, Impact: -100},
	})
	if v != nil {
		t.Fatalf("core objective must not trip the critical veto: %+v", v)
	}
}

func TestFirstCriticalNegative(t *testing.T) {
	e := NewEngine(newTestRegistry(t))

	v := e.FirstCriticalNegative([]model.ObjectiveImpact{
		{ObjectiveID: "g1_monthly_active_creators", Impact: -5},
		{ObjectiveID: "s2_fps", Impact: -10, ProjectedValue: 46.8},
	})
	if v == nil {
		t.Fatal("expected violation for negative critical impact")
	}
	if v.ObjectiveID != "s2_fps" {
		t.Fatalf("expected s2_fps, got %q", v.ObjectiveID)
	}
	if !strings.Contains(v.Message, "predicted negative impact") {
		t.Fatalf("unexpected message: %q", v.Message)
	}

	if v := e.FirstCriticalNegative([]model.ObjectiveImpact{
		{ObjectiveID: "s2_fps", Impact: 15},
	}); v != nil {
		t.Fatalf("positive critical impact must not veto: %+v", v)
	}
}

func TestClassify(t *testing.T) {
	e := NewEngine(newTestRegistry(t))

	tests := []struct {
		name    string
		impacts []model.ObjectiveImpact
		want    model.Classification
	}{
		{"critical negative vetoes", []model.ObjectiveImpact{
			{ObjectiveID: "s1_safety_incidents", Impact: -100},
			{ObjectiveID: "g1_monthly_active_creators", Impact: 50},
		}, model.Blocking},
		{"critical positive", []model.ObjectiveImpact{
			{ObjectiveID: "s2_fps", Impact: 15},
			{ObjectiveID: "g1_monthly_active_creators", Impact: 2},
		}, model.CriticalPositive},
		{"core positive", []model.ObjectiveImpact{
			{ObjectiveID: "c1_guideline_compliance", Impact: 3},
			{ObjectiveID: "g1_monthly_active_creators", Impact: 2},
		}, model.CorePositive},
		{"growth positive", []model.ObjectiveImpact{
			{ObjectiveID: "g1_monthly_active_creators", Impact: 2},
		}, model.GrowthPositive},
		{"major negative above 10", []model.ObjectiveImpact{
			{ObjectiveID: "c1_guideline_compliance", Impact: -10.5},
		}, model.MajorNegative},
		{"minor negative at exactly 10", []model.ObjectiveImpact{
			{ObjectiveID: "c1_guideline_compliance", Impact: -10},
		}, model.MinorNegative},
		{"mixed takes the negative path", []model.ObjectiveImpact{
			{ObjectiveID: "c1_guideline_compliance", Impact: -2},
			{ObjectiveID: "g1_monthly_active_creators", Impact: 8},
		}, model.MinorNegative},
		{"no impacts", nil, model.Neutral},
		{"confirmed zero impact", []model.ObjectiveImpact{
			{ObjectiveID: "g1_monthly_active_creators", Impact: 0},
		}, model.Neutral},
	}
	for _, tt := range tests {
		if got := e.Classify(tt.impacts); got != tt.want {
			t.Errorf("%s: Classify() = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestDecide(t *testing.T) {
	e := NewEngine(newTestRegistry(t))

	tests := []struct {
		classification model.Classification
		testsPassed    bool
		wantVerdict    model.Verdict
		wantCondition  string
	}{
		{model.CriticalPositive, true, model.VerdictApproved, ""},
		{model.CriticalPositive, false, model.VerdictConditional, "fix failing tests"},
		{model.Blocking, true, model.VerdictRejected, ""},
		{model.Blocking, false, model.VerdictRejected, ""},
		{model.Neutral, true, model.VerdictApproved, ""},
		{model.Neutral, false, model.VerdictConditional, "ensure no regressions"},
		{model.CorePositive, true, model.VerdictConditional, "manual review required"},
		{model.GrowthPositive, false, model.VerdictConditional, "manual review required"},
		{model.MinorNegative, true, model.VerdictConditional, "manual review required"},
		{model.MajorNegative, true, model.VerdictConditional, "manual review required"},
	}
	for _, tt := range tests {
		d := e.Decide(tt.classification, tt.testsPassed)
		if d.Verdict != tt.wantVerdict {
			t.Errorf("Decide(%s, %v) verdict = %s, want %s",
				tt.classification, tt.testsPassed, d.Verdict, tt.wantVerdict)
			continue
		}
		if tt.wantCondition == "" {
			continue
		}
		if len(d.Conditions) != 1 || d.Conditions[0] != tt.wantCondition {
			t.Errorf("Decide(%s, %v) conditions = %v, want [%s]",
				tt.classification, tt.testsPassed, d.Conditions, tt.wantCondition)
		}
	}
}

func TestDecideRationaleAlwaysSet(t *testing.T) {
	e := NewEngine(newTestRegistry(t))
	for _, c := range []model.Classification{
		model.CriticalPositive, model.CorePositive, model.GrowthPositive,
		model.Neutral, model.MinorNegative, model.MajorNegative, model.Blocking,
	} {
		for _, passed := range []bool{true, false} {
			if d := e.Decide(c, passed); d.Rationale == "" {
				t.Errorf("Decide(%s, %v) has no rationale", c, passed)
			}
		}
	}
}

func TestRejectForViolation(t *testing.T) {
	e := NewEngine(newTestRegistry(t))
	fixed := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	change := model.Change{ID: "chg-2", Author: "dev-2"}
	v := &Violation{ObjectiveID: "s1_safety_incidents", Message: "critical objective breached"}

	d := e.RejectForViolation(change, v)
	if d.Verdict != model.VerdictRejected {
		t.Fatalf("expected rejected, got %s", d.Verdict)
	}
	if len(d.FollowUps) != 1 {
		t.Fatalf("expected 1 follow-up, got %d", len(d.FollowUps))
	}
	fu := d.FollowUps[0]
	if fu.Assignee != "dev-2" {
		t.Fatalf("follow-up assigned to %q, want the author", fu.Assignee)
	}
	if !fu.DueAt.Equal(fixed.Add(24 * time.Hour)) {
		t.Fatalf("expected 24h due date, got %v", fu.DueAt)
	}
	if !strings.Contains(fu.Description, v.Message) {
		t.Fatalf("follow-up does not carry the violation: %q", fu.Description)
	}
}
