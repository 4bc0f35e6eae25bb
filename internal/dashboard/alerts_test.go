package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/cmc3bear/objectivegate/internal/model"
)

func warningObjective() model.Objective {
	return model.Objective{
		ID: "c1_guideline_compliance", Level: model.LevelCore,
		Target: 100, Current: 92, Unit: "%",
	}
}

func TestAlertRaisedOncePerDay(t *testing.T) {
	m := newAlertManager()
	obj := warningObjective()
	now := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

	first := m.observe(obj, model.HealthWarning, TrendStable, now)
	if len(first) != 1 {
		t.Fatalf("expected 1 alert on first observation, got %d", len(first))
	}
	if first[0].Severity != SeverityWarning {
		t.Fatalf("expected warning severity, got %s", first[0].Severity)
	}

	// Same state later the same day: deduplicated.
	again := m.observe(obj, model.HealthWarning, TrendStable, now.Add(4*time.Hour))
	if len(again) != 0 {
		t.Fatalf("expected dedup within the day, got %d alerts", len(again))
	}

	// Next day: raised again.
	nextDay := m.observe(obj, model.HealthWarning, TrendStable, now.Add(24*time.Hour))
	if len(nextDay) != 1 {
		t.Fatalf("expected re-raise the next day, got %d alerts", len(nextDay))
	}
}

func TestAlertSeverityTransitionRaisesImmediately(t *testing.T) {
	m := newAlertManager()
	obj := warningObjective()
	now := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

	m.observe(obj, model.HealthWarning, TrendStable, now)
	escalated := m.observe(obj, model.HealthCritical, TrendStable, now.Add(time.Minute))
	if len(escalated) != 1 || escalated[0].Severity != SeverityCritical {
		t.Fatalf("expected immediate critical alert, got %+v", escalated)
	}
}

func TestAlertAutoResolvesOnHealthy(t *testing.T) {
	m := newAlertManager()
	obj := warningObjective()
	now := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

	m.observe(obj, model.HealthWarning, TrendStable, now)
	m.observe(obj, model.HealthHealthy, TrendStable, now.Add(time.Hour))

	if _, ok := m.active[obj.ID]; ok {
		t.Fatal("expected active alert cleared on recovery")
	}
	// Manual resolve now has nothing to do.
	if m.resolve(obj.ID, now.Add(2*time.Hour)) {
		t.Fatal("expected resolve to report no active alert")
	}
}

func TestAlertManualResolve(t *testing.T) {
	m := newAlertManager()
	obj := warningObjective()
	now := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

	m.observe(obj, model.HealthCritical, TrendStable, now)
	if !m.resolve(obj.ID, now.Add(time.Minute)) {
		t.Fatal("expected resolve to succeed")
	}
	if m.resolve(obj.ID, now.Add(2*time.Minute)) {
		t.Fatal("expected second resolve to fail")
	}
}

func TestManualResolveReflectedInHistory(t *testing.T) {
	m := newAlertManager()
	obj := warningObjective()
	now := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

	m.observe(obj, model.HealthCritical, TrendStable, now)
	if !m.resolve(obj.ID, now.Add(time.Minute)) {
		t.Fatal("expected resolve to succeed")
	}

	hist := m.history()
	if len(hist) != 1 {
		t.Fatalf("expected 1 alert in history, got %d", len(hist))
	}
	if !hist[0].Resolved || hist[0].ResolvedAt.IsZero() {
		t.Fatalf("resolved alert not reflected in history: %+v", hist[0])
	}
}

func TestAutoResolveReflectedInHistory(t *testing.T) {
	m := newAlertManager()
	obj := warningObjective()
	now := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

	m.observe(obj, model.HealthWarning, TrendStable, now)
	m.observe(obj, model.HealthHealthy, TrendStable, now.Add(time.Hour))

	hist := m.history()
	if len(hist) != 1 {
		t.Fatalf("expected 1 alert in history, got %d", len(hist))
	}
	if !hist[0].Resolved || hist[0].ResolvedAt.IsZero() {
		t.Fatalf("recovery not reflected in history: %+v", hist[0])
	}
}

func TestDedupKeysPrunedOnDayRollover(t *testing.T) {
	m := newAlertManager()
	obj := warningObjective()
	now := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

	m.observe(obj, model.HealthWarning, TrendStable, now)
	if len(m.seen) != 1 {
		t.Fatalf("expected 1 dedup key, got %d", len(m.seen))
	}

	// Next day: yesterday's keys are discarded, only today's remain.
	m.observe(obj, model.HealthWarning, TrendStable, now.Add(24*time.Hour))
	if len(m.seen) != 1 {
		t.Fatalf("expected stale dedup keys pruned, got %d keys", len(m.seen))
	}
}

func TestDegradingTrendRaisesProjectedAlert(t *testing.T) {
	m := newAlertManager()
	obj := warningObjective()
	now := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

	// Healthy but degrading: the projected alert fires on its own.
	raised := m.observe(obj, model.HealthHealthy, TrendDegrading, now)
	if len(raised) != 1 || raised[0].Severity != SeverityProjected {
		t.Fatalf("expected projected-violation alert, got %+v", raised)
	}
	if !strings.Contains(raised[0].Message, "ETA") {
		t.Fatalf("expected ETA in message, got %q", raised[0].Message)
	}
	// Projected alerts are informational: they never occupy the active slot.
	if _, ok := m.active[obj.ID]; ok {
		t.Fatal("projected alert must not become the active alert")
	}
}

func TestAlertHistoryAccumulates(t *testing.T) {
	m := newAlertManager()
	obj := warningObjective()
	now := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

	m.observe(obj, model.HealthWarning, TrendDegrading, now)
	hist := m.history()
	if len(hist) != 2 {
		t.Fatalf("expected warning + projected in history, got %d", len(hist))
	}
	hist[0].Message = "mutated"
	if m.history()[0].Message == "mutated" {
		t.Fatal("history must return a copy")
	}
}
