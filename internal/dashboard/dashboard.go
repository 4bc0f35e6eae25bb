// Package dashboard maintains rolling health, trend, and alert state for
// every registered objective, fed by a periodic tick and by completed
// verifications.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/cmc3bear/objectivegate/internal/model"
	"github.com/cmc3bear/objectivegate/internal/objective"
)

const (
	defaultTickInterval = 5 * time.Second
	activeTestCapacity  = 100
	recentChangeCap     = 50
)

// TestEntry is one tracked test execution in the active-tests ring.
type TestEntry struct {
	ExecutionID string                `json:"execution_id"`
	ChangeID    string                `json:"change_id"`
	Status      model.ExecutionStatus `json:"status"`
	FinishedAt  time.Time             `json:"finished_at"`
}

// ChangeEntry is one verified change in the recent-changes ring.
type ChangeEntry struct {
	ChangeID       string               `json:"change_id"`
	Verdict        model.Verdict        `json:"verdict"`
	Classification model.Classification `json:"classification"`
	At             time.Time            `json:"at"`
}

// ObjectiveState is the per-objective view exposed by Snapshot.
type ObjectiveState struct {
	Objective model.Objective    `json:"objective"`
	Health    model.HealthStatus `json:"health"`
	Deviation float64            `json:"deviation"`
	Trend     Trend              `json:"trend"`
}

// Snapshot is a point-in-time copy of the dashboard's state. Mutating it
// has no effect on the dashboard.
type Snapshot struct {
	TakenAt       time.Time        `json:"taken_at"`
	Objectives    []ObjectiveState `json:"objectives"`
	ActiveTests   []TestEntry      `json:"active_tests"`
	RecentChanges []ChangeEntry    `json:"recent_changes"`
	Alerts        []Alert          `json:"alerts"`
	TestVelocity  int              `json:"test_velocity"`       // executions finished today
	ApprovalRate  float64          `json:"approval_rate"`       // percent over recent changes
	HealthPct     float64          `json:"objective_health_pct"`
}

// Dashboard is the process-wide monitoring surface. All mutation goes
// through one mutex; Snapshot returns copies.
type Dashboard struct {
	registry *objective.Registry
	metrics  *Metrics
	interval time.Duration
	now      func() time.Time

	mu            sync.Mutex
	histories     map[string]*objectiveHistory
	trends        map[string]Trend
	alerts        *alertManager
	activeTests   *Ring[TestEntry]
	recentChanges *Ring[ChangeEntry]
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithTickInterval overrides the default 5s tick.
func WithTickInterval(d time.Duration) Option {
	return func(db *Dashboard) {
		if d > 0 {
			db.interval = d
		}
	}
}

// WithMetrics attaches Prometheus mirrors.
func WithMetrics(m *Metrics) Option {
	return func(db *Dashboard) { db.metrics = m }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(db *Dashboard) { db.now = now }
}

// New creates a dashboard bound to a registry.
func New(reg *objective.Registry, opts ...Option) *Dashboard {
	db := &Dashboard{
		registry:      reg,
		interval:      defaultTickInterval,
		now:           time.Now,
		histories:     make(map[string]*objectiveHistory),
		trends:        make(map[string]Trend),
		alerts:        newAlertManager(),
		activeTests:   NewRing[TestEntry](activeTestCapacity),
		recentChanges: NewRing[ChangeEntry](recentChangeCap),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Run ticks until the context is canceled. The tick is independent of
// in-flight verifications.
func (db *Dashboard) Run(ctx context.Context) {
	ticker := time.NewTicker(db.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			db.Tick()
		}
	}
}

// Tick recomputes health and trend for every objective, records history,
// and reconciles alerts.
func (db *Dashboard) Tick() {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := db.now()

	for _, obj := range db.registry.All() {
		hist, ok := db.histories[obj.ID]
		if !ok {
			hist = newObjectiveHistory()
			db.histories[obj.ID] = hist
		}
		hist.record(now, obj.Current)

		health := objective.Health(obj)
		trend := ComputeTrend(hist.daily.values())
		db.trends[obj.ID] = trend

		raised := db.alerts.observe(obj, health, trend, now)

		if db.metrics != nil {
			db.metrics.ObjectiveHealth.WithLabelValues(obj.ID).Set(healthGaugeValue(string(health)))
			db.metrics.ObjectiveDeviation.WithLabelValues(obj.ID).Set(objective.Deviation(obj))
			for _, a := range raised {
				db.metrics.AlertsTotal.WithLabelValues(string(a.Severity)).Inc()
			}
		}
	}
}

// ObserveVerification records a completed verification. It satisfies the
// pipeline's Observer interface.
func (db *Dashboard) ObserveVerification(result model.VerificationResult, duration time.Duration) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.recentChanges.Push(ChangeEntry{
		ChangeID:       result.ChangeID,
		Verdict:        result.Decision.Verdict,
		Classification: result.Classification,
		At:             db.now().UTC(),
	})
	for _, exec := range result.Executions {
		db.activeTests.Push(TestEntry{
			ExecutionID: exec.ID,
			ChangeID:    exec.ChangeID,
			Status:      exec.Status,
			FinishedAt:  exec.FinishedAt,
		})
	}

	if db.metrics != nil {
		db.metrics.VerificationsTotal.WithLabelValues(string(result.Decision.Verdict)).Inc()
		db.metrics.VerificationDuration.Observe(duration.Seconds())
		db.metrics.ApprovalRate.Set(db.approvalRateLocked())
	}
}

// ResolveAlert manually resolves the active alert for one objective.
func (db *Dashboard) ResolveAlert(objectiveID string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.alerts.resolve(objectiveID, db.now())
}

// Alerts returns every alert raised so far, oldest first.
func (db *Dashboard) Alerts() []Alert {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.alerts.history()
}

// Take returns a point-in-time copy of the dashboard state.
func (db *Dashboard) Take() Snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := db.now()

	objectives := db.registry.All()
	states := make([]ObjectiveState, 0, len(objectives))
	healthy := 0
	for _, obj := range objectives {
		health := objective.Health(obj)
		if health == model.HealthHealthy {
			healthy++
		}
		states = append(states, ObjectiveState{
			Objective: obj,
			Health:    health,
			Deviation: objective.Deviation(obj),
			Trend:     db.trendLocked(obj.ID),
		})
	}

	healthPct := 0.0
	if len(objectives) > 0 {
		healthPct = float64(healthy) / float64(len(objectives)) * 100
	}

	return Snapshot{
		TakenAt:       now.UTC(),
		Objectives:    states,
		ActiveTests:   db.activeTests.Items(),
		RecentChanges: db.recentChanges.Items(),
		Alerts:        db.alerts.history(),
		TestVelocity:  db.testVelocityLocked(now),
		ApprovalRate:  db.approvalRateLocked(),
		HealthPct:     healthPct,
	}
}

func (db *Dashboard) trendLocked(objectiveID string) Trend {
	if t, ok := db.trends[objectiveID]; ok {
		return t
	}
	return TrendStable
}

// approvalRateLocked is the approved fraction of the recent-changes ring,
// in percent. Zero recorded verifications yields 0.
func (db *Dashboard) approvalRateLocked() float64 {
	entries := db.recentChanges.Items()
	if len(entries) == 0 {
		return 0
	}
	approved := 0
	for _, e := range entries {
		if e.Verdict == model.VerdictApproved {
			approved++
		}
	}
	return float64(approved) / float64(len(entries)) * 100
}

// testVelocityLocked counts test executions finished today (UTC).
func (db *Dashboard) testVelocityLocked(now time.Time) int {
	y, m, d := now.UTC().Date()
	count := 0
	for _, e := range db.activeTests.Items() {
		ey, em, ed := e.FinishedAt.UTC().Date()
		if ey == y && em == m && ed == d {
			count++
		}
	}
	return count
}
