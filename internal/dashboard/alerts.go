package dashboard

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cmc3bear/objectivegate/internal/model"
)

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	SeverityWarning   AlertSeverity = "warning"
	SeverityCritical  AlertSeverity = "critical"
	SeverityProjected AlertSeverity = "projected_violation"
)

// projectedETA is the placeholder carried by projected-violation alerts
// until a forecasting model exists.
const projectedETA = "unknown (forecasting model not wired)"

// Alert is one raised dashboard alert.
type Alert struct {
	ID          string        `json:"id"`
	ObjectiveID string        `json:"objective_id"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	RaisedAt    time.Time     `json:"raised_at"`
	Resolved    bool          `json:"resolved"`
	ResolvedAt  time.Time     `json:"resolved_at,omitempty"`
}

// alertManager deduplicates alerts by (objective, severity, day). The same
// unhealthy state raises once per day; a severity transition raises
// immediately. Callers hold the dashboard lock.
type alertManager struct {
	active map[string]*Alert // keyed by objective ID
	seen   map[string]bool   // dedup keys for the current day
	day    string            // UTC day the dedup keys belong to
	log    []*Alert          // canonical records; active points into this
}

func newAlertManager() *alertManager {
	return &alertManager{
		active: make(map[string]*Alert),
		seen:   make(map[string]bool),
	}
}

func dedupKey(objectiveID string, severity AlertSeverity, at time.Time) string {
	return fmt.Sprintf("%s|%s|%s", objectiveID, severity, at.UTC().Format("2006-01-02"))
}

// observe reconciles one objective's state and returns any newly raised
// alerts.
func (m *alertManager) observe(obj model.Objective, health model.HealthStatus, trend Trend, now time.Time) []Alert {
	m.rollDay(now)
	var raised []Alert

	switch health {
	case model.HealthHealthy:
		if a, ok := m.active[obj.ID]; ok {
			a.Resolved = true
			a.ResolvedAt = now.UTC()
			delete(m.active, obj.ID)
		}
	case model.HealthWarning, model.HealthCritical:
		severity := SeverityWarning
		if health == model.HealthCritical {
			severity = SeverityCritical
		}
		if a := m.raise(obj.ID, severity, now,
			fmt.Sprintf("objective %q is %s: current %.2f %s, target %.2f",
				obj.ID, health, obj.Current, obj.Unit, obj.Target)); a != nil {
			raised = append(raised, *a)
		}
	}

	if trend == TrendDegrading {
		if a := m.raise(obj.ID, SeverityProjected, now,
			fmt.Sprintf("objective %q is degrading; projected violation ETA: %s",
				obj.ID, projectedETA)); a != nil {
			raised = append(raised, *a)
		}
	}

	return raised
}

// rollDay discards dedup keys from previous days. Keys embed the day, so
// nothing from today is lost.
func (m *alertManager) rollDay(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if day != m.day {
		m.day = day
		m.seen = make(map[string]bool)
	}
}

// raise emits an alert unless an equivalent one was already raised today.
func (m *alertManager) raise(objectiveID string, severity AlertSeverity, now time.Time, message string) *Alert {
	m.rollDay(now)
	key := dedupKey(objectiveID, severity, now)
	if m.seen[key] {
		return nil
	}
	m.seen[key] = true

	alert := &Alert{
		ID:          uuid.NewString(),
		ObjectiveID: objectiveID,
		Severity:    severity,
		Message:     message,
		RaisedAt:    now.UTC(),
	}
	m.log = append(m.log, alert)
	if severity != SeverityProjected {
		m.active[objectiveID] = alert
	}
	return alert
}

// resolve manually resolves the active alert for an objective.
func (m *alertManager) resolve(objectiveID string, now time.Time) bool {
	a, ok := m.active[objectiveID]
	if !ok {
		return false
	}
	a.Resolved = true
	a.ResolvedAt = now.UTC()
	delete(m.active, objectiveID)
	return true
}

// history returns a copy of every alert ever raised, oldest first. Resolved
// state is reflected because the log holds the canonical records.
func (m *alertManager) history() []Alert {
	out := make([]Alert, len(m.log))
	for i, a := range m.log {
		out[i] = *a
	}
	return out
}
