// Package objective holds the registry of weighted, leveled objectives the
// verification pipeline gates changes against.
package objective

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/cmc3bear/objectivegate/internal/model"
)

// ErrNotFound is returned by Get and UpdateValue for unknown objective IDs.
var ErrNotFound = errors.New("objective not found")

// Health boundaries. Values are exact — no hysteresis.
const (
	healthyBelow = 0.05
	warningBelow = 0.10
)

// Registry holds the objective set. Objectives are created once at
// construction, never deleted, and mutated only through UpdateValue.
// All mutations are serialized; readers receive point-in-time copies.
type Registry struct {
	mu         sync.RWMutex
	objectives map[string]*model.Objective
	order      []string // registration order, for stable listings
	configHash string
}

// NewRegistry creates an empty registry. Most callers want FromConfig.
func NewRegistry() *Registry {
	return &Registry{objectives: make(map[string]*model.Objective)}
}

// Register adds an objective. Duplicate IDs are an error — IDs are unique
// across the registry.
func (r *Registry) Register(obj model.Objective) error {
	if obj.ID == "" {
		return fmt.Errorf("objective ID is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.objectives[obj.ID]; exists {
		return fmt.Errorf("objective %q already registered", obj.ID)
	}
	copied := obj
	r.objectives[obj.ID] = &copied
	r.order = append(r.order, obj.ID)
	return nil
}

// Get returns a copy of the objective. Unknown IDs are an error, not a
// nil fallthrough.
func (r *Registry) Get(id string) (model.Objective, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objectives[id]
	if !ok {
		return model.Objective{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return *obj, nil
}

// UpdateValue sets an objective's current value. This is the sole mutation
// entry point into the registry (it simulates a telemetry feed).
func (r *Registry) UpdateValue(id string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objectives[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	obj.Current = value
	return nil
}

// Reload swaps the whole objective set for a freshly loaded config. This
// is the hot-reload path; UpdateValue remains the only per-objective
// mutation.
func (r *Registry) Reload(cfg *Config, configHash string) error {
	objectives := make(map[string]*model.Objective, len(cfg.Objectives))
	order := make([]string, 0, len(cfg.Objectives))
	for _, obj := range cfg.Objectives {
		if _, dup := objectives[obj.ID]; dup {
			return fmt.Errorf("objective %q already registered", obj.ID)
		}
		copied := obj
		objectives[obj.ID] = &copied
		order = append(order, obj.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objectives = objectives
	r.order = order
	r.configHash = configHash
	return nil
}

// All returns copies of every objective in registration order.
func (r *Registry) All() []model.Objective {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Objective, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.objectives[id])
	}
	return out
}

// Len returns the number of registered objectives.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objectives)
}

// ConfigHash returns the SHA-256 of the config the registry was built from.
func (r *Registry) ConfigHash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configHash
}

// Health evaluates one objective's current value.
//
// Rule: deviation = |current-target| / target. CRITICAL objectives fail
// immediately when the current value breaches threshold min/max, regardless
// of deviation. Otherwise deviation < 0.05 is healthy, < 0.10 is warning,
// anything else critical. Boundary values land on the worse side.
func Health(obj model.Objective) model.HealthStatus {
	if obj.Level == model.LevelCritical && obj.Threshold.Breaches(obj.Current) {
		return model.HealthCritical
	}
	deviation := Deviation(obj)
	switch {
	case deviation < healthyBelow:
		return model.HealthHealthy
	case deviation < warningBelow:
		return model.HealthWarning
	default:
		return model.HealthCritical
	}
}

// Deviation returns |current-target|/target. A zero target with a zero
// current is zero deviation; a zero target with any other value is treated
// as fully deviated, since the ratio is undefined.
func Deviation(obj model.Objective) float64 {
	if obj.Target == 0 {
		if obj.Current == 0 {
			return 0
		}
		return 1
	}
	return math.Abs(obj.Current-obj.Target) / obj.Target
}
