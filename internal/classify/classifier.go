// Package classify predicts the per-objective effect of a proposed change.
//
// Prediction is a pluggable capability: one strategy per objective ID. The
// built-in strategies are keyword heuristics over the change description,
// cross-checked against the change kind. A statistical or ML predictor can
// be registered for any objective without touching the pipeline.
package classify

import (
	"sync"

	"github.com/cmc3bear/objectivegate/internal/model"
)

// Strategy predicts a change's impact on one objective.
//
// The boolean distinguishes "no detected relevance" (false) from a
// confirmed zero impact (true with Impact == 0). Callers must not collapse
// the two.
type Strategy interface {
	Predict(change model.Change, obj model.Objective) (model.ObjectiveImpact, bool)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(change model.Change, obj model.Objective) (model.ObjectiveImpact, bool)

// Predict implements Strategy.
func (f StrategyFunc) Predict(change model.Change, obj model.Objective) (model.ObjectiveImpact, bool) {
	return f(change, obj)
}

// Classifier routes predictions to per-objective strategies.
type Classifier struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewClassifier creates a classifier with the built-in keyword strategies
// for the default objective set.
func NewClassifier() *Classifier {
	c := &Classifier{strategies: make(map[string]Strategy)}
	for id, s := range builtinStrategies() {
		c.strategies[id] = s
	}
	return c
}

// RegisterStrategy installs (or replaces) the strategy for one objective.
func (c *Classifier) RegisterStrategy(objectiveID string, s Strategy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies[objectiveID] = s
}

// Predict returns the predicted impact of change on obj, or ok=false when
// no strategy exists for the objective or the strategy finds no relevance.
func (c *Classifier) Predict(change model.Change, obj model.Objective) (model.ObjectiveImpact, bool) {
	c.mu.RLock()
	s, ok := c.strategies[obj.ID]
	c.mu.RUnlock()
	if !ok {
		return model.ObjectiveImpact{}, false
	}
	return s.Predict(change, obj)
}

// PredictAll runs Predict against every objective and collects the impacts
// that were found. Objectives with no detected relevance are omitted.
func (c *Classifier) PredictAll(change model.Change, objectives []model.Objective) []model.ObjectiveImpact {
	var impacts []model.ObjectiveImpact
	for _, obj := range objectives {
		if impact, ok := c.Predict(change, obj); ok {
			impacts = append(impacts, impact)
		}
	}
	return impacts
}
