// Package decision classifies a change's overall impact, vetoes critical
// violations, and issues the verdict.
package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/cmc3bear/objectivegate/internal/model"
	"github.com/cmc3bear/objectivegate/internal/objective"
)

// majorNegativeAbovePct is the boundary between minor and major negative
// classifications, in percentage points of the largest absolute impact.
const majorNegativeAbovePct = 10.0

// followUpDue is how long a rejected change's author gets for remediation.
const followUpDue = 24 * time.Hour

// Violation is a critical-objective threshold breach. It short-circuits the
// entire pipeline: no tests run and the change is rejected.
type Violation struct {
	ObjectiveID string
	Message     string
}

// Engine resolves impacts against the registry's objective levels.
type Engine struct {
	registry *objective.Registry
	now      func() time.Time
}

// NewEngine creates a decision engine bound to a registry.
func NewEngine(reg *objective.Registry) *Engine {
	return &Engine{registry: reg, now: time.Now}
}

// CheckCriticalViolations returns the first impact whose projected value
// breaches a CRITICAL objective's threshold, or nil when none do.
func (e *Engine) CheckCriticalViolations(impacts []model.ObjectiveImpact) *Violation {
	for _, impact := range impacts {
		obj, err := e.registry.Get(impact.ObjectiveID)
		if err != nil {
			continue
		}
		if obj.Level != model.LevelCritical {
			continue
		}
		if obj.Threshold.Breaches(impact.ProjectedValue) {
			return &Violation{
				ObjectiveID: obj.ID,
				Message: fmt.Sprintf("critical objective %q: projected value %.2f %s breaches threshold",
					obj.ID, impact.ProjectedValue, obj.Unit),
			}
		}
	}
	return nil
}

// FirstCriticalNegative returns a violation for the first negative impact
// on a CRITICAL objective, or nil. Unlike CheckCriticalViolations it does
// not require a projected threshold breach.
func (e *Engine) FirstCriticalNegative(impacts []model.ObjectiveImpact) *Violation {
	for _, impact := range impacts {
		obj, err := e.registry.Get(impact.ObjectiveID)
		if err != nil || obj.Level != model.LevelCritical {
			continue
		}
		if impact.Impact < 0 {
			return &Violation{
				ObjectiveID: obj.ID,
				Message: fmt.Sprintf("critical objective %q: predicted negative impact %.1f%%",
					obj.ID, impact.Impact),
			}
		}
	}
	return nil
}

// Classify buckets the combined impacts.
//
// The veto comes first and overrides every other rule: any negative impact
// on a CRITICAL objective is BLOCKING. Otherwise, all-positive impacts take
// the positive tier of the highest objective level touched; negatives split
// into major/minor on the largest absolute impact; no impacts (or only
// confirmed-zero ones) are NEUTRAL.
func (e *Engine) Classify(impacts []model.ObjectiveImpact) model.Classification {
	levelOf := func(id string) model.ObjectiveLevel {
		obj, err := e.registry.Get(id)
		if err != nil {
			return model.LevelGrowth
		}
		return obj.Level
	}

	for _, impact := range impacts {
		if impact.Impact < 0 && levelOf(impact.ObjectiveID) == model.LevelCritical {
			return model.Blocking
		}
	}

	allPositive := len(impacts) > 0
	hasNegative := false
	maxAbsNegative := 0.0
	highestPositive := model.LevelGrowth

	for _, impact := range impacts {
		switch {
		case impact.Impact > 0:
			level := levelOf(impact.ObjectiveID)
			if model.LevelRank[level] > model.LevelRank[highestPositive] {
				highestPositive = level
			}
		case impact.Impact < 0:
			allPositive = false
			hasNegative = true
			if a := math.Abs(impact.Impact); a > maxAbsNegative {
				maxAbsNegative = a
			}
		default:
			allPositive = false
		}
	}

	switch {
	case allPositive:
		switch highestPositive {
		case model.LevelCritical:
			return model.CriticalPositive
		case model.LevelCore:
			return model.CorePositive
		default:
			return model.GrowthPositive
		}
	case hasNegative:
		if maxAbsNegative > majorNegativeAbovePct {
			return model.MajorNegative
		}
		return model.MinorNegative
	default:
		return model.Neutral
	}
}

// Decide maps (classification, test outcome) to a verdict. This table is
// exhaustive — no other combinations exist.
func (e *Engine) Decide(classification model.Classification, allTestsPassed bool) model.Decision {
	switch classification {
	case model.CriticalPositive:
		if allTestsPassed {
			return model.Decision{
				Verdict:   model.VerdictApproved,
				Rationale: "critical objective advanced and all tests passed",
			}
		}
		return model.Decision{
			Verdict:    model.VerdictConditional,
			Rationale:  "critical objective advanced but tests failed",
			Conditions: []string{"fix failing tests"},
		}
	case model.Blocking:
		return model.Decision{
			Verdict:   model.VerdictRejected,
			Rationale: "change negatively impacts a critical objective",
		}
	case model.Neutral:
		if allTestsPassed {
			return model.Decision{
				Verdict:   model.VerdictApproved,
				Rationale: "no objective impact detected and all tests passed",
			}
		}
		return model.Decision{
			Verdict:    model.VerdictConditional,
			Rationale:  "no objective impact detected but tests failed",
			Conditions: []string{"ensure no regressions"},
		}
	default:
		return model.Decision{
			Verdict:    model.VerdictConditional,
			Rationale:  fmt.Sprintf("classification %s requires human judgment", classification),
			Conditions: []string{"manual review required"},
		}
	}
}

// RejectForViolation builds the rejection decision for a vetoed change,
// with a follow-up action assigned to the author due in 24 hours.
func (e *Engine) RejectForViolation(change model.Change, v *Violation) model.Decision {
	return model.Decision{
		Verdict:   model.VerdictRejected,
		Rationale: v.Message,
		FollowUps: []model.FollowUpAction{
			{
				Assignee:    change.Author,
				Description: fmt.Sprintf("resolve critical violation: %s", v.Message),
				DueAt:       e.now().UTC().Add(followUpDue),
			},
		},
	}
}
