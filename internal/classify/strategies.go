package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cmc3bear/objectivegate/internal/model"
)

// percentPattern picks up an explicit "by N%" magnitude in a description.
var percentPattern = regexp.MustCompile(`by\s+(\d+(?:\.\d+)?)\s*%`)

// keywordStrategy is the built-in heuristic: relevance keywords gate the
// prediction, direction verbs set the sign, an explicit "by N%" (or the
// default) sets the magnitude, and the change kind adjusts confidence.
type keywordStrategy struct {
	relevance     []string
	positiveVerbs []string
	negativeVerbs []string
	defaultPct    float64
	lowerIsBetter bool
	// breachOnNegative marks objectives where any negative signal means the
	// protected mechanism is being removed outright, not degraded by a
	// percentage. The projection then breaches the objective's threshold.
	breachOnNegative bool
	kindBoost        map[model.ChangeKind]float64
}

func (s keywordStrategy) Predict(change model.Change, obj model.Objective) (model.ObjectiveImpact, bool) {
	desc := strings.ToLower(change.Description)

	keyword, relevant := firstMatch(desc, s.relevance)
	if !relevant {
		return model.ObjectiveImpact{}, false
	}

	evidence := []string{fmt.Sprintf("keyword %q matched in description", keyword)}

	// Negative verbs win over positive ones: "remove X to improve Y" is a
	// removal of X first.
	sign := 0.0
	if verb, ok := firstMatch(desc, s.positiveVerbs); ok {
		sign = 1
		evidence = append(evidence, fmt.Sprintf("improvement verb %q", verb))
	}
	if verb, ok := firstMatch(desc, s.negativeVerbs); ok {
		sign = -1
		evidence = append(evidence, fmt.Sprintf("regression verb %q", verb))
	}

	confidence := 50.0
	if sign != 0 {
		confidence += 20
	}

	pct := s.defaultPct
	if m := percentPattern.FindStringSubmatch(desc); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			pct = v
			confidence += 10
			evidence = append(evidence, fmt.Sprintf("explicit magnitude claim: %s%%", m[1]))
		}
	}

	if boost, ok := s.kindBoost[change.Kind]; ok {
		confidence += boost
		evidence = append(evidence, fmt.Sprintf("change kind %q supports prediction", change.Kind))
	}
	if confidence > 95 {
		confidence = 95
	}

	impact := sign * pct
	projected := obj.Current

	switch {
	case sign < 0 && s.breachOnNegative:
		impact = -100
		projected = breachedProjection(obj)
		evidence = append(evidence, "protected mechanism removal detected")
	case s.lowerIsBetter:
		// Improvement reduces the value, regression raises it.
		projected = obj.Current * (1 - impact/100)
	default:
		projected = obj.Current * (1 + impact/100)
	}

	return model.ObjectiveImpact{
		ObjectiveID:    obj.ID,
		CurrentValue:   obj.Current,
		ProjectedValue: projected,
		Impact:         impact,
		Confidence:     confidence,
		Evidence:       evidence,
	}, true
}

// breachedProjection picks a projected value just outside the objective's
// threshold, so the veto check trips on it.
func breachedProjection(obj model.Objective) float64 {
	if obj.Threshold != nil {
		if obj.Threshold.Max != nil {
			return *obj.Threshold.Max + 1
		}
		if obj.Threshold.Min != nil {
			return *obj.Threshold.Min - 1
		}
	}
	return 0
}

func firstMatch(desc string, words []string) (string, bool) {
	for _, w := range words {
		if strings.Contains(desc, w) {
			return w, true
		}
	}
	return "", false
}

// builtinStrategies wires the keyword heuristics for the default objective
// set. Verb lists are shared; relevance keywords are per objective.
func builtinStrategies() map[string]Strategy {
	improve := []string{"improve", "optimiz", "increase", "boost", "speed up", "faster", "strengthen", "enhance", "fix"}
	degrade := []string{"remove", "disable", "bypass", "skip", "degrade", "slow down", "drop"}

	return map[string]Strategy{
		"s2_fps": keywordStrategy{
			relevance:     []string{"fps", "frame", "render", "canvas", "performance", "latency", "speed"},
			positiveVerbs: improve,
			negativeVerbs: degrade,
			defaultPct:    10,
			kindBoost: map[model.ChangeKind]float64{
				model.KindFix:      10,
				model.KindRefactor: 10,
				model.KindFeature:  5,
			},
		},
		"s1_safety_incidents": keywordStrategy{
			relevance:        []string{"safety", "filter", "content", "guideline", "moderation"},
			positiveVerbs:    improve,
			negativeVerbs:    degrade,
			defaultPct:       5,
			lowerIsBetter:    true,
			breachOnNegative: true,
			kindBoost: map[model.ChangeKind]float64{
				model.KindFix: 10,
			},
		},
		"c1_guideline_compliance": keywordStrategy{
			relevance:     []string{"guideline", "compliance", "policy", "standard", "palette"},
			positiveVerbs: improve,
			negativeVerbs: degrade,
			defaultPct:    3,
			kindBoost: map[model.ChangeKind]float64{
				model.KindFix:    10,
				model.KindConfig: 5,
			},
		},
		"c2_first_attempt_success": keywordStrategy{
			relevance:     []string{"accuracy", "success", "quality", "correct", "generation"},
			positiveVerbs: improve,
			negativeVerbs: degrade,
			defaultPct:    5,
			kindBoost: map[model.ChangeKind]float64{
				model.KindFix:     10,
				model.KindFeature: 5,
			},
		},
		"g1_monthly_active_creators": keywordStrategy{
			relevance:     []string{"creator", "user", "onboard", "engagement", "retention", "share", "export"},
			positiveVerbs: improve,
			negativeVerbs: degrade,
			defaultPct:    2,
			kindBoost: map[model.ChangeKind]float64{
				model.KindFeature: 10,
			},
		},
		"g2_agent_efficiency": keywordStrategy{
			relevance:     []string{"agent", "efficiency", "automat", "workflow", "token", "pipeline"},
			positiveVerbs: improve,
			negativeVerbs: degrade,
			defaultPct:    5,
			kindBoost: map[model.ChangeKind]float64{
				model.KindRefactor: 10,
				model.KindFix:      5,
			},
		},
	}
}
