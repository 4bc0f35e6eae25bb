// Package claims turns a change's free-text description into measurement
// specs and test cases.
package claims

import (
	"regexp"
	"strconv"
	"strings"
)

// Default improvement expectations for implicit claims.
const (
	implicitResponseTimePct = 30
	implicitFPSPct          = 15
)

// Claim is one measurable assertion extracted from a change description.
type Claim struct {
	Metric         string  `json:"metric"`
	Direction      string  `json:"direction"` // "improve", "reduce", "increase"
	Baseline       float64 `json:"baseline"`  // 0 when unknown; plan defaults fill it
	Target         float64 `json:"target"`    // 0 when unknown
	Unit           string  `json:"unit,omitempty"`
	ImprovementPct float64 `json:"improvement_pct"`
	Implicit       bool    `json:"implicit"`
}

// Extractor pulls claims out of a description. The pattern matcher below is
// the reference implementation; a real NLP component can replace it without
// touching the plan generator.
type Extractor interface {
	Extract(description string) []Claim
}

// The three extraction patterns. Matching is fuzzy by nature; the patterns
// are kept literal so behavior stays reproducible.
var (
	// "improve fps by 15%" / "reduce latency by 20%"
	deltaPattern = regexp.MustCompile(`(?i)\b(improve|reduce)\s+([a-z_ ]+?)\s+by\s+(\d+(?:\.\d+)?)\s*%`)
	// "increase accuracy to 97 %"
	absolutePattern = regexp.MustCompile(`(?i)\bincrease\s+([a-z_ ]+?)\s+to\s+(\d+(?:\.\d+)?)\s*([a-z%]+)`)
	// "under 3 seconds" / "< 3 seconds"
	secondsPattern = regexp.MustCompile(`(?i)(?:\bunder|<)\s*(\d+(?:\.\d+)?)\s*seconds?`)
	// "60+ fps"
	fpsPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*\+\s*fps`)
)

// PatternExtractor implements Extractor with the three literal patterns.
type PatternExtractor struct{}

// NewPatternExtractor returns the reference extractor.
func NewPatternExtractor() *PatternExtractor { return &PatternExtractor{} }

// Extract applies the three patterns in order. Implicit claims ("under N
// seconds", "N+ fps") carry fixed default improvement expectations.
func (PatternExtractor) Extract(description string) []Claim {
	var claims []Claim

	for _, m := range deltaPattern.FindAllStringSubmatch(description, -1) {
		pct, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		claims = append(claims, Claim{
			Metric:         normalizeMetric(m[2]),
			Direction:      strings.ToLower(m[1]),
			ImprovementPct: pct,
		})
	}

	for _, m := range absolutePattern.FindAllStringSubmatch(description, -1) {
		target, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		claims = append(claims, Claim{
			Metric:    normalizeMetric(m[1]),
			Direction: "increase",
			Target:    target,
			Unit:      strings.ToLower(m[3]),
		})
	}

	for _, m := range secondsPattern.FindAllStringSubmatch(description, -1) {
		target, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		claims = append(claims, Claim{
			Metric:         "response_time",
			Direction:      "reduce",
			Target:         target,
			Unit:           "seconds",
			ImprovementPct: implicitResponseTimePct,
			Implicit:       true,
		})
	}

	for _, m := range fpsPattern.FindAllStringSubmatch(description, -1) {
		target, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		claims = append(claims, Claim{
			Metric:         "fps",
			Direction:      "improve",
			Target:         target,
			Unit:           "fps",
			ImprovementPct: implicitFPSPct,
			Implicit:       true,
		})
	}

	return claims
}

// normalizeMetric trims and snake_cases a captured metric name.
func normalizeMetric(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.ReplaceAll(s, " ", "_")
}

// merge folds claims about the same metric into one: explicit percentages
// win over implicit defaults, and the first known target/baseline sticks.
func merge(claims []Claim) []Claim {
	var out []Claim
	index := map[string]int{}
	for _, c := range claims {
		i, seen := index[c.Metric]
		if !seen {
			index[c.Metric] = len(out)
			out = append(out, c)
			continue
		}
		merged := out[i]
		if merged.Target == 0 {
			merged.Target = c.Target
		}
		if merged.Baseline == 0 {
			merged.Baseline = c.Baseline
		}
		if merged.Unit == "" {
			merged.Unit = c.Unit
		}
		// An explicit claim overrides an implicit one's expectation.
		if merged.Implicit && !c.Implicit {
			merged.ImprovementPct = c.ImprovementPct
			merged.Direction = c.Direction
			merged.Implicit = false
		}
		out[i] = merged
	}
	return out
}
