package measure

import "math"

// Significance summarizes the improvement percentages of one measurement
// run: mean, variance-derived 95% confidence interval, and a simplified
// p-value heuristic.
type Significance struct {
	Samples  int     `json:"samples"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	CILow    float64 `json:"ci_low"`
	CIHigh   float64 `json:"ci_high"`
	PValue   float64 `json:"p_value"`
}

// SignificanceFunc computes the run-level summary. The default is a
// documented simplification; replace it via WithSignificance when real
// statistical inference is wired in.
type SignificanceFunc func(improvements []float64) Significance

// SimplifiedSignificance is NOT a real hypothesis test. The p-value is a
// monotone heuristic on the t-like statistic |mean| / stderr: it shrinks as
// the evidence strengthens but has no distributional justification. It
// exists so the evidence package carries a comparable significance figure
// until a real test replaces it.
func SimplifiedSignificance(improvements []float64) Significance {
	n := len(improvements)
	if n == 0 {
		return Significance{PValue: 1}
	}

	sum := 0.0
	for _, v := range improvements {
		sum += v
	}
	mean := sum / float64(n)

	variance := 0.0
	for _, v := range improvements {
		d := v - mean
		variance += d * d
	}
	if n > 1 {
		variance /= float64(n - 1)
	}

	stderr := math.Sqrt(variance / float64(n))
	// 1.96 standard errors either side for the 95% interval.
	ciDelta := 1.96 * stderr

	p := 1.0
	switch {
	case stderr == 0 && mean != 0:
		p = 0.001
	case stderr == 0:
		p = 1.0
	default:
		t := math.Abs(mean) / stderr
		p = 1 / (1 + t)
	}

	return Significance{
		Samples:  n,
		Mean:     mean,
		Variance: variance,
		CILow:    mean - ciDelta,
		CIHigh:   mean + ciDelta,
		PValue:   p,
	}
}
