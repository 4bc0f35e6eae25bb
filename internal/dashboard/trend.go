package dashboard

import "time"

// Trend labels the direction an objective's value is moving.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDegrading Trend = "degrading"
)

// trendSamples is how many recent snapshots feed the trend computation.
const trendSamples = 10

// snapshotPoint is one recorded (time, value) observation of an objective.
type snapshotPoint struct {
	At    time.Time
	Value float64
}

// ComputeTrend compares the mean of the first half of the samples against
// the second half. Movement below 1% of the first-half mean is stable.
// Direction is raw value movement; whether "up" is good is the health
// rule's business, not the trend's.
func ComputeTrend(values []float64) Trend {
	if len(values) > trendSamples {
		values = values[len(values)-trendSamples:]
	}
	if len(values) < 2 {
		return TrendStable
	}
	half := len(values) / 2
	first := mean(values[:half])
	second := mean(values[half:])

	threshold := abs(first) * 0.01
	delta := second - first
	switch {
	case delta > threshold:
		return TrendImproving
	case delta < -threshold:
		return TrendDegrading
	default:
		return TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// trendWindow retains snapshot points for a fixed horizon and only admits
// new points after a minimum spacing. The daily window admits every tick;
// weekly and monthly windows subsample.
type trendWindow struct {
	retain  time.Duration
	spacing time.Duration
	points  []snapshotPoint
}

func newTrendWindow(retain, spacing time.Duration) *trendWindow {
	return &trendWindow{retain: retain, spacing: spacing}
}

// record admits the point if spacing allows, then prunes expired points.
func (w *trendWindow) record(at time.Time, value float64) {
	if n := len(w.points); n > 0 && w.spacing > 0 && at.Sub(w.points[n-1].At) < w.spacing {
		w.prune(at)
		return
	}
	w.points = append(w.points, snapshotPoint{At: at, Value: value})
	w.prune(at)
}

func (w *trendWindow) prune(now time.Time) {
	cutoff := now.Add(-w.retain)
	keep := 0
	for keep < len(w.points) && w.points[keep].At.Before(cutoff) {
		keep++
	}
	if keep > 0 {
		w.points = append(w.points[:0], w.points[keep:]...)
	}
}

func (w *trendWindow) values() []float64 {
	out := make([]float64, 0, len(w.points))
	for _, p := range w.points {
		out = append(out, p.Value)
	}
	return out
}

// objectiveHistory holds the three retention windows for one objective.
type objectiveHistory struct {
	daily   *trendWindow
	weekly  *trendWindow
	monthly *trendWindow
}

func newObjectiveHistory() *objectiveHistory {
	return &objectiveHistory{
		daily:   newTrendWindow(24*time.Hour, 0),
		weekly:  newTrendWindow(7*24*time.Hour, time.Hour),
		monthly: newTrendWindow(30*24*time.Hour, 24*time.Hour),
	}
}

func (h *objectiveHistory) record(at time.Time, value float64) {
	h.daily.record(at, value)
	h.weekly.record(at, value)
	h.monthly.record(at, value)
}
