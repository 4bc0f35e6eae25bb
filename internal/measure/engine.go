// Package measure executes measurement specs through pluggable per-method
// handlers and assembles signed evidence packages.
package measure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cmc3bear/objectivegate/internal/evidence"
	"github.com/cmc3bear/objectivegate/internal/model"
)

// Reading is what a handler reports for one spec.
type Reading struct {
	Baseline float64        `json:"baseline"`
	Actual   float64        `json:"actual"`
	Details  map[string]any `json:"details,omitempty"`
}

// Handler measures one spec. Production deployments supply real
// instrumentation behind this contract; the built-in handlers simulate.
type Handler interface {
	Measure(ctx context.Context, spec model.MeasurementSpec, change model.Change) (Reading, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, spec model.MeasurementSpec, change model.Change) (Reading, error)

// Measure implements Handler.
func (f HandlerFunc) Measure(ctx context.Context, spec model.MeasurementSpec, change model.Change) (Reading, error) {
	return f(ctx, spec, change)
}

// ArtifactWriter persists one named artifact. *evidence.Store implements it.
type ArtifactWriter interface {
	WriteArtifact(name string, payload any) (model.Artifact, error)
}

// Package is the outcome of one measurement run: per-spec measurements, a
// run-level significance summary, and a deterministic certificate hash.
type Package struct {
	ChangeID        string              `json:"change_id"`
	Timestamp       time.Time           `json:"timestamp"`
	Measurements    []model.Measurement `json:"measurements"`
	Significance    Significance        `json:"significance"`
	CertificateHash string              `json:"certificate_hash"`
	Artifacts       []model.Artifact    `json:"artifacts,omitempty"`
}

// AllPassed reports whether every measurement in the package passed.
func (p *Package) AllPassed() bool {
	for _, m := range p.Measurements {
		if !m.Passed {
			return false
		}
	}
	return true
}

// Engine dispatches specs to handlers by method tag. The registry is an
// open, string-keyed set — callers may register new methods at any time.
type Engine struct {
	mu           sync.RWMutex
	handlers     map[string]Handler
	store        ArtifactWriter
	timeout      time.Duration
	significance SignificanceFunc
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout caps each handler call. A handler that exceeds it is recorded
// as a failed measurement ("timeout"), not a crash.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithSignificance replaces the simplified significance computation.
func WithSignificance(f SignificanceFunc) Option {
	return func(e *Engine) { e.significance = f }
}

// WithClock replaces the engine's clock (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine with the built-in simulated handlers
// registered. store may be nil to skip artifact persistence.
func NewEngine(store ArtifactWriter, opts ...Option) *Engine {
	e := &Engine{
		handlers:     builtinHandlers(),
		store:        store,
		timeout:      10 * time.Second,
		significance: SimplifiedSignificance,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterHandler installs (or replaces) the handler for a method tag.
func (e *Engine) RegisterHandler(method string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[method] = h
}

// Execute runs every spec in the plan sequentially and assembles the
// evidence package. A failing or missing handler records a failed
// measurement and does not abort siblings.
func (e *Engine) Execute(ctx context.Context, change model.Change, plan *model.TestPlan) (*Package, error) {
	pkg := &Package{
		ChangeID:  change.ID,
		Timestamp: e.now().UTC(),
	}

	for _, spec := range plan.Specs {
		m := e.runSpec(ctx, spec, change)
		pkg.Measurements = append(pkg.Measurements, m)
	}

	improvements := make([]float64, 0, len(pkg.Measurements))
	for _, m := range pkg.Measurements {
		improvements = append(improvements, m.ImprovementPct)
	}
	pkg.Significance = e.significance(improvements)
	pkg.CertificateHash = packageHash(pkg)

	if e.store != nil {
		art, err := e.store.WriteArtifact(evidence.PackageArtifactName(change.ID), pkg)
		if err != nil {
			return pkg, fmt.Errorf("measure: persist evidence package: %w", err)
		}
		pkg.Artifacts = append(pkg.Artifacts, art)
	}

	return pkg, nil
}

// runSpec dispatches one spec under the engine's timeout and computes the
// pass verdict. The pass criterion is literal: the absolute improvement
// must reach the tolerance band, not the target.
func (e *Engine) runSpec(ctx context.Context, spec model.MeasurementSpec, change model.Change) model.Measurement {
	e.mu.RLock()
	handler, ok := e.handlers[spec.Method]
	e.mu.RUnlock()

	m := model.Measurement{Spec: spec}

	if !ok {
		m.Evidence = fmt.Sprintf("no handler registered for method %q", spec.Method)
		return m
	}

	reading, err := e.measureWithTimeout(ctx, handler, spec, change)
	if err != nil {
		m.Evidence = err.Error()
		return m
	}

	m.Baseline = reading.Baseline
	m.Actual = reading.Actual
	m.ImprovementPct = improvementPct(reading.Baseline, reading.Actual)
	m.Passed = abs(m.ImprovementPct) >= spec.TolerancePct
	m.Evidence = fmt.Sprintf("%s: baseline %.2f, actual %.2f, improvement %.2f%%",
		spec.Method, m.Baseline, m.Actual, m.ImprovementPct)

	if e.store != nil {
		art, err := e.store.WriteArtifact(evidence.MeasurementArtifactName(spec.Metric, change.ID), reading)
		if err != nil {
			m.Evidence += fmt.Sprintf(" (artifact not persisted: %v)", err)
		} else {
			m.ArtifactPath = art.Path
		}
	}

	return m
}

// measureWithTimeout runs the handler in a goroutine and abandons it on
// timeout. There is no cancellation of an in-flight verification; a timed
// out handler is simply recorded as a failed measurement.
func (e *Engine) measureWithTimeout(ctx context.Context, h Handler, spec model.MeasurementSpec, change model.Change) (Reading, error) {
	type outcome struct {
		reading Reading
		err     error
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		reading, err := h.Measure(ctx, spec, change)
		ch <- outcome{reading: reading, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return Reading{}, fmt.Errorf("measurement failed: %w", out.err)
		}
		return out.reading, nil
	case <-ctx.Done():
		return Reading{}, fmt.Errorf("timeout")
	}
}

// improvementPct is (actual-baseline)/baseline*100, guarded to 0 when the
// baseline is 0.
func improvementPct(baseline, actual float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (actual - baseline) / baseline * 100
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// packageHash is a deterministic function of (change id, timestamp,
// per-measurement summaries). Recomputing with identical inputs reproduces
// the same hash.
func packageHash(pkg *Package) string {
	type summary struct {
		Metric         string  `json:"metric"`
		Baseline       float64 `json:"baseline"`
		Actual         float64 `json:"actual"`
		ImprovementPct float64 `json:"improvement_pct"`
		Passed         bool    `json:"passed"`
	}
	payload := struct {
		ChangeID  string    `json:"change_id"`
		Timestamp string    `json:"timestamp"`
		Summaries []summary `json:"summaries"`
	}{
		ChangeID:  pkg.ChangeID,
		Timestamp: pkg.Timestamp.Format(time.RFC3339Nano),
	}
	for _, m := range pkg.Measurements {
		payload.Summaries = append(payload.Summaries, summary{
			Metric:         m.Spec.Metric,
			Baseline:       m.Baseline,
			Actual:         m.Actual,
			ImprovementPct: m.ImprovementPct,
			Passed:         m.Passed,
		})
	}
	hash, err := evidence.HashPayload(payload)
	if err != nil {
		// Marshal of plain structs cannot fail; keep the signature total.
		return ""
	}
	return hash
}
