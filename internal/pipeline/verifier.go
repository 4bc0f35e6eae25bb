// Package pipeline wires the verification stages into one sequential flow:
// classify, veto-check, generate tests, measure, execute, decide, certify.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmc3bear/objectivegate/internal/certificate"
	"github.com/cmc3bear/objectivegate/internal/claims"
	"github.com/cmc3bear/objectivegate/internal/classify"
	"github.com/cmc3bear/objectivegate/internal/decision"
	"github.com/cmc3bear/objectivegate/internal/evidence"
	"github.com/cmc3bear/objectivegate/internal/executor"
	"github.com/cmc3bear/objectivegate/internal/measure"
	"github.com/cmc3bear/objectivegate/internal/model"
	"github.com/cmc3bear/objectivegate/internal/objective"
)

// Observer is notified after each completed verification. The dashboard
// implements it.
type Observer interface {
	ObserveVerification(result model.VerificationResult, duration time.Duration)
}

// Config assembles a Verifier. Registry and EvidenceStore are required;
// nil stage components get defaults; Journal and Certificates are optional
// persistence sinks.
type Config struct {
	Registry      *objective.Registry
	Classifier    *classify.Classifier
	Generator     *claims.Generator
	Measurer      *measure.Engine
	Executor      *executor.Executor
	Decider       *decision.Engine
	Issuer        *certificate.Issuer
	EvidenceStore *evidence.Store
	Journal       *evidence.Journal
	Certificates  *certificate.Store
}

// Verifier runs the verification pipeline. One call is strictly sequential;
// independent calls may run concurrently — shared state lives in the
// registry and observers, both of which serialize their own writes.
type Verifier struct {
	registry   *objective.Registry
	classifier *classify.Classifier
	generator  *claims.Generator
	measurer   *measure.Engine
	executor   *executor.Executor
	decider    *decision.Engine
	issuer     *certificate.Issuer
	store      *evidence.Store
	journal    *evidence.Journal
	certs      *certificate.Store

	mu        sync.Mutex
	observers []Observer
	now       func() time.Time
}

// NewVerifier builds a Verifier from config.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("pipeline: registry is required")
	}
	if cfg.EvidenceStore == nil {
		return nil, fmt.Errorf("pipeline: evidence store is required")
	}
	v := &Verifier{
		registry:   cfg.Registry,
		classifier: cfg.Classifier,
		generator:  cfg.Generator,
		measurer:   cfg.Measurer,
		executor:   cfg.Executor,
		decider:    cfg.Decider,
		issuer:     cfg.Issuer,
		store:      cfg.EvidenceStore,
		journal:    cfg.Journal,
		certs:      cfg.Certificates,
		now:        time.Now,
	}
	if v.classifier == nil {
		v.classifier = classify.NewClassifier()
	}
	if v.generator == nil {
		v.generator = claims.NewGenerator(nil)
	}
	if v.measurer == nil {
		v.measurer = measure.NewEngine(cfg.EvidenceStore)
	}
	if v.executor == nil {
		v.executor = executor.NewExecutor()
	}
	if v.decider == nil {
		v.decider = decision.NewEngine(cfg.Registry)
	}
	if v.issuer == nil {
		v.issuer = certificate.NewIssuer()
	}
	return v, nil
}

// Subscribe registers an observer for completed verifications.
func (v *Verifier) Subscribe(obs Observer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, obs)
}

// VerifyChange runs the full pipeline for one change and returns the
// verification result. It always terminates with exactly one verdict.
func (v *Verifier) VerifyChange(ctx context.Context, change model.Change) (*model.VerificationResult, error) {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	started := v.now()

	impacts := v.classifier.PredictAll(change, v.registry.All())

	// Veto check: a projected critical threshold breach, or any negative
	// impact on a critical objective, short-circuits to rejection with
	// zero tests run.
	viol := v.decider.CheckCriticalViolations(impacts)
	classification := v.decider.Classify(impacts)
	if viol == nil && classification == model.Blocking {
		viol = v.decider.FirstCriticalNegative(impacts)
	}
	if viol != nil {
		result := v.rejectVetoed(change, impacts, viol)
		v.notify(*result, v.now().Sub(started))
		return result, nil
	}

	plan, err := v.generator.Generate(change)
	if err != nil {
		return nil, fmt.Errorf("pipeline: generate test plan: %w", err)
	}

	pkg, pkgErr := v.measurer.Execute(ctx, change, plan)
	exec := v.executor.ExecutePlan(ctx, plan)

	// Evidence is persisted (and awaited) before the certificate is
	// issued; persistence failures downgrade the evidence to unverified
	// instead of failing the verification.
	measurementEvidence := v.persistEvidence("measurement_package", change.ID,
		fmt.Sprintf("%d measurements, significance p=%.3f", len(pkg.Measurements), pkg.Significance.PValue),
		pkg, pkg.Artifacts)
	if pkgErr != nil {
		measurementEvidence.Verified = false
		fmt.Fprintf(os.Stderr, "pipeline: measurement artifacts incomplete: %v\n", pkgErr)
	}

	execArtifacts := v.persistExecution(&exec)
	passed, total := exec.PassCounts()
	executionEvidence := v.persistEvidence("test_execution", change.ID,
		fmt.Sprintf("%d/%d cases passed, status %s", passed, total, exec.Status),
		exec, execArtifacts)

	allTestsPassed := exec.Status == model.ExecPassed && pkg.AllPassed()
	dec := v.decider.Decide(classification, allTestsPassed)

	result := &model.VerificationResult{
		ChangeID:       change.ID,
		Classification: classification,
		Impacts:        impacts,
		Executions:     []model.TestExecution{exec},
		Evidence:       []model.Evidence{measurementEvidence, executionEvidence},
		Decision:       dec,
	}
	v.certify(change, result)
	v.notify(*result, v.now().Sub(started))
	return result, nil
}

// rejectVetoed builds the short-circuit rejection: no plan, no tests, a
// follow-up action for the author, and a certificate recording the veto.
func (v *Verifier) rejectVetoed(change model.Change, impacts []model.ObjectiveImpact, viol *decision.Violation) *model.VerificationResult {
	dec := v.decider.RejectForViolation(change, viol)

	ev := v.persistEvidence("critical_violation", change.ID, viol.Message, struct {
		ChangeID    string                  `json:"change_id"`
		ObjectiveID string                  `json:"objective_id"`
		Message     string                  `json:"message"`
		Impacts     []model.ObjectiveImpact `json:"impacts"`
	}{change.ID, viol.ObjectiveID, viol.Message, impacts}, nil)

	result := &model.VerificationResult{
		ChangeID:       change.ID,
		Classification: model.Blocking,
		Impacts:        impacts,
		Executions:     []model.TestExecution{},
		Evidence:       []model.Evidence{ev},
		Decision:       dec,
	}
	v.certify(change, result)
	return result
}

// persistEvidence signs a payload, writes its evidence artifact, and
// appends the journal record. Any persistence failure marks the evidence
// unverified.
func (v *Verifier) persistEvidence(kind, changeID, summary string, payload any, artifacts []model.Artifact) model.Evidence {
	ev := model.Evidence{
		ID:        uuid.NewString(),
		Kind:      kind,
		ChangeID:  changeID,
		Summary:   summary,
		Artifacts: artifacts,
		Verified:  true,
		Timestamp: v.now().UTC(),
	}

	hash, err := evidence.HashPayload(payload)
	if err != nil {
		ev.Verified = false
		fmt.Fprintf(os.Stderr, "pipeline: sign evidence %s: %v\n", ev.ID, err)
		return ev
	}
	ev.Hash = hash

	if art, err := v.store.WriteArtifact(evidence.EvidenceArtifactName(ev.ID), ev); err != nil {
		ev.Verified = false
		fmt.Fprintf(os.Stderr, "pipeline: persist evidence %s: %v\n", ev.ID, err)
	} else {
		ev.Artifacts = append(ev.Artifacts, art)
	}

	if v.journal != nil {
		rec := evidence.Record{
			ChangeID:    changeID,
			EvidenceID:  ev.ID,
			Kind:        kind,
			Summary:     summary,
			PayloadHash: ev.Hash,
		}
		if err := v.journal.Record(rec); err != nil {
			ev.Verified = false
			fmt.Fprintf(os.Stderr, "pipeline: journal evidence %s: %v\n", ev.ID, err)
		}
	}

	return ev
}

// persistExecution writes the execution artifact and returns it for the
// execution's evidence record.
func (v *Verifier) persistExecution(exec *model.TestExecution) []model.Artifact {
	art, err := v.store.WriteArtifact(evidence.ExecutionArtifactName(exec.ID), exec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: persist execution %s: %v\n", exec.ID, err)
		return nil
	}
	return []model.Artifact{art}
}

// certify issues the certificate and stores it when a store is configured.
func (v *Verifier) certify(change model.Change, result *model.VerificationResult) {
	cert := v.issuer.Issue(change, result.Decision, result.Impacts, result.Executions)
	result.Certificate = &cert
	if v.certs != nil {
		if err := v.certs.Save(cert); err != nil {
			fmt.Fprintf(os.Stderr, "pipeline: store certificate %s: %v\n", cert.ID, err)
		}
	}
}

func (v *Verifier) notify(result model.VerificationResult, duration time.Duration) {
	v.mu.Lock()
	observers := make([]Observer, len(v.observers))
	copy(observers, v.observers)
	v.mu.Unlock()
	for _, obs := range observers {
		obs.ObserveVerification(result, duration)
	}
}
