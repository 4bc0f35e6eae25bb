package model

import "time"

// ObjectiveLevel ranks how much an objective matters.
type ObjectiveLevel string

const (
	LevelCritical ObjectiveLevel = "CRITICAL"
	LevelCore     ObjectiveLevel = "CORE"
	LevelGrowth   ObjectiveLevel = "GROWTH"
)

// LevelRank maps levels to comparable integers (higher = more important).
var LevelRank = map[ObjectiveLevel]int{
	LevelGrowth:   0,
	LevelCore:     1,
	LevelCritical: 2,
}

// Threshold bounds an objective's acceptable value range.
// Nil pointers mean the bound is not set.
type Threshold struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Breaches reports whether value falls outside the configured bounds.
func (t *Threshold) Breaches(value float64) bool {
	if t == nil {
		return false
	}
	if t.Min != nil && value < *t.Min {
		return true
	}
	if t.Max != nil && value > *t.Max {
		return true
	}
	return false
}

// Objective is a named, leveled target metric the system must not regress.
// Created once at registry initialization, never deleted, mutated only
// through the registry's update path.
type Objective struct {
	ID        string         `json:"id" yaml:"id"`
	Level     ObjectiveLevel `json:"level" yaml:"level"`
	Name      string         `json:"name" yaml:"name"`
	Unit      string         `json:"unit" yaml:"unit"`
	Target    float64        `json:"target" yaml:"target"`
	Current   float64        `json:"current" yaml:"current"`
	Threshold *Threshold     `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

// HealthStatus is the registry's verdict on one objective's current value.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// ChangeKind categorizes a proposed change.
type ChangeKind string

const (
	KindFeature  ChangeKind = "feature"
	KindFix      ChangeKind = "fix"
	KindRefactor ChangeKind = "refactor"
	KindConfig   ChangeKind = "config"
)

// Change is a proposed software change entering the verification pipeline.
// Description is load-bearing: classification and claim extraction read it.
type Change struct {
	ID          string     `json:"id"`
	Kind        ChangeKind `json:"kind"`
	Description string     `json:"description"`
	Author      string     `json:"author"`
	Timestamp   time.Time  `json:"timestamp"`
	Files       []string   `json:"files,omitempty"`
	Diff        string     `json:"diff,omitempty"`
	Agent       string     `json:"agent,omitempty"`
}

// ObjectiveImpact is one predicted per-objective effect of a change.
// Immutable once produced.
type ObjectiveImpact struct {
	ObjectiveID    string   `json:"objective_id"`
	CurrentValue   float64  `json:"current_value"`
	ProjectedValue float64  `json:"projected_value"`
	Impact         float64  `json:"impact"`     // percent delta, signed
	Confidence     float64  `json:"confidence"` // 0-100
	Evidence       []string `json:"evidence,omitempty"`
}

// Classification buckets a change's net effect across touched objectives.
type Classification string

const (
	CriticalPositive Classification = "CRITICAL_POSITIVE"
	CorePositive     Classification = "CORE_POSITIVE"
	GrowthPositive   Classification = "GROWTH_POSITIVE"
	Neutral          Classification = "NEUTRAL"
	MinorNegative    Classification = "MINOR_NEGATIVE"
	MajorNegative    Classification = "MAJOR_NEGATIVE"
	Blocking         Classification = "BLOCKING"
)

// Verdict is the final decision on a change.
type Verdict string

const (
	VerdictApproved    Verdict = "approved"
	VerdictRejected    Verdict = "rejected"
	VerdictConditional Verdict = "conditional"
)

// FollowUpAction assigns remediation work after a non-approved verdict.
type FollowUpAction struct {
	Assignee    string    `json:"assignee"`
	Description string    `json:"description"`
	DueAt       time.Time `json:"due_at"`
	Done        bool      `json:"done"`
}

// Decision carries the verdict plus its justification.
type Decision struct {
	Verdict    Verdict          `json:"verdict"`
	Rationale  string           `json:"rationale"`
	Conditions []string         `json:"conditions,omitempty"`
	FollowUps  []FollowUpAction `json:"follow_ups,omitempty"`
}

// MeasurementSpec describes one metric the evidence engine must measure.
type MeasurementSpec struct {
	Metric       string  `json:"metric"`
	Baseline     float64 `json:"baseline"`
	Target       float64 `json:"target"`
	Unit         string  `json:"unit"`
	TolerancePct float64 `json:"tolerance_pct"`
	Method       string  `json:"method"` // handler key, open set
}

// Measurement is the outcome of executing one MeasurementSpec.
type Measurement struct {
	Spec           MeasurementSpec `json:"spec"`
	Baseline       float64         `json:"baseline"`
	Actual         float64         `json:"actual"`
	ImprovementPct float64         `json:"improvement_pct"`
	Passed         bool            `json:"passed"`
	Evidence       string          `json:"evidence,omitempty"`
	ArtifactPath   string          `json:"artifact_path,omitempty"`
}

// TestCase is one generated test with ordered assertions.
type TestCase struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	AgentID    string         `json:"agent_id,omitempty"`
	Input      map[string]any `json:"input,omitempty"`
	Assertions []Assertion    `json:"-"`
}

// TestPlan owns ordered test cases and measurement specs for one change.
type TestPlan struct {
	ID               string            `json:"id"`
	ChangeID         string            `json:"change_id"`
	ChangeType       string            `json:"change_type"`
	RequiredPassRate float64           `json:"required_pass_rate"` // percent
	Preconditions    []string          `json:"preconditions,omitempty"`
	Cases            []TestCase        `json:"cases"`
	Specs            []MeasurementSpec `json:"specs"`
}

// ExecutionStatus is the overall outcome of one plan execution.
type ExecutionStatus string

const (
	ExecPassed  ExecutionStatus = "passed"
	ExecFailed  ExecutionStatus = "failed"
	ExecBlocked ExecutionStatus = "blocked"
)

// AssertionResult records one assertion's outcome.
type AssertionResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Message  string `json:"message,omitempty"`
}

// Artifact is a content-addressed file captured during verification.
type Artifact struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// TestResult records one case's outcome and captured artifacts.
type TestResult struct {
	CaseID     string            `json:"case_id"`
	Name       string            `json:"name"`
	Passed     bool              `json:"passed"`
	Error      string            `json:"error,omitempty"`
	Assertions []AssertionResult `json:"assertions"`
	Artifacts  []Artifact        `json:"artifacts,omitempty"`
}

// TestExecution owns ordered results for one plan run.
type TestExecution struct {
	ID         string          `json:"id"`
	PlanID     string          `json:"plan_id"`
	ChangeID   string          `json:"change_id"`
	Status     ExecutionStatus `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	Results    []TestResult    `json:"results"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// PassCounts returns (passed, total) over the execution's results.
func (e *TestExecution) PassCounts() (int, int) {
	passed := 0
	for _, r := range e.Results {
		if r.Passed {
			passed++
		}
	}
	return passed, len(e.Results)
}

// Evidence is a signed, artifact-backed record substantiating a measurement
// or decision. Immutable once signed.
type Evidence struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"` // "measurement_package", "test_execution"
	ChangeID  string     `json:"change_id"`
	Summary   string     `json:"summary"`
	Hash      string     `json:"hash"` // sha256 of the payload
	Artifacts []Artifact `json:"artifacts,omitempty"`
	Verified  bool       `json:"verified"`
	Timestamp time.Time  `json:"timestamp"`
}

// ImpactSummary is the per-objective entry embedded in a certificate.
type ImpactSummary struct {
	ObjectiveID string  `json:"objective_id"`
	ImpactPct   float64 `json:"impact_pct"`
	Confidence  float64 `json:"confidence"`
	Verified    bool    `json:"verified"` // confidence > 80
}

// VerificationCertificate is the final signed, write-once summary of one
// verification outcome.
type VerificationCertificate struct {
	ID           string          `json:"id"`
	ChangeID     string          `json:"change_id"`
	Verdict      Verdict         `json:"verdict"`
	Impacts      []ImpactSummary `json:"impacts"`
	TestsPassed  int             `json:"tests_passed"`
	TestsTotal   int             `json:"tests_total"`
	EvidenceHash string          `json:"evidence_hash"`
	Signature    string          `json:"signature"`
	IssuedAt     time.Time       `json:"issued_at"`
}

// VerificationResult is the stable output contract of one pipeline run.
type VerificationResult struct {
	ChangeID       string                   `json:"change_id"`
	Classification Classification           `json:"classification"`
	Impacts        []ObjectiveImpact        `json:"objective_impacts"`
	Executions     []TestExecution          `json:"test_executions"`
	Evidence       []Evidence               `json:"evidence"`
	Decision       Decision                 `json:"decision"`
	Certificate    *VerificationCertificate `json:"certificate,omitempty"`
}
