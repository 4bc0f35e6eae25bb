package certificate

import (
	"testing"
	"time"

	"github.com/cmc3bear/objectivegate/internal/model"
)

var issuedAt = time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

func sampleInputs() (model.Change, model.Decision, []model.ObjectiveImpact, []model.TestExecution) {
	change := model.Change{ID: "chg-1", Author: "dev-1"}
	decision := model.Decision{
		Verdict:   model.VerdictApproved,
		Rationale: "critical objective advanced and all tests passed",
	}
	impacts := []model.ObjectiveImpact{
		{ObjectiveID: "s2_fps", Impact: 15, Confidence: 85},
		{ObjectiveID: "g1_monthly_active_creators", Impact: 2, Confidence: 60},
	}
	executions := []model.TestExecution{{
		ID: "exec-1", ChangeID: "chg-1", Status: model.ExecPassed,
		Results: []model.TestResult{
			{CaseID: "case-chg-1-1", Passed: true},
			{CaseID: "case-chg-1-2", Passed: true},
			{CaseID: "case-chg-1-3", Passed: false},
		},
	}}
	return change, decision, impacts, executions
}

func TestIssueAtDeterministicHash(t *testing.T) {
	i := NewIssuer()
	change, decision, impacts, executions := sampleInputs()

	c1 := i.IssueAt(change, decision, impacts, executions, issuedAt)
	c2 := i.IssueAt(change, decision, impacts, executions, issuedAt)

	if c1.EvidenceHash != c2.EvidenceHash {
		t.Fatalf("evidence hash not deterministic: %s vs %s", c1.EvidenceHash, c2.EvidenceHash)
	}
	if c1.Signature != c2.Signature {
		t.Fatal("signature not deterministic")
	}
	// Fresh certificate identities per issue.
	if c1.ID == c2.ID {
		t.Fatal("certificate IDs must be unique per issue")
	}
}

func TestIssueAtDifferingInputsDifferingHash(t *testing.T) {
	i := NewIssuer()
	change, decision, impacts, executions := sampleInputs()
	base := i.IssueAt(change, decision, impacts, executions, issuedAt)

	later := i.IssueAt(change, decision, impacts, executions, issuedAt.Add(time.Second))
	if later.EvidenceHash == base.EvidenceHash {
		t.Fatal("timestamp change must change the evidence hash")
	}

	decision.Verdict = model.VerdictConditional
	other := i.IssueAt(change, decision, impacts, executions, issuedAt)
	if other.EvidenceHash == base.EvidenceHash {
		t.Fatal("verdict change must change the evidence hash")
	}
}

func TestIssueSignatureCoversRationale(t *testing.T) {
	i := NewIssuer()
	change, decision, impacts, executions := sampleInputs()
	base := i.IssueAt(change, decision, impacts, executions, issuedAt)

	decision.Rationale = "different rationale"
	other := i.IssueAt(change, decision, impacts, executions, issuedAt)
	if base.EvidenceHash != other.EvidenceHash {
		t.Fatal("rationale is not part of the evidence hash")
	}
	if base.Signature == other.Signature {
		t.Fatal("rationale change must change the signature")
	}
}

func TestIssueVerifiedConfidenceBoundary(t *testing.T) {
	i := NewIssuer()
	change, decision, _, executions := sampleInputs()
	impacts := []model.ObjectiveImpact{
		{ObjectiveID: "a", Confidence: 80},   // at the bar: not verified
		{ObjectiveID: "b", Confidence: 80.1}, // strictly above: verified
	}
	cert := i.IssueAt(change, decision, impacts, executions, issuedAt)
	if cert.Impacts[0].Verified {
		t.Fatal("confidence exactly 80 must not be verified")
	}
	if !cert.Impacts[1].Verified {
		t.Fatal("confidence above 80 must be verified")
	}
}

func TestIssueTestCounts(t *testing.T) {
	i := NewIssuer()
	change, decision, impacts, _ := sampleInputs()
	executions := []model.TestExecution{
		{ID: "exec-1", Results: []model.TestResult{{CaseID: "a", Passed: true}, {CaseID: "b", Passed: false}}},
		{ID: "exec-2", Results: []model.TestResult{{CaseID: "c", Passed: true}}},
	}
	cert := i.IssueAt(change, decision, impacts, executions, issuedAt)
	if cert.TestsPassed != 2 || cert.TestsTotal != 3 {
		t.Fatalf("expected 2/3, got %d/%d", cert.TestsPassed, cert.TestsTotal)
	}
	if cert.TestsPassed > cert.TestsTotal {
		t.Fatal("testsPassed exceeds testsTotal")
	}
}

func TestIssueEmptyExecutions(t *testing.T) {
	i := NewIssuer()
	change, decision, impacts, _ := sampleInputs()
	cert := i.IssueAt(change, decision, impacts, []model.TestExecution{}, issuedAt)
	if cert.TestsPassed != 0 || cert.TestsTotal != 0 {
		t.Fatalf("expected 0/0 for a vetoed change, got %d/%d", cert.TestsPassed, cert.TestsTotal)
	}
	if cert.EvidenceHash == "" || cert.Signature == "" {
		t.Fatal("vetoed certificates are still signed")
	}
}
