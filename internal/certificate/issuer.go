// Package certificate issues and stores immutable verification
// certificates.
package certificate

import (
	"time"

	"github.com/google/uuid"

	"github.com/cmc3bear/objectivegate/internal/evidence"
	"github.com/cmc3bear/objectivegate/internal/model"
)

// verifiedAboveConfidence marks impact summaries as verified.
const verifiedAboveConfidence = 80.0

// Issuer builds certificates. Certificates are write-once: no update
// operation exists anywhere in this package.
type Issuer struct {
	now func() time.Time
}

// NewIssuer creates an Issuer using the wall clock.
func NewIssuer() *Issuer {
	return &Issuer{now: time.Now}
}

// Issue bundles a decision, its impacts, and the executed tests into a
// signed certificate stamped with the current time.
func (i *Issuer) Issue(change model.Change, decision model.Decision, impacts []model.ObjectiveImpact, executions []model.TestExecution) model.VerificationCertificate {
	return i.IssueAt(change, decision, impacts, executions, i.now().UTC())
}

// IssueAt is Issue with an explicit timestamp. The evidence hash is a pure
// deterministic function of (change id, verdict, impacts, executed test
// ids, timestamp): identical inputs reproduce the identical hash.
func (i *Issuer) IssueAt(change model.Change, decision model.Decision, impacts []model.ObjectiveImpact, executions []model.TestExecution, issuedAt time.Time) model.VerificationCertificate {
	summaries := make([]model.ImpactSummary, 0, len(impacts))
	for _, impact := range impacts {
		summaries = append(summaries, model.ImpactSummary{
			ObjectiveID: impact.ObjectiveID,
			ImpactPct:   impact.Impact,
			Confidence:  impact.Confidence,
			Verified:    impact.Confidence > verifiedAboveConfidence,
		})
	}

	testsPassed, testsTotal := 0, 0
	var testIDs []string
	for _, exec := range executions {
		p, t := exec.PassCounts()
		testsPassed += p
		testsTotal += t
		for _, r := range exec.Results {
			testIDs = append(testIDs, r.CaseID)
		}
	}

	evidenceHash := evidenceHash(change.ID, decision.Verdict, summaries, testIDs, issuedAt)

	return model.VerificationCertificate{
		ID:           uuid.NewString(),
		ChangeID:     change.ID,
		Verdict:      decision.Verdict,
		Impacts:      summaries,
		TestsPassed:  testsPassed,
		TestsTotal:   testsTotal,
		EvidenceHash: evidenceHash,
		Signature:    signature(evidenceHash, decision),
		IssuedAt:     issuedAt,
	}
}

func evidenceHash(changeID string, verdict model.Verdict, impacts []model.ImpactSummary, testIDs []string, issuedAt time.Time) string {
	payload := struct {
		ChangeID  string                `json:"change_id"`
		Verdict   model.Verdict         `json:"verdict"`
		Impacts   []model.ImpactSummary `json:"impacts"`
		TestIDs   []string              `json:"test_ids"`
		Timestamp string                `json:"timestamp"`
	}{changeID, verdict, impacts, testIDs, issuedAt.UTC().Format(time.RFC3339Nano)}

	hash, err := evidence.HashPayload(payload)
	if err != nil {
		return ""
	}
	return hash
}

func signature(evidenceHash string, decision model.Decision) string {
	payload := struct {
		EvidenceHash string        `json:"evidence_hash"`
		Verdict      model.Verdict `json:"verdict"`
		Rationale    string        `json:"rationale"`
	}{evidenceHash, decision.Verdict, decision.Rationale}

	sig, err := evidence.HashPayload(payload)
	if err != nil {
		return ""
	}
	return sig
}
