package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cmc3bear/objectivegate/internal/classify"
	"github.com/cmc3bear/objectivegate/internal/dashboard"
	"github.com/cmc3bear/objectivegate/internal/decision"
	"github.com/cmc3bear/objectivegate/internal/model"
	"github.com/cmc3bear/objectivegate/internal/objective"
)

// --- Input/Output types ---

// VerifyInput defines parameters for the objectivegate_verify tool.
type VerifyInput struct {
	ID          string `json:"id,omitempty" jsonschema:"change identifier, generated when omitted"`
	Kind        string `json:"kind,omitempty" jsonschema:"change kind (feature/fix/refactor/config)"`
	Description string `json:"description" jsonschema:"natural-language change description"`
	Author      string `json:"author,omitempty" jsonschema:"change author"`
	Agent       string `json:"agent,omitempty" jsonschema:"agent that produced the change"`
}

// VerifyOutput carries the verdict and certificate summary.
type VerifyOutput struct {
	ChangeID       string   `json:"change_id"`
	Classification string   `json:"classification"`
	Verdict        string   `json:"verdict"`
	Rationale      string   `json:"rationale"`
	Conditions     []string `json:"conditions,omitempty"`
	TestsPassed    int      `json:"tests_passed"`
	TestsTotal     int      `json:"tests_total"`
	CertificateID  string   `json:"certificate_id,omitempty"`
	EvidenceHash   string   `json:"evidence_hash,omitempty"`
}

// CheckInput defines parameters for the objectivegate_check tool.
type CheckInput struct {
	Kind        string `json:"kind,omitempty" jsonschema:"change kind (feature/fix/refactor/config)"`
	Description string `json:"description" jsonschema:"natural-language change description"`
}

// CheckOutput contains the dry-run classification.
type CheckOutput struct {
	Classification string       `json:"classification"`
	Vetoed         bool         `json:"vetoed"`
	VetoReason     string       `json:"veto_reason,omitempty"`
	Impacts        []ImpactItem `json:"impacts"`
}

// ImpactItem is one predicted per-objective impact.
type ImpactItem struct {
	ObjectiveID    string  `json:"objective_id"`
	ImpactPct      float64 `json:"impact_pct"`
	ProjectedValue float64 `json:"projected_value"`
	Confidence     float64 `json:"confidence"`
}

// StatusInput is empty — no parameters needed.
type StatusInput struct{}

// StatusOutput summarizes dashboard state.
type StatusOutput struct {
	Objectives   []ObjectiveItem `json:"objectives"`
	Alerts       []AlertItem     `json:"alerts"`
	TestVelocity int             `json:"test_velocity"`
	ApprovalRate float64         `json:"approval_rate"`
	HealthPct    float64         `json:"objective_health_pct"`
}

// ObjectiveItem describes one objective's current state.
type ObjectiveItem struct {
	ID        string  `json:"id"`
	Level     string  `json:"level"`
	Current   float64 `json:"current"`
	Target    float64 `json:"target"`
	Unit      string  `json:"unit"`
	Health    string  `json:"health"`
	Deviation float64 `json:"deviation"`
	Trend     string  `json:"trend"`
}

// AlertItem describes one unresolved alert.
type AlertItem struct {
	ObjectiveID string `json:"objective_id"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	RaisedAt    string `json:"raised_at"`
}

// UpdateObjectiveInput defines parameters for objectivegate_update_objective.
type UpdateObjectiveInput struct {
	ID    string  `json:"id" jsonschema:"objective identifier"`
	Value float64 `json:"value" jsonschema:"new current value"`
}

// UpdateObjectiveOutput confirms the update.
type UpdateObjectiveOutput struct {
	ID     string  `json:"id"`
	Value  float64 `json:"value"`
	Health string  `json:"health"`
}

// --- Handlers ---

func (s *Server) handleVerify(ctx context.Context, req *mcpsdk.CallToolRequest, input VerifyInput) (*mcpsdk.CallToolResult, VerifyOutput, error) {
	if input.Description == "" {
		return nil, VerifyOutput{}, fmt.Errorf("change description is required")
	}

	change := model.Change{
		ID:          input.ID,
		Kind:        changeKind(input.Kind),
		Description: input.Description,
		Author:      input.Author,
		Agent:       input.Agent,
		Timestamp:   time.Now().UTC(),
	}

	result, err := s.verifier.VerifyChange(ctx, change)
	if err != nil {
		return nil, VerifyOutput{}, err
	}

	out := VerifyOutput{
		ChangeID:       result.ChangeID,
		Classification: string(result.Classification),
		Verdict:        string(result.Decision.Verdict),
		Rationale:      result.Decision.Rationale,
		Conditions:     result.Decision.Conditions,
	}
	if result.Certificate != nil {
		out.TestsPassed = result.Certificate.TestsPassed
		out.TestsTotal = result.Certificate.TestsTotal
		out.CertificateID = result.Certificate.ID
		out.EvidenceHash = result.Certificate.EvidenceHash
	}

	if result.Decision.Verdict == model.VerdictRejected {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	if input.Description == "" {
		return nil, CheckOutput{}, fmt.Errorf("change description is required")
	}

	change := model.Change{
		Kind:        changeKind(input.Kind),
		Description: input.Description,
		Timestamp:   time.Now().UTC(),
	}

	classifier := classify.NewClassifier()
	decider := decision.NewEngine(s.registry)

	impacts := classifier.PredictAll(change, s.registry.All())
	classification := decider.Classify(impacts)

	out := CheckOutput{
		Classification: string(classification),
		Impacts:        make([]ImpactItem, 0, len(impacts)),
	}
	for _, impact := range impacts {
		out.Impacts = append(out.Impacts, ImpactItem{
			ObjectiveID:    impact.ObjectiveID,
			ImpactPct:      impact.Impact,
			ProjectedValue: impact.ProjectedValue,
			Confidence:     impact.Confidence,
		})
	}

	viol := decider.CheckCriticalViolations(impacts)
	if viol == nil && classification == model.Blocking {
		viol = decider.FirstCriticalNegative(impacts)
	}
	if viol != nil {
		out.Vetoed = true
		out.VetoReason = viol.Message
	}

	return nil, out, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	snap := s.dashboard.Take()

	out := StatusOutput{
		Objectives:   make([]ObjectiveItem, 0, len(snap.Objectives)),
		TestVelocity: snap.TestVelocity,
		ApprovalRate: snap.ApprovalRate,
		HealthPct:    snap.HealthPct,
	}
	for _, st := range snap.Objectives {
		out.Objectives = append(out.Objectives, ObjectiveItem{
			ID:        st.Objective.ID,
			Level:     string(st.Objective.Level),
			Current:   st.Objective.Current,
			Target:    st.Objective.Target,
			Unit:      st.Objective.Unit,
			Health:    string(st.Health),
			Deviation: st.Deviation,
			Trend:     string(st.Trend),
		})
	}
	for _, a := range snap.Alerts {
		if a.Resolved {
			continue
		}
		out.Alerts = append(out.Alerts, AlertItem{
			ObjectiveID: a.ObjectiveID,
			Severity:    string(a.Severity),
			Message:     a.Message,
			RaisedAt:    a.RaisedAt.Format(time.RFC3339),
		})
	}

	return nil, out, nil
}

func (s *Server) handleUpdateObjective(ctx context.Context, req *mcpsdk.CallToolRequest, input UpdateObjectiveInput) (*mcpsdk.CallToolResult, UpdateObjectiveOutput, error) {
	if err := s.registry.UpdateValue(input.ID, input.Value); err != nil {
		return nil, UpdateObjectiveOutput{}, err
	}
	obj, err := s.registry.Get(input.ID)
	if err != nil {
		return nil, UpdateObjectiveOutput{}, err
	}
	return nil, UpdateObjectiveOutput{
		ID:     input.ID,
		Value:  input.Value,
		Health: string(objective.Health(obj)),
	}, nil
}

// --- Helpers ---

func changeKind(kind string) model.ChangeKind {
	switch model.ChangeKind(kind) {
	case model.KindFix, model.KindRefactor, model.KindConfig:
		return model.ChangeKind(kind)
	default:
		return model.KindFeature
	}
}

// Dashboard exposes the monitoring state so the stdio entrypoint can run
// the tick loop alongside the MCP loop.
func (s *Server) Dashboard() *dashboard.Dashboard {
	return s.dashboard
}
