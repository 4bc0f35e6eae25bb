// Package executor runs generated test plans through pluggable per-agent
// logic handlers and checks their assertions.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmc3bear/objectivegate/internal/model"
)

// AgentFunc is the external collaborator contract: given a test case, an
// agent-specific handler produces a result object the assertions are
// evaluated against. The executor has no knowledge of what the handler does
// internally.
type AgentFunc func(ctx context.Context, tc model.TestCase) (map[string]any, error)

// PreconditionFunc reports whether a named precondition holds. A non-nil
// error blocks the whole plan.
type PreconditionFunc func(name string) error

// Executor runs test plans. Cases execute sequentially — shared-fixture
// safety over throughput; concurrency belongs to independent verification
// calls, not to cases within one plan.
type Executor struct {
	mu           sync.RWMutex
	agents       map[string]AgentFunc
	precondition PreconditionFunc
	timeout      time.Duration
	now          func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithPreconditionCheck installs the precondition checker. The default
// treats every precondition as met.
func WithPreconditionCheck(f PreconditionFunc) Option {
	return func(e *Executor) { e.precondition = f }
}

// WithTimeout caps each case's handler call.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithClock replaces the executor's clock (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// NewExecutor creates an executor with the built-in simulated agents.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		agents:  builtinAgents(),
		timeout: 30 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterAgent installs (or replaces) the handler for an agent ID.
// Unknown agent IDs fall back to the generic handler at execution time.
func (e *Executor) RegisterAgent(agentID string, fn AgentFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents[agentID] = fn
}

// ExecutePlan runs the plan. Preconditions are verified first: an unmet
// precondition blocks the whole plan with zero cases run. Otherwise cases
// run sequentially; a failure or panic in one case marks only that case
// failed and does not abort its siblings.
func (e *Executor) ExecutePlan(ctx context.Context, plan *model.TestPlan) model.TestExecution {
	exec := model.TestExecution{
		ID:        uuid.NewString(),
		PlanID:    plan.ID,
		ChangeID:  plan.ChangeID,
		StartedAt: e.now().UTC(),
	}

	for _, pre := range plan.Preconditions {
		if err := e.checkPrecondition(pre); err != nil {
			exec.Status = model.ExecBlocked
			exec.Reason = fmt.Sprintf("precondition %q not met: %v", pre, err)
			exec.FinishedAt = e.now().UTC()
			return exec
		}
	}

	for _, tc := range plan.Cases {
		exec.Results = append(exec.Results, e.runCase(ctx, tc))
	}

	passed, total := exec.PassCounts()
	failed := total - passed
	passRate := 100.0
	if total > 0 {
		passRate = float64(passed) / float64(total) * 100
	}

	if failed == 0 && passRate >= plan.RequiredPassRate {
		exec.Status = model.ExecPassed
	} else {
		exec.Status = model.ExecFailed
		exec.Reason = fmt.Sprintf("%d/%d cases passed (required %.0f%%)", passed, total, plan.RequiredPassRate)
	}
	exec.FinishedAt = e.now().UTC()
	return exec
}

func (e *Executor) checkPrecondition(name string) error {
	e.mu.RLock()
	check := e.precondition
	e.mu.RUnlock()
	if check == nil {
		return nil
	}
	return check(name)
}

// runCase dispatches one case to its agent handler and evaluates every
// assertion against the result object.
func (e *Executor) runCase(ctx context.Context, tc model.TestCase) model.TestResult {
	result := model.TestResult{CaseID: tc.ID, Name: tc.Name}

	output, err := e.runAgent(ctx, tc)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	allPassed := true
	for _, a := range tc.Assertions {
		ar := a.Check(output)
		result.Assertions = append(result.Assertions, ar)
		if !ar.Passed {
			allPassed = false
		}
	}
	result.Passed = allPassed
	return result
}

// runAgent resolves the handler (generic fallback for unknown agents) and
// runs it under the executor's timeout, converting panics into case errors.
func (e *Executor) runAgent(ctx context.Context, tc model.TestCase) (map[string]any, error) {
	e.mu.RLock()
	fn, ok := e.agents[tc.AgentID]
	if !ok {
		fn = e.agents[genericAgentID]
	}
	e.mu.RUnlock()

	type outcome struct {
		output map[string]any
		err    error
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("agent panic: %v", r)}
			}
		}()
		out, err := fn(ctx, tc)
		ch <- outcome{output: out, err: err}
	}()

	select {
	case out := <-ch:
		return out.output, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("timeout")
	}
}
