package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kplw-group/proposal-cli/internal/llm"
	"github.com/kplw-group/proposal-cli/internal/model"
	"github.com/kplw-group/proposal-cli/internal/render"
	"github.com/kplw-group/proposal-cli/internal/store"
)

func newTestOrchestrator(t *testing.T, p *roleProvider, budget float64, cfg Config) (*Orchestrator, *store.MemoryStore) {
	t.Helper()
	router, ledger := testRouter(p, budget)
	st := store.NewMemory(0)
	t.Cleanup(func() { st.Close() })
	if cfg.OutputDir == "" {
		cfg.OutputDir = t.TempDir()
	}
	return New(router, ledger, st, render.NewCoordinator(render.NewMarkdownRenderer()), cfg), st
}

func newRunState() *model.ProjectState {
	return model.NewProjectState("proj-1", "corporate",
		"The contractor shall submit a detailed budget. The contractor may include references.")
}

func TestRun_ValidatedFirstIteration(t *testing.T) {
	p := newRoleProvider()
	o, st := newTestOrchestrator(t, p, 50, Config{})
	state := newRunState()

	err := o.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, model.StatusValidated, state.Status)
	assert.Equal(t, model.StageOutputsRequested, state.CurrentStage)
	assert.Equal(t, 1, state.IterationCount)
	assert.Equal(t, 90.0, state.LastScore)
	assert.Equal(t, model.DecisionValidate, state.LastDecision)
	require.NotNil(t, state.Matrix)
	assert.Equal(t, 100.0, state.Matrix.Score())
	assert.Contains(t, state.GeneratedFiles["markdown"], "03_proposal_content.md")
	assert.False(t, state.CompletedAt.IsZero())
	assert.Positive(t, state.CostSummary.TotalCost)
	assert.Equal(t, 100, state.View().ProgressPercent)

	// One call per role on the happy path; mapper once per requirement.
	assert.Equal(t, 1, p.count("extractor"))
	assert.Equal(t, 1, p.count("Strategic Analyst"))
	assert.Equal(t, 1, p.count("Structure Designer"))
	assert.Equal(t, 1, p.count("Content Generator"))
	assert.Equal(t, 2, p.count("Quality Validator")) // loop + final validation
	assert.Equal(t, 1, p.count("mapper"))

	// Terminal snapshot persisted.
	saved, err := st.GetState(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusValidated, saved.Status)
}

func TestRun_EscalatesAfterMaxIterations(t *testing.T) {
	p := newRoleProvider()
	p.respond("Quality Validator", "Weak differentiation.\nSCORE: 70/100\nDECISION: REVISE_CONTENT")
	o, _ := newTestOrchestrator(t, p, 50, Config{MaxIterations: 3})
	state := newRunState()

	err := o.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, model.StatusEscalated, state.Status)
	assert.Equal(t, 3, state.IterationCount)
	assert.Equal(t, 3, p.count("Content Generator"))
	// Escalated runs still surface the last feedback for human review.
	assert.Contains(t, state.LastFeedback, "Weak differentiation")
	// The pipeline still finishes: matrix built and outputs rendered.
	assert.NotNil(t, state.Matrix)
	assert.Contains(t, state.GeneratedFiles["markdown"], "03_proposal_content.md")
}

func TestRun_UnparsableDecisionScore45RoutesToStructure(t *testing.T) {
	p := newRoleProvider()
	p.respondFunc("Quality Validator", func(call int, req llm.Request) (string, error) {
		if call == 1 {
			return "The proposal wanders badly. 45/100 at best.", nil
		}
		return "Much improved.\nSCORE: 92/100\nDECISION: VALIDATE", nil
	})
	o, _ := newTestOrchestrator(t, p, 50, Config{})
	state := newRunState()

	err := o.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, model.StatusValidated, state.Status)
	// ReviseStructure re-ran the designer before iteration 2.
	assert.Equal(t, 2, p.count("Structure Designer"))
	assert.Equal(t, 1, p.count("Strategic Analyst"))
	assert.Equal(t, 2, state.IterationCount)

	var loopDecisions []model.Decision
	for _, ev := range state.WorkflowLog {
		if ev.Decision != "" {
			loopDecisions = append(loopDecisions, ev.Decision)
		}
	}
	assert.Equal(t, []model.Decision{model.DecisionReviseStructure, model.DecisionValidate}, loopDecisions)
}

func TestRun_ReorientRerunsAnalysisAndDesign(t *testing.T) {
	p := newRoleProvider()
	p.respondFunc("Quality Validator", func(call int, req llm.Request) (string, error) {
		if call == 1 {
			return "Wrong strategy entirely.\nSCORE: 20/100\nDECISION: REORIENT", nil
		}
		return "SCORE: 95/100\nDECISION: VALIDATE", nil
	})
	o, _ := newTestOrchestrator(t, p, 50, Config{})
	state := newRunState()

	require.NoError(t, o.Run(context.Background(), state))
	assert.Equal(t, 2, p.count("Strategic Analyst"))
	assert.Equal(t, 2, p.count("Structure Designer"))
	assert.Equal(t, model.StatusValidated, state.Status)
}

func TestRun_ProviderErrorFailsRun(t *testing.T) {
	p := newRoleProvider()
	p.respondFunc("Content Generator", func(int, llm.Request) (string, error) {
		return "", errors.New("backend timeout")
	})
	o, st := newTestOrchestrator(t, p, 50, Config{})
	state := newRunState()

	err := o.Run(context.Background(), state)
	require.Error(t, err)

	var perr *llm.ProviderError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, model.StatusFailed, state.Status)
	assert.NotEmpty(t, state.Error)
	// Terminal log entry records the failure.
	last := state.WorkflowLog[len(state.WorkflowLog)-1]
	assert.Contains(t, last.Message, "run failed")

	saved, err := st.GetState(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, saved.Status)
}

func TestRun_BudgetExhaustionFailsRun(t *testing.T) {
	p := newRoleProvider()
	// A budget too small for even the extraction call.
	o, _ := newTestOrchestrator(t, p, 0.000001, Config{})
	state := newRunState()

	err := o.Run(context.Background(), state)
	require.Error(t, err)
	assert.Equal(t, model.StatusFailed, state.Status)
	assert.Equal(t, 0, p.count("extractor"))
	assert.Zero(t, state.CostSummary.TotalCost)
}

func TestRun_CancellationAtStageBoundary(t *testing.T) {
	p := newRoleProvider()
	o, _ := newTestOrchestrator(t, p, 50, Config{})
	state := newRunState()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.Run(ctx, state)
	require.Error(t, err)
	assert.Equal(t, model.StatusFailed, state.Status)
	// Cancelled before any paid call was dispatched.
	assert.Equal(t, 0, p.count("extractor"))
}

func TestRun_UnknownTemplateFails(t *testing.T) {
	p := newRoleProvider()
	o, _ := newTestOrchestrator(t, p, 50, Config{})
	state := model.NewProjectState("proj-1", "no_such_template", "text")

	err := o.Run(context.Background(), state)
	require.Error(t, err)
	assert.Equal(t, model.StatusFailed, state.Status)
}
