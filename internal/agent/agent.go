package agent

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kplw-group/proposal-cli/internal/llm"
	"github.com/kplw-group/proposal-cli/internal/model"
)

// Config parameterizes one stage agent: a role bound to an instruction
// template and sampling settings. The four pipeline roles are all instances
// of this one type.
type Config struct {
	Role         string
	TaskType     string
	Instructions string
	Temperature  float64
	MaxTokens    int64
}

// Agent produces role-conditioned text through the generation router.
type Agent struct {
	cfg    Config
	router *llm.Router
}

// New binds an agent configuration to a router.
func New(cfg Config, router *llm.Router) *Agent {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	return &Agent{cfg: cfg, router: router}
}

// Role returns the agent's role name.
func (a *Agent) Role() string { return a.cfg.Role }

// Execute runs one role-conditioned generation call for the given input.
// Every invocation appends one workflow-log entry to the state; the ledger
// entry is committed by the router on success.
func (a *Agent) Execute(ctx context.Context, state *model.ProjectState, input string) (string, error) {
	zap.L().Info("agent executing",
		zap.String("project_id", state.ProjectID),
		zap.String("role", a.cfg.Role),
		zap.String("stage", string(state.CurrentStage)),
		zap.Int("iteration", state.IterationCount),
	)

	res, err := a.router.Route(ctx, llm.Request{
		System:      a.cfg.Instructions,
		Prompt:      input,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}, a.cfg.Role, a.cfg.TaskType, string(state.CurrentStage))
	if err != nil {
		return "", eris.Wrapf(err, "agent %s", a.cfg.Role)
	}

	state.LogEvent(model.WorkflowEvent{
		Stage:     state.CurrentStage,
		Message:   a.cfg.Role + ": output recorded",
		Iteration: state.IterationCount,
		Cost:      res.Cost,
	})
	return res.Text, nil
}
