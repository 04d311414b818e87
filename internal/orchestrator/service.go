package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kplw-group/proposal-cli/internal/cost"
	"github.com/kplw-group/proposal-cli/internal/document"
	"github.com/kplw-group/proposal-cli/internal/llm"
	"github.com/kplw-group/proposal-cli/internal/model"
	"github.com/kplw-group/proposal-cli/internal/render"
	"github.com/kplw-group/proposal-cli/internal/store"
	"github.com/kplw-group/proposal-cli/internal/template"
)

// ErrNotReady is returned when a run has not yet built its compliance matrix.
var ErrNotReady = eris.New("orchestrator: compliance matrix not ready")

// ServiceConfig composes the per-run budget and routing settings.
type ServiceConfig struct {
	BudgetLimit       float64
	RequestsPerSecond float64
	Rates             cost.Rates
	Orchestrator      Config
}

// Service is the composition root for runs: it owns the store and builds a
// fresh ledger, router, and orchestrator per run. Each run gets its own
// budget unless SharedLedger is used.
type Service struct {
	providers []llm.Provider
	policy    llm.Policy
	store     store.Store
	parser    document.Parser
	renderer  *render.Coordinator
	cfg       ServiceConfig

	// sharedLedger, when set, is used for every run instead of a per-run
	// ledger, making the budget joint across concurrent runs.
	sharedLedger *cost.Ledger

	wg sync.WaitGroup
}

// NewService wires a Service over the given backends and store.
func NewService(providers []llm.Provider, policy llm.Policy, st store.Store, parser document.Parser, renderer *render.Coordinator, cfg ServiceConfig) *Service {
	if len(cfg.Rates.Anthropic) == 0 && len(cfg.Rates.OpenAI) == 0 {
		cfg.Rates = cost.DefaultRates()
	}
	cfg.Orchestrator = cfg.Orchestrator.withDefaults()
	return &Service{
		providers: providers,
		policy:    policy,
		store:     st,
		parser:    parser,
		renderer:  renderer,
		cfg:       cfg,
	}
}

// UseSharedLedger makes all subsequent runs draw from one joint budget.
func (s *Service) UseSharedLedger(ledger *cost.Ledger) { s.sharedLedger = ledger }

func (s *Service) newOrchestrator() *Orchestrator {
	ledger := s.sharedLedger
	if ledger == nil {
		ledger = cost.NewLedger(s.cfg.BudgetLimit)
	}
	router := llm.NewRouter(s.providers, s.policy, ledger, cost.NewCalculator(s.cfg.Rates), s.cfg.RequestsPerSecond)
	return New(router, ledger, s.store, s.renderer, s.cfg.Orchestrator)
}

// prepare validates inputs, ingests the documents, and persists the fresh
// run record.
func (s *Service) prepare(ctx context.Context, documentPaths []string, templateName string, outputFormats []string) (*model.ProjectState, *Orchestrator, error) {
	if _, err := template.Get(templateName); err != nil {
		return nil, nil, err
	}
	rawText, err := s.parser.Parse(ctx, documentPaths)
	if err != nil {
		return nil, nil, err
	}

	state := model.NewProjectState(uuid.New().String(), templateName, rawText)
	if err := s.store.SaveState(ctx, state); err != nil {
		return nil, nil, eris.Wrap(err, "orchestrator: create run record")
	}

	o := s.newOrchestrator()
	if len(outputFormats) > 0 {
		o.cfg.OutputFormats = outputFormats
	}
	return state, o, nil
}

// StartRun ingests the documents, registers the run, and executes the
// pipeline in the background. The returned projectId is addressable via
// GetState immediately.
func (s *Service) StartRun(ctx context.Context, documentPaths []string, templateName string, outputFormats []string) (string, error) {
	state, o, err := s.prepare(ctx, documentPaths, templateName, outputFormats)
	if err != nil {
		return "", err
	}

	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if runErr := o.Run(runCtx, state); runErr != nil {
			zap.L().Error("background run failed",
				zap.String("project_id", state.ProjectID), zap.Error(runErr))
		}
	}()
	return state.ProjectID, nil
}

// RunSync executes a run inline and returns the terminal state. Used by the
// CLI; the state is persisted the same way as background runs.
func (s *Service) RunSync(ctx context.Context, documentPaths []string, templateName string, outputFormats []string) (*model.ProjectState, error) {
	state, o, err := s.prepare(ctx, documentPaths, templateName, outputFormats)
	if err != nil {
		return nil, err
	}
	err = o.Run(ctx, state)
	return state, err
}

// GetState returns the condensed run status.
func (s *Service) GetState(ctx context.Context, projectID string) (model.StateView, error) {
	state, err := s.store.GetState(ctx, projectID)
	if err != nil {
		return model.StateView{}, err
	}
	return state.View(), nil
}

// GetFullState returns the complete persisted run record.
func (s *Service) GetFullState(ctx context.Context, projectID string) (*model.ProjectState, error) {
	return s.store.GetState(ctx, projectID)
}

// GetComplianceMatrix returns the run's matrix, or ErrNotReady before the
// mapping stage has completed.
func (s *Service) GetComplianceMatrix(ctx context.Context, projectID string) (*model.ComplianceMatrix, error) {
	state, err := s.store.GetState(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if state.Matrix == nil {
		return nil, ErrNotReady
	}
	return state.Matrix, nil
}

// GetCostSummary returns the run's ledger totals.
func (s *Service) GetCostSummary(ctx context.Context, projectID string) (model.CostSummary, error) {
	state, err := s.store.GetState(ctx, projectID)
	if err != nil {
		return model.CostSummary{}, err
	}
	return state.CostSummary, nil
}

// ListRuns returns condensed views of all persisted runs, newest first.
func (s *Service) ListRuns(ctx context.Context) ([]model.StateView, error) {
	states, err := s.store.ListStates(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]model.StateView, len(states))
	for i, st := range states {
		views[i] = st.View()
	}
	return views, nil
}

// DeleteRun removes the run record.
func (s *Service) DeleteRun(ctx context.Context, projectID string) error {
	return s.store.DeleteState(ctx, projectID)
}

// Wait blocks until all background runs have finished. Used on shutdown.
func (s *Service) Wait() { s.wg.Wait() }
