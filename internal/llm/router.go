package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kplw-group/proposal-cli/internal/cost"
	"github.com/kplw-group/proposal-cli/internal/model"
)

// Router dispatches generation requests to the backend selected by the
// routing policy. Every dispatch is preceded by a budget reservation; a
// failed reservation short-circuits before any network call. On provider
// failure the router attempts exactly one fallback to the configured
// secondary route, never retrying the same backend twice.
type Router struct {
	providers map[string]Provider
	policy    Policy
	ledger    *cost.Ledger
	calc      *cost.Calculator
	limiters  map[string]*rate.Limiter
}

// NewRouter creates a router over the given providers. requestsPerSecond
// bounds the per-backend call rate; <= 0 disables limiting.
func NewRouter(providers []Provider, policy Policy, ledger *cost.Ledger, calc *cost.Calculator, requestsPerSecond float64) *Router {
	byName := make(map[string]Provider, len(providers))
	limiters := make(map[string]*rate.Limiter, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
		if requestsPerSecond > 0 {
			limiters[p.Name()] = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
	return &Router{
		providers: byName,
		policy:    policy,
		ledger:    ledger,
		calc:      calc,
		limiters:  limiters,
	}
}

// Route selects a backend and model for the request per the policy and
// dispatches it. stage names the pipeline stage for cost attribution.
func (r *Router) Route(ctx context.Context, req Request, agentName, taskType, stage string) (*Result, error) {
	primary := r.policy.Select(agentName, taskType)

	candidates := []Route{primary}
	if r.policy.Fallback.Backend != "" && r.policy.Fallback.Backend != primary.Backend {
		candidates = append(candidates, r.policy.Fallback)
	}

	var lastErr error
	for attempt, route := range candidates {
		provider, ok := r.providers[route.Backend]
		if !ok {
			lastErr = eris.Errorf("llm: backend %s not configured", route.Backend)
			continue
		}

		res, err := r.dispatch(ctx, provider, route, req, stage)
		if err == nil {
			return res, nil
		}

		// Budget overrun is a hard stop for the call, never degraded or
		// retried on another backend.
		var be *cost.BudgetExceededError
		if eris.As(err, &be) {
			return nil, err
		}

		lastErr = err
		if attempt == 0 && len(candidates) > 1 {
			zap.L().Warn("generation call failed, trying fallback backend",
				zap.String("agent", agentName),
				zap.String("backend", route.Backend),
				zap.String("model", route.Model),
				zap.String("fallback", r.policy.Fallback.Backend),
				zap.Error(err),
			)
		}
	}

	last := candidates[len(candidates)-1]
	return nil, &ProviderError{Backend: last.Backend, Model: last.Model, Err: lastErr}
}

func (r *Router) dispatch(ctx context.Context, provider Provider, route Route, req Request, stage string) (*Result, error) {
	req.Model = route.Model

	estimated := r.calc.Estimate(route.Backend, route.Model, len(req.System)+len(req.Prompt), req.MaxTokens)
	permit, err := r.ledger.Reserve(stage, estimated)
	if err != nil {
		return nil, err
	}

	if lim, ok := r.limiters[route.Backend]; ok {
		if err := lim.Wait(ctx); err != nil {
			r.ledger.Release(permit)
			return nil, eris.Wrap(err, "llm: rate limit wait")
		}
	}

	res, err := provider.Generate(ctx, req)
	if err != nil {
		r.ledger.Release(permit)
		return nil, err
	}

	res.Backend = route.Backend
	res.Model = route.Model
	res.Cost = r.calc.Actual(route.Backend, route.Model, res.InputUnits, res.OutputUnits)
	r.ledger.Commit(permit, model.CostEntry{
		Stage:       stage,
		Backend:     route.Backend,
		Model:       route.Model,
		InputUnits:  res.InputUnits,
		OutputUnits: res.OutputUnits,
		Cost:        res.Cost,
	})

	zap.L().Debug("generation call complete",
		zap.String("stage", stage),
		zap.String("backend", route.Backend),
		zap.String("model", route.Model),
		zap.Int64("input_units", res.InputUnits),
		zap.Int64("output_units", res.OutputUnits),
		zap.Float64("cost_usd", res.Cost),
	)
	return res, nil
}
