package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kplw-group/proposal-cli/internal/document"
	"github.com/kplw-group/proposal-cli/internal/llm"
	"github.com/kplw-group/proposal-cli/internal/orchestrator"
	"github.com/kplw-group/proposal-cli/internal/render"
	"github.com/kplw-group/proposal-cli/internal/store"
	anthropicpkg "github.com/kplw-group/proposal-cli/pkg/anthropic"
	openaipkg "github.com/kplw-group/proposal-cli/pkg/openai"
)

// env bundles the wired service and its store for command lifecycles.
type env struct {
	Service *orchestrator.Service
	Store   store.Store
}

func (e *env) Close() {
	e.Service.Wait()
	_ = e.Store.Close()
}

// initStore builds the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "memory", "":
		return store.NewMemory(time.Duration(cfg.Store.TTLHours) * time.Hour), nil
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initService wires providers, routing policy, store, and renderers into
// the run service.
func initService(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var providers []llm.Provider
	if cfg.Anthropic.Key != "" {
		providers = append(providers, llm.NewAnthropicProvider(anthropicpkg.NewClient(cfg.Anthropic.Key)))
	}
	if cfg.OpenAI.Key != "" {
		var opts []openaipkg.Option
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openaipkg.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		providers = append(providers, llm.NewOpenAIProvider(openaipkg.NewClient(cfg.OpenAI.Key, opts...)))
	}
	if len(providers) == 0 {
		st.Close()
		return nil, eris.New("no generation backend configured: set anthropic.key or openai.key")
	}

	policy := llm.DefaultPolicy()
	if cfg.Routing.PolicyPath != "" {
		policy, err = llm.LoadPolicy(cfg.Routing.PolicyPath)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	svc := orchestrator.NewService(providers, policy, st, document.NewTextParser(),
		render.NewCoordinator(render.NewMarkdownRenderer()),
		orchestrator.ServiceConfig{
			BudgetLimit:       cfg.Budget.LimitUSD,
			RequestsPerSecond: cfg.Routing.RequestsPerSecond,
			Rates:             cfg.Pricing,
			Orchestrator: orchestrator.Config{
				QualityThreshold: cfg.Pipeline.QualityThreshold,
				MaxIterations:    cfg.Pipeline.MaxIterations,
				OutputDir:        cfg.Output.Dir,
				OutputFormats:    cfg.Output.Formats,
			},
		})
	return &env{Service: svc, Store: st}, nil
}
