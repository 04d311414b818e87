package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kplw-group/proposal-cli/internal/cost"
)

// fakeProvider counts calls and returns scripted results or errors.
type fakeProvider struct {
	name  string
	calls int
	text  string
	err   error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Text: f.text, InputUnits: 1000, OutputUnits: 500}, nil
}

func testRouter(primary, fallback *fakeProvider, limit float64) *Router {
	policy := Policy{
		Default:  Route{Backend: primary.name, Model: "claude-sonnet-4-5-20250929"},
		Fallback: Route{Backend: fallback.name, Model: "gpt-4o"},
	}
	return NewRouter(
		[]Provider{primary, fallback},
		policy,
		cost.NewLedger(limit),
		cost.NewCalculator(cost.DefaultRates()),
		0,
	)
}

func TestRouterRoutesToPolicyBackend(t *testing.T) {
	primary := &fakeProvider{name: "anthropic", text: "analysis"}
	fallback := &fakeProvider{name: "openai", text: "fallback"}
	r := testRouter(primary, fallback, 10.00)

	res, err := r.Route(context.Background(), Request{Prompt: "p", MaxTokens: 1000}, "Strategic Analyst", "analysis", "stage3")
	require.NoError(t, err)
	assert.Equal(t, "analysis", res.Text)
	assert.Equal(t, "anthropic", res.Backend)
	assert.Greater(t, res.Cost, 0.0)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestRouterSingleFallbackOnProviderFailure(t *testing.T) {
	primary := &fakeProvider{name: "anthropic", err: eris.New("timeout")}
	fallback := &fakeProvider{name: "openai", text: "rescued"}
	r := testRouter(primary, fallback, 10.00)

	res, err := r.Route(context.Background(), Request{Prompt: "p", MaxTokens: 1000}, "any", "any", "stage")
	require.NoError(t, err)
	assert.Equal(t, "rescued", res.Text)
	assert.Equal(t, "openai", res.Backend)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestRouterSurfacesProviderErrorAfterFallback(t *testing.T) {
	primary := &fakeProvider{name: "anthropic", err: eris.New("timeout")}
	fallback := &fakeProvider{name: "openai", err: eris.New("auth failure")}
	r := testRouter(primary, fallback, 10.00)

	_, err := r.Route(context.Background(), Request{Prompt: "p", MaxTokens: 1000}, "any", "any", "stage")
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, eris.As(err, &pe))
	assert.Equal(t, "openai", pe.Backend)
	// Exactly one attempt per backend, never a second retry.
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestRouterBudgetExceededShortCircuits(t *testing.T) {
	primary := &fakeProvider{name: "anthropic", text: "never"}
	fallback := &fakeProvider{name: "openai", text: "never"}
	// Tiny budget: the estimate for a large call cannot be reserved.
	r := testRouter(primary, fallback, 0.0001)

	_, err := r.Route(context.Background(), Request{Prompt: "some prompt", MaxTokens: 8192}, "any", "any", "stage")
	require.Error(t, err)

	var be *cost.BudgetExceededError
	assert.True(t, eris.As(err, &be))
	// No network call was dispatched on either backend.
	assert.Equal(t, 0, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestRouterReleasesReservationOnFailure(t *testing.T) {
	primary := &fakeProvider{name: "anthropic", err: eris.New("boom")}
	fallback := &fakeProvider{name: "openai", err: eris.New("boom")}

	ledger := cost.NewLedger(10.00)
	policy := Policy{Default: Route{Backend: "anthropic", Model: "claude-sonnet-4-5-20250929"}}
	r := NewRouter([]Provider{primary, fallback}, policy, ledger, cost.NewCalculator(cost.DefaultRates()), 0)

	_, err := r.Route(context.Background(), Request{Prompt: "p", MaxTokens: 1000}, "any", "any", "stage")
	require.Error(t, err)
	assert.Equal(t, 0.0, ledger.Total())
	assert.Equal(t, 0, ledger.Summary().NumCalls)
}

func TestRouterCommitsActualCost(t *testing.T) {
	primary := &fakeProvider{name: "anthropic", text: "ok"}
	fallback := &fakeProvider{name: "openai"}
	ledger := cost.NewLedger(10.00)
	policy := Policy{Default: Route{Backend: "anthropic", Model: "claude-sonnet-4-5-20250929"}}
	r := NewRouter([]Provider{primary, fallback}, policy, ledger, cost.NewCalculator(cost.DefaultRates()), 0)

	res, err := r.Route(context.Background(), Request{Prompt: "p", MaxTokens: 1000}, "any", "any", "stage")
	require.NoError(t, err)

	sum := ledger.Summary()
	require.Equal(t, 1, sum.NumCalls)
	assert.InDelta(t, res.Cost, sum.TotalCost, 1e-9)
	assert.Equal(t, "stage", sum.Entries[0].Stage)
	assert.Equal(t, int64(1000), sum.Entries[0].InputUnits)
}

func TestPolicySelect(t *testing.T) {
	p := DefaultPolicy()

	r := p.Select("Strategic Analyst", "analysis")
	assert.Equal(t, "claude-opus-4-5-20251101", r.Model)

	// Unknown pair falls back to the global default.
	r = p.Select("Strategic Analyst", "unknown-task")
	assert.Equal(t, p.Default, r)
	r = p.Select("Nobody", "analysis")
	assert.Equal(t, p.Default, r)
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	data := []byte(`
default:
  backend: anthropic
  model: claude-sonnet-4-5-20250929
fallback:
  backend: openai
  model: gpt-4o
agents:
  Quality Validator:
    evaluation:
      backend: anthropic
      model: claude-opus-4-5-20251101
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Fallback.Backend)
	assert.Equal(t, "claude-opus-4-5-20251101", p.Select("Quality Validator", "evaluation").Model)

	_, err = LoadPolicy(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
