package orchestrator

import (
	"context"
	"strings"
	"sync"

	"github.com/kplw-group/proposal-cli/internal/cost"
	"github.com/kplw-group/proposal-cli/internal/llm"
)

// roleProvider answers generation requests per pipeline role, keyed off the
// system instructions, and counts calls per role.
type roleProvider struct {
	mu        sync.Mutex
	calls     map[string]int
	responses map[string]func(call int, req llm.Request) (string, error)
}

func newRoleProvider() *roleProvider {
	p := &roleProvider{
		calls:     make(map[string]int),
		responses: make(map[string]func(int, llm.Request) (string, error)),
	}
	p.respond("extractor", defaultExtraction)
	p.respond("mapper", "SECTION: Proposed Solution\nSTATUS: FULLY_COMPLIANT\nCONFIDENCE: 0.9\nEVIDENCE: Addressed in full.")
	p.respond("Strategic Analyst", "Win themes: speed and compliance depth.")
	p.respond("Structure Designer", "## Executive Summary\n## Proposed Solution")
	p.respond("Content Generator", "## Executive Summary\n\nWe deliver.\n\n## Proposed Solution\n\nDetailed budget included.")
	p.respond("Quality Validator", "Strong coverage.\nSCORE: 90/100\nDECISION: VALIDATE")
	return p
}

const defaultExtraction = `ID: R001
TEXT: The contractor shall submit a detailed budget
MANDATORY: yes
CATEGORY: mandatory
PRIORITY: 1
SECTION: 3.1
---`

// respond sets a static response for a role.
func (p *roleProvider) respond(role, text string) {
	p.responses[role] = func(int, llm.Request) (string, error) { return text, nil }
}

// respondFunc sets a per-call response function for a role.
func (p *roleProvider) respondFunc(role string, fn func(call int, req llm.Request) (string, error)) {
	p.responses[role] = fn
}

func (p *roleProvider) count(role string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[role]
}

func (p *roleProvider) role(req llm.Request) string {
	switch {
	case strings.Contains(req.System, "extracting proposal content requirements"):
		return "extractor"
	case strings.Contains(req.System, "map RFP requirements"):
		return "mapper"
	case strings.Contains(req.System, "Strategic Analyst"):
		return "Strategic Analyst"
	case strings.Contains(req.System, "Structure Designer"):
		return "Structure Designer"
	case strings.Contains(req.System, "Content Generator"):
		return "Content Generator"
	default:
		return "Quality Validator"
	}
}

func (p *roleProvider) Name() string { return "anthropic" }

func (p *roleProvider) Generate(ctx context.Context, req llm.Request) (*llm.Result, error) {
	role := p.role(req)
	p.mu.Lock()
	p.calls[role]++
	call := p.calls[role]
	fn := p.responses[role]
	p.mu.Unlock()

	text, err := fn(call, req)
	if err != nil {
		return nil, err
	}
	return &llm.Result{Text: text, InputUnits: 1000, OutputUnits: 400}, nil
}

func testRouter(p *roleProvider, budget float64) (*llm.Router, *cost.Ledger) {
	ledger := cost.NewLedger(budget)
	policy := llm.Policy{Default: llm.Route{Backend: "anthropic", Model: "claude-sonnet-4-5-20250929"}}
	router := llm.NewRouter([]llm.Provider{p}, policy, ledger, cost.NewCalculator(cost.DefaultRates()), 0)
	return router, ledger
}
