package compliance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kplw-group/proposal-cli/internal/cost"
	"github.com/kplw-group/proposal-cli/internal/llm"
	"github.com/kplw-group/proposal-cli/internal/model"
)

// scriptedProvider returns canned responses in order.
type scriptedProvider struct {
	name      string
	responses []string
	calls     int
	prompts   []string
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) Generate(ctx context.Context, req llm.Request) (*llm.Result, error) {
	s.prompts = append(s.prompts, req.Prompt)
	text := ""
	if s.calls < len(s.responses) {
		text = s.responses[s.calls]
	}
	s.calls++
	return &llm.Result{Text: text, InputUnits: 500, OutputUnits: 200}, nil
}

func newRouter(p *scriptedProvider) *llm.Router {
	policy := llm.Policy{Default: llm.Route{Backend: p.name, Model: "claude-sonnet-4-5-20250929"}}
	return llm.NewRouter([]llm.Provider{p}, policy, cost.NewLedger(100), cost.NewCalculator(cost.DefaultRates()), 0)
}

const extractionResponse = `ID: R001
TEXT: The contractor shall submit a detailed budget
MANDATORY: yes
CATEGORY: mandatory
PRIORITY: 2
SECTION: 3.1
---
ID: R002
TEXT: The contractor may include references
MANDATORY: no
CATEGORY: optional
PRIORITY: 4
SECTION: 3.2
---`

func TestExtract_MandatoryAndOptionalMarkers(t *testing.T) {
	p := &scriptedProvider{name: "anthropic", responses: []string{extractionResponse}}
	e := NewExtractor(newRouter(p))

	reqs, err := e.Extract(context.Background(),
		"The contractor shall submit a detailed budget. The contractor may include references.",
		"requirements_extracted")
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "R001", reqs[0].ID)
	assert.Equal(t, model.CategoryMandatory, reqs[0].Category)
	assert.True(t, reqs[0].IsMandatory)
	assert.LessOrEqual(t, reqs[0].Priority, 2)

	assert.Equal(t, "R002", reqs[1].ID)
	assert.Equal(t, model.CategoryOptional, reqs[1].Category)
	assert.False(t, reqs[1].IsMandatory)
	assert.GreaterOrEqual(t, reqs[1].Priority, 4)

	assert.Equal(t, 1, p.calls)
}

func TestParseRequirements_SkipsMalformedSegment(t *testing.T) {
	response := `ID: R001
TEXT: The vendor must provide training materials
MANDATORY: yes
CATEGORY: mandatory
PRIORITY: 1
SECTION: 2.0
---
this segment has no structured fields at all
---
ID: R003
TEXT: The vendor should describe its support model
MANDATORY: no
CATEGORY: optional
PRIORITY: 3
SECTION: 2.2
---`
	reqs := parseRequirements(response)
	require.Len(t, reqs, 2)
	// Sequential ids are reassigned after the skip.
	assert.Equal(t, "R001", reqs[0].ID)
	assert.Equal(t, "R002", reqs[1].ID)
}

func TestParseRequirements_EvaluationCriteriaHeader(t *testing.T) {
	response := `ID: R001
TEXT: Proposals will be scored on technical merit
MANDATORY: no
CATEGORY: evaluation_criteria
PRIORITY: 2
SECTION: Evaluation Criteria
---`
	reqs := parseRequirements(response)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.CategoryEvaluationCriteria, reqs[0].Category)
}

func TestParseRequirements_FiltersAdministrative(t *testing.T) {
	response := `ID: R001
TEXT: Proposals must be submitted via email before the deadline
MANDATORY: yes
CATEGORY: mandatory
PRIORITY: 1
SECTION: 1.0
---
ID: R002
TEXT: The solution must support single sign-on
MANDATORY: yes
CATEGORY: mandatory
PRIORITY: 1
SECTION: 4.0
---`
	reqs := parseRequirements(response)
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Text, "single sign-on")
}

func TestParseRequirements_DefaultPriority(t *testing.T) {
	response := `ID: R001
TEXT: Describe the proposed data migration approach
MANDATORY: yes
CATEGORY: deliverable
SECTION: 5.0
---`
	reqs := parseRequirements(response)
	require.Len(t, reqs, 1)
	// Default 3, then upgraded to 2 because the record is mandatory.
	assert.Equal(t, 2, reqs[0].Priority)
	assert.Equal(t, model.CategoryDeliverable, reqs[0].Category)
}

func TestParseRequirements_EmptyResponse(t *testing.T) {
	assert.Empty(t, parseRequirements(""))
	assert.Empty(t, parseRequirements("no structured content here"))
}
