package cost

// Rates holds per-backend pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    map[string]ModelRate `yaml:"openai" mapstructure:"openai"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes estimated and actual costs for generation calls.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

func (c *Calculator) rate(backend, model string) (ModelRate, bool) {
	var table map[string]ModelRate
	switch backend {
	case "anthropic":
		table = c.rates.Anthropic
	case "openai":
		table = c.rates.OpenAI
	}
	r, ok := table[model]
	return r, ok
}

// Actual computes the cost of a completed call from reported token counts.
// Unknown backend/model pairs cost 0.
func (c *Calculator) Actual(backend, model string, inputUnits, outputUnits int64) float64 {
	rate, ok := c.rate(backend, model)
	if !ok {
		return 0
	}
	return (float64(inputUnits)/1e6)*rate.Input + (float64(outputUnits)/1e6)*rate.Output
}

// estCharsPerToken approximates prompt tokenization for pre-call estimates.
const estCharsPerToken = 4

// Estimate computes the pre-call cost estimate used for budget reservation:
// prompt size converted at ~4 chars/token for input, the full max-token
// allowance for output. Budget checks always use this estimate; commit
// records the provider-reported actual.
func (c *Calculator) Estimate(backend, model string, promptChars int, maxTokens int64) float64 {
	rate, ok := c.rate(backend, model)
	if !ok {
		return 0
	}
	inputTokens := float64(promptChars) / estCharsPerToken
	return (inputTokens/1e6)*rate.Input + (float64(maxTokens)/1e6)*rate.Output
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-5-20251101":   {Input: 15.00, Output: 75.00},
		},
		OpenAI: map[string]ModelRate{
			"gpt-4o":      {Input: 2.50, Output: 10.00},
			"gpt-4o-mini": {Input: 0.15, Output: 0.60},
		},
	}
}
