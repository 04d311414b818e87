package llm

import (
	"context"
	"fmt"
)

// Request is a backend-agnostic generation request.
type Request struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Result is the outcome of a successful generation call.
type Result struct {
	Text        string
	Backend     string
	Model       string
	InputUnits  int64
	OutputUnits int64
	Cost        float64 // actual cost, populated by the router on commit
}

// Provider is a single interchangeable text-generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Result, error)
}

// ProviderError is returned when a generation call fails after the router's
// single fallback is exhausted. It is fatal to the run.
type ProviderError struct {
	Backend string
	Model   string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s): %v", e.Backend, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
