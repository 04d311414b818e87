package llm

import (
	"context"

	"github.com/kplw-group/proposal-cli/pkg/anthropic"
	"github.com/kplw-group/proposal-cli/pkg/openai"
)

// anthropicProvider adapts pkg/anthropic to the Provider interface.
type anthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider wraps an Anthropic client as a routing backend.
func NewAnthropicProvider(client anthropic.Client) Provider {
	return &anthropicProvider{client: client}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	temp := req.Temperature
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:        resp.Text,
		Model:       resp.Model,
		InputUnits:  resp.Usage.InputTokens,
		OutputUnits: resp.Usage.OutputTokens,
	}, nil
}

// openaiProvider adapts pkg/openai to the Provider interface.
type openaiProvider struct {
	client openai.Client
}

// NewOpenAIProvider wraps an OpenAI client as a routing backend.
func NewOpenAIProvider(client openai.Client) Provider {
	return &openaiProvider{client: client}
}

func (p *openaiProvider) Name() string { return "openai" }

func (p *openaiProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	messages := []openai.Message{}
	if req.System != "" {
		messages = append(messages, openai.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, openai.Message{Role: "user", Content: req.Prompt})

	temp := req.Temperature
	maxTokens := req.MaxTokens
	resp, err := p.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:        resp.Choices[0].Message.Content,
		Model:       resp.Model,
		InputUnits:  resp.Usage.PromptTokens,
		OutputUnits: resp.Usage.CompletionTokens,
	}, nil
}
