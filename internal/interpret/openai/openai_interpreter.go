// Package openai implements port.Interpreter with OpenAI structured outputs
// (response_format json_schema) through go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"avplan/internal/config"
	"avplan/internal/interpret"
	"avplan/internal/port"
)

const maxTokens = 16384

// Interpreter implements port.Interpreter using the OpenAI Chat Completions API.
type Interpreter struct {
	client *goopenai.Client
	model  string
}

// NewInterpreter creates an OpenAI-backed interpreter. cfg.Endpoint overrides
// the API base URL, e.g. for Azure-compatible gateways or tests.
func NewInterpreter(cfg *config.ProviderConfig) *Interpreter {
	model := cfg.DefaultModel
	if model == "" {
		model = goopenai.GPT4o
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Interpreter{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

// Factory adapts NewInterpreter to the provider registry.
func Factory(cfg *config.ProviderConfig) (port.Interpreter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider requires an api key")
	}
	return NewInterpreter(cfg), nil
}

func (p *Interpreter) Interpret(ctx context.Context, input port.InterpretInput) (*port.InterpretOutput, error) {
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		MaxTokens:   maxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: input.SystemPrompt,
			},
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: input.Prompt,
			},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   input.SchemaName,
				Schema: input.Schema,
				Strict: false,
			},
		},
	})
	if err != nil {
		return nil, mapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}
	choice := resp.Choices[0]
	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &port.InterpretOutput{
		Raw:       choice.Message.Content,
		ModelUsed: model,
		Provider:  "openai",
		Truncated: choice.FinishReason == goopenai.FinishReasonLength,
	}, nil
}

func mapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return interpret.NewRateLimitError("openai", err, 0)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return interpret.NewRateLimitError("openai", err, 0)
	}
	return fmt.Errorf("calling openai API: %w", err)
}
