// Package claude implements port.Interpreter with the Anthropic Messages API.
// The schema is enforced by forcing a single tool call whose input schema is
// the interpretation schema.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"avplan/internal/config"
	"avplan/internal/interpret"
	"avplan/internal/port"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	maxTokens  = 16384
)

// Interpreter implements port.Interpreter using the Anthropic Messages API.
type Interpreter struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewInterpreter creates a Claude-backed interpreter from a provider config.
func NewInterpreter(cfg *config.ProviderConfig) *Interpreter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	return newInterpreter(cfg, endpoint)
}

// NewInterpreterWithEndpoint creates an interpreter pointing at a custom API endpoint (for testing).
func NewInterpreterWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Interpreter {
	return newInterpreter(cfg, endpoint)
}

// Factory adapts NewInterpreter to the provider registry.
func Factory(cfg *config.ProviderConfig) (port.Interpreter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude provider requires an api key")
	}
	return NewInterpreter(cfg), nil
}

func newInterpreter(cfg *config.ProviderConfig, endpoint string) *Interpreter {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Interpreter{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *Interpreter) Interpret(ctx context.Context, input port.InterpretInput) (*port.InterpretOutput, error) {
	reqBody := map[string]interface{}{
		"model":       p.model,
		"max_tokens":  maxTokens,
		"temperature": 0,
		"system":      input.SystemPrompt,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": input.Prompt,
			},
		},
		"tools": []map[string]interface{}{
			{
				"name":         input.SchemaName,
				"description":  "Record the structured interpretation of the plan text.",
				"input_schema": input.Schema,
			},
		},
		"tool_choice": map[string]interface{}{
			"type": "tool",
			"name": input.SchemaName,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := interpret.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, interpret.NewRateLimitError("claude", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, p.model)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model string) (*port.InterpretOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	out := &port.InterpretOutput{
		ModelUsed: model,
		Provider:  "claude",
		Truncated: resp.StopReason == "max_tokens",
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "tool_use":
			out.Raw = string(block.Input)
			return out, nil
		case "text":
			if out.Raw == "" {
				out.Raw = block.Text
			}
		}
	}
	if out.Raw == "" && !out.Truncated {
		return nil, fmt.Errorf("empty response from API")
	}
	return out, nil
}
