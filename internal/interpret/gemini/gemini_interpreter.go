// Package gemini implements port.Interpreter with the Gemini generateContent API
// in JSON response mode.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"avplan/internal/config"
	"avplan/internal/interpret"
	"avplan/internal/port"
)

const (
	apiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

// Interpreter implements port.Interpreter using Google's Gemini API.
type Interpreter struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewInterpreter creates a Gemini-backed interpreter.
func NewInterpreter(cfg *config.ProviderConfig) *Interpreter {
	return newInterpreter(cfg, cfg.Endpoint)
}

// NewInterpreterWithEndpoint creates an interpreter pointing at a custom API endpoint (for testing).
func NewInterpreterWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Interpreter {
	return newInterpreter(cfg, endpoint)
}

// Factory adapts NewInterpreter to the provider registry.
func Factory(cfg *config.ProviderConfig) (port.Interpreter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini provider requires an api key")
	}
	return NewInterpreter(cfg), nil
}

func newInterpreter(cfg *config.ProviderConfig, endpoint string) *Interpreter {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
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
		"systemInstruction": map[string]interface{}{
			"parts": []map[string]interface{}{
				{"text": input.SystemPrompt},
			},
		},
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{"text": input.Prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType":   "application/json",
			"responseJsonSchema": input.Schema,
			"temperature":        0,
			"maxOutputTokens":    16384,
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
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gemini API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := interpret.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, interpret.NewRateLimitError("gemini", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, p.model)
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func parseResponse(body []byte, model string) (*port.InterpretOutput, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from API: no candidates")
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		text.WriteString(part.Text)
	}

	return &port.InterpretOutput{
		Raw:       text.String(),
		ModelUsed: model,
		Provider:  "gemini",
		Truncated: cand.FinishReason == "MAX_TOKENS",
	}, nil
}
