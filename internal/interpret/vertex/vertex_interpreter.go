// Package vertex implements port.Interpreter with Gemini models on Vertex AI.
package vertex

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"avplan/internal/config"
	"avplan/internal/interpret"
	"avplan/internal/port"
)

// generator is the part of genai.GenerativeModel the interpreter calls.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// modelFunc configures a model for one call. A fresh model per call keeps
// the system instruction out of shared state.
type modelFunc func(systemPrompt string) generator

// Interpreter implements port.Interpreter using Vertex AI.
type Interpreter struct {
	newModel modelFunc
	model    string
	client   *genai.Client
}

// NewInterpreter connects to Vertex AI in the configured project and location.
func NewInterpreter(ctx context.Context, cfg *config.ProviderConfig) (*Interpreter, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("vertex provider requires project_id and location")
	}
	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	name := cfg.DefaultModel
	if name == "" {
		name = "gemini-1.5-pro"
	}
	newModel := func(systemPrompt string) generator {
		m := client.GenerativeModel(name)
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
		m.GenerationConfig = genai.GenerationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.0),
		}
		return m
	}
	return &Interpreter{newModel: newModel, model: name, client: client}, nil
}

// Factory adapts NewInterpreter to the provider registry.
func Factory(cfg *config.ProviderConfig) (port.Interpreter, error) {
	return NewInterpreter(context.Background(), cfg)
}

func (p *Interpreter) Interpret(ctx context.Context, input port.InterpretInput) (*port.InterpretOutput, error) {
	// Vertex response schemas are an OpenAPI subset, so the JSON Schema
	// travels in the instruction and is enforced by the engine's validation.
	system := input.SystemPrompt + "\n\nJSON Schema:\n" + string(input.Schema)

	resp, err := p.newModel(system).GenerateContent(ctx, genai.Text(input.Prompt))
	if err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			return nil, interpret.NewRateLimitError("vertex", err, 0)
		}
		return nil, fmt.Errorf("vertex generate content: %w", err)
	}
	raw, truncated, err := extractText(resp)
	if err != nil {
		return nil, err
	}
	return &port.InterpretOutput{
		Raw:       raw,
		ModelUsed: p.model,
		Provider:  "vertex",
		Truncated: truncated,
	}, nil
}

// Close releases the underlying client.
func (p *Interpreter) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, bool, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false, fmt.Errorf("empty response from vertex: no candidates")
	}
	cand := resp.Candidates[0]
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), cand.FinishReason == genai.FinishReasonMaxTokens, nil
}
