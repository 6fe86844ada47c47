package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"avplan/internal/config"
	"avplan/internal/interpret"
	"avplan/internal/port"
)

type fakeGenerator struct {
	system string
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return f.resp, f.err
}

func newFake(gen *fakeGenerator) *Interpreter {
	return &Interpreter{
		model: "gemini-1.5-pro",
		newModel: func(systemPrompt string) generator {
			gen.system = systemPrompt
			return gen
		},
	}
}

func response(reason genai.FinishReason, texts ...string) *genai.GenerateContentResponse {
	parts := make([]genai.Part, len(texts))
	for i, t := range texts {
		parts[i] = genai.Text(t)
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content:      &genai.Content{Parts: parts},
		FinishReason: reason,
	}}}
}

func TestVertexInterpreter_Success(t *testing.T) {
	gen := &fakeGenerator{resp: response(genai.FinishReasonStop, `{"summary":`, `"s"}`)}
	out, err := newFake(gen).Interpret(context.Background(), port.InterpretInput{
		SystemPrompt: "system",
		Prompt:       "text",
		Schema:       json.RawMessage(`{"type":"object"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"s"}`, out.Raw)
	assert.Equal(t, "vertex", out.Provider)
	assert.False(t, out.Truncated)
	assert.Contains(t, gen.system, "system")
	assert.Contains(t, gen.system, `{"type":"object"}`)
}

func TestVertexInterpreter_Truncated(t *testing.T) {
	gen := &fakeGenerator{resp: response(genai.FinishReasonMaxTokens, `{`)}
	out, err := newFake(gen).Interpret(context.Background(), port.InterpretInput{})
	require.NoError(t, err)
	assert.True(t, out.Truncated)
}

func TestVertexInterpreter_ResourceExhausted(t *testing.T) {
	gen := &fakeGenerator{err: status.Error(codes.ResourceExhausted, "quota")}
	_, err := newFake(gen).Interpret(context.Background(), port.InterpretInput{})
	var rl *interpret.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "vertex", rl.Provider)
}

func TestVertexInterpreter_NoCandidates(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{}}
	_, err := newFake(gen).Interpret(context.Background(), port.InterpretInput{})
	assert.ErrorContains(t, err, "no candidates")
}

func TestFactory_RequiresProject(t *testing.T) {
	_, err := NewInterpreter(context.Background(), &config.ProviderConfig{Provider: "vertex"})
	assert.Error(t, err)
}
