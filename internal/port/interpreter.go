package port

import (
	"context"
	"encoding/json"
)

// InterpretInput carries one interpretation request. The call deadline travels
// on the context passed to Interpret.
type InterpretInput struct {
	SystemPrompt string
	Prompt       string
	SchemaName   string
	Schema       json.RawMessage
}

// InterpretOutput contains the raw structured response of a language-model call.
type InterpretOutput struct {
	Raw       string
	ModelUsed string
	Provider  string
	Truncated bool
}

// Interpreter abstracts a schema-constrained language-model call.
type Interpreter interface {
	Interpret(ctx context.Context, input InterpretInput) (*InterpretOutput, error)
}
