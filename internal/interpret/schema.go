package interpret

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaName identifies the structured-output contract sent to providers.
const SchemaName = "av_plan_interpretation"

// Top-level fields of the structured response.
const (
	fieldSummary  = "summary"
	fieldDevices  = "devices"
	fieldPaths    = "paths"
	fieldNotes    = "notes"
	fieldTaxonomy = "new_taxonomy_entries"
)

// expectedFields are reported as gaps when a response omits them.
var expectedFields = []string{fieldSummary, fieldDevices, fieldPaths, fieldNotes}

// BuildSchema returns the JSON Schema every chunk response must satisfy. No
// top-level field is required so that a response missing one can be kept as a
// partial result; nested records are strict.
func BuildSchema() map[string]any {
	str := map[string]any{"type": "string"}
	nonEmpty := map[string]any{"type": "string", "minLength": 1}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			fieldSummary: str,
			fieldDevices: map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"id":       nonEmpty,
						"name":     nonEmpty,
						"type":     str,
						"location": str,
					},
					"required": []string{"id", "name"},
				},
			},
			fieldPaths: map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"source":      nonEmpty,
						"destination": nonEmpty,
						"signal_type": str,
						"description": str,
					},
					"required": []string{"source", "destination"},
				},
			},
			fieldNotes: map[string]any{
				"type":  "array",
				"items": str,
			},
			fieldTaxonomy: map[string]any{
				"type":                 "object",
				"additionalProperties": str,
			},
		},
	}
}

// compiledSchema pairs the wire form of the schema with its validator.
type compiledSchema struct {
	raw       json.RawMessage
	validator *jsonschema.Schema
}

func compileSchema(schema map[string]any) (*compiledSchema, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("interpretation.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	v, err := compiler.Compile("interpretation.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &compiledSchema{raw: b, validator: v}, nil
}
