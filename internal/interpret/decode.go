package interpret

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"avplan/internal/port"
)

var errNoExpectedFields = errors.New("response contains none of the expected fields")

// chunkDevice and chunkPath are the model's records before merge; IDs are
// local to one chunk.
type chunkDevice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

type chunkPath struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	SignalType  string `json:"signal_type"`
	Description string `json:"description"`
}

// chunkResult is one validated response. Missing lists the expected fields
// the response left out.
type chunkResult struct {
	Summary     string
	Devices     []chunkDevice
	Paths       []chunkPath
	Notes       []string
	NewTaxonomy map[string]string
	Missing     []string
	Model       string
}

// stripFences removes a surrounding markdown code fence some providers add
// despite JSON response modes.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeChunk parses and validates one provider response.
func decodeChunk(out *port.InterpretOutput, schema *compiledSchema) (*chunkResult, error) {
	if out == nil {
		return nil, errors.New("empty response")
	}
	if out.Truncated {
		return nil, errors.New("response was truncated at the output token limit")
	}
	raw := stripFences(out.Raw)
	if raw == "" {
		return nil, errors.New("empty response")
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := schema.validator.Validate(doc); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}
	obj, _ := doc.(map[string]any)

	var fields struct {
		Summary     *string           `json:"summary"`
		Devices     *[]chunkDevice    `json:"devices"`
		Paths       *[]chunkPath      `json:"paths"`
		Notes       *[]string         `json:"notes"`
		NewTaxonomy map[string]string `json:"new_taxonomy_entries"`
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	res := &chunkResult{NewTaxonomy: fields.NewTaxonomy, Model: out.ModelUsed}
	present := 0
	for _, f := range expectedFields {
		if v, ok := obj[f]; ok && v != nil {
			present++
			continue
		}
		res.Missing = append(res.Missing, f)
	}
	if present == 0 {
		return nil, errNoExpectedFields
	}
	if fields.Summary != nil {
		res.Summary = strings.TrimSpace(*fields.Summary)
	}
	if fields.Devices != nil {
		res.Devices = *fields.Devices
	}
	if fields.Paths != nil {
		res.Paths = *fields.Paths
	}
	if fields.Notes != nil {
		res.Notes = *fields.Notes
	}
	return res, nil
}
