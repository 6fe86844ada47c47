package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avplan/internal/port"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1}  "))
}

func TestDecodeChunk(t *testing.T) {
	schema, err := compileSchema(BuildSchema())
	require.NoError(t, err)

	res, err := decodeChunk(&port.InterpretOutput{Raw: `{"summary": " s ", "devices": [], "new_taxonomy_entries": {"VC": "Volume Control"}}`, ModelUsed: "m"}, schema)
	require.NoError(t, err)
	assert.Equal(t, "s", res.Summary)
	assert.Equal(t, []string{"paths", "notes"}, res.Missing)
	assert.Equal(t, "m", res.Model)
	assert.Equal(t, "Volume Control", res.NewTaxonomy["VC"])

	_, err = decodeChunk(&port.InterpretOutput{Raw: `{"notes": null}`}, schema)
	assert.Error(t, err)

	_, err = decodeChunk(&port.InterpretOutput{Raw: `[]`}, schema)
	assert.Error(t, err)

	_, err = decodeChunk(&port.InterpretOutput{Raw: ""}, schema)
	assert.Error(t, err)

	_, err = decodeChunk(nil, schema)
	assert.Error(t, err)
}
