package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"avplan/internal/port"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"AMP-1\r\nSPK-1", "AMP-1\nSPK-1"},
		{"  rack A  \n\n\n\nrack B\t ", "rack A\n\nrack B"},
		{"Café", "Café"},
		{"line\x00one\fend", "lineone end"},
		{"\n\n", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeText(tt.in), tt.in)
	}
}

func TestOrderBlocks(t *testing.T) {
	blocks := []port.OCRBlock{
		{Text: "bottom", Box: &port.BoundingBox{X0: 0.1, Y0: 0.8}},
		{Text: "top-right", Box: &port.BoundingBox{X0: 0.7, Y0: 0.1}},
		{Text: "top-left", Box: &port.BoundingBox{X0: 0.1, Y0: 0.101}},
	}
	got := orderBlocks(blocks)
	assert.Equal(t, "top-left", got[0].Text)
	assert.Equal(t, "top-right", got[1].Text)
	assert.Equal(t, "bottom", got[2].Text)
	assert.Equal(t, "bottom", blocks[0].Text, "input must not be reordered")

	noGeometry := []port.OCRBlock{{Text: "b"}, {Text: "a", Box: &port.BoundingBox{}}}
	assert.Equal(t, noGeometry, orderBlocks(noGeometry))
}

func TestBlockConfidence(t *testing.T) {
	assert.Equal(t, 0.0, blockConfidence(nil))
	assert.Equal(t, 0.5, blockConfidence([]port.OCRBlock{{Text: "ab", Confidence: 1}, {Text: "cd", Confidence: 0}, {Text: "", Confidence: 1}}))
	assert.Equal(t, 1.0, blockConfidence([]port.OCRBlock{{Text: "x", Confidence: 7}}))
}

func TestRegionOf(t *testing.T) {
	assert.Nil(t, regionOf([]port.OCRBlock{{Text: "x"}}))

	r := regionOf([]port.OCRBlock{
		{Text: "a", Box: &port.BoundingBox{X0: 0.7, Y0: 0.7, X1: 0.8, Y1: 0.75}},
		{Text: "b", Box: &port.BoundingBox{X0: 0.75, Y0: 0.8, X1: 0.9, Y1: 0.95}},
	})
	assert.Equal(t, 0.7, r.X0)
	assert.Equal(t, 0.95, r.Y1)
	assert.Equal(t, "bottom-right", r.Zone)

	full := regionOf([]port.OCRBlock{{Text: "a", Box: &port.BoundingBox{X0: -0.1, Y0: 0, X1: 1.2, Y1: 1}}})
	assert.Equal(t, 0.0, full.X0)
	assert.Equal(t, 1.0, full.X1)
	assert.Equal(t, "full-page", full.Zone)

	mid := regionOf([]port.OCRBlock{{Text: "a", Box: &port.BoundingBox{X0: 0.4, Y0: 0.4, X1: 0.5, Y1: 0.5}}})
	assert.Equal(t, "center", mid.Zone)
}
