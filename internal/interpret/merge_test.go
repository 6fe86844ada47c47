package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avplan/internal/taxonomy"
)

func chunkOn(index, page int) chunk {
	return chunk{Index: index, Parts: []chunkPart{{Page: page, Text: "x", Confidence: 1}}}
}

func TestMerger_DedupByNameAndLocation(t *testing.T) {
	m := newMerger(taxonomy.Default())

	m.add(chunkOn(0, 1), &chunkResult{
		Devices: []chunkDevice{
			{ID: "d1", Name: "AMP-1", Location: "Rack A"},
			{ID: "d2", Name: "SPK-1", Location: "Room 201"},
		},
		Paths: []chunkPath{{Source: "d1", Destination: "d2", SignalType: "70V"}},
	})
	m.add(chunkOn(1, 2), &chunkResult{
		Devices: []chunkDevice{
			{ID: "a", Name: "amp-1", Location: "  rack   a "},
			{ID: "b", Name: "SPK-1", Location: "Room 202"},
		},
		Paths: []chunkPath{
			{Source: "a", Destination: "b", SignalType: "speaker level"},
			{Source: "AMP-1", Destination: "SPK-1", SignalType: "speaker", Description: "duplicate by local name"},
		},
	})

	res := m.result(nil)
	require.Len(t, res.Devices, 3)
	assert.Equal(t, "D001", res.Devices[0].ID)
	assert.Equal(t, "Amplifier", res.Devices[0].Type)
	assert.Equal(t, "D003", res.Devices[2].ID)
	assert.Equal(t, "Room 202", res.Devices[2].Location)

	require.Len(t, res.Paths, 2)
	assert.Equal(t, "D001", res.Paths[0].Source)
	assert.Equal(t, "D002", res.Paths[0].Destination)
	assert.Equal(t, "speaker", res.Paths[0].SignalType)
	assert.Equal(t, "D003", res.Paths[1].Destination)
	assert.Equal(t, "duplicate by local name", res.Paths[1].Description)
	assert.NoError(t, res.Validate())
}

func TestMerger_DropsPathsToUnknownDevices(t *testing.T) {
	m := newMerger(taxonomy.Default())
	m.add(chunkOn(0, 3), &chunkResult{
		Devices: []chunkDevice{{ID: "1", Name: "DSP-1"}},
		Paths:   []chunkPath{{Source: "1", Destination: "ghost"}},
	})

	res := m.result([]string{"Page 2 yielded no text."})
	assert.Empty(t, res.Paths)
	require.Len(t, res.Notes, 2)
	assert.Equal(t, "Page 2 yielded no text.", res.Notes[0])
	assert.Contains(t, res.Notes[1], `device "ghost"`)
	assert.Contains(t, res.Notes[1], "page 3")
	assert.Contains(t, res.Notes[1], "unspecified signal")
}

func TestMerger_GapNotesAndSuggestions(t *testing.T) {
	m := newMerger(taxonomy.Default())
	m.add(chunkOn(0, 1), &chunkResult{
		Summary:     "A small conference room.",
		Missing:     []string{"notes"},
		NewTaxonomy: map[string]string{"amp": "Amplifier", "vcm": "Voice Lift Module", "": "x"},
	})

	res := m.result(nil)
	assert.Equal(t, "A small conference room.", res.Summary)
	require.Len(t, res.Notes, 1)
	assert.Contains(t, res.Notes[0], `"notes"`)
	assert.Equal(t, map[string]string{"VCM": "Voice Lift Module"}, res.SuggestedTaxonomy)
	assert.NotNil(t, res.Devices)
	assert.NotNil(t, res.Paths)
}

func TestMerger_DefaultSummary(t *testing.T) {
	m := newMerger(taxonomy.Default())
	m.add(chunkOn(0, 1), &chunkResult{Devices: []chunkDevice{{Name: "TP-1"}}})

	res := m.result(nil)
	assert.Equal(t, "1 devices and 0 routing paths were identified.", res.Summary)
	assert.Equal(t, "Touch Panel", res.Devices[0].Type)
}

func TestMerger_SuggestionsCaseCollisionIsDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := newMerger(taxonomy.Default())
		m.add(chunkOn(0, 1), &chunkResult{
			NewTaxonomy: map[string]string{
				"vcm": "Volume Control Module",
				"VCM": "Volume Controller",
				"Vcm": "Volume Knob",
			},
		})
		res := m.result(nil)
		require.Equal(t, map[string]string{"VCM": "Volume Controller"}, res.SuggestedTaxonomy)
	}
}
