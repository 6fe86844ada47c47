package artifact

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"avplan/internal/domain"
	"avplan/internal/taxonomy"
)

func sampleResult() *domain.InterpretationResult {
	return &domain.InterpretationResult{
		Summary: "One amplifier drives a ceiling loudspeaker in the conference room.",
		Devices: []domain.Device{
			{ID: "D001", Name: "AMP-1", Type: "Amplifier", Location: "Rack A"},
			{ID: "D002", Name: "SPK-1", Type: "Loudspeaker", Location: "Conference Room"},
			{ID: "D003", Name: "SPK-2", Type: "Loudspeaker", Location: "Conference Room"},
			{ID: "D004", Name: "XYZ-9", Type: "", Location: ""},
		},
		Paths: []domain.RoutingPath{
			{Source: "D001", Destination: "D002", SignalType: "speaker", Description: "70V line"},
			{Source: "D001", Destination: "D003", SignalType: "speaker"},
			{Source: "D003", Destination: "D003", SignalType: "mystery"},
		},
		Notes:             []string{"Confirm speaker tap setting."},
		SuggestedTaxonomy: map[string]string{"VC": "Volume Control"},
	}
}

func newBuilder(workbook bool) *Builder {
	return New(taxonomy.Default(), Options{Workbook: workbook})
}

func readCSV(t *testing.T, content []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(content, BOM))
	rows, err := csv.NewReader(bytes.NewReader(content[len(BOM):])).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestBuild_KindsAndNames(t *testing.T) {
	arts, err := newBuilder(false).Build(sampleResult(), "plans_rev2")
	require.NoError(t, err)
	require.Len(t, arts, 4)

	for i, kind := range domain.ArtifactKinds {
		a := arts[i]
		assert.Equal(t, kind, a.Kind)
		require.Len(t, a.Renderings, 2)
		pdf, ok := a.Rendering(domain.FormatPDF)
		require.True(t, ok)
		assert.Equal(t, "plans_rev2_"+string(kind)+".pdf", pdf.Name)
		assert.Equal(t, "application/pdf", pdf.ContentType)
		assert.True(t, bytes.HasPrefix(pdf.Content, []byte("%PDF-")))
		c, ok := a.Rendering(domain.FormatCSV)
		require.True(t, ok)
		assert.Equal(t, "plans_rev2_"+string(kind)+".csv", c.Name)
	}
}

func TestBuild_IsPure(t *testing.T) {
	b := newBuilder(false)
	first, err := b.Build(sampleResult(), "plan")
	require.NoError(t, err)
	second, err := b.Build(sampleResult(), "plan")
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		for j := range first[i].Renderings {
			assert.True(t, bytes.Equal(first[i].Renderings[j].Content, second[i].Renderings[j].Content),
				"%s differs between runs", first[i].Renderings[j].Name)
		}
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	in := sampleResult()
	snapshot := sampleResult()
	_, err := newBuilder(false).Build(in, "plan")
	require.NoError(t, err)
	assert.Equal(t, snapshot, in)
}

func TestBuild_PullSheet(t *testing.T) {
	arts, err := newBuilder(false).Build(sampleResult(), "plan")
	require.NoError(t, err)
	c, _ := arts[1].Rendering(domain.FormatCSV)
	rows := readCSV(t, c.Content)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Cable ID", "Source", "Source Location", "Destination", "Destination Location", "Signal Type", "Cable Type", "Description"}, rows[0])
	assert.Equal(t, []string{"C-001", "AMP-1", "Rack A", "SPK-1", "Conference Room", "speaker", "Speaker cable, 2C 14 AWG", "70V line"}, rows[1])
	assert.Equal(t, taxonomy.UnknownCable, rows[3][6])

	assert.Contains(t, arts[1].Text, "C-001")
	assert.Contains(t, arts[1].Text, "Speaker cable, 2C 14 AWG")
}

func TestBuild_BOM(t *testing.T) {
	arts, err := newBuilder(false).Build(sampleResult(), "plan")
	require.NoError(t, err)
	c, _ := arts[2].Rendering(domain.FormatCSV)
	rows := readCSV(t, c.Content)

	require.Len(t, rows, 6)
	assert.Equal(t, []string{"1", "Device", "Amplifier", "1", "ea", "AMP-1", "Rack A"}, rows[1])
	assert.Equal(t, []string{"2", "Device", "Loudspeaker", "2", "ea", "SPK-1, SPK-2", "Conference Room"}, rows[2])
	assert.Equal(t, []string{"3", "Device", "Unclassified", "1", "ea", "XYZ-9", ""}, rows[3])
	assert.Equal(t, []string{"4", "Cable", "Speaker cable, 2C 14 AWG", "2", "runs", "C-001, C-002", ""}, rows[4])
	assert.Equal(t, []string{"5", "Cable", taxonomy.UnknownCable, "1", "runs", "C-003", ""}, rows[5])
}

func TestBuild_Verification(t *testing.T) {
	arts, err := newBuilder(false).Build(sampleResult(), "plan")
	require.NoError(t, err)
	c, _ := arts[3].Rendering(domain.FormatCSV)
	rows := readCSV(t, c.Content)

	var checks []string
	for _, r := range rows[1:] {
		checks = append(checks, r[3])
	}
	all := strings.Join(checks, "\n")
	assert.Equal(t, "Confirm speaker tap setting.", checks[0])
	assert.Contains(t, all, "XYZ-9 (D004) has no routing path")
	assert.Contains(t, all, "XYZ-9 has no device type")
	assert.Contains(t, all, "XYZ-9 has no location")
	assert.Contains(t, all, "C-003 connects SPK-2 to itself")
	assert.NotContains(t, all, "AMP-1 (D001) has no routing path")
}

func TestBuild_VerificationWithoutIssues(t *testing.T) {
	res := &domain.InterpretationResult{
		Summary: "s",
		Devices: []domain.Device{
			{ID: "D001", Name: "AMP-1", Type: "Amplifier", Location: "Rack"},
			{ID: "D002", Name: "SPK-1", Type: "Loudspeaker", Location: "Room"},
		},
		Paths: []domain.RoutingPath{{Source: "D001", Destination: "D002", SignalType: "speaker"}},
	}
	arts, err := newBuilder(false).Build(res, "plan")
	require.NoError(t, err)
	assert.Contains(t, arts[3].Text, "No issues were detected")
}

func TestBuild_SummaryCSV(t *testing.T) {
	arts, err := newBuilder(false).Build(sampleResult(), "plan")
	require.NoError(t, err)
	assert.Equal(t, sampleResult().Summary, arts[0].Text)
	c, _ := arts[0].Rendering(domain.FormatCSV)
	rows := readCSV(t, c.Content)
	assert.Equal(t, []string{"Devices", "4"}, rows[2])
	assert.Equal(t, []string{"Suggested Abbreviation", "VC = Volume Control"}, rows[len(rows)-1])
}

func TestBuild_DanglingReferenceIsRenderError(t *testing.T) {
	res := sampleResult()
	res.Paths = append(res.Paths, domain.RoutingPath{Source: "D001", Destination: "D099", SignalType: "video"})
	arts, err := newBuilder(false).Build(res, "plan")
	assert.Nil(t, arts)
	assert.True(t, errors.Is(err, domain.ErrRender))
	assert.Equal(t, domain.ReasonRender, domain.ReasonFor(err))
}

func TestBuild_EmptyResult(t *testing.T) {
	arts, err := newBuilder(false).Build(&domain.InterpretationResult{}, "")
	require.NoError(t, err)
	require.Len(t, arts, 4)
	pdf, _ := arts[0].Rendering(domain.FormatPDF)
	assert.Equal(t, "document_summary.pdf", pdf.Name)
}

func TestBuild_UnicodeText(t *testing.T) {
	res := sampleResult()
	res.Devices[0].Location = "Salle de réunion – niveau 2"
	res.Summary = "Système audio: «AMP-1» alimente SPK-1."
	_, err := newBuilder(false).Build(res, "plan")
	assert.NoError(t, err)
}

func TestBuild_LongTableSpansPages(t *testing.T) {
	res := &domain.InterpretationResult{Summary: "large"}
	for i := 0; i < 120; i++ {
		id := fmt.Sprintf("D%03d", i+1)
		res.Devices = append(res.Devices, domain.Device{ID: id, Name: fmt.Sprintf("SPK-%d", i+1), Type: "Loudspeaker", Location: "Hall"})
		if i > 0 {
			res.Paths = append(res.Paths, domain.RoutingPath{Source: "D001", Destination: id, SignalType: "speaker"})
		}
	}
	arts, err := newBuilder(false).Build(res, "plan")
	require.NoError(t, err)
	pdf, _ := arts[1].Rendering(domain.FormatPDF)
	assert.Greater(t, bytes.Count(pdf.Content, []byte("/Type /Page\n")), 1)
}

func TestBuild_Workbook(t *testing.T) {
	arts, err := newBuilder(true).Build(sampleResult(), "plan")
	require.NoError(t, err)
	require.Len(t, arts, 5)
	wb := arts[4]
	assert.Equal(t, domain.ArtifactWorkbook, wb.Kind)
	x, ok := wb.Rendering(domain.FormatXLSX)
	require.True(t, ok)
	assert.Equal(t, "plan_workbook.xlsx", x.Name)

	f, err := excelize.OpenReader(bytes.NewReader(x.Content))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{"Summary", "Devices", "Pull Sheet", "BOM", "Verification"}, f.GetSheetList())
	v, err := f.GetCellValue("Pull Sheet", "A2")
	require.NoError(t, err)
	assert.Equal(t, "C-001", v)
}

func TestTables(t *testing.T) {
	pull, bom, err := newBuilder(false).Tables(sampleResult())
	require.NoError(t, err)
	assert.Contains(t, pull, "AMP-1")
	assert.Contains(t, bom, "Loudspeaker")
}
