package tesseract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avplan/internal/config"
	"avplan/internal/domain"
	"avplan/internal/port"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   []call
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return f.outputs[name], f.errs[name]
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t1000\t2000\t-1\t\n" +
	"2\t1\t1\t0\t0\t0\t100\t200\t300\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t100\t200\t100\t40\t90\tAMP-1\n" +
	"5\t1\t1\t1\t1\t2\t220\t200\t80\t40\t80\tRack\n" +
	"5\t1\t1\t1\t2\t1\t100\t260\t200\t40\t70\tCH1-4\n" +
	"5\t1\t2\t1\t1\t1\t500\t1000\t100\t50\t-1\t \n" +
	"5\t1\t3\t1\t1\t1\t500\t1800\t100\t100\t50\tSPK-1\n"

func TestParseTSV(t *testing.T) {
	blocks, err := parseTSV([]byte(sampleTSV))
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.Equal(t, "AMP-1 Rack\nCH1-4", blocks[0].Text)
	assert.InDelta(t, 0.8, blocks[0].Confidence, 1e-9)
	assert.Equal(t, &port.BoundingBox{X0: 0.1, Y0: 0.1, X1: 0.3, Y1: 0.15}, blocks[0].Box)

	assert.Equal(t, "SPK-1", blocks[1].Text)
	assert.InDelta(t, 0.5, blocks[1].Confidence, 1e-9)
}

func TestParseTSV_BadNumber(t *testing.T) {
	_, err := parseTSV([]byte("header\nx\t1\t1\t1\t1\t1\t1\t1\t1\t1\t1\tword\n"))
	assert.Error(t, err)
}

func TestRecognize_TextLayerPDF(t *testing.T) {
	runner := &fakeRunner{outputs: map[string][]byte{"pdftotext": []byte("AMP-1   SPK-1\n")}}
	b := NewBackendWithRunner(config.TesseractConfig{}, runner)

	out, err := b.Recognize(context.Background(), port.OCRInput{Content: []byte("%PDF-"), ContentType: "application/pdf", PageNumber: 3, WorkDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "pdftotext", out.Engine)
	require.Len(t, out.Blocks, 1)
	assert.Equal(t, 1.0, out.Blocks[0].Confidence)
	require.Len(t, runner.calls, 1)
	assert.True(t, strings.HasSuffix(runner.calls[0].args[len(runner.calls[0].args)-2], "ocr-page-3.pdf"))
}

func TestRecognize_ScannedPDFFallsBackToTesseract(t *testing.T) {
	runner := &fakeRunner{outputs: map[string][]byte{
		"pdftotext": []byte("  \n\f"),
		"tess":      []byte(sampleTSV),
	}}
	b := NewBackendWithRunner(config.TesseractConfig{TesseractPath: "tess", DPI: 150, Language: "eng+deu"}, runner)

	out, err := b.Recognize(context.Background(), port.OCRInput{Content: []byte("%PDF-"), ContentType: "application/pdf", PageNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, "tesseract", out.Engine)
	assert.Len(t, out.Blocks, 2)

	require.Len(t, runner.calls, 3)
	assert.Equal(t, "pdftoppm", runner.calls[1].name)
	assert.Contains(t, runner.calls[1].args, "150")
	assert.Equal(t, "tess", runner.calls[2].name)
	assert.True(t, strings.HasSuffix(runner.calls[2].args[0], "ocr-page-1.png"))
	assert.Contains(t, runner.calls[2].args, "eng+deu")
}

func TestRecognize_Image(t *testing.T) {
	runner := &fakeRunner{outputs: map[string][]byte{"tesseract": []byte(sampleTSV)}}
	b := NewBackendWithRunner(config.TesseractConfig{}, runner)

	_, err := b.Recognize(context.Background(), port.OCRInput{Content: []byte("img"), ContentType: "image/jpeg", PageNumber: 1, WorkDir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.True(t, strings.HasSuffix(runner.calls[0].args[0], ".jpg"))
}

func TestRecognize_UnreadablePDF(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{"pdftotext": errors.New("Syntax Error: Couldn't read xref table")}}
	b := NewBackendWithRunner(config.TesseractConfig{}, runner)

	_, err := b.Recognize(context.Background(), port.OCRInput{ContentType: "application/pdf", PageNumber: 1, WorkDir: t.TempDir()})
	assert.True(t, errors.Is(err, domain.ErrUnreadableDocument))
}

func TestRecognize_UnreadableImage(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{
		"tesseract": errors.New("tesseract: exit status 1: Error in pixReadStream: Unknown format: no pix returned\nImage file /tmp/ocr-page-1.png cannot be read!"),
	}}
	b := NewBackendWithRunner(config.TesseractConfig{}, runner)

	_, err := b.Recognize(context.Background(), port.OCRInput{Content: []byte("\x89PNG\r\n\x1a\nbad"), ContentType: "image/png", PageNumber: 1, WorkDir: t.TempDir()})
	assert.True(t, errors.Is(err, domain.ErrUnreadableDocument))
}

func TestRecognize_TesseractFailureIsNotUnreadable(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{
		"tesseract": errors.New("tesseract: exit status 1: Failed loading language 'eng'"),
	}}
	b := NewBackendWithRunner(config.TesseractConfig{}, runner)

	_, err := b.Recognize(context.Background(), port.OCRInput{Content: []byte("img"), ContentType: "image/png", PageNumber: 1, WorkDir: t.TempDir()})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUnreadableDocument))
}
