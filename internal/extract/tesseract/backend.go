// Package tesseract recognizes plan pages with local poppler and tesseract binaries.
// Text-layer PDFs are read with pdftotext; scanned pages are rasterized with
// pdftoppm and passed to tesseract in TSV mode.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"avplan/internal/config"
	"avplan/internal/domain"
	"avplan/internal/port"
)

const engineName = "tesseract"

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Backend implements port.OCRBackend with poppler-utils and tesseract.
type Backend struct {
	cfg    config.TesseractConfig
	runner Runner
}

// NewBackend creates a backend that shells out to the configured binaries.
func NewBackend(cfg config.TesseractConfig) *Backend {
	return NewBackendWithRunner(cfg, execRunner{})
}

// NewBackendWithRunner creates a backend with an explicit command runner (for testing).
func NewBackendWithRunner(cfg config.TesseractConfig, runner Runner) *Backend {
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = "tesseract"
	}
	if cfg.PdftotextPath == "" {
		cfg.PdftotextPath = "pdftotext"
	}
	if cfg.PdftoppmPath == "" {
		cfg.PdftoppmPath = "pdftoppm"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Backend{cfg: cfg, runner: runner}
}

// Factory adapts NewBackend to the extractor backend registry.
func Factory(cfg *config.ExtractConfig) (port.OCRBackend, error) {
	return NewBackend(cfg.Tesseract), nil
}

// Recognize extracts the text of one page or image.
func (b *Backend) Recognize(ctx context.Context, input port.OCRInput) (*port.OCROutput, error) {
	dir := input.WorkDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "avplan-ocr-*")
		if err != nil {
			return nil, fmt.Errorf("creating ocr dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	base := filepath.Join(dir, fmt.Sprintf("ocr-page-%d", input.PageNumber))

	if input.ContentType != "application/pdf" {
		src := base + extensionFor(input.ContentType)
		if err := os.WriteFile(src, input.Content, 0o600); err != nil {
			return nil, fmt.Errorf("writing page image: %w", err)
		}
		return b.ocrImage(ctx, src)
	}

	src := base + ".pdf"
	if err := os.WriteFile(src, input.Content, 0o600); err != nil {
		return nil, fmt.Errorf("writing page pdf: %w", err)
	}

	out, err := b.runner.Run(ctx, b.cfg.PdftotextPath, "-layout", "-f", "1", "-l", "1", "-enc", "UTF-8", src, "-")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: pdftotext: %v", domain.ErrUnreadableDocument, err)
	}
	if text := strings.TrimSpace(string(out)); text != "" {
		return &port.OCROutput{
			Engine: "pdftotext",
			Blocks: []port.OCRBlock{{Text: string(out), Confidence: 1}},
		}, nil
	}

	// No text layer: rasterize the page and OCR the image.
	if _, err := b.runner.Run(ctx, b.cfg.PdftoppmPath, "-r", strconv.Itoa(b.cfg.DPI), "-png", "-singlefile", "-f", "1", "-l", "1", src, base); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: pdftoppm: %v", domain.ErrUnreadableDocument, err)
	}
	return b.ocrImage(ctx, base+".png")
}

func (b *Backend) ocrImage(ctx context.Context, path string) (*port.OCROutput, error) {
	out, err := b.runner.Run(ctx, b.cfg.TesseractPath, path, "stdout", "-l", b.cfg.Language, "--dpi", strconv.Itoa(b.cfg.DPI), "tsv")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if unreadableImage(err) {
			return nil, fmt.Errorf("%w: tesseract: %v", domain.ErrUnreadableDocument, err)
		}
		return nil, fmt.Errorf("tesseract: %w", err)
	}
	blocks, err := parseTSV(out)
	if err != nil {
		return nil, err
	}
	return &port.OCROutput{Engine: engineName, Blocks: blocks}, nil
}

// unreadableImage reports whether tesseract failed because leptonica could
// not read the image, as opposed to the binary or its language data failing.
func unreadableImage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"cannot be read", "pixreadstream", "unsupported image", "image file format"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/tiff":
		return ".tif"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
