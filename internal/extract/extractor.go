package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"avplan/internal/config"
	"avplan/internal/domain"
	"avplan/internal/logger"
	"avplan/internal/port"
)

// Options tunes the Content Extractor.
type Options struct {
	ConfidenceThreshold float64
	LowConfidencePolicy domain.LowConfidencePolicy
	MaxPages            int
	// Concurrency bounds in-flight OCR calls across all jobs sharing the Extractor.
	Concurrency int
}

// OptionsFromConfig maps the extract config section onto Options.
func OptionsFromConfig(cfg *config.ExtractConfig) Options {
	return Options{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		LowConfidencePolicy: domain.LowConfidencePolicy(cfg.LowConfidencePolicy),
		MaxPages:            cfg.MaxPages,
		Concurrency:         cfg.Concurrency,
	}
}

// Extractor converts an uploaded plan into ordered text segments.
type Extractor struct {
	backend port.OCRBackend
	opts    Options
	pool    *semaphore.Weighted
	log     zerolog.Logger
}

// New creates an Extractor around an OCR backend.
func New(backend port.OCRBackend, opts Options) *Extractor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.LowConfidencePolicy == "" {
		opts.LowConfidencePolicy = domain.LowConfidenceProceed
	}
	return &Extractor{
		backend: backend,
		opts:    opts,
		pool:    semaphore.NewWeighted(int64(opts.Concurrency)),
		log:     logger.WithComponent("extract"),
	}
}

type pageResult struct {
	blocks []port.OCRBlock
}

// Extract runs every page (or the single image) through the OCR backend and
// returns the segments in page order. workDir is job-owned scratch space; when
// empty a temporary directory is created and removed before returning.
func (e *Extractor) Extract(ctx context.Context, doc *domain.UploadedDocument, workDir string) (*domain.ExtractedContent, error) {
	if err := doc.Verify(); err != nil {
		return nil, err
	}
	if doc.Size == 0 {
		return nil, fmt.Errorf("%w: zero-byte file", domain.ErrUnreadableDocument)
	}
	if err := checkSignature(doc); err != nil {
		return nil, err
	}
	if doc.FileType.IsRaster() {
		if err := checkImage(doc); err != nil {
			return nil, err
		}
	}

	if workDir == "" {
		dir, err := os.MkdirTemp("", "avplan-extract-*")
		if err != nil {
			return nil, fmt.Errorf("creating work dir: %w", err)
		}
		defer os.RemoveAll(dir)
		workDir = dir
	}

	var pages []page
	if doc.FileType.IsRaster() {
		pages = []page{{Number: 1, Content: doc.Content(), ContentType: doc.ContentType}}
	} else {
		var err error
		pages, err = splitPDF(doc.Content(), workDir, e.opts.MaxPages)
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]pageResult, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i := range pages {
		p := pages[i]
		g.Go(func() error {
			blocks, err := e.recognize(gctx, p, workDir)
			if err != nil {
				return err
			}
			results[i] = pageResult{blocks: blocks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	content := e.assemble(doc, pages, results)
	if len(content.Segments) == 0 {
		return nil, fmt.Errorf("%w: %d page(s) yielded no text", domain.ErrEmptyDocument, len(pages))
	}
	if content.AllLowConfidence() {
		if e.opts.LowConfidencePolicy == domain.LowConfidenceFail {
			return nil, fmt.Errorf("%w: threshold %.2f", domain.ErrLowConfidenceDocument, e.opts.ConfidenceThreshold)
		}
		content.Notes = append(content.Notes, fmt.Sprintf(
			"Every extracted segment is below the OCR confidence threshold of %.2f; verify all results against the drawings.",
			e.opts.ConfidenceThreshold))
	}

	e.log.Info().
		Str("file", doc.Filename).
		Int("pages", len(pages)).
		Int("segments", len(content.Segments)).
		Msg("extraction complete")
	return content, nil
}

func (e *Extractor) recognize(ctx context.Context, p page, workDir string) ([]port.OCRBlock, error) {
	if err := e.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.pool.Release(1)

	out, err := e.backend.Recognize(ctx, port.OCRInput{
		Content:     p.Content,
		ContentType: p.ContentType,
		PageNumber:  p.Number,
		WorkDir:     workDir,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, domain.ErrUnreadableDocument) {
			return nil, err
		}
		e.log.Error().Err(err).Int("page", p.Number).Msg("ocr backend failed")
		return nil, fmt.Errorf("%w: page %d: %v", domain.ErrExtractionFailed, p.Number, err)
	}
	return out.Blocks, nil
}

func (e *Extractor) assemble(doc *domain.UploadedDocument, pages []page, results []pageResult) *domain.ExtractedContent {
	content := &domain.ExtractedContent{
		DocumentHash: doc.ContentHash,
		PageCount:    len(pages),
	}
	for i, p := range pages {
		blocks := orderBlocks(results[i].blocks)
		parts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if t := normalizeText(b.Text); t != "" {
				parts = append(parts, t)
			}
		}
		text := strings.Join(parts, "\n")
		if text == "" {
			content.Notes = append(content.Notes, fmt.Sprintf("Page %d yielded no readable text.", p.Number))
			continue
		}
		conf := blockConfidence(blocks)
		content.Segments = append(content.Segments, domain.Segment{
			Page:          p.Number,
			Index:         0,
			Text:          text,
			Region:        regionOf(blocks),
			Confidence:    conf,
			LowConfidence: conf < e.opts.ConfidenceThreshold,
		})
	}
	return content
}
