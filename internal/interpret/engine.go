// Package interpret turns extracted plan text into a validated
// InterpretationResult through a schema-constrained language-model call.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"avplan/internal/config"
	"avplan/internal/domain"
	"avplan/internal/logger"
	"avplan/internal/port"
	"avplan/internal/taxonomy"
)

// Options tunes the Interpretation Engine.
type Options struct {
	CallTimeout       time.Duration
	MaxRepairAttempts int
	ChunkPages        int
	ChunkMaxChars     int
	// Concurrency bounds in-flight model calls across all jobs sharing the Engine.
	Concurrency int
	// ChunkConcurrency bounds the chunks of one job interpreted at once.
	ChunkConcurrency int
}

// OptionsFromConfig maps the interpret config section onto Options.
func OptionsFromConfig(cfg *config.InterpretConfig) Options {
	return Options{
		CallTimeout:       cfg.CallTimeout,
		MaxRepairAttempts: cfg.MaxRepairAttempts,
		ChunkPages:        cfg.ChunkPages,
		ChunkMaxChars:     cfg.ChunkMaxChars,
		Concurrency:       cfg.Concurrency,
		ChunkConcurrency:  cfg.ChunkConcurrency,
	}
}

// Engine is the Interpretation Engine.
type Engine struct {
	model        port.Interpreter
	tax          *taxonomy.Taxonomy
	opts         Options
	schema       *compiledSchema
	systemPrompt string
	pool         *semaphore.Weighted
	log          zerolog.Logger
}

// New creates an Engine over a model capability and the device taxonomy.
func New(model port.Interpreter, tax *taxonomy.Taxonomy, opts Options) (*Engine, error) {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 90 * time.Second
	}
	if opts.MaxRepairAttempts < 0 {
		opts.MaxRepairAttempts = 0
	}
	if opts.ChunkPages <= 0 {
		opts.ChunkPages = 4
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.ChunkConcurrency <= 0 {
		opts.ChunkConcurrency = 1
	}
	schema, err := compileSchema(BuildSchema())
	if err != nil {
		return nil, err
	}
	return &Engine{
		model:        model,
		tax:          tax,
		opts:         opts,
		schema:       schema,
		systemPrompt: buildSystemPrompt(tax),
		pool:         semaphore.NewWeighted(int64(opts.Concurrency)),
		log:          logger.WithComponent("interpret"),
	}, nil
}

// Interpret derives devices, routing paths, notes and a summary from the
// extracted content. Large documents are interpreted in page chunks and
// merged; the merged result always satisfies referential integrity.
func (e *Engine) Interpret(ctx context.Context, content *domain.ExtractedContent) (*domain.InterpretationResult, error) {
	return e.interpret(ctx, content, e.tax, e.systemPrompt)
}

// InterpretText interprets free text, such as pasted OCR output, as a single
// full-confidence page. A non-empty vocabulary is merged over the configured
// device taxonomy for this call only.
func (e *Engine) InterpretText(ctx context.Context, text string, vocabulary map[string]string) (*domain.InterpretationResult, error) {
	tax, systemPrompt := e.tax, e.systemPrompt
	if len(vocabulary) > 0 {
		tax = e.tax.WithDevices(vocabulary)
		systemPrompt = buildSystemPrompt(tax)
	}
	return e.interpret(ctx, &domain.ExtractedContent{
		PageCount: 1,
		Segments:  []domain.Segment{{Page: 1, Text: text, Confidence: 1}},
	}, tax, systemPrompt)
}

func (e *Engine) interpret(ctx context.Context, content *domain.ExtractedContent, tax *taxonomy.Taxonomy, systemPrompt string) (*domain.InterpretationResult, error) {
	if err := content.Validate(); err != nil {
		return nil, err
	}
	chunks := chunkSegments(content.Segments, e.opts.ChunkPages, e.opts.ChunkMaxChars)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text to interpret", domain.ErrInvalidStageInput)
	}

	results := make([]*chunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.ChunkConcurrency)
	for i := range chunks {
		c := chunks[i]
		g.Go(func() error {
			r, err := e.interpretChunk(gctx, systemPrompt, c, len(chunks))
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	m := newMerger(tax)
	for i, c := range chunks {
		m.add(c, results[i])
	}
	res := m.result(segmentNotes(content))
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("%w: merged result: %v", domain.ErrInterpretationFailed, err)
	}

	e.log.Info().
		Int("chunks", len(chunks)).
		Int("devices", len(res.Devices)).
		Int("paths", len(res.Paths)).
		Int("notes", len(res.Notes)).
		Strs("suggested_taxonomy", sortedKeys(res.SuggestedTaxonomy)).
		Msg("interpretation complete")
	return res, nil
}

// interpretChunk calls the model and repairs invalid output up to
// MaxRepairAttempts times. Timeouts and provider failures are not retried.
func (e *Engine) interpretChunk(ctx context.Context, systemPrompt string, c chunk, total int) (*chunkResult, error) {
	prompt := buildChunkPrompt(c, total)
	input := port.InterpretInput{
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		SchemaName:   SchemaName,
		Schema:       e.schema.raw,
	}

	var lastErr error
	for attempt := 0; attempt <= e.opts.MaxRepairAttempts; attempt++ {
		out, err := e.call(ctx, input)
		if err != nil {
			return nil, err
		}
		res, err := decodeChunk(out, e.schema)
		if err == nil {
			return res, nil
		}
		lastErr = err
		e.log.Warn().Err(err).
			Int("chunk", c.Index).
			Int("attempt", attempt+1).
			Str("model", out.ModelUsed).
			Msg("invalid model output")
		input.Prompt = buildRepairPrompt(prompt, out.Raw, err)
	}
	return nil, fmt.Errorf("%w: %s after %d attempt(s): %v",
		domain.ErrMalformedResponse, c.label(), e.opts.MaxRepairAttempts+1, lastErr)
}

// call performs one bounded model call. The call deadline is derived from the
// job context so cancelling the job cancels the request.
func (e *Engine) call(ctx context.Context, input port.InterpretInput) (*port.InterpretOutput, error) {
	if err := e.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.pool.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()

	out, err := e.model.Interpret(callCtx, input)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no response within %s", domain.ErrInterpretationTimeout, e.opts.CallTimeout)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInterpretationFailed, err)
	}
	if out == nil {
		return &port.InterpretOutput{}, nil
	}
	return out, nil
}
