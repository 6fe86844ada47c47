package main

import (
	"context"
	"errors"
	"fmt"

	"avplan/internal/artifact"
	"avplan/internal/config"
	"avplan/internal/extract"
	"avplan/internal/extract/docai"
	"avplan/internal/extract/gvision"
	"avplan/internal/extract/tesseract"
	"avplan/internal/handler"
	"avplan/internal/interpret"
	"avplan/internal/interpret/claude"
	"avplan/internal/interpret/gemini"
	"avplan/internal/interpret/openai"
	"avplan/internal/interpret/vertex"
	"avplan/internal/port"
	"avplan/internal/service"
	"avplan/internal/storage"
	"avplan/internal/taxonomy"
)

func init() {
	extract.RegisterBackend("tesseract", tesseract.Factory)
	extract.RegisterBackend("vision", gvision.Factory)
	extract.RegisterBackend("documentai", docai.Factory)

	interpret.RegisterProvider("claude", claude.Factory)
	interpret.RegisterProvider("openai", openai.Factory)
	interpret.RegisterProvider("gemini", gemini.Factory)
	interpret.RegisterProvider("vertex", vertex.Factory)
}

// app holds the wired pipeline.
type app struct {
	tax     *taxonomy.Taxonomy
	storage port.ObjectStorage
	jobs    service.JobService
}

func wire(ctx context.Context, cfg *config.Config) (*app, error) {
	tax, err := taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}

	backend, err := extract.NewBackend(&cfg.Extract)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extraction backend: %w", err)
	}
	extractor := extract.New(backend, extract.OptionsFromConfig(&cfg.Extract))

	model, err := interpret.NewChain(&cfg.Interpret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize interpretation providers: %w", err)
	}
	engine, err := interpret.New(model, tax, interpret.OptionsFromConfig(&cfg.Interpret))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize interpretation engine: %w", err)
	}

	builder := artifact.New(tax, artifact.OptionsFromConfig(&cfg.Artifact))

	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	jobs := service.NewJobService(extractor, engine, builder, store, &cfg.Job, &cfg.Storage)
	return &app{tax: tax, storage: store, jobs: jobs}, nil
}

// readiness lists the checks served on /readyz.
func (a *app) readiness(cfg *config.Config) []handler.ReadinessCheck {
	return []handler.ReadinessCheck{
		{Name: "storage", Check: func(context.Context) error {
			if a.storage == nil || cfg.Storage.Bucket == "" {
				return errors.New("artifact storage not configured")
			}
			return nil
		}},
		{Name: "interpret", Check: func(context.Context) error {
			if len(cfg.Interpret.Providers()) == 0 {
				return errors.New("no interpretation provider configured")
			}
			return nil
		}},
		{Name: "taxonomy", Check: func(context.Context) error {
			if a.tax == nil || len(a.tax.Devices) == 0 {
				return errors.New("taxonomy is empty")
			}
			return nil
		}},
	}
}
