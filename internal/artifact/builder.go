// Package artifact renders an interpretation result into the summary, pull
// sheet, BOM and verification artifacts. Rendering is pure: the same result
// always yields the same bytes.
package artifact

import (
	"fmt"
	"strconv"

	"avplan/internal/config"
	"avplan/internal/domain"
	"avplan/internal/taxonomy"
)

const defaultCreator = "avplan"

// Options controls the optional renderings.
type Options struct {
	Workbook bool
	Creator  string
}

// OptionsFromConfig maps the artifact config section onto Options.
func OptionsFromConfig(cfg *config.ArtifactConfig) Options {
	return Options{Workbook: cfg.WorkbookEnabled, Creator: cfg.Creator}
}

// Builder renders artifacts. It holds only read-only state and is safe for
// concurrent use.
type Builder struct {
	tax  *taxonomy.Taxonomy
	opts Options
}

// New creates a Builder.
func New(tax *taxonomy.Taxonomy, opts Options) *Builder {
	if opts.Creator == "" {
		opts.Creator = defaultCreator
	}
	return &Builder{tax: tax, opts: opts}
}

// Build renders the four artifacts in ArtifactKinds order, each as PDF and
// CSV, plus the workbook when enabled. baseName prefixes every rendering name.
// A result that breaks referential integrity fails with ErrRender.
func (b *Builder) Build(result *domain.InterpretationResult, baseName string) ([]domain.Artifact, error) {
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	if baseName == "" {
		baseName = DefaultBaseName
	}

	summary := summaryTable(result)
	devices := deviceTable(result)
	pull := pullSheetTable(result, b.tax)
	bom := bomTable(result, b.tax)
	verify := verificationTable(result, b.tax)

	subtitle := fmt.Sprintf("%s  |  %d devices, %d routing paths", baseName, len(result.Devices), len(result.Paths))
	specs := []struct {
		kind  domain.ArtifactKind
		table *table
		text  string
		pdf   func() ([]byte, error)
	}{
		{domain.ArtifactSummary, summary, result.Summary, func() ([]byte, error) {
			return b.summaryPDF(result, devices, subtitle)
		}},
		{domain.ArtifactPullSheet, pull, renderText(pull), func() ([]byte, error) {
			return b.tablePDF(pull, subtitle)
		}},
		{domain.ArtifactBOM, bom, renderText(bom), func() ([]byte, error) {
			return b.tablePDF(bom, subtitle)
		}},
		{domain.ArtifactVerification, verify, renderText(verify), func() ([]byte, error) {
			return b.tablePDF(verify, subtitle)
		}},
	}

	artifacts := make([]domain.Artifact, 0, len(specs)+1)
	for _, s := range specs {
		pdfBytes, err := s.pdf()
		if err != nil {
			return nil, fmt.Errorf("%w: %s pdf: %v", domain.ErrRender, s.kind, err)
		}
		csvBytes, err := renderCSV(s.table)
		if err != nil {
			return nil, fmt.Errorf("%w: %s csv: %v", domain.ErrRender, s.kind, err)
		}
		artifacts = append(artifacts, domain.Artifact{
			Kind:  s.kind,
			Title: s.table.Title,
			Text:  s.text,
			Renderings: []domain.Rendering{
				rendering(baseName, s.kind, domain.FormatPDF, pdfBytes),
				rendering(baseName, s.kind, domain.FormatCSV, csvBytes),
			},
		})
	}

	if b.opts.Workbook {
		xlsx, err := buildWorkbook(b.opts.Creator, []*table{summary, devices, pull, bom, verify})
		if err != nil {
			return nil, fmt.Errorf("%w: workbook: %v", domain.ErrRender, err)
		}
		artifacts = append(artifacts, domain.Artifact{
			Kind:       domain.ArtifactWorkbook,
			Title:      "Workbook",
			Renderings: []domain.Rendering{rendering(baseName, domain.ArtifactWorkbook, domain.FormatXLSX, xlsx)},
		})
	}
	return artifacts, nil
}

// Tables returns the plain-text pull sheet and BOM without rendering files.
func (b *Builder) Tables(result *domain.InterpretationResult) (pullSheet, bom string, err error) {
	if err := result.Validate(); err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	return renderText(pullSheetTable(result, b.tax)), renderText(bomTable(result, b.tax)), nil
}

func rendering(base string, kind domain.ArtifactKind, f domain.Format, content []byte) domain.Rendering {
	return domain.Rendering{
		Format:      f,
		Name:        domain.ArtifactName(base, kind, f),
		ContentType: f.ContentType(),
		Content:     content,
	}
}

func (b *Builder) summaryPDF(result *domain.InterpretationResult, devices *table, subtitle string) ([]byte, error) {
	r := newReport("System Summary", subtitle, b.opts.Creator, false)
	r.heading("Overview")
	r.paragraph(result.Summary)
	r.heading("Devices (" + strconv.Itoa(len(result.Devices)) + ")")
	r.table(devices)
	if len(result.Notes) > 0 {
		r.heading("Notes")
		r.bullets(result.Notes)
	}
	if len(result.SuggestedTaxonomy) > 0 {
		r.heading("Suggested abbreviations")
		items := make([]string, 0, len(result.SuggestedTaxonomy))
		for _, k := range sortedKeys(result.SuggestedTaxonomy) {
			items = append(items, k+" = "+result.SuggestedTaxonomy[k])
		}
		r.bullets(items)
	}
	return r.bytes()
}

func (b *Builder) tablePDF(t *table, subtitle string) ([]byte, error) {
	r := newReport(t.Title, subtitle, b.opts.Creator, true)
	r.table(t)
	return r.bytes()
}
