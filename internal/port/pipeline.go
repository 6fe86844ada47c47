package port

import (
	"context"

	"avplan/internal/domain"
)

// ContentExtractor turns an uploaded document into ordered text segments.
// workDir is job-owned scratch space.
type ContentExtractor interface {
	Extract(ctx context.Context, doc *domain.UploadedDocument, workDir string) (*domain.ExtractedContent, error)
}

// InterpretationEngine derives the structured interpretation of extracted content.
type InterpretationEngine interface {
	Interpret(ctx context.Context, content *domain.ExtractedContent) (*domain.InterpretationResult, error)
	InterpretText(ctx context.Context, text string, vocabulary map[string]string) (*domain.InterpretationResult, error)
}

// ArtifactBuilder renders an interpretation into artifacts. It must be pure.
type ArtifactBuilder interface {
	Build(result *domain.InterpretationResult, baseName string) ([]domain.Artifact, error)
	Tables(result *domain.InterpretationResult) (pullSheet, bom string, err error)
}
