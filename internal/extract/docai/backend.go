// Package docai recognizes plan pages with a Google Document AI OCR processor.
package docai

import (
	"context"
	"fmt"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"avplan/internal/config"
	"avplan/internal/domain"
	"avplan/internal/port"
)

const engineName = "document-ai"

// Processor is the subset of the Document AI client used by the backend.
type Processor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
}

// Backend implements port.OCRBackend using a Document AI processor.
type Backend struct {
	client Processor
	name   string
}

// NewBackend creates a Document AI backend bound to the configured processor.
func NewBackend(ctx context.Context, cfg *config.DocumentAIConfig) (*Backend, error) {
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("document ai requires project_id and processor_id")
	}
	location := cfg.Location
	if location == "" {
		location = "us"
	}
	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", location)),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating document ai client for location %s: %w", location, err)
	}
	return NewBackendWithClient(client, ProcessorName(cfg.ProjectID, location, cfg.ProcessorID)), nil
}

// NewBackendWithClient creates a backend with an explicit client (for testing).
func NewBackendWithClient(client Processor, processorName string) *Backend {
	return &Backend{client: client, name: processorName}
}

// Factory adapts NewBackend to the extractor backend registry.
func Factory(cfg *config.ExtractConfig) (port.OCRBackend, error) {
	return NewBackend(context.Background(), &cfg.DocumentAI)
}

// ProcessorName builds the fully-qualified processor resource name.
func ProcessorName(project, location, processor string) string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processor)
}

// Recognize sends a single page or image to the processor.
func (b *Backend) Recognize(ctx context.Context, input port.OCRInput) (*port.OCROutput, error) {
	resp, err := b.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: b.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  input.Content,
				MimeType: input.ContentType,
			},
		},
	})
	if err != nil {
		return nil, mapError(err)
	}
	if resp.GetDocument() == nil {
		return nil, fmt.Errorf("no document in document ai response")
	}
	return &port.OCROutput{Engine: engineName, Blocks: blocksFromDocument(resp.GetDocument())}, nil
}

// blocksFromDocument resolves the text anchors of the first page's blocks.
func blocksFromDocument(doc *documentaipb.Document) []port.OCRBlock {
	if len(doc.GetPages()) == 0 {
		return nil
	}
	page := doc.GetPages()[0]
	var blocks []port.OCRBlock
	for _, blk := range page.GetBlocks() {
		layout := blk.GetLayout()
		text := anchorText(doc.GetText(), layout.GetTextAnchor())
		if strings.TrimSpace(text) == "" {
			continue
		}
		blocks = append(blocks, port.OCRBlock{
			Text:       text,
			Confidence: float64(layout.GetConfidence()),
			Box:        boxOf(layout.GetBoundingPoly()),
		})
	}
	return blocks
}

func anchorText(full string, anchor *documentaipb.Document_TextAnchor) string {
	var sb strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start, end := seg.GetStartIndex(), seg.GetEndIndex()
		if start < 0 || end > int64(len(full)) || start >= end {
			continue
		}
		sb.WriteString(full[start:end])
	}
	return sb.String()
}

func boxOf(poly *documentaipb.BoundingPoly) *port.BoundingBox {
	nv := poly.GetNormalizedVertices()
	if len(nv) == 0 {
		return nil
	}
	box := &port.BoundingBox{X0: float64(nv[0].GetX()), Y0: float64(nv[0].GetY()), X1: float64(nv[0].GetX()), Y1: float64(nv[0].GetY())}
	for _, v := range nv[1:] {
		x, y := float64(v.GetX()), float64(v.GetY())
		box.X0, box.X1 = min(box.X0, x), max(box.X1, x)
		box.Y0, box.Y1 = min(box.Y0, y), max(box.Y1, y)
	}
	return box
}

func mapError(err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	case codes.DeadlineExceeded:
		return fmt.Errorf("document ai: %w", context.DeadlineExceeded)
	case codes.Canceled:
		return fmt.Errorf("document ai: %w", context.Canceled)
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("document ai: insufficient permissions: %w", err)
	case codes.ResourceExhausted:
		return fmt.Errorf("document ai: quota exceeded: %w", err)
	}
	return fmt.Errorf("document ai call failed: %w", err)
}
