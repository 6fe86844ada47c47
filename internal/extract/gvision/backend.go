// Package gvision recognizes plan pages with Google Cloud Vision document text detection.
package gvision

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"avplan/internal/config"
	"avplan/internal/domain"
	"avplan/internal/port"
)

const engineName = "google-vision"

// Annotator is the subset of the Vision client used by the backend.
type Annotator interface {
	BatchAnnotateFiles(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error)
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// Backend implements port.OCRBackend using Google Cloud Vision.
type Backend struct {
	client Annotator
}

// NewBackendWithClient creates a backend around an explicit client (for testing).
func NewBackendWithClient(client Annotator) *Backend {
	return &Backend{client: client}
}

// NewBackend creates a Vision backend. Inline JSON credentials win over a
// credentials file; with neither, application default credentials are used.
func NewBackend(ctx context.Context, cfg *config.VisionConfig) (*Backend, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}
	return &Backend{client: client}, nil
}

// Factory adapts NewBackend to the extractor backend registry.
func Factory(cfg *config.ExtractConfig) (port.OCRBackend, error) {
	return NewBackend(context.Background(), &cfg.Vision)
}

// Recognize runs DOCUMENT_TEXT_DETECTION on a single-page PDF or an image.
func (b *Backend) Recognize(ctx context.Context, input port.OCRInput) (*port.OCROutput, error) {
	feature := []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}}

	var annotation *visionpb.TextAnnotation
	if input.ContentType == "application/pdf" || input.ContentType == "image/tiff" || input.ContentType == "image/gif" {
		resp, err := b.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
			Requests: []*visionpb.AnnotateFileRequest{{
				InputConfig: &visionpb.InputConfig{Content: input.Content, MimeType: input.ContentType},
				Features:    feature,
				Pages:       []int32{1},
			}},
		})
		if err != nil {
			return nil, mapError(err)
		}
		if len(resp.GetResponses()) == 0 {
			return nil, fmt.Errorf("no response from vision api")
		}
		fileResp := resp.GetResponses()[0]
		if fileResp.GetError() != nil {
			return nil, fmt.Errorf("vision api error: %s", fileResp.GetError().GetMessage())
		}
		if pages := fileResp.GetResponses(); len(pages) > 0 {
			if pages[0].GetError() != nil {
				return nil, fmt.Errorf("vision api error on page %d: %s", input.PageNumber, pages[0].GetError().GetMessage())
			}
			annotation = pages[0].GetFullTextAnnotation()
		}
	} else {
		resp, err := b.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
			Requests: []*visionpb.AnnotateImageRequest{{
				Image:    &visionpb.Image{Content: input.Content},
				Features: feature,
			}},
		})
		if err != nil {
			return nil, mapError(err)
		}
		if len(resp.GetResponses()) == 0 {
			return nil, fmt.Errorf("no response from vision api")
		}
		r := resp.GetResponses()[0]
		if r.GetError() != nil {
			return nil, fmt.Errorf("vision api error: %s", r.GetError().GetMessage())
		}
		annotation = r.GetFullTextAnnotation()
	}

	return &port.OCROutput{Engine: engineName, Blocks: blocksFromAnnotation(annotation)}, nil
}

// blocksFromAnnotation flattens the first page of a full text annotation into
// blocks, rebuilding each block's text from its words and detected breaks.
func blocksFromAnnotation(a *visionpb.TextAnnotation) []port.OCRBlock {
	if a == nil || len(a.GetPages()) == 0 {
		return nil
	}
	page := a.GetPages()[0]
	var blocks []port.OCRBlock
	for _, blk := range page.GetBlocks() {
		text := blockText(blk)
		if strings.TrimSpace(text) == "" {
			continue
		}
		blocks = append(blocks, port.OCRBlock{
			Text:       text,
			Confidence: float64(blk.GetConfidence()),
			Box:        boxOf(blk.GetBoundingBox(), page.GetWidth(), page.GetHeight()),
		})
	}
	return blocks
}

func blockText(blk *visionpb.Block) string {
	var sb strings.Builder
	for _, para := range blk.GetParagraphs() {
		for _, word := range para.GetWords() {
			for _, sym := range word.GetSymbols() {
				sb.WriteString(sym.GetText())
				switch sym.GetProperty().GetDetectedBreak().GetType() {
				case visionpb.TextAnnotation_DetectedBreak_SPACE, visionpb.TextAnnotation_DetectedBreak_SURE_SPACE:
					sb.WriteByte(' ')
				case visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE, visionpb.TextAnnotation_DetectedBreak_LINE_BREAK:
					sb.WriteByte('\n')
				}
			}
		}
	}
	return sb.String()
}

// boxOf prefers normalized vertices and falls back to pixel vertices scaled by the page size.
func boxOf(poly *visionpb.BoundingPoly, width, height int32) *port.BoundingBox {
	if poly == nil {
		return nil
	}
	var xs, ys []float64
	if nv := poly.GetNormalizedVertices(); len(nv) > 0 {
		for _, v := range nv {
			xs = append(xs, float64(v.GetX()))
			ys = append(ys, float64(v.GetY()))
		}
	} else if width > 0 && height > 0 {
		for _, v := range poly.GetVertices() {
			xs = append(xs, float64(v.GetX())/float64(width))
			ys = append(ys, float64(v.GetY())/float64(height))
		}
	}
	if len(xs) == 0 {
		return nil
	}
	box := &port.BoundingBox{X0: xs[0], Y0: ys[0], X1: xs[0], Y1: ys[0]}
	for i := range xs {
		box.X0 = min(box.X0, xs[i])
		box.X1 = max(box.X1, xs[i])
		box.Y0 = min(box.Y0, ys[i])
		box.Y1 = max(box.Y1, ys[i])
	}
	return box
}

func mapError(err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	case codes.DeadlineExceeded:
		return fmt.Errorf("vision api: %w", context.DeadlineExceeded)
	case codes.Canceled:
		return fmt.Errorf("vision api: %w", context.Canceled)
	}
	return fmt.Errorf("vision api call failed: %w", err)
}
