package port

import "context"

// OCRInput is a single page or image sent to a recognition backend.
type OCRInput struct {
	Content     []byte
	ContentType string
	PageNumber  int
	// WorkDir is job-owned scratch space the backend may write into.
	WorkDir string
}

// BoundingBox is a normalized [0,1] rectangle with the origin at the top-left.
type BoundingBox struct {
	X0, Y0, X1, Y1 float64
}

// OCRBlock is one recognized text block.
type OCRBlock struct {
	Text       string
	Confidence float64
	Box        *BoundingBox
}

// OCROutput contains the recognized blocks of one page or image.
type OCROutput struct {
	Blocks []OCRBlock
	Engine string
}

// OCRBackend abstracts an OCR / text extraction engine.
type OCRBackend interface {
	Recognize(ctx context.Context, input OCRInput) (*OCROutput, error)
}
