package extract

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"avplan/internal/domain"
)

// checkImage decodes the raster header so a corrupt image fails as
// unreadable before any OCR call is made.
func checkImage(doc *domain.UploadedDocument) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(doc.Content()))
	if err != nil {
		return fmt.Errorf("%w: decoding %s image: %v", domain.ErrUnreadableDocument, doc.FileType, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %s image has no pixels", domain.ErrUnreadableDocument, format)
	}
	return nil
}
