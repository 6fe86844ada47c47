package extract

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"avplan/internal/domain"
)

// page is one unit handed to the OCR backend.
type page struct {
	Number      int
	Content     []byte
	ContentType string
}

func pdfConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// splitPDF validates the PDF and splits it into single-page documents inside workDir.
// Corrupt or password-protected files fail with ErrUnreadableDocument.
func splitPDF(content []byte, workDir string, maxPages int) ([]page, error) {
	src := filepath.Join(workDir, "source.pdf")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		return nil, fmt.Errorf("writing source pdf: %w", err)
	}

	conf := pdfConfig()
	if err := api.ValidateFile(src, conf); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
	}
	count, err := api.PageCountFile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: counting pages: %v", domain.ErrUnreadableDocument, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", domain.ErrEmptyDocument)
	}
	if maxPages > 0 && count > maxPages {
		return nil, fmt.Errorf("%w: %d pages (limit %d)", domain.ErrFileTooLarge, count, maxPages)
	}
	if count == 1 {
		return []page{{Number: 1, Content: content, ContentType: "application/pdf"}}, nil
	}

	outDir := filepath.Join(workDir, "pages")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating page dir: %w", err)
	}
	if err := api.SplitFile(src, outDir, 1, conf); err != nil {
		return nil, fmt.Errorf("%w: splitting pages: %v", domain.ErrUnreadableDocument, err)
	}

	pages := make([]page, 0, count)
	for i := 1; i <= count; i++ {
		b, err := os.ReadFile(filepath.Join(outDir, fmt.Sprintf("source_%d.pdf", i)))
		if err != nil {
			return nil, fmt.Errorf("reading split page %d: %w", i, err)
		}
		pages = append(pages, page{Number: i, Content: b, ContentType: "application/pdf"})
	}
	return pages, nil
}

// checkSignature verifies the bytes look like the declared file type.
func checkSignature(doc *domain.UploadedDocument) error {
	content := doc.Content()
	switch doc.FileType {
	case domain.FileTypePDF:
		head := content
		if len(head) > 1024 {
			head = head[:1024]
		}
		if !bytes.Contains(head, []byte("%PDF-")) {
			return fmt.Errorf("%w: missing PDF header", domain.ErrUnreadableDocument)
		}
	case domain.FileTypeTIFF:
		if !bytes.HasPrefix(content, []byte("II*\x00")) && !bytes.HasPrefix(content, []byte("MM\x00*")) {
			return fmt.Errorf("%w: missing TIFF header", domain.ErrUnreadableDocument)
		}
	default:
		if sniffed := http.DetectContentType(content); sniffed != doc.ContentType {
			return fmt.Errorf("%w: content looks like %s, declared %s", domain.ErrUnreadableDocument, sniffed, doc.ContentType)
		}
	}
	return nil
}
