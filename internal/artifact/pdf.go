package artifact

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// renderEpoch is stamped on every document so identical input renders to
// identical bytes.
var renderEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	lineHeight = 5.0
	fontSize   = 9.0
)

// report is a printable document: a title block followed by paragraphs and tables.
type report struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	width    float64
	bottom   float64
	pageH    float64
	header   []string
	widths   []float64
	subtitle string
}

func newReport(title, subtitle, creator string, landscape bool) *report {
	orientation := "P"
	if landscape {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "Letter", "")
	pdf.SetCompression(true)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(renderEpoch)
	pdf.SetModificationDate(renderEpoch)
	pdf.SetTitle(title, true)
	pdf.SetCreator(creator, true)
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 14)
	pdf.AliasNbPages("")

	r := &report{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), subtitle: subtitle}
	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	r.width = pageW - left - right
	r.pageH = pageH
	r.bottom = bottom

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 4, r.tr(fmt.Sprintf("%s  |  page %d of {nb}", r.subtitle, pdf.PageNo())), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, r.tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, r.tr(subtitle), "", 1, "L", false, 0, "")
	pdf.Ln(3)
	return r
}

func (r *report) heading(text string) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Helvetica", "B", 11)
	r.pdf.CellFormat(0, 7, r.tr(text), "", 1, "L", false, 0, "")
}

func (r *report) paragraph(text string) {
	r.pdf.SetFont("Helvetica", "", 10)
	for _, p := range strings.Split(strings.TrimSpace(text), "\n\n") {
		r.pdf.MultiCell(0, lineHeight, r.tr(strings.TrimSpace(p)), "", "L", false)
		r.pdf.Ln(2)
	}
}

func (r *report) bullets(items []string) {
	r.pdf.SetFont("Helvetica", "", 10)
	for _, it := range items {
		r.pdf.MultiCell(0, lineHeight, r.tr("- "+it), "", "L", false)
	}
}

func (r *report) table(t *table) {
	total := 0.0
	for _, w := range t.Widths {
		total += w
	}
	r.widths = make([]float64, len(t.Columns))
	for i := range t.Columns {
		w := 1.0
		if i < len(t.Widths) {
			w = t.Widths[i]
		}
		if total == 0 {
			total = float64(len(t.Columns))
		}
		r.widths[i] = r.width * w / total
	}
	r.header = t.Columns
	r.row(t.Columns, true)
	for _, row := range t.Rows {
		r.row(row, false)
	}
	r.header = nil
}

// row draws one table row, wrapping cell text and repeating the header after
// a page break.
func (r *report) row(cells []string, header bool) {
	style := ""
	if header {
		style = "B"
	}
	r.pdf.SetFont("Helvetica", style, fontSize)

	lines := make([][]string, len(cells))
	n := 1
	for i, c := range cells {
		if i >= len(r.widths) {
			break
		}
		lines[i] = r.wrap(r.tr(c), r.widths[i]-4)
		n = max(n, len(lines[i]))
	}
	h := float64(n) * lineHeight

	if r.pdf.GetY()+h > r.pageH-r.bottom {
		r.pdf.SetAutoPageBreak(false, r.bottom)
		r.pdf.AddPage()
		r.pdf.SetAutoPageBreak(true, r.bottom)
		if !header && r.header != nil {
			r.row(r.header, true)
			r.pdf.SetFont("Helvetica", "", fontSize)
		}
	}

	x0, y0 := r.pdf.GetXY()
	x := x0
	for i := range lines {
		if i >= len(r.widths) {
			break
		}
		fill := "D"
		if header {
			r.pdf.SetFillColor(225, 225, 225)
			fill = "FD"
		}
		r.pdf.Rect(x, y0, r.widths[i], h, fill)
		r.pdf.SetXY(x+1, y0)
		r.pdf.MultiCell(r.widths[i]-2, lineHeight, strings.Join(lines[i], "\n"), "", "L", false)
		x += r.widths[i]
	}
	r.pdf.SetXY(x0, y0+h)
}

// wrap breaks translated single-byte text into lines no wider than w.
func (r *report) wrap(text string, w float64) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			for len(word) > 1 && r.pdf.GetStringWidth(word) > w {
				cut := len(word) - 1
				for cut > 1 && r.pdf.GetStringWidth(word[:cut]) > w {
					cut--
				}
				if line != "" {
					out = append(out, line)
					line = ""
				}
				out = append(out, word[:cut])
				word = word[cut:]
			}
			if line == "" {
				line = word
				continue
			}
			if r.pdf.GetStringWidth(line+" "+word) > w {
				out = append(out, line)
				line = word
				continue
			}
			line += " " + word
		}
		out = append(out, line)
	}
	return out
}

func (r *report) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
