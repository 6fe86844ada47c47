package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"avplan/internal/domain"
	"avplan/internal/port"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// normalizeText makes recognized text byte-stable: NFC, LF line endings,
// no control characters, no trailing spaces, at most one blank line in a row.
func normalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == ' ' || r == '\f' || r == '\v':
			return ' '
		case unicode.IsControl(r) || r == utf8.RuneError:
			return -1
		}
		return r
	}, s)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// orderBlocks sorts blocks into reading order: row bands top to bottom, then
// left to right. Ties fall back to text so engine tie-breaking cannot leak
// into the output. Blocks without geometry keep the backend's order.
func orderBlocks(blocks []port.OCRBlock) []port.OCRBlock {
	out := make([]port.OCRBlock, len(blocks))
	copy(out, blocks)
	for _, b := range out {
		if b.Box == nil {
			return out
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := out[i].Box, out[j].Box
		ri, rj := math.Round(bi.Y0*100), math.Round(bj.Y0*100)
		if ri != rj {
			return ri < rj
		}
		if bi.X0 != bj.X0 {
			return bi.X0 < bj.X0
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// blockConfidence is the mean block confidence weighted by text length.
func blockConfidence(blocks []port.OCRBlock) float64 {
	var sum, weight float64
	for _, b := range blocks {
		w := float64(utf8.RuneCountInString(strings.TrimSpace(b.Text)))
		if w == 0 {
			continue
		}
		sum += clamp01(b.Confidence) * w
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return round4(sum / weight)
}

// regionOf returns the union of block boxes with a coarse zone label.
func regionOf(blocks []port.OCRBlock) *domain.RegionHint {
	var r *domain.RegionHint
	for _, b := range blocks {
		if b.Box == nil || strings.TrimSpace(b.Text) == "" {
			continue
		}
		if r == nil {
			r = &domain.RegionHint{X0: b.Box.X0, Y0: b.Box.Y0, X1: b.Box.X1, Y1: b.Box.Y1}
			continue
		}
		r.X0 = math.Min(r.X0, b.Box.X0)
		r.Y0 = math.Min(r.Y0, b.Box.Y0)
		r.X1 = math.Max(r.X1, b.Box.X1)
		r.Y1 = math.Max(r.Y1, b.Box.Y1)
	}
	if r == nil {
		return nil
	}
	r.X0, r.Y0 = round4(clamp01(r.X0)), round4(clamp01(r.Y0))
	r.X1, r.Y1 = round4(clamp01(r.X1)), round4(clamp01(r.Y1))
	r.Zone = zoneOf(r)
	return r
}

func zoneOf(r *domain.RegionHint) string {
	if r.X1-r.X0 >= 0.6 && r.Y1-r.Y0 >= 0.6 {
		return "full-page"
	}
	cx, cy := (r.X0+r.X1)/2, (r.Y0+r.Y1)/2
	v := third(cy, "top", "middle", "bottom")
	h := third(cx, "left", "center", "right")
	if v == "middle" && h == "center" {
		return "center"
	}
	return v + "-" + h
}

func third(v float64, lo, mid, hi string) string {
	switch {
	case v < 1.0/3:
		return lo
	case v < 2.0/3:
		return mid
	default:
		return hi
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
