package interpret

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"avplan/internal/domain"
)

// chunkPart is the text of one segment, or a slice of an oversized one.
type chunkPart struct {
	Page          int
	Text          string
	Zone          string
	Confidence    float64
	LowConfidence bool
}

// chunk is a group of consecutive segments interpreted in one model call.
type chunk struct {
	Index int
	Parts []chunkPart
}

// label names the page range covered, e.g. "page 3" or "pages 1-4".
func (c chunk) label() string {
	first, last := c.Parts[0].Page, c.Parts[len(c.Parts)-1].Page
	if first == last {
		return fmt.Sprintf("page %d", first)
	}
	return fmt.Sprintf("pages %d-%d", first, last)
}

// chunkSegments groups segments in order. A chunk closes when it already
// holds maxPages distinct pages or when the next part would push it past
// maxChars. Segments longer than maxChars are split on line boundaries.
func chunkSegments(segments []domain.Segment, maxPages, maxChars int) []chunk {
	if maxPages <= 0 {
		maxPages = 1
	}
	var (
		chunks []chunk
		cur    chunk
		pages  int
		chars  int
		last   = -1
	)
	flush := func() {
		if len(cur.Parts) > 0 {
			cur.Index = len(chunks)
			chunks = append(chunks, cur)
		}
		cur, pages, chars, last = chunk{}, 0, 0, -1
	}

	for _, s := range segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		zone := ""
		if s.Region != nil {
			zone = s.Region.Zone
		}
		for _, text := range splitText(s.Text, maxChars) {
			n := utf8.RuneCountInString(text)
			newPage := s.Page != last
			if len(cur.Parts) > 0 && ((newPage && pages >= maxPages) || (maxChars > 0 && chars+n > maxChars)) {
				flush()
				newPage = true
			}
			if newPage {
				pages++
				last = s.Page
			}
			chars += n
			cur.Parts = append(cur.Parts, chunkPart{
				Page:          s.Page,
				Text:          text,
				Zone:          zone,
				Confidence:    s.Confidence,
				LowConfidence: s.LowConfidence,
			})
		}
	}
	flush()
	return chunks
}

// splitText cuts text into pieces of at most maxChars runes, preferring line breaks.
func splitText(text string, maxChars int) []string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}
	var (
		out []string
		buf strings.Builder
		n   int
	)
	emit := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
			n = 0
		}
	}
	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > maxChars {
			emit()
			runes := []rune(line)
			out = append(out, string(runes[:maxChars]))
			line = string(runes[maxChars:])
		}
		ln := utf8.RuneCountInString(line)
		if n > 0 && n+1+ln > maxChars {
			emit()
		}
		if n > 0 {
			buf.WriteByte('\n')
			n++
		}
		buf.WriteString(line)
		n += ln
	}
	emit()
	return out
}
