package interpret

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"avplan/internal/taxonomy"
)

// buildSystemPrompt states the task and the known vocabulary.
func buildSystemPrompt(tax *taxonomy.Taxonomy) string {
	var b strings.Builder
	b.WriteString(`You are an audiovisual systems engineer reading OCR text from AV construction drawings.
Identify every AV device and every signal or control connection between devices.

Return ONLY a JSON object matching the provided JSON Schema, with no markdown and no explanation:
- "summary": a short narrative of the system shown on these pages.
- "devices": one record per physical device. "id" is any identifier unique within this response (for example "d1"); "name" is the tag as drawn (for example "AMP-1"); "type" is the device type; "location" is the room, rack or area when shown, otherwise "".
- "paths": one record per connection. "source" and "destination" must be "id" values from your "devices" list. "signal_type" is the signal carried (for example "speaker level", "HDMI", "Dante", "control").
- "notes": observations an installer must verify, such as illegible tags, ambiguous routing or missing information.
- "new_taxonomy_entries": abbreviations you found that are not in the known vocabulary, mapped to your best guess of the device type.

Never invent devices or connections that the text does not support. Treat text marked as low OCR confidence with caution and mention doubts in "notes".
`)
	entries := tax.Entries()
	if len(entries) > 0 {
		b.WriteString("\nKnown device abbreviations:\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "%s = %s\n", e.Abbreviation, e.Type)
		}
	}
	signals := make([]string, 0, len(tax.Cables))
	for s := range tax.Cables {
		signals = append(signals, s)
	}
	sort.Strings(signals)
	if len(signals) > 0 {
		b.WriteString("\nPreferred signal type names: ")
		b.WriteString(strings.Join(signals, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

// buildChunkPrompt lays out the chunk's text page by page.
func buildChunkPrompt(c chunk, total int) string {
	var b strings.Builder
	if total > 1 {
		fmt.Fprintf(&b, "This is part %d of %d of the plan set (%s). Report only what appears in this part.\n\n", c.Index+1, total, c.label())
	}
	b.WriteString("OCR TEXT:\n")
	for _, p := range c.Parts {
		fmt.Fprintf(&b, "\n=== Page %d", p.Page)
		if p.Zone != "" {
			fmt.Fprintf(&b, " (%s)", p.Zone)
		}
		b.WriteString(" ===\n")
		if p.LowConfidence {
			fmt.Fprintf(&b, "[low OCR confidence %.2f: verify before relying on this text]\n", p.Confidence)
		}
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// buildRepairPrompt asks the model to correct its previous answer.
func buildRepairPrompt(original, previous string, problem error) string {
	return fmt.Sprintf(`%s

Your previous answer could not be used: %v

Previous answer:
%s

Return the corrected JSON object only. It must match the JSON Schema exactly.`, original, problem, truncate(previous, 4000))
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
