package interpret

import (
	"fmt"
	"sort"
	"strings"

	"avplan/internal/domain"
	"avplan/internal/taxonomy"
)

// merger folds chunk results into one InterpretationResult.
type merger struct {
	tax *taxonomy.Taxonomy

	devices    []domain.Device
	byIdentity map[string]int
	paths      []domain.RoutingPath
	pathSeen   map[string]int
	summaries  []string
	modelNotes []string
	gapNotes   []string
	dropNotes  []string
	suggested  map[string]string
	model      string
}

func newMerger(tax *taxonomy.Taxonomy) *merger {
	return &merger{
		tax:        tax,
		byIdentity: map[string]int{},
		pathSeen:   map[string]int{},
		suggested:  map[string]string{},
	}
}

// add merges one chunk. Devices are deduplicated by (name, location) and get
// canonical IDs in first-seen order; paths are rewritten onto canonical IDs.
func (m *merger) add(c chunk, r *chunkResult) {
	if m.model == "" {
		m.model = r.Model
	}
	if r.Summary != "" {
		m.summaries = append(m.summaries, r.Summary)
	}
	for _, n := range r.Notes {
		if n = strings.TrimSpace(n); n != "" {
			m.modelNotes = append(m.modelNotes, n)
		}
	}
	for _, f := range r.Missing {
		m.gapNotes = append(m.gapNotes, fmt.Sprintf(
			"Interpretation of %s returned no %q field; results for that part of the plan may be incomplete.", c.label(), f))
	}

	localIDs := map[string]string{}
	localNames := map[string][]string{}
	for _, d := range r.Devices {
		name := strings.Join(strings.Fields(d.Name), " ")
		if name == "" {
			continue
		}
		location := strings.Join(strings.Fields(d.Location), " ")
		canonical := m.addDevice(name, strings.TrimSpace(d.Type), location)
		if id := strings.TrimSpace(d.ID); id != "" {
			localIDs[id] = canonical
		}
		key := strings.ToLower(name)
		localNames[key] = appendUnique(localNames[key], canonical)
	}

	for _, p := range r.Paths {
		src, srcOK := m.resolve(p.Source, localIDs, localNames)
		dst, dstOK := m.resolve(p.Destination, localIDs, localNames)
		if !srcOK || !dstOK {
			missing := p.Source
			if srcOK {
				missing = p.Destination
			}
			m.dropNotes = append(m.dropNotes, fmt.Sprintf(
				"Dropped routing path %s -> %s (%s) from %s: device %q is not in the device list.",
				p.Source, p.Destination, orUnspecified(p.SignalType), c.label(), missing))
			continue
		}
		signal := m.tax.CanonicalSignal(p.SignalType)
		key := src + "\x00" + dst + "\x00" + signal
		if i, dup := m.pathSeen[key]; dup {
			if m.paths[i].Description == "" {
				m.paths[i].Description = strings.TrimSpace(p.Description)
			}
			continue
		}
		m.pathSeen[key] = len(m.paths)
		m.paths = append(m.paths, domain.RoutingPath{
			Source:      src,
			Destination: dst,
			SignalType:  signal,
			Description: strings.TrimSpace(p.Description),
		})
	}

	for _, raw := range sortedKeys(r.NewTaxonomy) {
		k := strings.ToUpper(strings.TrimSpace(raw))
		v := strings.TrimSpace(r.NewTaxonomy[raw])
		if k == "" || v == "" || m.tax.Known(k) {
			continue
		}
		if _, ok := m.suggested[k]; !ok {
			m.suggested[k] = v
		}
	}
}

func (m *merger) addDevice(name, typ, location string) string {
	identity := domain.DeviceIdentity(name, location)
	if i, ok := m.byIdentity[identity]; ok {
		if m.devices[i].Type == "" {
			m.devices[i].Type = typ
		}
		return m.devices[i].ID
	}
	if typ == "" {
		typ, _ = m.tax.Classify(name)
	}
	id := fmt.Sprintf("D%03d", len(m.devices)+1)
	m.byIdentity[identity] = len(m.devices)
	m.devices = append(m.devices, domain.Device{ID: id, Name: name, Type: typ, Location: location})
	return id
}

// resolve maps a path endpoint onto a canonical device ID: first as a
// chunk-local ID, then as a device name unique within the chunk, then as a
// name unique across everything merged so far.
func (m *merger) resolve(ref string, localIDs map[string]string, localNames map[string][]string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if id, ok := localIDs[ref]; ok {
		return id, true
	}
	key := strings.ToLower(strings.Join(strings.Fields(ref), " "))
	if ids := localNames[key]; len(ids) == 1 {
		return ids[0], true
	}
	var found []string
	for _, d := range m.devices {
		if strings.ToLower(d.Name) == key {
			found = append(found, d.ID)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return "", false
}

// result assembles the merged interpretation. Extraction notes come first,
// then model notes, gap notes and dropped-path notes, each in chunk order.
func (m *merger) result(extractionNotes []string) *domain.InterpretationResult {
	notes := make([]string, 0, len(extractionNotes)+len(m.modelNotes)+len(m.gapNotes)+len(m.dropNotes))
	notes = append(notes, extractionNotes...)
	notes = append(notes, m.modelNotes...)
	notes = append(notes, m.gapNotes...)
	notes = append(notes, m.dropNotes...)

	summary := strings.Join(m.summaries, "\n\n")
	if summary == "" {
		summary = fmt.Sprintf("%d devices and %d routing paths were identified.", len(m.devices), len(m.paths))
	}

	res := &domain.InterpretationResult{
		Summary: summary,
		Devices: m.devices,
		Paths:   m.paths,
		Notes:   notes,
		Model:   m.model,
	}
	if res.Devices == nil {
		res.Devices = []domain.Device{}
	}
	if res.Paths == nil {
		res.Paths = []domain.RoutingPath{}
	}
	if len(m.suggested) > 0 {
		res.SuggestedTaxonomy = m.suggested
	}
	return res
}

// segmentNotes flags low-confidence segments for the reader.
func segmentNotes(content *domain.ExtractedContent) []string {
	notes := append([]string(nil), content.Notes...)
	for _, s := range content.Segments {
		if s.LowConfidence {
			notes = append(notes, fmt.Sprintf(
				"Page %d has low OCR confidence (%.2f); verify devices and connections taken from it.", s.Page, s.Confidence))
		}
	}
	return notes
}

func appendUnique(ids []string, id string) []string {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unspecified signal"
	}
	return s
}

// sortedKeys is used for deterministic iteration in logs and tests.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
