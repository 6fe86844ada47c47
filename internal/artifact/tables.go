package artifact

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"avplan/internal/domain"
	"avplan/internal/taxonomy"
)

// table is the tabular form shared by the CSV, text, PDF and workbook renderings.
// Widths are relative column weights for the printed form.
type table struct {
	Title   string
	Columns []string
	Widths  []float64
	Rows    [][]string
}

const unclassified = "Unclassified"

// cableID numbers pull sheet rows in path order.
func cableID(i int) string {
	return fmt.Sprintf("C-%03d", i+1)
}

func deviceLabel(d domain.Device) string {
	if d.Name == "" {
		return d.ID
	}
	return d.Name
}

func summaryTable(r *domain.InterpretationResult) *table {
	t := &table{
		Title:   "Summary",
		Columns: []string{"Section", "Content"},
		Widths:  []float64{1, 4},
	}
	t.Rows = append(t.Rows,
		[]string{"Summary", r.Summary},
		[]string{"Devices", strconv.Itoa(len(r.Devices))},
		[]string{"Routing Paths", strconv.Itoa(len(r.Paths))},
	)
	for _, n := range r.Notes {
		t.Rows = append(t.Rows, []string{"Note", n})
	}
	for _, k := range sortedKeys(r.SuggestedTaxonomy) {
		t.Rows = append(t.Rows, []string{"Suggested Abbreviation", k + " = " + r.SuggestedTaxonomy[k]})
	}
	return t
}

func deviceTable(r *domain.InterpretationResult) *table {
	t := &table{
		Title:   "Devices",
		Columns: []string{"ID", "Name", "Type", "Location"},
		Widths:  []float64{1, 2, 3, 3},
	}
	for _, d := range r.Devices {
		t.Rows = append(t.Rows, []string{d.ID, d.Name, orBlank(d.Type, unclassified), d.Location})
	}
	return t
}

func pullSheetTable(r *domain.InterpretationResult, tax *taxonomy.Taxonomy) *table {
	t := &table{
		Title: "Cable Pull Sheet",
		Columns: []string{
			"Cable ID",
			"Source",
			"Source Location",
			"Destination",
			"Destination Location",
			"Signal Type",
			"Cable Type",
			"Description",
		},
		Widths: []float64{1, 1.5, 2, 1.5, 2, 1.5, 2.5, 2.5},
	}
	byID := r.DevicesByID()
	for i, p := range r.Paths {
		src, dst := byID[p.Source], byID[p.Destination]
		t.Rows = append(t.Rows, []string{
			cableID(i),
			deviceLabel(src),
			src.Location,
			deviceLabel(dst),
			dst.Location,
			p.SignalType,
			cableType(tax, p.SignalType),
			p.Description,
		})
	}
	return t
}

func cableType(tax *taxonomy.Taxonomy, signal string) string {
	if strings.TrimSpace(signal) == "" {
		return taxonomy.UnknownCable
	}
	return tax.CableFor(signal)
}

type bomLine struct {
	category string
	item     string
	unit     string
	tags     []string
	where    []string
}

func bomTable(r *domain.InterpretationResult, tax *taxonomy.Taxonomy) *table {
	t := &table{
		Title:   "Reflected Bill of Materials",
		Columns: []string{"Line", "Category", "Item", "Quantity", "Unit", "Tags", "Locations"},
		Widths:  []float64{0.6, 1, 2.5, 0.8, 0.6, 3, 3},
	}

	devices := map[string]*bomLine{}
	for _, d := range r.Devices {
		typ := orBlank(d.Type, unclassified)
		key := strings.ToLower(typ)
		l, ok := devices[key]
		if !ok {
			l = &bomLine{category: "Device", item: typ, unit: "ea"}
			devices[key] = l
		}
		l.tags = append(l.tags, deviceLabel(d))
		l.where = appendOnce(l.where, d.Location)
	}

	cables := map[string]*bomLine{}
	for i, p := range r.Paths {
		typ := cableType(tax, p.SignalType)
		key := strings.ToLower(typ)
		l, ok := cables[key]
		if !ok {
			l = &bomLine{category: "Cable", item: typ, unit: "runs"}
			cables[key] = l
		}
		l.tags = append(l.tags, cableID(i))
	}

	n := 0
	for _, group := range []map[string]*bomLine{devices, cables} {
		for _, key := range sortedLineKeys(group) {
			l := group[key]
			n++
			t.Rows = append(t.Rows, []string{
				strconv.Itoa(n),
				l.category,
				l.item,
				strconv.Itoa(len(l.tags)),
				l.unit,
				strings.Join(l.tags, ", "),
				strings.Join(l.where, ", "),
			})
		}
	}
	return t
}

func sortedLineKeys(m map[string]*bomLine) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// verificationTable lists what an installer should confirm before pulling
// cable: the interpretation notes followed by structural checks.
func verificationTable(r *domain.InterpretationResult, tax *taxonomy.Taxonomy) *table {
	t := &table{
		Title:   "Verification Notes",
		Columns: []string{"#", "Category", "Reference", "Check"},
		Widths:  []float64{0.5, 1.3, 1.5, 6},
	}
	add := func(category, ref, check string) {
		t.Rows = append(t.Rows, []string{strconv.Itoa(len(t.Rows) + 1), category, ref, check})
	}

	for _, n := range r.Notes {
		add("Interpretation", "", n)
	}

	connected := make(map[string]bool, len(r.Devices))
	for _, p := range r.Paths {
		connected[p.Source] = true
		connected[p.Destination] = true
	}
	for _, d := range r.Devices {
		label := deviceLabel(d)
		if !connected[d.ID] {
			add("Device", label, fmt.Sprintf("%s (%s) has no routing path; confirm it is connected or remove it.", label, d.ID))
		}
		if strings.TrimSpace(d.Type) == "" {
			add("Device", label, fmt.Sprintf("%s has no device type; confirm the model from the equipment schedule.", label))
		}
		if strings.TrimSpace(d.Location) == "" {
			add("Device", label, fmt.Sprintf("%s has no location; confirm the room or rack before installation.", label))
		}
	}

	byID := r.DevicesByID()
	for i, p := range r.Paths {
		id := cableID(i)
		src, dst := deviceLabel(byID[p.Source]), deviceLabel(byID[p.Destination])
		switch {
		case p.Source == p.Destination:
			add("Cable", id, fmt.Sprintf("%s connects %s to itself; confirm the destination.", id, src))
		case strings.TrimSpace(p.SignalType) == "":
			add("Cable", id, fmt.Sprintf("%s (%s -> %s) has no signal type; the cable type cannot be confirmed.", id, src, dst))
		case tax.CableFor(p.SignalType) == taxonomy.UnknownCable:
			add("Cable", id, fmt.Sprintf("%s (%s -> %s) carries %q, which has no recommended cable type.", id, src, dst, p.SignalType))
		}
	}

	if len(t.Rows) == 0 {
		add("General", "", "No issues were detected. Verify the pull sheet against the drawings before installation.")
	}
	return t
}

func orBlank(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func appendOnce(list []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return list
	}
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
