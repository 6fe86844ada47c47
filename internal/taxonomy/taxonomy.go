package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/goccy/go-yaml"
)

//go:embed default.yaml
var defaultYAML []byte

// UnknownCable is recommended when a signal type has no cable mapping.
const UnknownCable = "To be confirmed"

// Taxonomy is the read-only vocabulary shared by interpretation and artifact rendering.
type Taxonomy struct {
	Devices       map[string]string `yaml:"devices"`
	SignalAliases map[string]string `yaml:"signal_aliases"`
	Cables        map[string]string `yaml:"cables"`
}

// Entry is one abbreviation and its device type.
type Entry struct {
	Abbreviation string
	Type         string
}

// Default returns the embedded taxonomy.
func Default() *Taxonomy {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: embedded default is invalid: %v", err))
	}
	return t
}

// Load returns the embedded taxonomy with the entries of the file at path
// merged over it. An empty path yields the default.
func Load(path string) (*Taxonomy, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy %s: %w", path, err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing taxonomy %s: %w", path, err)
	}
	for k, v := range override.Devices {
		base.Devices[k] = v
	}
	for k, v := range override.SignalAliases {
		base.SignalAliases[k] = v
	}
	for k, v := range override.Cables {
		base.Cables[k] = v
	}
	return base, nil
}

// Parse decodes a taxonomy document and normalizes its keys.
func Parse(data []byte) (*Taxonomy, error) {
	var raw Taxonomy
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	t := &Taxonomy{
		Devices:       make(map[string]string, len(raw.Devices)),
		SignalAliases: make(map[string]string, len(raw.SignalAliases)),
		Cables:        make(map[string]string, len(raw.Cables)),
	}
	for k, v := range raw.Devices {
		t.Devices[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	for k, v := range raw.SignalAliases {
		t.SignalAliases[normalizeSignal(k)] = normalizeSignal(v)
	}
	for k, v := range raw.Cables {
		t.Cables[normalizeSignal(k)] = strings.TrimSpace(v)
	}
	return t, nil
}

// Entries returns the device vocabulary sorted by abbreviation.
func (t *Taxonomy) Entries() []Entry {
	out := make([]Entry, 0, len(t.Devices))
	for k, v := range t.Devices {
		out = append(out, Entry{Abbreviation: k, Type: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Abbreviation < out[j].Abbreviation })
	return out
}

// Known reports whether the abbreviation is already in the vocabulary.
func (t *Taxonomy) Known(abbreviation string) bool {
	_, ok := t.Devices[strings.ToUpper(strings.TrimSpace(abbreviation))]
	return ok
}

// Classify guesses a device type from the leading letters of a device tag,
// e.g. "AMP-1" or "DSP2".
func (t *Taxonomy) Classify(name string) (string, bool) {
	prefix := strings.ToUpper(strings.TrimLeftFunc(name, unicode.IsSpace))
	end := strings.IndexFunc(prefix, func(r rune) bool { return !unicode.IsLetter(r) })
	if end >= 0 {
		prefix = prefix[:end]
	}
	if prefix == "" {
		return "", false
	}
	typ, ok := t.Devices[prefix]
	return typ, ok
}

// CanonicalSignal maps a signal type onto the vocabulary, keeping unknown
// values in normalized form.
func (t *Taxonomy) CanonicalSignal(signal string) string {
	s := normalizeSignal(signal)
	if c, ok := t.SignalAliases[s]; ok {
		return c
	}
	return s
}

// CableFor recommends a cable type for a signal type.
func (t *Taxonomy) CableFor(signal string) string {
	if c, ok := t.Cables[t.CanonicalSignal(signal)]; ok {
		return c
	}
	return UnknownCable
}

func normalizeSignal(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// WithDevices returns a taxonomy whose device vocabulary is t's with devices
// merged over it. t is left untouched and the signal and cable maps are shared.
func (t *Taxonomy) WithDevices(devices map[string]string) *Taxonomy {
	out := &Taxonomy{
		Devices:       make(map[string]string, len(t.Devices)+len(devices)),
		SignalAliases: t.SignalAliases,
		Cables:        t.Cables,
	}
	for k, v := range t.Devices {
		out.Devices[k] = v
	}
	for k, v := range devices {
		k = strings.ToUpper(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out.Devices[k] = v
	}
	return out
}
