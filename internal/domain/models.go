package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// UploadedDocument is a single plan file received for processing.
// The content is never mutated after construction; Verify detects tampering.
type UploadedDocument struct {
	Filename    string   `json:"filename"`
	ContentType string   `json:"content_type"`
	FileType    FileType `json:"file_type"`
	ContentHash string   `json:"content_hash"`
	Size        int64    `json:"size"`
	content     []byte
}

// NewUploadedDocument validates the declared type and size and fingerprints the content.
// A maxBytes of zero or less disables the size check.
func NewUploadedDocument(filename, declaredType string, content []byte, maxBytes int64) (*UploadedDocument, error) {
	ft, ok := ResolveFileType(filename, declaredType)
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedFileType, filename, declaredType)
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(content), maxBytes)
	}
	return &UploadedDocument{
		Filename:    filepath.Base(filename),
		ContentType: ft.ContentType(),
		FileType:    ft,
		ContentHash: hashBytes(content),
		Size:        int64(len(content)),
		content:     content,
	}, nil
}

// Content returns the raw bytes. Callers must not modify the slice.
func (d *UploadedDocument) Content() []byte {
	return d.content
}

// BaseName returns the filename without directory or extension.
func (d *UploadedDocument) BaseName() string {
	return strings.TrimSuffix(d.Filename, filepath.Ext(d.Filename))
}

// Verify re-checks the document before a stage consumes it.
func (d *UploadedDocument) Verify() error {
	if d == nil {
		return fmt.Errorf("%w: no document", ErrInvalidStageInput)
	}
	if _, ok := AllowedFileTypes[d.FileType]; !ok {
		return fmt.Errorf("%w: file type %q", ErrInvalidStageInput, d.FileType)
	}
	if hashBytes(d.content) != d.ContentHash {
		return fmt.Errorf("%w: content hash mismatch for %s", ErrInvalidStageInput, d.Filename)
	}
	return nil
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// RegionHint is the approximate area of a page covered by a segment's text,
// in coordinates normalized to [0,1] with the origin at the top-left.
type RegionHint struct {
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	Zone string  `json:"zone"`
}

// Segment is one unit of extracted content: a PDF page or a whole raster image.
type Segment struct {
	Page          int         `json:"page"`
	Index         int         `json:"index"`
	Text          string      `json:"text"`
	Region        *RegionHint `json:"region,omitempty"`
	Confidence    float64     `json:"confidence"`
	LowConfidence bool        `json:"low_confidence"`
}

// ExtractedContent is the ordered output of the Content Extractor.
type ExtractedContent struct {
	DocumentHash string    `json:"document_hash"`
	PageCount    int       `json:"page_count"`
	Segments     []Segment `json:"segments"`
	Notes        []string  `json:"notes,omitempty"`
}

// Validate re-checks extracted content before interpretation consumes it.
func (c *ExtractedContent) Validate() error {
	if c == nil || len(c.Segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidStageInput)
	}
	usable := false
	for i, s := range c.Segments {
		if s.Confidence < 0 || s.Confidence > 1 {
			return fmt.Errorf("%w: segment %d confidence %v out of range", ErrInvalidStageInput, i, s.Confidence)
		}
		if i > 0 {
			prev := c.Segments[i-1]
			if s.Page < prev.Page || (s.Page == prev.Page && s.Index <= prev.Index) {
				return fmt.Errorf("%w: segment %d out of order", ErrInvalidStageInput, i)
			}
		}
		if strings.TrimSpace(s.Text) != "" {
			usable = true
		}
	}
	if !usable {
		return fmt.Errorf("%w: no segment has text", ErrInvalidStageInput)
	}
	return nil
}

// AllLowConfidence reports whether every segment is flagged.
func (c *ExtractedContent) AllLowConfidence() bool {
	if len(c.Segments) == 0 {
		return false
	}
	for _, s := range c.Segments {
		if !s.LowConfidence {
			return false
		}
	}
	return true
}

// Device is an AV device detected in the plan.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

// Identity returns the deduplication key: name and location, case-folded
// with whitespace collapsed.
func (d Device) Identity() string {
	return DeviceIdentity(d.Name, d.Location)
}

// DeviceIdentity normalizes a (name, location) pair into a dedup key.
func DeviceIdentity(name, location string) string {
	return foldSpace(name) + "\x00" + foldSpace(location)
}

func foldSpace(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// RoutingPath is a signal or control connection between two devices, by device ID.
type RoutingPath struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	SignalType  string `json:"signal_type"`
	Description string `json:"description,omitempty"`
}

// InterpretationResult is the structured output of the Interpretation Engine.
type InterpretationResult struct {
	Summary           string            `json:"summary"`
	Devices           []Device          `json:"devices"`
	Paths             []RoutingPath     `json:"paths"`
	Notes             []string          `json:"notes"`
	SuggestedTaxonomy map[string]string `json:"new_taxonomy_entries,omitempty"`
	Model             string            `json:"model,omitempty"`
}

// DevicesByID indexes the device list.
func (r *InterpretationResult) DevicesByID() map[string]Device {
	m := make(map[string]Device, len(r.Devices))
	for _, d := range r.Devices {
		m[d.ID] = d
	}
	return m
}

// Validate checks referential integrity: device IDs are unique and non-empty
// and every routing path endpoint names a device in the list.
func (r *InterpretationResult) Validate() error {
	if r == nil {
		return fmt.Errorf("nil interpretation result")
	}
	ids := make(map[string]struct{}, len(r.Devices))
	for i, d := range r.Devices {
		if d.ID == "" {
			return fmt.Errorf("device %d has no id", i)
		}
		if _, dup := ids[d.ID]; dup {
			return fmt.Errorf("duplicate device id %q", d.ID)
		}
		ids[d.ID] = struct{}{}
	}
	for i, p := range r.Paths {
		if _, ok := ids[p.Source]; !ok {
			return fmt.Errorf("path %d references unknown source device %q", i, p.Source)
		}
		if _, ok := ids[p.Destination]; !ok {
			return fmt.Errorf("path %d references unknown destination device %q", i, p.Destination)
		}
	}
	return nil
}

// Rendering is one encoded form of an artifact.
type Rendering struct {
	Format      Format `json:"format"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
}

// Artifact is a named output in its printable and tabular renderings.
type Artifact struct {
	Kind       ArtifactKind `json:"kind"`
	Title      string       `json:"title"`
	Text       string       `json:"text"`
	Renderings []Rendering  `json:"renderings"`
}

// Rendering returns the rendering in format f, if built.
func (a *Artifact) Rendering(f Format) (Rendering, bool) {
	for _, r := range a.Renderings {
		if r.Format == f {
			return r, true
		}
	}
	return Rendering{}, false
}

// ArtifactName applies the {original-filename}_{suffix}.{ext} convention.
func ArtifactName(base string, kind ArtifactKind, f Format) string {
	return fmt.Sprintf("%s_%s.%s", base, kind, f)
}

// ArtifactRef is a resolvable handle to a published rendering.
type ArtifactRef struct {
	Kind   ArtifactKind `json:"kind"`
	Format Format       `json:"format"`
	Name   string       `json:"name"`
	Key    string       `json:"key"`
	URL    string       `json:"url,omitempty"`
	Size   int64        `json:"size"`
	SHA256 string       `json:"sha256"`
}
