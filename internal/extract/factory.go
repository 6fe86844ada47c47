package extract

import (
	"fmt"

	"avplan/internal/config"
	"avplan/internal/port"
)

// BackendFactory creates an OCRBackend from the extractor config.
type BackendFactory func(cfg *config.ExtractConfig) (port.OCRBackend, error)

// registry of OCR backend factories, populated via RegisterBackend at startup.
var backends = map[string]BackendFactory{}

// RegisterBackend registers an OCR backend factory by name.
func RegisterBackend(name string, factory BackendFactory) {
	backends[name] = factory
}

// NewBackend creates the OCRBackend selected by cfg.Backend.
func NewBackend(cfg *config.ExtractConfig) (port.OCRBackend, error) {
	factory, ok := backends[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown extraction backend: %s", cfg.Backend)
	}
	return factory(cfg)
}
