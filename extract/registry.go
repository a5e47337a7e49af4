package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Registry maps file formats to extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a registry with the built-in extractors registered.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}

	docx := &DOCXExtractor{}
	pptx := &PPTXExtractor{}
	pdf := &PDFExtractor{}

	for _, e := range []Extractor{docx, pptx, pdf} {
		for _, f := range e.SupportedFormats() {
			r.extractors[f] = e
		}
	}
	return r
}

// Get returns the extractor for a format ("docx", "pptx", "pdf").
func (r *Registry) Get(format string) (Extractor, error) {
	e, ok := r.extractors[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no extractor for format: %s", format)
	}
	return e, nil
}

// Register adds or replaces the extractor for a format.
func (r *Registry) Register(format string, e Extractor) {
	r.extractors[strings.ToLower(format)] = e
}

// FormatForPath returns the registry format key for a file path.
func FormatForPath(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
