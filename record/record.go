// Package record persists the intermediate annotation results as a JSON
// file next to the source document. The file decouples the expensive
// description phase from write-back: apply runs can re-read it without
// calling the service again, and reports are generated from it.
package record

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dlambright03/picture-annotations-sub001/extract"
)

// Version is the current record file schema version.
const Version = "1.0"

// File is the top-level record document.
type File struct {
	Version        string    `json:"version"`
	SourceDocument string    `json:"source_document"`
	DocumentType   string    `json:"document_type"`
	GeneratedAt    time.Time `json:"generated_at"`
	Model          string    `json:"model,omitempty"`
	Entries        []Entry   `json:"entries"`
}

// Entry is the annotation result for one image. The payload travels as
// base64 so a record file is self-contained for reporting.
type Entry struct {
	ImageID         string                     `json:"image_id"`
	Position        extract.PositionDescriptor `json:"position"`
	Format          string                     `json:"format,omitempty"`
	ImageBase64     string                     `json:"image_data_base64,omitempty"`
	AltText         string                     `json:"alt_text"`
	Accepted        bool                       `json:"accepted"`
	Decorative      bool                       `json:"decorative,omitempty"`
	Warnings        []string                   `json:"warnings,omitempty"`
	RejectionReason string                     `json:"rejection_reason,omitempty"`
	ExistingAltText string                     `json:"existing_alt_text,omitempty"`
	Context         string                     `json:"context,omitempty"`
	Metrics         Metrics                    `json:"metrics"`
}

// Metrics is the per-image service usage accounting.
type Metrics struct {
	Model            string  `json:"model,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`
	CostUSD          float64 `json:"cost_usd,omitempty"`
	DurationMS       int64   `json:"duration_ms,omitempty"`
}

// EncodePayload stores an image payload on the entry.
func (e *Entry) EncodePayload(data []byte) {
	if len(data) > 0 {
		e.ImageBase64 = base64.StdEncoding.EncodeToString(data)
	}
}

// Payload decodes the entry's image payload, nil when absent.
func (e *Entry) Payload() ([]byte, error) {
	if e.ImageBase64 == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(e.ImageBase64)
}

// Save writes the record file with indented JSON.
func Save(path string, f *File) error {
	if f.Version == "" {
		f.Version = Version
	}
	if f.GeneratedAt.IsZero() {
		f.GeneratedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing record file: %w", err)
	}
	return nil
}

// Load reads and version-checks a record file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding record file: %w", err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("unsupported record file version %q", f.Version)
	}
	return &f, nil
}

// DefaultPath returns the record file path for a source document:
// report.docx becomes report_alttext.json in the same directory.
func DefaultPath(docPath string) string {
	ext := filepath.Ext(docPath)
	return strings.TrimSuffix(docPath, ext) + "_alttext.json"
}
