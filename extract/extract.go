package extract

import (
	"context"
	"errors"
)

// ErrContainer indicates the document container itself is unreadable or
// corrupted. It is the only extraction error that aborts a whole run.
var ErrContainer = errors.New("extract: unreadable document container")

// Anchor kinds for flow-document images.
const (
	AnchorInline   = "inline"
	AnchorFloating = "floating"
)

// Position descriptor kinds.
const (
	KindFlow  = "flow"  // paragraph-anchored (DOCX)
	KindSlide = "slide" // shape-anchored with absolute geometry (PPTX, PDF pages)
)

// PositionDescriptor locates an image inside its document so it can be
// re-resolved on a second pass. Flow documents anchor to a paragraph and a
// drawing sequence within it; slide documents anchor to a slide and a
// picture-shape sequence, with absolute geometry in EMUs.
type PositionDescriptor struct {
	Kind string `json:"kind"`

	// Flow variant.
	Paragraph int    `json:"paragraph_index"`
	Drawing   int    `json:"drawing_index"`
	Anchor    string `json:"anchor_type,omitempty"`

	// Slide variant.
	Slide     int   `json:"slide_index"`
	Shape     int   `json:"shape_index"`
	LeftEMU   int64 `json:"left_emu,omitempty"`
	TopEMU    int64 `json:"top_emu,omitempty"`
	WidthEMU  int64 `json:"width_emu,omitempty"`
	HeightEMU int64 `json:"height_emu,omitempty"`
	Rotation  int64 `json:"rotation,omitempty"`
}

// ImageRecord is one embedded image discovered during extraction. Records are
// immutable once created; downstream stages address them by ID and position
// descriptor only.
type ImageRecord struct {
	ID              string             `json:"image_id"`
	Format          string             `json:"format"` // PNG, JPEG, GIF, BMP, TIFF, EMF, WMF
	Data            []byte             `json:"-"`
	SizeBytes       int                `json:"size_bytes"`
	Width           int                `json:"width_pixels"`
	Height          int                `json:"height_pixels"`
	PageNumber      int                `json:"page_number,omitempty"` // 1-based slide/page, 0 for flow documents
	Position        PositionDescriptor `json:"position"`
	ExistingAltText string             `json:"existing_alt_text,omitempty"`
}

// Unit is one structural unit (paragraph) of a flow document. Units are
// indexed by paragraph position so context lookups can address them directly.
type Unit struct {
	Text    string
	Style   string
	Heading bool
}

// SlideText is the text content of one slide.
type SlideText struct {
	Number int // 1-based slide number
	Title  string
	Texts  []string
}

// Tree is the in-memory document tree used for context lookups. It is
// read-only after extraction; concurrent readers need no locking.
type Tree struct {
	Kind   string // KindFlow or KindSlide
	Units  []Unit
	Slides []SlideText
}

// Metadata holds document-level properties from docProps/core.xml.
type Metadata struct {
	Title    string
	Subject  string
	Author   string
	Filename string
}

// Warning records a non-fatal extraction problem (one image skipped or
// degraded; the run continues).
type Warning struct {
	ImageID string
	Message string
}

// Result is the complete output of extracting one document.
type Result struct {
	Format   string // DOCX, PPTX, PDF
	Metadata Metadata
	Tree     *Tree
	Images   []ImageRecord
	Warnings []Warning
}

// Extractor extracts images and the document tree from one package format.
// Extraction is deterministic and never mutates the input package.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Result, error)
	SupportedFormats() []string
}
