// Package apply writes accepted alt text back into document packages. The
// writers never regenerate a package: unmodified parts are copied through the
// zip raw, and within a modified XML part only the matched property tag's
// attributes are rewritten, so every other byte of the document survives
// untouched.
package apply

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dlambright03/picture-annotations-sub001/extract"
)

const (
	extractKindFlow  = extract.KindFlow
	extractKindSlide = extract.KindSlide

	wordMainNS    = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	wordDrawingNS = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
)

// ErrReassembly wraps failures that prevent writing the output package at all.
// Per-image resolution problems are reported as Failure values instead.
var ErrReassembly = errors.New("apply: cannot write output document")

// Update is one alt-text application request, addressed by the position
// descriptor captured at extraction time. Decorative updates write empty alt
// text, marking the image as ignorable to assistive technology.
type Update struct {
	ImageID    string
	Position   extract.PositionDescriptor
	AltText    string
	Decorative bool
}

// Failure records one update that could not be applied. The rest of the
// document is still written.
type Failure struct {
	ImageID string
	Reason  string
}

// Writer applies updates to a source document, producing a new file at dst.
type Writer interface {
	Apply(ctx context.Context, src, dst string, updates []Update) ([]Failure, error)
}

// ForFormat returns the writer for an extraction format, or an error for
// formats without write-back support.
func ForFormat(format string) (Writer, error) {
	switch strings.ToUpper(format) {
	case "DOCX":
		return &DOCXWriter{}, nil
	case "PPTX":
		return &PPTXWriter{}, nil
	default:
		return nil, fmt.Errorf("%w: no writer for format %s", ErrReassembly, format)
	}
}

// altText returns the text an update writes into the descr attribute.
func (u Update) altText() string {
	if u.Decorative {
		return ""
	}
	return u.AltText
}

// edit is one byte-range replacement inside an XML part.
type edit struct {
	start int64
	end   int64
	text  string
}

// splice applies edits, which must be non-overlapping and ordered by offset,
// to the original part bytes.
func splice(data []byte, edits []edit) []byte {
	var out strings.Builder
	out.Grow(len(data) + 256)

	var pos int64
	for _, e := range edits {
		out.Write(data[pos:e.start])
		out.WriteString(e.text)
		pos = e.end
	}
	out.Write(data[pos:])
	return []byte(out.String())
}

var altAttrPattern = regexp.MustCompile(`\s+(?:descr|title)\s*=\s*(?:"[^"]*"|'[^']*')`)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// setAltAttrs rewrites a raw property start tag, replacing any existing descr
// and title attributes with the given text. Everything else in the tag,
// including its namespace prefix and remaining attributes, is preserved.
func setAltAttrs(raw string, alt string) string {
	cleaned := altAttrPattern.ReplaceAllString(raw, "")
	escaped := attrEscaper.Replace(alt)
	insert := fmt.Sprintf(` descr="%s" title="%s"`, escaped, escaped)

	if strings.HasSuffix(cleaned, "/>") {
		return cleaned[:len(cleaned)-2] + insert + "/>"
	}
	if strings.HasSuffix(cleaned, ">") {
		return cleaned[:len(cleaned)-1] + insert + ">"
	}
	return cleaned
}
