// Package docctx builds the five-level context hierarchy used to prompt the
// description service: external (user-supplied), document (package metadata),
// section (nearest preceding heading), page (slide title), and local
// (surrounding text). Levels are populated independently and merged with a
// priority-preserving character budget.
package docctx

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dlambright03/picture-annotations-sub001/extract"
)

// DefaultMaxChars is the default character budget for a merged context.
const DefaultMaxChars = 3000

// maxExternalChars caps user-supplied external context files.
const maxExternalChars = 10000

const ellipsis = "..."

// Bundle holds the five context levels for one image, in priority order.
// Empty fields are absent. A bundle is a value scoped to a single image;
// merging never mutates it.
type Bundle struct {
	External string
	Document string
	Section  string
	Page     string
	Local    string
}

// Config controls local-context window sizes.
type Config struct {
	UnitsBefore int // structural units before the image's unit
	UnitsAfter  int // structural units after the image's unit
}

// DefaultConfig returns the standard two-before, two-after window.
func DefaultConfig() Config {
	return Config{UnitsBefore: 2, UnitsAfter: 2}
}

// HeadingCursor caches the result of backward heading scans. Images arrive in
// document order, so each scan only has to cover the units between the
// previous image and this one; the nearest heading for everything before that
// is already resolved.
type HeadingCursor struct {
	pos     int // highest unit index scanned so far; meaningless until init
	heading string
	init    bool
}

// sectionFor returns the nearest heading text preceding unit u, advancing the
// cursor. An out-of-order lookup falls back to a full backward scan without
// disturbing the cached state.
func (c *HeadingCursor) sectionFor(units []extract.Unit, u int) string {
	if c.init && u-1 < c.pos {
		for i := u - 1; i >= 0 && i < len(units); i-- {
			if units[i].Heading && units[i].Text != "" {
				return units[i].Text
			}
		}
		return ""
	}

	lo := 0
	if c.init {
		lo = c.pos + 1
	}
	for i := u - 1; i >= lo; i-- {
		if i >= len(units) {
			continue
		}
		if units[i].Heading && units[i].Text != "" {
			c.heading = units[i].Text
			break
		}
	}
	if !c.init || u-1 > c.pos {
		c.pos = u - 1
	}
	c.init = true
	return c.heading
}

// Build assembles the context bundle for one image from the document tree and
// metadata. The cursor threads heading-scan state across sequential calls.
func Build(rec extract.ImageRecord, res *extract.Result, external string, cursor *HeadingCursor, cfg Config) Bundle {
	b := Bundle{
		External: external,
		Document: documentContext(res),
	}

	tree := res.Tree
	if tree == nil {
		return b
	}

	switch tree.Kind {
	case extract.KindFlow:
		if cursor != nil {
			b.Section = cursor.sectionFor(tree.Units, rec.Position.Paragraph)
		}
		b.Local = flowLocalContext(tree.Units, rec.Position.Paragraph, cfg)
	case extract.KindSlide:
		slide := slideFor(tree, rec.Position.Slide)
		if slide != nil {
			if slide.Title != "" {
				b.Page = "Slide: " + slide.Title
			}
			b.Local = slideLocalContext(slide)
		}
	}
	return b
}

// documentContext formats package metadata as the document-level context,
// falling back to a format/filename description when no metadata is present.
func documentContext(res *extract.Result) string {
	var parts []string
	if res.Metadata.Title != "" {
		parts = append(parts, "Title: "+res.Metadata.Title)
	}
	if res.Metadata.Subject != "" {
		parts = append(parts, "Subject: "+res.Metadata.Subject)
	}
	if res.Metadata.Author != "" {
		parts = append(parts, "Author: "+res.Metadata.Author)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s document (%s)", res.Format, res.Metadata.Filename)
	}
	return strings.Join(parts, ", ")
}

// flowLocalContext collects the non-empty units in a window around the
// image's unit, excluding the unit itself. The window truncates at document
// boundaries.
func flowLocalContext(units []extract.Unit, u int, cfg Config) string {
	start := u - cfg.UnitsBefore
	if start < 0 {
		start = 0
	}
	end := u + cfg.UnitsAfter + 1
	if end > len(units) {
		end = len(units)
	}

	var parts []string
	for i := start; i < end; i++ {
		if i == u {
			continue
		}
		if text := units[i].Text; text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "No surrounding text available."
	}
	return strings.Join(parts, " ")
}

func slideLocalContext(slide *extract.SlideText) string {
	if len(slide.Texts) == 0 {
		return "No text content on slide."
	}
	return strings.Join(slide.Texts, " ")
}

func slideFor(tree *extract.Tree, idx int) *extract.SlideText {
	for i := range tree.Slides {
		if tree.Slides[i].Number == idx+1 {
			return &tree.Slides[i]
		}
	}
	return nil
}

// Merge concatenates the present levels in priority order with labeled
// delimiters and enforces the character budget by truncating from the end.
// Because the highest-priority levels come first, truncation always drops the
// lowest-priority content; the external field is never shortened while any
// lower-priority text remains.
func Merge(b Bundle, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxChars
	}

	var parts []string
	if b.External != "" {
		parts = append(parts, "[External Context] "+b.External)
	}
	if b.Document != "" {
		parts = append(parts, "[Document: "+b.Document+"]")
	}
	if b.Section != "" {
		parts = append(parts, "[Section: "+b.Section+"]")
	}
	if b.Page != "" {
		parts = append(parts, "[Page: "+b.Page+"]")
	}
	if b.Local != "" {
		parts = append(parts, "[Local: "+b.Local+"]")
	}

	merged := strings.Join(parts, " | ")
	runes := []rune(merged)
	if len(runes) <= maxLength {
		return merged
	}
	return string(runes[:maxLength]) + ellipsis
}

// LoadExternal reads a user-supplied external context file (.txt or .md).
// Oversized content is capped; a missing or unsupported file returns an
// error the caller records as a context warning, never a fatal failure.
func LoadExternal(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".txt" && ext != ".md" {
		return "", fmt.Errorf("unsupported context file format: %s", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading context file: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if runes := []rune(content); len(runes) > maxExternalChars {
		slog.Warn("external context too long, truncating",
			"length", len(runes), "max_length", maxExternalChars)
		content = string(runes[:maxExternalChars]) + ellipsis
	}

	slog.Info("external context loaded", "file", path, "length", len(content))
	return content, nil
}
