// Package report renders annotation results for human review, as Markdown
// for quick inspection and as a spreadsheet for remediation workflows.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlambright03/picture-annotations-sub001/record"
)

// Summary aggregates the counters a report leads with.
type Summary struct {
	Total      int
	Accepted   int
	Rejected   int
	Decorative int
	Preexist   int
	Tokens     int
	CostUSD    float64
}

// Summarize computes the aggregate counters for a record file.
func Summarize(f *record.File) Summary {
	var s Summary
	for _, e := range f.Entries {
		s.Total++
		switch {
		case e.Decorative:
			s.Decorative++
		case e.Accepted:
			s.Accepted++
		default:
			s.Rejected++
		}
		if e.ExistingAltText != "" {
			s.Preexist++
		}
		s.Tokens += e.Metrics.TotalTokens
		s.CostUSD += e.Metrics.CostUSD
	}
	return s
}

// Markdown renders the full report document.
func Markdown(f *record.File) []byte {
	s := Summarize(f)
	var b strings.Builder

	fmt.Fprintf(&b, "# Alt Text Report: %s\n\n", f.SourceDocument)
	fmt.Fprintf(&b, "Generated %s\n\n", f.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Document type | %s |\n", f.DocumentType)
	if f.Model != "" {
		fmt.Fprintf(&b, "| Model | %s |\n", f.Model)
	}
	fmt.Fprintf(&b, "| Images found | %d |\n", s.Total)
	fmt.Fprintf(&b, "| Descriptions accepted | %d |\n", s.Accepted)
	fmt.Fprintf(&b, "| Descriptions rejected | %d |\n", s.Rejected)
	fmt.Fprintf(&b, "| Marked decorative | %d |\n", s.Decorative)
	fmt.Fprintf(&b, "| Had existing alt text | %d |\n", s.Preexist)
	fmt.Fprintf(&b, "| Tokens used | %d |\n", s.Tokens)
	fmt.Fprintf(&b, "| Estimated cost | $%.4f |\n\n", s.CostUSD)

	b.WriteString("## Images\n\n")
	b.WriteString("| Image | Location | Status | Alt Text | Warnings |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, e := range f.Entries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			e.ImageID,
			location(e),
			status(e),
			cell(e.AltText),
			cell(strings.Join(e.Warnings, "; ")))
	}
	b.WriteString("\n")

	var rejected []record.Entry
	for _, e := range f.Entries {
		if !e.Accepted && !e.Decorative {
			rejected = append(rejected, e)
		}
	}
	if len(rejected) > 0 {
		b.WriteString("## Needs Attention\n\n")
		for _, e := range rejected {
			fmt.Fprintf(&b, "- **%s** (%s): %s", e.ImageID, location(e), e.RejectionReason)
			if len(e.Warnings) > 0 {
				fmt.Fprintf(&b, " — %s", strings.Join(e.Warnings, "; "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return []byte(b.String())
}

// location renders a human-readable position for an entry.
func location(e record.Entry) string {
	if e.Position.Kind == "slide" {
		return fmt.Sprintf("slide %d, shape %d", e.Position.Slide+1, e.Position.Shape+1)
	}
	return fmt.Sprintf("paragraph %d", e.Position.Paragraph+1)
}

func status(e record.Entry) string {
	switch {
	case e.Decorative:
		return "decorative"
	case e.Accepted:
		return "accepted"
	default:
		return "rejected: " + e.RejectionReason
	}
}

// cell escapes pipes and newlines so free text survives a Markdown table.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
