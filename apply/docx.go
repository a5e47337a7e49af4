package apply

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// DOCXWriter writes alt text into word/document.xml. Updates are addressed by
// (paragraph index, drawing index); paragraphs are numbered by counting every
// w:p start element in stream order, exactly as extraction numbers them, so a
// descriptor re-resolves to the same drawing in an unmodified document.
type DOCXWriter struct{}

func (w *DOCXWriter) Apply(ctx context.Context, src, dst string, updates []Update) ([]Failure, error) {
	targets := make(map[[2]int]Update, len(updates))
	var failures []Failure
	for _, u := range updates {
		if u.Position.Kind != extractKindFlow {
			failures = append(failures, Failure{
				ImageID: u.ImageID,
				Reason:  fmt.Sprintf("position kind %q is not addressable in a flow document", u.Position.Kind),
			})
			continue
		}
		targets[[2]int{u.Position.Paragraph, u.Position.Drawing}] = u
	}

	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReassembly, err)
	}
	defer r.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReassembly, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	applied := make(map[[2]int]bool)

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("%w: copying part %s: %v", ErrReassembly, f.Name, err)
			}
			continue
		}

		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrReassembly, f.Name, err)
		}

		rewritten := rewriteDocumentXML(data, targets, applied)
		pw, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReassembly, err)
		}
		if _, err := pw.Write(rewritten); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReassembly, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReassembly, err)
	}

	for key, u := range targets {
		if !applied[key] {
			failures = append(failures, Failure{
				ImageID: u.ImageID,
				Reason:  fmt.Sprintf("drawing %d in paragraph %d not found", key[1], key[0]),
			})
		}
	}

	slog.Info("apply: docx written",
		"output", dst,
		"applied", len(applied),
		"failed", len(failures))
	return failures, nil
}

// rewriteDocumentXML walks the document part once, mirroring the extraction
// pass's paragraph and drawing numbering, and rewrites the docPr start tag of
// every targeted drawing in place.
func rewriteDocumentXML(data []byte, targets map[[2]int]Update, applied map[[2]int]bool) []byte {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	type openDrawing struct {
		key  [2]int
		done bool
	}

	var (
		edits        []edit
		paraCount    int
		paraStack    []int
		drawStack    []*openDrawing
		paraDrawings = make(map[int]int)
	)

	for {
		prevOffset := decoder.InputOffset()
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		curOffset := decoder.InputOffset()

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if t.Name.Space == wordMainNS || t.Name.Space == "" {
					paraStack = append(paraStack, paraCount)
					paraCount++
				}
			case "inline", "anchor":
				if (t.Name.Space == wordDrawingNS || t.Name.Space == "") && len(paraStack) > 0 {
					paraIdx := paraStack[len(paraStack)-1]
					drawStack = append(drawStack, &openDrawing{
						key: [2]int{paraIdx, paraDrawings[paraIdx]},
					})
					paraDrawings[paraIdx]++
				}
			case "docPr":
				if len(drawStack) == 0 {
					break
				}
				d := drawStack[len(drawStack)-1]
				if d.done {
					break
				}
				d.done = true
				if u, ok := targets[d.key]; ok {
					raw := string(data[prevOffset:curOffset])
					edits = append(edits, edit{
						start: prevOffset,
						end:   curOffset,
						text:  setAltAttrs(raw, u.altText()),
					})
					applied[d.key] = true
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if (t.Name.Space == wordMainNS || t.Name.Space == "") && len(paraStack) > 0 {
					paraStack = paraStack[:len(paraStack)-1]
				}
			case "inline", "anchor":
				if (t.Name.Space == wordDrawingNS || t.Name.Space == "") && len(drawStack) > 0 {
					drawStack = drawStack[:len(drawStack)-1]
				}
			}
		}
	}

	if len(edits) == 0 {
		return data
	}
	return splice(data, edits)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
