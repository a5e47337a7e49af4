package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

const (
	wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	wpNS   = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
)

// DOCXExtractor extracts images from Word documents. Images are anchored to
// paragraphs: the extractor walks word/document.xml in a single token pass,
// numbering every w:p element in stream order, and attributes each drawing to
// the paragraph that contains it. Both inline and floating anchors are
// handled.
type DOCXExtractor struct{}

func (e *DOCXExtractor) SupportedFormats() []string { return []string{"docx"} }

func (e *DOCXExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	r, index, err := openContainer(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	docData, err := readPart(index, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContainer, err)
	}

	rels := parseRelationships(index, "word/_rels/document.xml.rels")
	md := parseCoreProperties(index, path)

	units, images, warnings := walkDocumentXML(docData, rels, index)

	slog.Info("extract: docx complete",
		"file", filepath.Base(path),
		"paragraphs", len(units),
		"images", len(images),
		"warnings", len(warnings))

	return &Result{
		Format:   "DOCX",
		Metadata: md,
		Tree:     &Tree{Kind: KindFlow, Units: units},
		Images:   images,
		Warnings: warnings,
	}, nil
}

// paraState tracks one open w:p element. Paragraphs are kept on a stack
// because text boxes inside drawings nest their own paragraphs.
type paraState struct {
	idx   int
	text  strings.Builder
	style string
	inPPr bool
}

// drawState tracks one open wp:inline or wp:anchor element.
type drawState struct {
	paraIdx    int
	drawingIdx int
	anchor     string
	altTitle   string
	altDescr   string
	embed      string
}

// walkDocumentXML performs the single extraction pass over word/document.xml,
// producing the structural units (for context lookups) and the image records
// in document order. Paragraph indices count every w:p start element in
// stream order; the reassembly writer counts them the same way, so a
// descriptor always re-resolves to the same node in an unmodified document.
func walkDocumentXML(docData []byte, rels map[string]string, index map[string]*zip.File) ([]Unit, []ImageRecord, []Warning) {
	decoder := xml.NewDecoder(bytes.NewReader(docData))

	var (
		units    []Unit
		images   []ImageRecord
		warnings []Warning

		paraCount int
		paras     []*paraState
		draws     []*drawState
		inText    bool

		paraImages   = make(map[int]int) // paragraph -> extracted image count
		paraDrawings = make(map[int]int) // paragraph -> drawing count
	)

	setUnit := func(idx int, u Unit) {
		for idx >= len(units) {
			units = append(units, Unit{})
		}
		units[idx] = u
	}

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if t.Name.Space == wordNS || t.Name.Space == "" {
					paras = append(paras, &paraState{idx: paraCount})
					paraCount++
				}
			case "pPr":
				if len(paras) > 0 {
					paras[len(paras)-1].inPPr = true
				}
			case "pStyle":
				if len(paras) > 0 && paras[len(paras)-1].inPPr {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" {
							paras[len(paras)-1].style = attr.Value
						}
					}
				}
			case "t":
				if (t.Name.Space == wordNS || t.Name.Space == "") && len(paras) > 0 {
					inText = true
				}
			case "inline", "anchor":
				if (t.Name.Space == wpNS || t.Name.Space == "") && len(paras) > 0 {
					anchor := AnchorInline
					if t.Name.Local == "anchor" {
						anchor = AnchorFloating
					}
					paraIdx := paras[len(paras)-1].idx
					draws = append(draws, &drawState{
						paraIdx:    paraIdx,
						drawingIdx: paraDrawings[paraIdx],
						anchor:     anchor,
					})
					paraDrawings[paraIdx]++
				}
			case "docPr":
				if len(draws) > 0 {
					d := draws[len(draws)-1]
					for _, attr := range t.Attr {
						switch attr.Name.Local {
						case "title":
							d.altTitle = attr.Value
						case "descr":
							d.altDescr = attr.Value
						}
					}
				}
			case "blip":
				if len(draws) > 0 && draws[len(draws)-1].embed == "" {
					for _, attr := range t.Attr {
						if attr.Name.Local == "embed" {
							draws[len(draws)-1].embed = attr.Value
						}
					}
				}
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if (t.Name.Space == wordNS || t.Name.Space == "") && len(paras) > 0 {
					p := paras[len(paras)-1]
					paras = paras[:len(paras)-1]
					style := strings.ToLower(p.style)
					setUnit(p.idx, Unit{
						Text:    strings.TrimSpace(p.text.String()),
						Style:   p.style,
						Heading: strings.HasPrefix(style, "heading") || strings.HasPrefix(style, "title"),
					})
				}
			case "pPr":
				if len(paras) > 0 {
					paras[len(paras)-1].inPPr = false
				}
			case "t":
				inText = false
			case "inline", "anchor":
				if (t.Name.Space == wpNS || t.Name.Space == "") && len(draws) > 0 {
					d := draws[len(draws)-1]
					draws = draws[:len(draws)-1]

					rec, warn := finalizeFlowImage(d, rels, index, paraImages)
					if warn != nil {
						warnings = append(warnings, *warn)
					}
					if rec != nil {
						images = append(images, *rec)
					}
				}
			}

		case xml.CharData:
			if inText && len(paras) > 0 {
				paras[len(paras)-1].text.Write(t)
			}
		}
	}

	return units, images, warnings
}

// finalizeFlowImage resolves a completed drawing into an ImageRecord. Drawings
// without a blip (charts, shapes) are ignored; resolution failures produce a
// warning and no record.
func finalizeFlowImage(d *drawState, rels map[string]string, index map[string]*zip.File, paraImages map[int]int) (*ImageRecord, *Warning) {
	if d.embed == "" {
		return nil, nil
	}

	target, ok := rels[d.embed]
	if !ok {
		return nil, &Warning{
			ImageID: fmt.Sprintf("img-%d-%d", d.paraIdx, paraImages[d.paraIdx]),
			Message: fmt.Sprintf("unresolved image relationship %s in paragraph %d", d.embed, d.paraIdx),
		}
	}

	mediaPath := resolveMediaTarget("word", target)
	data, err := readPart(index, mediaPath)
	if err != nil {
		return nil, &Warning{
			ImageID: fmt.Sprintf("img-%d-%d", d.paraIdx, paraImages[d.paraIdx]),
			Message: fmt.Sprintf("image part %s unreadable: %v", mediaPath, err),
		}
	}

	format := formatFromExt(filepath.Ext(mediaPath))
	if format == "" {
		return nil, &Warning{
			ImageID: fmt.Sprintf("img-%d-%d", d.paraIdx, paraImages[d.paraIdx]),
			Message: fmt.Sprintf("unrecognized image format: %s", mediaPath),
		}
	}

	w, h := imageSize(data)

	seq := paraImages[d.paraIdx]
	paraImages[d.paraIdx]++
	id := fmt.Sprintf("img-%d-%d", d.paraIdx, seq)

	alt := d.altTitle
	if alt == "" {
		alt = d.altDescr
	}

	slog.Debug("extract: docx image",
		"image_id", id, "paragraph", d.paraIdx, "anchor", d.anchor,
		"format", format, "has_alt_text", alt != "")

	return &ImageRecord{
		ID:              id,
		Format:          format,
		Data:            data,
		SizeBytes:       len(data),
		Width:           w,
		Height:          h,
		PageNumber:      0, // flow documents have no page concept
		ExistingAltText: alt,
		Position: PositionDescriptor{
			Kind:      KindFlow,
			Paragraph: d.paraIdx,
			Drawing:   d.drawingIdx,
			Anchor:    d.anchor,
		},
	}, nil
}
