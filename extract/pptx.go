package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PPTXExtractor extracts images from PowerPoint presentations. Shapes carry
// absolute geometry, so position descriptors record slide index, picture
// sequence, and the shape's EMU offsets directly. The slide's title
// placeholder text is captured once per slide and shared by all of the
// slide's images.
type PPTXExtractor struct{}

func (e *PPTXExtractor) SupportedFormats() []string { return []string{"pptx"} }

func (e *PPTXExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	r, index, err := openContainer(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	slideNames := sortedSlideParts(index)
	if len(slideNames) == 0 {
		return nil, fmt.Errorf("%w: no slides found", ErrContainer)
	}

	md := parseCoreProperties(index, path)

	var (
		images   []ImageRecord
		warnings []Warning
		slides   []SlideText
	)

	for slideIdx, name := range slideNames {
		data, err := readPart(index, name)
		if err != nil {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("slide part %s unreadable: %v", name, err),
			})
			continue
		}

		title, texts := slideTextContent(data)
		slides = append(slides, SlideText{
			Number: slideIdx + 1,
			Title:  title,
			Texts:  texts,
		})

		relsPath := fmt.Sprintf("ppt/slides/_rels/%s.rels", filepath.Base(name))
		rels := parseRelationships(index, relsPath)

		slideImages, slideWarnings := slidePictures(data, slideIdx, rels, index)
		images = append(images, slideImages...)
		warnings = append(warnings, slideWarnings...)
	}

	slog.Info("extract: pptx complete",
		"file", filepath.Base(path),
		"slides", len(slides),
		"images", len(images),
		"warnings", len(warnings))

	return &Result{
		Format:   "PPTX",
		Metadata: md,
		Tree:     &Tree{Kind: KindSlide, Slides: slides},
		Images:   images,
		Warnings: warnings,
	}, nil
}

// sortedSlideParts returns slide part names ordered by slide number.
func sortedSlideParts(index map[string]*zip.File) []string {
	type numbered struct {
		num  int
		name string
	}
	var parts []numbered
	for name := range index {
		if !strings.HasPrefix(name, "ppt/slides/slide") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
		num, err := strconv.Atoi(numStr)
		if err != nil || num <= 0 {
			continue
		}
		parts = append(parts, numbered{num, name})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].num < parts[j].num })

	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.name
	}
	return names
}

// slideTextContent collects the title placeholder text and all shape texts
// from one slide, in shape order.
func slideTextContent(slideXML []byte) (title string, texts []string) {
	decoder := xml.NewDecoder(bytes.NewReader(slideXML))

	var (
		spDepth int
		isTitle bool
		inT     bool
		current strings.Builder
	)

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				spDepth++
				if spDepth == 1 {
					isTitle = false
					current.Reset()
				}
			case "ph":
				if spDepth > 0 {
					for _, attr := range t.Attr {
						if attr.Name.Local == "type" && (attr.Value == "title" || attr.Value == "ctrTitle") {
							isTitle = true
						}
					}
				}
			case "t":
				if spDepth > 0 {
					inT = true
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "sp":
				if spDepth > 0 {
					spDepth--
					if spDepth == 0 {
						text := strings.TrimSpace(current.String())
						if text != "" {
							texts = append(texts, text)
							if isTitle && title == "" {
								title = text
							}
						}
					}
				}
			case "t":
				inT = false
			}
		case xml.CharData:
			if inT {
				current.Write(t)
				current.WriteByte(' ')
			}
		}
	}
	return title, texts
}

// picState tracks one open p:pic element during the picture pass.
type picState struct {
	shapeIdx int
	name     string
	altTitle string
	altDescr string
	embed    string
	left     int64
	top      int64
	width    int64
	height   int64
	rotation int64
	inXfrm   bool
	haveGeom bool
}

// slidePictures extracts picture shapes from one slide's XML. Shape indices
// count picture shapes only, in z-order (document order within spTree), which
// is how the reassembly writer re-resolves them.
func slidePictures(slideXML []byte, slideIdx int, rels map[string]string, index map[string]*zip.File) ([]ImageRecord, []Warning) {
	decoder := xml.NewDecoder(bytes.NewReader(slideXML))

	var (
		images   []ImageRecord
		warnings []Warning
		pics     []*picState
		picCount int
	)

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pic":
				pics = append(pics, &picState{shapeIdx: picCount})
				picCount++
			case "cNvPr":
				if len(pics) > 0 {
					p := pics[len(pics)-1]
					if p.name == "" && p.altTitle == "" && p.altDescr == "" {
						for _, attr := range t.Attr {
							switch attr.Name.Local {
							case "name":
								p.name = attr.Value
							case "title":
								p.altTitle = attr.Value
							case "descr":
								p.altDescr = attr.Value
							}
						}
					}
				}
			case "blip":
				if len(pics) > 0 && pics[len(pics)-1].embed == "" {
					for _, attr := range t.Attr {
						if attr.Name.Local == "embed" {
							pics[len(pics)-1].embed = attr.Value
						}
					}
				}
			case "xfrm":
				if len(pics) > 0 && !pics[len(pics)-1].haveGeom {
					p := pics[len(pics)-1]
					p.inXfrm = true
					for _, attr := range t.Attr {
						if attr.Name.Local == "rot" {
							p.rotation, _ = strconv.ParseInt(attr.Value, 10, 64)
						}
					}
				}
			case "off":
				if len(pics) > 0 && pics[len(pics)-1].inXfrm {
					p := pics[len(pics)-1]
					for _, attr := range t.Attr {
						switch attr.Name.Local {
						case "x":
							p.left, _ = strconv.ParseInt(attr.Value, 10, 64)
						case "y":
							p.top, _ = strconv.ParseInt(attr.Value, 10, 64)
						}
					}
				}
			case "ext":
				if len(pics) > 0 && pics[len(pics)-1].inXfrm {
					p := pics[len(pics)-1]
					for _, attr := range t.Attr {
						switch attr.Name.Local {
						case "cx":
							p.width, _ = strconv.ParseInt(attr.Value, 10, 64)
						case "cy":
							p.height, _ = strconv.ParseInt(attr.Value, 10, 64)
						}
					}
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "xfrm":
				if len(pics) > 0 && pics[len(pics)-1].inXfrm {
					pics[len(pics)-1].inXfrm = false
					pics[len(pics)-1].haveGeom = true
				}
			case "pic":
				if len(pics) > 0 {
					p := pics[len(pics)-1]
					pics = pics[:len(pics)-1]

					rec, warn := finalizeSlideImage(p, slideIdx, rels, index)
					if warn != nil {
						warnings = append(warnings, *warn)
					}
					if rec != nil {
						images = append(images, *rec)
					}
				}
			}
		}
	}

	return images, warnings
}

// finalizeSlideImage resolves a completed picture shape into an ImageRecord.
func finalizeSlideImage(p *picState, slideIdx int, rels map[string]string, index map[string]*zip.File) (*ImageRecord, *Warning) {
	id := fmt.Sprintf("slide%d_shape%d", slideIdx, p.shapeIdx)

	if p.embed == "" {
		return nil, &Warning{ImageID: id, Message: "picture shape has no image reference"}
	}

	target, ok := rels[p.embed]
	if !ok {
		return nil, &Warning{
			ImageID: id,
			Message: fmt.Sprintf("unresolved image relationship %s on slide %d", p.embed, slideIdx),
		}
	}

	mediaPath := resolveMediaTarget("ppt/slides", target)
	data, err := readPart(index, mediaPath)
	if err != nil {
		return nil, &Warning{
			ImageID: id,
			Message: fmt.Sprintf("image part %s unreadable: %v", mediaPath, err),
		}
	}

	format := formatFromExt(filepath.Ext(mediaPath))
	if format == "" {
		return nil, &Warning{
			ImageID: id,
			Message: fmt.Sprintf("unrecognized image format: %s", mediaPath),
		}
	}

	w, h := imageSize(data)

	slog.Debug("extract: pptx image",
		"image_id", id, "slide", slideIdx, "shape", p.shapeIdx,
		"format", format, "has_alt_text", existingShapeAlt(p) != "")

	return &ImageRecord{
		ID:              id,
		Format:          format,
		Data:            data,
		SizeBytes:       len(data),
		Width:           w,
		Height:          h,
		PageNumber:      slideIdx + 1,
		ExistingAltText: existingShapeAlt(p),
		Position: PositionDescriptor{
			Kind:      KindSlide,
			Slide:     slideIdx,
			Shape:     p.shapeIdx,
			LeftEMU:   p.left,
			TopEMU:    p.top,
			WidthEMU:  p.width,
			HeightEMU: p.height,
			Rotation:  p.rotation,
		},
	}, nil
}

// existingShapeAlt returns pre-existing alt text for a picture shape. The
// shape name counts only when it is not a default auto-generated name.
func existingShapeAlt(p *picState) string {
	if name := strings.TrimSpace(p.name); name != "" &&
		!strings.HasPrefix(name, "Picture") && !strings.HasPrefix(name, "Image") {
		return name
	}
	if t := strings.TrimSpace(p.altTitle); t != "" {
		return t
	}
	return strings.TrimSpace(p.altDescr)
}
