package apply

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
)

// PPTXWriter writes alt text into slide parts. Updates are addressed by
// (slide index, shape index), where the shape index counts picture shapes
// only in z-order, matching extraction. Each targeted slide's cNvPr start tag
// gets its descr and title attributes rewritten; all other slides are copied
// through raw.
type PPTXWriter struct{}

func (w *PPTXWriter) Apply(ctx context.Context, src, dst string, updates []Update) ([]Failure, error) {
	bySlide := make(map[int]map[int]Update)
	var failures []Failure
	for _, u := range updates {
		if u.Position.Kind != extractKindSlide {
			failures = append(failures, Failure{
				ImageID: u.ImageID,
				Reason:  fmt.Sprintf("position kind %q is not addressable in a slide document", u.Position.Kind),
			})
			continue
		}
		if bySlide[u.Position.Slide] == nil {
			bySlide[u.Position.Slide] = make(map[int]Update)
		}
		bySlide[u.Position.Slide][u.Position.Shape] = u
	}

	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReassembly, err)
	}
	defer r.Close()

	slideIdxByName := slideIndexByPartName(r.File)

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReassembly, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	appliedTotal := 0

	for _, f := range r.File {
		slideIdx, isSlide := slideIdxByName[f.Name]
		var targets map[int]Update
		if isSlide {
			targets = bySlide[slideIdx]
		}
		if len(targets) == 0 {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("%w: copying part %s: %v", ErrReassembly, f.Name, err)
			}
			continue
		}

		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrReassembly, f.Name, err)
		}

		applied := make(map[int]bool)
		rewritten := rewriteSlideXML(data, targets, applied)
		pw, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReassembly, err)
		}
		if _, err := pw.Write(rewritten); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReassembly, err)
		}

		for shapeIdx, u := range targets {
			if !applied[shapeIdx] {
				failures = append(failures, Failure{
					ImageID: u.ImageID,
					Reason:  fmt.Sprintf("picture shape %d not found on slide %d", shapeIdx, slideIdx),
				})
			}
		}
		appliedTotal += len(applied)
		delete(bySlide, slideIdx)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReassembly, err)
	}

	for slideIdx, targets := range bySlide {
		for _, u := range targets {
			failures = append(failures, Failure{
				ImageID: u.ImageID,
				Reason:  fmt.Sprintf("slide %d not found in document", slideIdx),
			})
		}
	}

	slog.Info("apply: pptx written",
		"output", dst,
		"applied", appliedTotal,
		"failed", len(failures))
	return failures, nil
}

// slideIndexByPartName maps slide part names to zero-based slide indices in
// slide-number order, the same ordering extraction assigns.
func slideIndexByPartName(files []*zip.File) map[string]int {
	type numbered struct {
		num  int
		name string
	}
	var parts []numbered
	for _, f := range files {
		name := f.Name
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

	index := make(map[string]int, len(parts))
	for i, p := range parts {
		index[p.name] = i
	}
	return index
}

// rewriteSlideXML rewrites the cNvPr start tag of each targeted picture
// shape. Only the first cNvPr inside a p:pic element is the picture's own
// property tag; later ones belong to nested elements and are left alone.
func rewriteSlideXML(data []byte, targets map[int]Update, applied map[int]bool) []byte {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	type openPic struct {
		shapeIdx int
		done     bool
	}

	var (
		edits    []edit
		pics     []*openPic
		picCount int
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
			case "pic":
				pics = append(pics, &openPic{shapeIdx: picCount})
				picCount++
			case "cNvPr":
				if len(pics) == 0 {
					break
				}
				p := pics[len(pics)-1]
				if p.done {
					break
				}
				p.done = true
				if u, ok := targets[p.shapeIdx]; ok {
					raw := string(data[prevOffset:curOffset])
					edits = append(edits, edit{
						start: prevOffset,
						end:   curOffset,
						text:  setAltAttrs(raw, u.altText()),
					})
					applied[p.shapeIdx] = true
				}
			}
		case xml.EndElement:
			if t.Name.Local == "pic" && len(pics) > 0 {
				pics = pics[:len(pics)-1]
			}
		}
	}

	if len(edits) == 0 {
		return data
	}
	return splice(data, edits)
}
