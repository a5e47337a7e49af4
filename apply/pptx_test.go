package apply

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dlambright03/picture-annotations-sub001/extract"
)

// pngPayload encodes a small real PNG for round-trip tests.
func pngPayload(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

const testSlideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:cSld><p:spTree>
    <p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
      <p:txBody><a:p><a:r><a:t>Results</a:t></a:r></a:p></p:txBody></p:sp>
    <p:pic>
      <p:nvPicPr><p:cNvPr id="4" name="Picture 3" descr="old alt"/></p:nvPicPr>
      <p:blipFill><a:blip r:embed="rId2"/></p:blipFill>
      <p:spPr><a:xfrm><a:off x="914400" y="914400"/><a:ext cx="1828800" cy="914400"/></a:xfrm></p:spPr>
    </p:pic>
  </p:spTree></p:cSld>
</p:sld>`

func pptxFixture(t *testing.T, imgData []byte) (string, map[string][]byte) {
	t.Helper()
	parts := map[string][]byte{
		"ppt/slides/slide1.xml": []byte(testSlideXML),
		"ppt/slides/_rels/slide1.xml.rels": []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
</Relationships>`),
		"ppt/media/image1.png": imgData,
	}
	src := filepath.Join(t.TempDir(), "src.pptx")
	writeZip(t, src, parts)
	return src, parts
}

func slideUpdate(slide, shape int, alt string) Update {
	return Update{
		ImageID: fmt.Sprintf("slide%d_shape%d", slide, shape),
		Position: extract.PositionDescriptor{
			Kind:  extract.KindSlide,
			Slide: slide,
			Shape: shape,
		},
		AltText: alt,
	}
}

func TestPPTXApplyRewritesShapeAlt(t *testing.T) {
	src, before := pptxFixture(t, []byte("fake-image"))
	dst := filepath.Join(t.TempDir(), "out.pptx")

	w := &PPTXWriter{}
	failures, err := w.Apply(context.Background(), src, dst, []Update{
		slideUpdate(0, 0, "A column chart comparing test pass rates."),
	})
	if err != nil {
		t.Fatalf("applying: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}

	after := readZip(t, dst)
	slide := string(after["ppt/slides/slide1.xml"])
	if !strings.Contains(slide, `descr="A column chart comparing test pass rates."`) {
		t.Errorf("descr not written:\n%s", slide)
	}
	if strings.Contains(slide, "old alt") {
		t.Error("old descr survived the rewrite")
	}
	// The title shape's cNvPr is not a picture property tag.
	if !strings.Contains(slide, `<p:cNvPr id="2" name="Title 1"/>`) {
		t.Error("non-picture cNvPr was disturbed")
	}

	for name, data := range before {
		if name == "ppt/slides/slide1.xml" {
			continue
		}
		if string(after[name]) != string(data) {
			t.Errorf("part %s changed during reassembly", name)
		}
	}
}

func TestPPTXApplyReportsMissingSlideAndShape(t *testing.T) {
	src, _ := pptxFixture(t, []byte("fake-image"))
	dst := filepath.Join(t.TempDir(), "out.pptx")

	w := &PPTXWriter{}
	failures, err := w.Apply(context.Background(), src, dst, []Update{
		slideUpdate(0, 5, "No such shape."),
		slideUpdate(3, 0, "No such slide."),
	})
	if err != nil {
		t.Fatalf("applying: %v", err)
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", failures)
	}
	reasons := failures[0].Reason + " " + failures[1].Reason
	if !strings.Contains(reasons, "shape") || !strings.Contains(reasons, "slide") {
		t.Errorf("unexpected failure reasons: %+v", failures)
	}
}

func TestPPTXApplyRejectsFlowPositions(t *testing.T) {
	src, _ := pptxFixture(t, []byte("fake-image"))
	dst := filepath.Join(t.TempDir(), "out.pptx")

	w := &PPTXWriter{}
	failures, err := w.Apply(context.Background(), src, dst, []Update{
		{
			ImageID:  "img-2-0",
			Position: extract.PositionDescriptor{Kind: extract.KindFlow, Paragraph: 2},
			AltText:  "Wrong document kind.",
		},
	})
	if err != nil {
		t.Fatalf("applying: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %+v", failures)
	}
}

func TestPPTXApplyRoundTripsThroughExtraction(t *testing.T) {
	src, _ := pptxFixture(t, pngPayload(t))
	dst := filepath.Join(t.TempDir(), "out.pptx")

	const alt = "A network diagram with three redundant links."
	w := &PPTXWriter{}
	failures, err := w.Apply(context.Background(), src, dst, []Update{slideUpdate(0, 0, alt)})
	if err != nil || len(failures) != 0 {
		t.Fatalf("applying: err=%v failures=%+v", err, failures)
	}

	e := &extract.PPTXExtractor{}
	result, err := e.Extract(context.Background(), dst)
	if err != nil {
		t.Fatalf("re-extracting: %v", err)
	}
	if len(result.Images) != 1 {
		t.Fatalf("expected 1 image after round trip, got %d", len(result.Images))
	}
	img := result.Images[0]
	if img.ExistingAltText != alt {
		t.Errorf("expected alt %q, got %q", alt, img.ExistingAltText)
	}
	if img.Position.Slide != 0 || img.Position.Shape != 0 {
		t.Errorf("position drifted: %+v", img.Position)
	}
	if img.Position.LeftEMU != 914400 || img.Position.WidthEMU != 1828800 {
		t.Errorf("geometry drifted: %+v", img.Position)
	}
}
