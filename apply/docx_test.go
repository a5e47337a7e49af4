package apply

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dlambright03/picture-annotations-sub001/extract"
)

func writeZip(t *testing.T, path string, parts map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating package: %v", err)
	}
	w := zip.NewWriter(f)
	for name, data := range parts {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating entry %s: %v", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("writing entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func readZip(t *testing.T, path string) map[string][]byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening package: %v", err)
	}
	defer r.Close()

	parts := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading entry %s: %v", f.Name, err)
		}
		parts[f.Name] = data
	}
	return parts
}

const testDocXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
            xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"
            xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
            xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
            xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">
  <w:body>
    <w:p><w:r><w:t>Intro paragraph.</w:t></w:r></w:p>
    <w:p>
      <w:r><w:t>Text with an image.</w:t></w:r>
      <w:r><w:drawing><wp:inline>
        <wp:docPr id="1" name="Picture 1" descr="stale text"/>
        <a:graphic><a:graphicData><pic:pic><pic:blipFill>
          <a:blip r:embed="rId1"/>
        </pic:blipFill></pic:pic></a:graphicData></a:graphic>
      </wp:inline></w:drawing></w:r>
    </w:p>
  </w:body>
</w:document>`

func docxFixture(t *testing.T) (src string, parts map[string][]byte) {
	t.Helper()
	parts = map[string][]byte{
		"word/document.xml": []byte(testDocXML),
		"word/_rels/document.xml.rels": []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
</Relationships>`),
		"word/media/image1.png": []byte("not-a-real-png-payload"),
		"docProps/core.xml":     []byte(`<coreProperties><title>T</title></coreProperties>`),
	}
	src = filepath.Join(t.TempDir(), "src.docx")
	writeZip(t, src, parts)
	return src, parts
}

func flowUpdate(paragraph, drawing int, alt string) Update {
	return Update{
		ImageID: fmt.Sprintf("img-%d-%d", paragraph, drawing),
		Position: extract.PositionDescriptor{
			Kind:      extract.KindFlow,
			Paragraph: paragraph,
			Drawing:   drawing,
		},
		AltText: alt,
	}
}

func TestDOCXApplyRewritesAltText(t *testing.T) {
	src, before := docxFixture(t)
	dst := filepath.Join(t.TempDir(), "out.docx")

	w := &DOCXWriter{}
	failures, err := w.Apply(context.Background(), src, dst, []Update{
		flowUpdate(1, 0, "A bar chart of quarterly revenue by region."),
	})
	if err != nil {
		t.Fatalf("applying: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}

	after := readZip(t, dst)
	doc := string(after["word/document.xml"])
	if !strings.Contains(doc, `descr="A bar chart of quarterly revenue by region."`) {
		t.Errorf("descr not written:\n%s", doc)
	}
	if !strings.Contains(doc, `title="A bar chart of quarterly revenue by region."`) {
		t.Errorf("title not written:\n%s", doc)
	}
	if strings.Contains(doc, "stale text") {
		t.Error("old descr attribute survived the rewrite")
	}
	// The rest of the tag is untouched.
	if !strings.Contains(doc, `id="1" name="Picture 1"`) {
		t.Error("unrelated docPr attributes were disturbed")
	}

	// Unmodified parts are preserved byte for byte.
	for name, data := range before {
		if name == "word/document.xml" {
			continue
		}
		if string(after[name]) != string(data) {
			t.Errorf("part %s changed during reassembly", name)
		}
	}
}

func TestDOCXApplyPreservesDocumentStructure(t *testing.T) {
	src, _ := docxFixture(t)
	dst := filepath.Join(t.TempDir(), "out.docx")

	w := &DOCXWriter{}
	if _, err := w.Apply(context.Background(), src, dst, []Update{
		flowUpdate(1, 0, "New text."),
	}); err != nil {
		t.Fatalf("applying: %v", err)
	}

	doc := string(readZip(t, dst)["word/document.xml"])
	for _, fragment := range []string{
		"<w:t>Intro paragraph.</w:t>",
		"<w:t>Text with an image.</w:t>",
		`<a:blip r:embed="rId1"/>`,
	} {
		if !strings.Contains(doc, fragment) {
			t.Errorf("document content lost: %s", fragment)
		}
	}
}

func TestDOCXApplyEscapesAttributeText(t *testing.T) {
	src, _ := docxFixture(t)
	dst := filepath.Join(t.TempDir(), "out.docx")

	w := &DOCXWriter{}
	if _, err := w.Apply(context.Background(), src, dst, []Update{
		flowUpdate(1, 0, `Graph titled "P&L <2024>".`),
	}); err != nil {
		t.Fatalf("applying: %v", err)
	}

	doc := string(readZip(t, dst)["word/document.xml"])
	if !strings.Contains(doc, `descr="Graph titled &quot;P&amp;L &lt;2024&gt;&quot;."`) {
		t.Errorf("attribute text not escaped:\n%s", doc)
	}
}

func TestDOCXApplyDecorativeWritesEmptyAlt(t *testing.T) {
	src, _ := docxFixture(t)
	dst := filepath.Join(t.TempDir(), "out.docx")

	u := flowUpdate(1, 0, "ignored")
	u.Decorative = true

	w := &DOCXWriter{}
	if _, err := w.Apply(context.Background(), src, dst, []Update{u}); err != nil {
		t.Fatalf("applying: %v", err)
	}

	doc := string(readZip(t, dst)["word/document.xml"])
	if !strings.Contains(doc, `descr="" title=""`) {
		t.Errorf("decorative image should get empty alt attributes:\n%s", doc)
	}
}

func TestDOCXApplyReportsUnresolvedPosition(t *testing.T) {
	src, _ := docxFixture(t)
	dst := filepath.Join(t.TempDir(), "out.docx")

	w := &DOCXWriter{}
	failures, err := w.Apply(context.Background(), src, dst, []Update{
		flowUpdate(1, 0, "Applies fine."),
		flowUpdate(7, 0, "No such paragraph."),
	})
	if err != nil {
		t.Fatalf("applying: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %+v", failures)
	}
	if failures[0].ImageID != "img-7-0" {
		t.Errorf("wrong failed image: %+v", failures[0])
	}

	// The good update still lands.
	doc := string(readZip(t, dst)["word/document.xml"])
	if !strings.Contains(doc, `descr="Applies fine."`) {
		t.Error("valid update was not applied")
	}
}

func TestDOCXApplyRoundTripsThroughExtraction(t *testing.T) {
	// Build a document with a real PNG so re-extraction succeeds, apply alt
	// text, and confirm the extractor reads it back at the same position.
	imgData := pngPayload(t)
	parts := map[string][]byte{
		"word/document.xml": []byte(testDocXML),
		"word/_rels/document.xml.rels": []byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
</Relationships>`),
		"word/media/image1.png": imgData,
	}
	src := filepath.Join(t.TempDir(), "src.docx")
	writeZip(t, src, parts)
	dst := filepath.Join(t.TempDir(), "out.docx")

	const alt = "A labeled wiring diagram for the control unit."
	w := &DOCXWriter{}
	failures, err := w.Apply(context.Background(), src, dst, []Update{flowUpdate(1, 0, alt)})
	if err != nil || len(failures) != 0 {
		t.Fatalf("applying: err=%v failures=%+v", err, failures)
	}

	e := &extract.DOCXExtractor{}
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
	if img.Position.Paragraph != 1 || img.Position.Drawing != 0 {
		t.Errorf("position drifted after reassembly: %+v", img.Position)
	}
}
