package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// openContainer opens a zip-based document package and builds a part index.
// Any failure here is a container error: no partial structure can be trusted.
func openContainer(path string) (*zip.ReadCloser, map[string]*zip.File, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrContainer, err)
	}

	index := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		index[f.Name] = f
	}
	return r, index, nil
}

// readPart reads one part of the package into memory.
func readPart(index map[string]*zip.File, name string) ([]byte, error) {
	zf := index[name]
	if zf == nil {
		return nil, fmt.Errorf("part not found: %s", name)
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// relationships represents an OOXML .rels part.
type relationships struct {
	XMLName xml.Name       `xml:"Relationships"`
	Rels    []relationship `xml:"Relationship"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
	Type   string `xml:"Type,attr"`
}

// parseRelationships reads a .rels part and returns a map of rId -> target.
// A missing or malformed rels part yields a nil map, not an error: images
// referencing it are skipped individually with warnings.
func parseRelationships(index map[string]*zip.File, relsPath string) map[string]string {
	data, err := readPart(index, relsPath)
	if err != nil {
		return nil
	}

	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil
	}

	result := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		result[rel.ID] = rel.Target
	}
	return result
}

// coreProperties is the docProps/core.xml structure shared by DOCX and PPTX.
type coreProperties struct {
	XMLName xml.Name `xml:"coreProperties"`
	Title   string   `xml:"title"`
	Subject string   `xml:"subject"`
	Creator string   `xml:"creator"`
}

// parseCoreProperties extracts document metadata from docProps/core.xml.
// Absent or unreadable metadata is not an error; the fields stay empty.
func parseCoreProperties(index map[string]*zip.File, path string) Metadata {
	md := Metadata{Filename: filepath.Base(path)}

	data, err := readPart(index, "docProps/core.xml")
	if err != nil {
		return md
	}

	var props coreProperties
	if err := xml.Unmarshal(data, &props); err != nil {
		return md
	}

	md.Title = strings.TrimSpace(props.Title)
	md.Subject = strings.TrimSpace(props.Subject)
	md.Author = strings.TrimSpace(props.Creator)
	return md
}

// resolveMediaTarget turns a relationship target relative to baseDir into a
// normalized zip part name.
func resolveMediaTarget(baseDir, target string) string {
	p := filepath.Clean(baseDir + "/" + target)
	return strings.ReplaceAll(p, "\\", "/")
}

// formatFromExt maps an image file extension to its declared format name.
// Returns "" for extensions that are not images.
func formatFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPEG"
	case ".gif":
		return "GIF"
	case ".bmp":
		return "BMP"
	case ".tiff", ".tif":
		return "TIFF"
	case ".emf":
		return "EMF"
	case ".wmf":
		return "WMF"
	default:
		return ""
	}
}

// imageSize returns the pixel dimensions of an encoded image, or zeros for
// formats without a registered decoder (EMF, WMF).
func imageSize(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
