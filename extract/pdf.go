package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts images and page text from PDF documents. PDF is an
// extraction-only format: there is no reassembly writer for it, so it is used
// for analysis and report generation, never for writing alt text back.
type PDFExtractor struct{}

func (e *PDFExtractor) SupportedFormats() []string { return []string{"pdf"} }

func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContainer, err)
	}
	defer f.Close()

	var (
		slides   []SlideText
		images   []ImageRecord
		warnings []Warning
	)

	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		var texts []string
		if t := strings.TrimSpace(text); t != "" {
			texts = append(texts, t)
		}
		slides = append(slides, SlideText{Number: i, Texts: texts})

		pageImages, pageWarnings := pdfPageImages(page, i)
		images = append(images, pageImages...)
		warnings = append(warnings, pageWarnings...)
	}

	slog.Info("extract: pdf complete",
		"file", filepath.Base(path),
		"pages", totalPages,
		"images", len(images),
		"warnings", len(warnings))

	return &Result{
		Format:   "PDF",
		Metadata: Metadata{Filename: filepath.Base(path)},
		Tree:     &Tree{Kind: KindSlide, Slides: slides},
		Images:   images,
		Warnings: warnings,
	}, nil
}

// pdfPageImages enumerates image XObjects on a page. Payloads are read where
// the stream filter is supported; otherwise the record carries dimensions
// only and a warning notes the omission.
func pdfPageImages(page pdf.Page, pageNum int) ([]ImageRecord, []Warning) {
	var (
		images   []ImageRecord
		warnings []Warning
	)

	xobjs := page.V.Key("Resources").Key("XObject")
	if xobjs.Kind() != pdf.Dict && xobjs.Kind() != pdf.Stream {
		return nil, nil
	}

	seq := 0
	for _, name := range xobjs.Keys() {
		obj := xobjs.Key(name)
		if obj.Key("Subtype").Name() != "Image" {
			continue
		}

		id := fmt.Sprintf("page%d_image%d", pageNum-1, seq)
		w := int(obj.Key("Width").Int64())
		h := int(obj.Key("Height").Int64())

		data, warn := pdfStreamBytes(obj)
		if warn != "" {
			warnings = append(warnings, Warning{ImageID: id, Message: warn})
		}

		format := pdfImageFormat(obj)

		images = append(images, ImageRecord{
			ID:         id,
			Format:     format,
			Data:       data,
			SizeBytes:  len(data),
			Width:      w,
			Height:     h,
			PageNumber: pageNum,
			Position: PositionDescriptor{
				Kind:  KindSlide,
				Slide: pageNum - 1,
				Shape: seq,
			},
		})
		seq++
	}

	return images, warnings
}

// pdfStreamBytes reads an image stream, recovering from the reader's panic
// on unsupported filters.
func pdfStreamBytes(obj pdf.Value) (data []byte, warn string) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			warn = fmt.Sprintf("image stream filter unsupported, payload omitted: %v", r)
		}
	}()

	rc := obj.Reader()
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Sprintf("reading image stream: %v", err)
	}
	return b, ""
}

// pdfImageFormat guesses the declared format from the stream filter.
func pdfImageFormat(obj pdf.Value) string {
	filter := obj.Key("Filter")
	names := []string{filter.Name()}
	if filter.Kind() == pdf.Array {
		names = names[:0]
		for i := 0; i < filter.Len(); i++ {
			names = append(names, filter.Index(i).Name())
		}
	}
	for _, n := range names {
		switch n {
		case "DCTDecode":
			return "JPEG"
		case "JPXDecode":
			return "JPEG2000"
		}
	}
	return "RAW"
}
