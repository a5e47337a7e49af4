package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dlambright03/picture-annotations-sub001/record"
)

const sheetName = "Alt Text"

// WriteXLSX writes the review spreadsheet: one row per image with status,
// generated text, and usage, plus a summary block at the top.
func WriteXLSX(path string, f *record.File) error {
	s := Summarize(f)

	wb := excelize.NewFile()
	defer wb.Close()

	wb.SetSheetName("Sheet1", sheetName)

	bold, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	summary := [][]any{
		{"Source document", f.SourceDocument},
		{"Document type", f.DocumentType},
		{"Model", f.Model},
		{"Images found", s.Total},
		{"Accepted", s.Accepted},
		{"Rejected", s.Rejected},
		{"Decorative", s.Decorative},
		{"Tokens used", s.Tokens},
		{"Estimated cost (USD)", s.CostUSD},
	}
	for i, row := range summary {
		cellRef := fmt.Sprintf("A%d", i+1)
		if err := wb.SetSheetRow(sheetName, cellRef, &row); err != nil {
			return fmt.Errorf("writing summary row: %w", err)
		}
	}
	wb.SetCellStyle(sheetName, "A1", fmt.Sprintf("A%d", len(summary)), bold)

	headerRow := len(summary) + 2
	header := []any{"Image ID", "Location", "Status", "Alt Text", "Existing Alt Text", "Warnings", "Tokens", "Cost (USD)"}
	if err := wb.SetSheetRow(sheetName, fmt.Sprintf("A%d", headerRow), &header); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}
	wb.SetCellStyle(sheetName, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("H%d", headerRow), bold)

	for i, e := range f.Entries {
		row := []any{
			e.ImageID,
			location(e),
			status(e),
			e.AltText,
			e.ExistingAltText,
			strings.Join(e.Warnings, "; "),
			e.Metrics.TotalTokens,
			e.Metrics.CostUSD,
		}
		cellRef := fmt.Sprintf("A%d", headerRow+1+i)
		if err := wb.SetSheetRow(sheetName, cellRef, &row); err != nil {
			return fmt.Errorf("writing image row %s: %w", e.ImageID, err)
		}
	}

	wb.SetColWidth(sheetName, "A", "A", 18)
	wb.SetColWidth(sheetName, "B", "C", 22)
	wb.SetColWidth(sheetName, "D", "E", 60)
	wb.SetColWidth(sheetName, "F", "F", 40)

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("saving spreadsheet: %w", err)
	}
	return nil
}
