// Package report writes a spreadsheet describing every generated patch.
package report

import (
	"fmt"
	"image"

	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	SheetPatches   = "Patches"
	SheetUnmatched = "Unmatched"
	SheetSummary   = "Summary"
)

// Patch is one row of the Patches sheet.
type Patch struct {
	Area     string
	ID       string
	Row, Col int
	Matched  bool
	Record   string     // label of the matched dataset record
	Values   [3]float64 // reference colorimetry
	RGB      [3]uint16
	Box      image.Rectangle
}

// Stat is one name/value line of the Summary sheet.
type Stat struct {
	Name  string
	Value any
}

// Report is the content of a patch report.
type Report struct {
	Space   string // color space of Values, e.g. LAB
	Patches []Patch
	Summary []Stat
}

var unmatchedHeader = []any{"Area", "Patch", "Row", "Column"}

func (r *Report) patchHeader() []any {
	s := r.Space
	if s == "" {
		s = "Value"
	}
	return []any{
		"Area", "Patch", "Row", "Column", "Matched", "Record",
		s + " 1", s + " 2", s + " 3",
		"R16", "G16", "B16",
		"X", "Y", "Width", "Height",
	}
}

// Write saves r as an .xlsx workbook at path.
func Write(path string, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPatches); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", SheetPatches, err)
	}
	for _, name := range []string{SheetUnmatched, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	patches := [][]any{r.patchHeader()}
	unmatched := [][]any{unmatchedHeader}
	for _, p := range r.Patches {
		patches = append(patches, []any{
			p.Area, p.ID, p.Row + 1, p.Col + 1, p.Matched, p.Record,
			p.Values[0], p.Values[1], p.Values[2],
			int(p.RGB[0]), int(p.RGB[1]), int(p.RGB[2]),
			p.Box.Min.X, p.Box.Min.Y, p.Box.Dx(), p.Box.Dy(),
		})
		if !p.Matched {
			unmatched = append(unmatched, []any{p.Area, p.ID, p.Row + 1, p.Col + 1})
		}
	}
	summary := make([][]any, 0, len(r.Summary))
	for _, s := range r.Summary {
		summary = append(summary, []any{s.Name, s.Value})
	}

	for _, sheet := range []struct {
		name string
		rows [][]any
	}{
		{SheetPatches, patches},
		{SheetUnmatched, unmatched},
		{SheetSummary, summary},
	} {
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return err
		}
	}
	if err := f.SetPanes(SheetPatches, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
