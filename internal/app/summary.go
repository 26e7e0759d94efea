package app

import (
	"fmt"
	"io"
	"strings"

	"rectarg/internal/labels"
	"rectarg/internal/report"
)

// maxListed bounds the unmatched identifiers printed outside verbose mode.
const maxListed = 50

// AreaSummary reports one patch area.
type AreaSummary struct {
	Name      string
	Patches   int
	Unmatched int // gray patches, for any reason
	Sides     labels.Sides
	Manual    bool
}

// CountCheck compares the patch counts declared by the layout and the
// dataset with the number of records actually read.
type CountCheck struct {
	Chart    int // EXPECTED in the layout, 0 if absent
	Declared int // NUMBER_OF_SETS, 0 if absent
	Measured int // data rows, including dropped duplicates
}

// Problem describes a count mismatch, or returns "" when the counts agree
// or are not declared.
func (c CountCheck) Problem() string {
	if c.Chart > 0 && c.Declared > 0 && c.Chart != c.Declared {
		return "layout and dataset disagree on the expected patch count"
	}
	if c.Declared > 0 && c.Declared != c.Measured {
		return "dataset contains a different number of measured patches than declared"
	}
	if c.Chart > 0 && c.Declared == 0 && c.Chart != c.Measured {
		return "dataset contains a different number of measured patches than the layout expects"
	}
	return ""
}

// Summary holds the counts of a run.
type Summary struct {
	Patches      int
	Matched      int
	Unmatched    int // no record in the dataset
	MissingColor int // record without a usable color triple
	Duplicates   int
	Areas        []AreaSummary
	Counts       CountCheck

	BackgroundFound bool
}

// Gray returns the number of patches painted with the placeholder color.
func (s Summary) Gray() int { return s.Unmatched + s.MissingColor }

func (r *Result) summarize() {
	s := &r.Summary
	s.Duplicates = len(r.Data.Duplicates)
	s.Counts = CountCheck{
		Declared: r.Data.DeclaredSets,
		Measured: r.Data.Len() + len(r.Data.Duplicates),
	}
	if e := r.Chart.Expected; e != nil {
		s.Counts.Chart = e.Count
	}

	byArea := make(map[string]*AreaSummary, len(r.Chart.Areas))
	s.Areas = make([]AreaSummary, len(r.Chart.Areas))
	for i, a := range r.Chart.Areas {
		s.Areas[i] = AreaSummary{Name: a.Name}
		if i < len(r.Decisions) {
			s.Areas[i].Sides = r.Decisions[i].Sides
			s.Areas[i].Manual = r.Decisions[i].Manual
		}
		byArea[a.Name] = &s.Areas[i]
	}

	for _, p := range r.Patches {
		s.Patches++
		as := byArea[p.Area]
		as.Patches++
		switch {
		case p.Err == nil:
			s.Matched++
		case p.Record != nil:
			s.MissingColor++
			as.Unmatched++
		default:
			s.Unmatched++
			as.Unmatched++
		}
	}
}

// Print writes the human-readable run summary. Unmatched identifiers are
// listed in full when verbose, otherwise up to maxListed.
func (r *Result) Print(w io.Writer, verbose bool) {
	tr := r.Transform
	s := r.Summary

	if r.Config.OutputPath != "" {
		fmt.Fprintf(w, "Saved: %s  (%d x %d px @ %d dpi)  (mapping: %s)\n",
			r.Config.OutputPath, tr.Canvas.X, tr.Canvas.Y, tr.DPI, tr.Mode)
	}
	fmt.Fprintf(w, "Reference resolution: %d dpi, scale %.6f x %.6f\n", tr.ReferenceDPI, tr.ScaleX(), tr.ScaleY())
	fmt.Fprintf(w, "Patches: %d, matched %d, unmatched %d, missing color %d\n",
		s.Patches, s.Matched, s.Unmatched, s.MissingColor)
	for _, a := range s.Areas {
		mode := "auto"
		if a.Manual {
			mode = "manual"
		}
		fmt.Fprintf(w, "  Area %-4s %4d patches, %3d unmatched, labels %s (%s)\n",
			a.Name, a.Patches, a.Unmatched, a.Sides, mode)
	}
	if s.Duplicates > 0 {
		fmt.Fprintf(w, "Duplicate identifiers dropped: %d\n", s.Duplicates)
	}

	if p := s.Counts.Problem(); p != "" {
		fmt.Fprintln(w, "Patch count mismatch:")
		fmt.Fprintf(w, "   layout EXPECTED:   %d\n", s.Counts.Chart)
		fmt.Fprintf(w, "   dataset declared:  %d\n", s.Counts.Declared)
		fmt.Fprintf(w, "   dataset measured:  %d\n", s.Counts.Measured)
		fmt.Fprintf(w, "   -> %s\n", p)
	}

	if s.Gray() == 0 {
		return
	}
	fmt.Fprintln(w, "Patches without reference color:")
	listed := 0
	for _, p := range r.Patches {
		if !p.Gray() {
			continue
		}
		if !verbose && listed == maxListed {
			fmt.Fprintf(w, "   ... and %d more\n", s.Gray()-listed)
			break
		}
		fmt.Fprintf(w, "   %s/%s (%s)\n", p.Area, p.ID, unmatchedReason(p.Err))
		listed++
	}
}

// Report builds the spreadsheet report.
func (r *Result) Report() *report.Report {
	rep := &report.Report{Space: strings.ToUpper(r.Data.Space.String())}
	for _, p := range r.Patches {
		rp := report.Patch{
			Area:    p.Area,
			ID:      p.ID.String(),
			Row:     p.Row,
			Col:     p.Col,
			Matched: p.Err == nil,
			RGB:     [3]uint16{p.Color.R, p.Color.G, p.Color.B},
			Box:     p.Box,
		}
		if p.Record != nil {
			rp.Record = p.Record.Label
			rp.Values = p.Record.Color
		}
		rep.Patches = append(rep.Patches, rp)
	}

	s := r.Summary
	tr := r.Transform
	rep.Summary = []report.Stat{
		{Name: "Chart", Value: r.Config.ChartPath},
		{Name: "Data", Value: r.Config.DataPath},
		{Name: "Mapping", Value: tr.Mode.String()},
		{Name: "Reference DPI", Value: tr.ReferenceDPI},
		{Name: "Output DPI", Value: tr.DPI},
		{Name: "Canvas width", Value: tr.Canvas.X},
		{Name: "Canvas height", Value: tr.Canvas.Y},
		{Name: "Patches", Value: s.Patches},
		{Name: "Matched", Value: s.Matched},
		{Name: "Unmatched", Value: s.Unmatched},
		{Name: "Missing color", Value: s.MissingColor},
		{Name: "Duplicates", Value: s.Duplicates},
	}
	for _, a := range s.Areas {
		rep.Summary = append(rep.Summary, report.Stat{
			Name:  "Area " + a.Name + " unmatched",
			Value: a.Unmatched,
		})
	}
	return rep
}

// WriteReport writes the spreadsheet report to path.
func (r *Result) WriteReport(path string) error {
	return report.Write(path, r.Report())
}

// logDiagnostics logs geometry and color details of the run.
func (r *Result) logDiagnostics() {
	tr := r.Transform
	l := r.logger
	ppmX, ppmY := tr.PixelsPerMM()

	l.Printf("app: margin %d px, footer %d px, %.4f x %.4f px/mm", tr.MarginPx, tr.FooterPx, ppmX, ppmY)
	if r.Chart.BoxShrink != 0 {
		l.Printf("app: BOX_SHRINK %.4f units (%.2f x %.2f px) not applied",
			r.Chart.BoxShrink, r.Chart.BoxShrink*tr.ScaleX(), r.Chart.BoxShrink*tr.ScaleY())
	}
	for i, f := range r.Chart.Fiducials {
		for j, p := range f.Points {
			px := tr.Apply(p)
			l.Printf("app: fiducial %d.%d: (%.3f, %.3f) units -> (%.2f, %.2f) px -> (%.2f, %.2f) mm",
				i+1, j+1, p.X, p.Y, px.X, px.Y, px.X/ppmX, px.Y/ppmY)
		}
	}
	for i, a := range r.Chart.Areas {
		d := r.Decisions[i]
		l.Printf("app: area %s: %dx%d, pixel box (%.2f, %.2f)-(%.2f, %.2f), gaps L%.1f T%.1f R%.1f B%.1f, clearance col %.1f row %.1f, labels %s",
			a.Name, a.Axis1.Len(), a.Axis2.Len(), d.Box.X, d.Box.Y, d.Box.Right(), d.Box.Bottom(),
			d.Gaps[0], d.Gaps[1], d.Gaps[2], d.Gaps[3], d.ColumnClearance, d.RowClearance, d.Sides)
	}
	for i, p := range r.Patches {
		if i == 12 {
			break
		}
		l.Printf("app: patch %-6s box %v size %dx%d px RGB16 (%d, %d, %d)",
			p.ID, p.Box, p.Box.Dx(), p.Box.Dy(), p.Color.R, p.Color.G, p.Color.B)
	}
}
