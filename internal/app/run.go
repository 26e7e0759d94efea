// Package app runs one chart reconstruction: parse the layout and the
// reference data, resolve the pixel transform, match and convert patch
// colors, decide label visibility and composite the result.
package app

import (
	"errors"
	"fmt"
	goimage "image"
	"image/color"
	"io"
	"log"
	"math"
	"path/filepath"
	"strings"

	"rectarg/internal/alignment"
	"rectarg/internal/chart"
	"rectarg/internal/config"
	"rectarg/internal/image"
	"rectarg/internal/labels"
	"rectarg/internal/patchid"
	"rectarg/internal/refdata"
	"rectarg/internal/typeset"
	"rectarg/pkg/colorutil"
	"rectarg/pkg/geometry"
)

const (
	headerText  = "Created by rectarg"
	captionText = "Reproduction of Target from reference data:"

	// headerTopMM is the distance of the header line from the top edge.
	headerTopMM = 8.0

	// minTextPx is the smallest cap height used for any text.
	minTextPx = 6
)

// PatchResult is one generated patch with its pixel geometry and color.
type PatchResult struct {
	chart.Patch
	Quad   [4]geometry.Point2D // pixel corners, clockwise from top-left
	Box    goimage.Rectangle   // pixel bounds
	Record *refdata.Record     // matched record, nil if unmatched
	Err    error               // why the patch is gray, nil if matched
	RGB    colorutil.RGB
	Color  color.RGBA64
}

// Gray reports whether the patch is painted with the placeholder color.
func (p PatchResult) Gray() bool { return p.Err != nil }

// Result is the outcome of Prepare: everything the compositor needs.
type Result struct {
	Config    config.Config
	Chart     *chart.Definition
	Data      *refdata.Dataset
	Transform alignment.Transform

	Patches    []PatchResult
	Marks      []alignment.Mark
	Decisions  []labels.Decision
	Labels     []labels.Label
	Background color.RGBA64

	Summary Summary

	fonts  image.Fonts
	logger *log.Logger
}

// Prepare parses the inputs named by cfg and computes every patch, mark
// and label. Fatal errors are malformed inputs and degenerate fiducials;
// data problems are counted in the Summary. A nil logger discards
// diagnostics.
func Prepare(cfg config.Config, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	intent, _ := cfg.RenderIntent()
	space, _ := cfg.Space()
	spec, _ := cfg.PageSpec()
	overrides, _ := cfg.Overrides()
	measured, _ := cfg.Fiducials()

	def, err := chart.ParseFile(cfg.ChartPath)
	if err != nil {
		return nil, err
	}
	data, err := refdata.ParseFile(cfg.DataPath, space)
	if err != nil {
		return nil, err
	}
	for _, d := range data.Duplicates {
		logger.Printf("refdata: warning: %v", d)
	}

	r := &Result{Config: cfg, Chart: def, Data: data, logger: logger}

	var alignLog *log.Logger
	if cfg.Verbose {
		alignLog = logger
	}
	r.Transform, err = alignment.Resolve(def, alignment.Options{
		Page:              spec,
		ReferenceDPI:      cfg.ReferenceDPI,
		TargetDPI:         cfg.TargetDPI,
		MarginMM:          cfg.MarginMM,
		MeasuredFiducials: measured,
		Logger:            alignLog,
	})
	if err != nil {
		return nil, err
	}
	if m := r.Transform.MaxResidual(); m > 0.5 && !cfg.Verbose {
		logger.Printf("alignment: warning: fiducial fit residual %.3f px", m)
	}

	r.fonts, err = loadFonts(cfg, r.Transform, logger)
	if err != nil {
		return nil, err
	}

	pipeline := colorutil.Pipeline{Intent: intent}
	r.matchPatches(pipeline)
	r.Background = r.background(pipeline)
	r.Marks = r.Transform.Marks(def)

	for _, name := range labels.UnknownOverrides(def, overrides) {
		logger.Printf("labels: warning: override for unknown area %s", name)
	}
	r.Decisions = labels.Decide(def, r.Transform, labels.Options{Metrics: r.fonts.Label, Overrides: overrides})
	gap := r.Transform.MMToPx(labels.DefaultGapMM)
	for i, a := range def.Areas {
		r.Labels = append(r.Labels, labels.Place(a, r.Decisions[i], r.Transform, r.fonts.Label, gap)...)
	}

	r.summarize()
	if cfg.Verbose {
		r.logDiagnostics()
	}
	return r, nil
}

// Run prepares, renders and writes the TIFF, and when configured the PNG
// preview and the patch report.
func Run(cfg config.Config, logger *log.Logger) (*Result, error) {
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("output file is required")
	}
	r, err := Prepare(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	img := r.Render()
	if err := image.WriteTIFF(cfg.OutputPath, img, r.Transform.DPI); err != nil {
		return r, err
	}
	if cfg.PNG {
		if err := image.WritePNG(PreviewPath(cfg.OutputPath), img, image.DefaultPreviewSize); err != nil {
			return r, err
		}
	}
	if cfg.Report != "" {
		if err := r.WriteReport(cfg.Report); err != nil {
			return r, err
		}
	}
	return r, nil
}

// PreviewPath returns the PNG preview path for a TIFF output path.
func PreviewPath(out string) string {
	return strings.TrimSuffix(out, filepath.Ext(out)) + ".preview.png"
}

// Close releases the font faces.
func (r *Result) Close() {
	if r.fonts.Label != nil {
		r.fonts.Label.Close()
	}
	if r.fonts.Footer != nil && r.fonts.Footer != r.fonts.Label {
		r.fonts.Footer.Close()
	}
	r.fonts = image.Fonts{}
}

// Scene assembles the compositor input.
func (r *Result) Scene() *image.Scene {
	patches := make([]image.Patch, len(r.Patches))
	for i, p := range r.Patches {
		patches[i] = image.Patch{Quad: p.Quad, Color: p.Color}
	}
	return &image.Scene{
		Size:       r.Transform.Canvas,
		Background: r.Background,
		Patches:    patches,
		Marks:      r.Marks,
		Labels:     r.Labels,
		Text:       r.annotations(),
	}
}

// Render paints the chart.
func (r *Result) Render() *goimage.RGBA64 {
	return image.Render(r.Scene(), r.fonts)
}

func loadFonts(cfg config.Config, tr alignment.Transform, logger *log.Logger) (image.Fonts, error) {
	f, err := typeset.LoadFont(cfg.FontPath)
	if err != nil && cfg.FontPath != "" {
		logger.Printf("typeset: warning: %v; using the built-in font", err)
		f, err = typeset.LoadFont("")
	}
	if err != nil {
		return image.Fonts{}, err
	}

	labelPx := math.Max(minTextPx, math.Round(tr.MMToPx(cfg.LabelFontMM)))
	footerPx := math.Max(minTextPx, math.Round(tr.MMToPx(cfg.FooterFontMM)))
	label, err := typeset.NewFace(f, labelPx)
	if err != nil {
		return image.Fonts{}, err
	}
	if footerPx == labelPx {
		return image.Fonts{Label: label, Footer: label}, nil
	}
	footer, err := typeset.NewFace(f, footerPx)
	if err != nil {
		label.Close()
		return image.Fonts{}, err
	}
	return image.Fonts{Label: label, Footer: footer}, nil
}

func convert(p colorutil.Pipeline, space refdata.Space, v [3]float64) colorutil.RGB {
	if space == refdata.SpaceXYZ {
		return p.FromXYZ(v)
	}
	return p.FromLab(v)
}

func (r *Result) matchPatches(p colorutil.Pipeline) {
	tr := r.Transform
	for _, a := range r.Chart.Areas {
		for _, patch := range a.Patches() {
			pr := PatchResult{
				Patch: patch,
				Quad:  tr.ApplyRect(patch.Box),
				Box:   tr.PixelBox(patch.Box),
			}
			rec, err := r.Data.Match(patch.ID, patch.Alternates...)
			pr.Record = rec
			if err != nil {
				pr.Err = err
				pr.RGB = colorutil.Gray
			} else {
				pr.RGB = convert(p, r.Data.Space, rec.Color)
			}
			pr.Color = pr.RGB.RGBA64()
			r.Patches = append(r.Patches, pr)
		}
	}
}

// background converts the configured background patch, or returns white.
func (r *Result) background(p colorutil.Pipeline) color.RGBA64 {
	name := r.Config.Background
	if name == "" {
		return colorutil.White
	}
	rec, err := r.Data.Match(patchid.Parse(name))
	if err != nil {
		r.logger.Printf("app: warning: background patch %s: %v; using white", name, err)
		return colorutil.White
	}
	c := convert(p, r.Data.Space, rec.Color).RGBA64()
	if r.Config.Verbose {
		r.logger.Printf("app: background from patch %s: RGB16 (%d, %d, %d)", rec.Label, c.R, c.G, c.B)
	}
	r.Summary.BackgroundFound = true
	return c
}

func (r *Result) annotations() image.Annotations {
	tr := r.Transform
	leftX := float64(tr.MarginPx)
	rightX := float64(tr.Canvas.X - tr.MarginPx)
	if len(r.Chart.Fiducials) > 0 {
		pts := r.Chart.Fiducials[0].Points
		leftX = tr.Apply(pts[0]).X
		rightX = tr.Apply(pts[1]).X
	}
	corners := tr.ApplyRect(r.Chart.Extent())
	bottom := geometry.BoundingBox(corners[:]).Bottom()

	meta := r.Data.Meta
	var date string
	switch {
	case meta.MeasureDate != "":
		date = "Measure Date: " + meta.MeasureDate
	case meta.Created != "":
		date = "Created: " + meta.Created
	}

	origin := meta.Originator
	if r.Data.Format != "" {
		if origin != "" {
			origin += ", " + r.Data.Format
		} else {
			origin = r.Data.Format
		}
	}
	var right []string
	for _, s := range []string{origin, meta.Descriptor} {
		if s != "" {
			right = append(right, s)
		}
	}
	if meta.Manufacturer != "" {
		right = append(right, "Manufacturer: "+meta.Manufacturer)
	}

	return image.Annotations{
		Header:   headerText,
		HeaderAt: geometry.NewPoint2D(rightX, math.Round(tr.MMToPx(headerTopMM))),
		FooterY:  math.Round(bottom + float64(tr.MarginPx/2)),
		LeftX:    leftX,
		RightX:   rightX,
		Left:     []string{date, "Data File: " + filepath.Base(r.Config.DataPath)},
		Center:   captionText,
		Right:    right,
	}
}

// unmatchedReason classifies a gray patch.
func unmatchedReason(err error) string {
	switch {
	case errors.Is(err, refdata.ErrMissingColorData):
		return "missing color data"
	case errors.Is(err, patchid.ErrUnmatchedIdentifier):
		return "not in reference data"
	default:
		return err.Error()
	}
}
