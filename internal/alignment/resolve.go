// Package alignment resolves the mapping from chart units to output
// pixels, either from resolution ratios or from measured fiducial marks.
package alignment

import (
	"errors"
	"fmt"
	"image"
	"log"
	"math"

	"rectarg/internal/chart"
	"rectarg/internal/page"
	"rectarg/pkg/geometry"
)

// ErrDegenerateFiducials indicates an affine fit that cannot be solved.
var ErrDegenerateFiducials = errors.New("degenerate fiducials")

const (
	// DefaultDPI is the output resolution when none is requested.
	DefaultDPI = 300

	// DefaultFooterMM is the space reserved below the chart for footer text.
	DefaultFooterMM = 12.0

	minCanvasW = 400
	minCanvasH = 300

	// residualWarnPx is the fit error above which a warning is logged.
	residualWarnPx = 0.5
)

// Options controls transform resolution.
type Options struct {
	Page         page.Spec
	ReferenceDPI int     // 0 selects automatically
	TargetDPI    int     // 0 selects DefaultDPI
	MarginMM     float64 // margin around the chart
	FooterMM     float64 // 0 selects DefaultFooterMM

	// MeasuredFiducials, when set, holds four pixel positions of the first
	// fiducial mark's corners, clockwise from top-left, and selects affine
	// mode.
	MeasuredFiducials []geometry.Point2D

	Logger *log.Logger
}

func (o Options) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

// MarginPx converts a margin in millimetres to pixels at dpi.
func MarginPx(marginMM float64, dpi int) int {
	return int(math.Round(marginMM * float64(dpi) / 25.4))
}

// DetectReferenceDPI returns the smallest standard resolution at which a
// w x h extent, read as pixels, plus margins fits the page in either
// orientation. If none fits it returns the largest standard resolution.
func DetectReferenceDPI(w, h float64, spec page.Spec, marginMM float64) int {
	for _, dpi := range page.StandardDPIs {
		if page.Fits(spec, dpi, w, h, MarginPx(marginMM, dpi)) {
			return dpi
		}
	}
	return page.StandardDPIs[len(page.StandardDPIs)-1]
}

// Scale returns the per-axis factors mapping reference pixels to target
// pixels, from the page pixel sizes at both resolutions.
func Scale(spec page.Spec, referenceDPI, targetDPI int) (sx, sy float64) {
	if referenceDPI == targetDPI {
		return 1, 1
	}
	rw, rh := spec.PixelSize(referenceDPI)
	tw, th := spec.PixelSize(targetDPI)
	return float64(tw) / float64(rw), float64(th) / float64(rh)
}

// Resolve derives the unit-to-pixel transform for def.
func Resolve(def *chart.Definition, opts Options) (Transform, error) {
	if opts.Page == nil {
		opts.Page = page.A4Spec()
	}
	if opts.FooterMM == 0 {
		opts.FooterMM = DefaultFooterMM
	}
	if opts.TargetDPI < 0 || opts.ReferenceDPI < 0 {
		return Transform{}, fmt.Errorf("resolution must be positive")
	}

	extent := def.Extent()
	t := Transform{
		ReferenceDPI: opts.ReferenceDPI,
		DPI:          opts.TargetDPI,
	}
	if t.ReferenceDPI == 0 {
		t.ReferenceDPI = DetectReferenceDPI(extent.Width, extent.Height, opts.Page, opts.MarginMM)
	}
	if t.DPI == 0 {
		t.DPI = DefaultDPI
	}
	t.MarginPx = MarginPx(opts.MarginMM, t.DPI)
	t.FooterPx = int(math.Round(opts.FooterMM * float64(t.DPI) / 25.4))

	if len(opts.MeasuredFiducials) > 0 {
		affine, res, err := fitFiducials(def, opts.MeasuredFiducials)
		if err != nil {
			return Transform{}, err
		}
		t.Mode = ModeAffine
		t.AffineTransform = affine
		t.Residuals = res
		if m := t.MaxResidual(); m > residualWarnPx {
			opts.logf("alignment: fiducial fit residual %.3f px exceeds %.1f px", m, residualWarnPx)
		}
	} else {
		sx, sy := Scale(opts.Page, t.ReferenceDPI, t.DPI)
		t.Mode = ModeDPI
		margin := float64(t.MarginPx)
		t.AffineTransform = geometry.Translation(margin, margin).
			Compose(geometry.Scale(sx, sy)).
			Compose(geometry.Translation(-extent.X, -extent.Y))
	}

	corners := t.ApplyRect(extent)
	bb := geometry.BoundingBox(corners[:])
	t.Canvas = image.Point{
		X: max(minCanvasW, int(math.Ceil(bb.Right()+float64(t.MarginPx)))),
		Y: max(minCanvasH, int(math.Ceil(bb.Bottom()+float64(t.MarginPx+t.FooterPx)))),
	}

	opts.logf("alignment: mode %s, reference %d dpi, output %d dpi, scale (%.10f, %.10f), canvas %dx%d",
		t.Mode, t.ReferenceDPI, t.DPI, t.ScaleX(), t.ScaleY(), t.Canvas.X, t.Canvas.Y)
	return t, nil
}

// fitFiducials solves the affine mapping the first fiducial mark onto the
// measured pixel points.
func fitFiducials(def *chart.Definition, measured []geometry.Point2D) (geometry.AffineTransform, []float64, error) {
	if len(measured) != 4 {
		return geometry.AffineTransform{}, nil,
			fmt.Errorf("%w: need 4 measured points, got %d", ErrDegenerateFiducials, len(measured))
	}
	if len(def.Fiducials) == 0 {
		return geometry.AffineTransform{}, nil,
			fmt.Errorf("%w: chart has no fiducial mark", ErrDegenerateFiducials)
	}

	src := def.Fiducials[0].Points[:]
	bb := geometry.BoundingBox(src)
	tol := 1e-9 * math.Max(1, bb.Width*bb.Width+bb.Height*bb.Height)
	if geometry.Collinear(src, tol) {
		return geometry.AffineTransform{}, nil,
			fmt.Errorf("%w: fiducial corners are collinear", ErrDegenerateFiducials)
	}

	affine, err := computeAffineLeastSquares(src, measured)
	if err != nil {
		return geometry.AffineTransform{}, nil, fmt.Errorf("%w: %v", ErrDegenerateFiducials, err)
	}
	if _, ok := affine.Inverse(); !ok {
		return geometry.AffineTransform{}, nil,
			fmt.Errorf("%w: measured points are collinear", ErrDegenerateFiducials)
	}
	return affine, residuals(src, measured, affine), nil
}
