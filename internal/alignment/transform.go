package alignment

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"

	"rectarg/pkg/geometry"
)

// Mode identifies how a Transform was derived.
type Mode int

const (
	ModeDPI    Mode = iota // scale + translation from resolution ratios
	ModeAffine             // general affine fitted to measured fiducials
)

func (m Mode) String() string {
	switch m {
	case ModeDPI:
		return "dpi"
	case ModeAffine:
		return "affine"
	default:
		return "unknown"
	}
}

// Transform maps chart units to canvas pixels. One Transform serves patch
// boxes, fiducial marks and label anchors alike.
type Transform struct {
	geometry.AffineTransform

	Mode         Mode
	ReferenceDPI int // resolution at which one chart unit is one pixel
	DPI          int // output resolution
	MarginPx     int
	FooterPx     int
	Canvas       image.Point // canvas width and height in pixels
	Residuals    []float64   // per-fiducial fit error in pixels (affine mode)
}

// PixelsPerMM returns the horizontal and vertical number of canvas pixels
// per physical millimetre, derived from the transform's axis scales.
func (t Transform) PixelsPerMM() (x, y float64) {
	unitsPerMM := float64(t.ReferenceDPI) / 25.4
	return unitsPerMM * t.ScaleX(), unitsPerMM * t.ScaleY()
}

// MMToPx converts a physical length along the vertical axis to pixels.
func (t Transform) MMToPx(mm float64) float64 {
	_, y := t.PixelsPerMM()
	return mm * y
}

// PixelBox maps a rectangle in chart units to its pixel bounds.
func (t Transform) PixelBox(r geometry.Rect) image.Rectangle {
	c := t.ApplyRect(r)
	return geometry.PixelRect(c[:])
}

// MaxResidual returns the largest fiducial fit error, or 0 in DPI mode.
func (t Transform) MaxResidual() float64 {
	m := 0.0
	for _, r := range t.Residuals {
		m = math.Max(m, r)
	}
	return m
}

// computeAffineLeastSquares fits the 6-parameter affine mapping src onto
// dst. With four consistent correspondences the fit is exact.
func computeAffineLeastSquares(src, dst []geometry.Point2D) (geometry.AffineTransform, error) {
	n := len(src)
	if n < 3 || len(dst) != n {
		return geometry.AffineTransform{}, fmt.Errorf("need at least 3 matching points, got %d/%d", n, len(dst))
	}

	// Build overdetermined system
	A := mat.NewDense(n*2, 6, nil)
	B := mat.NewVecDense(n*2, nil)

	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y

		// x' = a*x + b*y + tx
		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, xp)

		// y' = c*x + d*y + ty
		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		B.SetVec(i*2+1, yp)
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.AffineTransform{}, err
	}

	return geometry.AffineTransform{
		A:  params.AtVec(0),
		B:  params.AtVec(1),
		TX: params.AtVec(2),
		C:  params.AtVec(3),
		D:  params.AtVec(4),
		TY: params.AtVec(5),
	}, nil
}

// residuals returns the distance between each transformed source point
// and its target.
func residuals(src, dst []geometry.Point2D, t geometry.AffineTransform) []float64 {
	out := make([]float64, len(src))
	for i := range src {
		out[i] = t.Apply(src[i]).Distance(dst[i])
	}
	return out
}
