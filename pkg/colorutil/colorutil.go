// Package colorutil converts reference colorimetry (CIE LAB or XYZ under
// D50) to 16-bit sRGB.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Fixed colors used by the compositor.
var (
	Black = color.RGBA64{R: 0, G: 0, B: 0, A: 0xffff}
	White = color.RGBA64{R: 0xffff, G: 0xffff, B: 0xffff, A: 0xffff}
)

// Gray is the placeholder for patches without reference data.
var Gray = RGB{0.5, 0.5, 0.5}

// Reference whites.
var (
	D50 = [3]float64{0.96422, 1.0, 0.82521}
	D65 = [3]float64{0.95047, 1.0, 1.08883}
)

// xyzToLinearSRGB is the IEC 61966-2-1 XYZ (D65) to linear sRGB matrix.
var xyzToLinearSRGB = Matrix3{
	{3.2406, -1.5372, -0.4986},
	{-0.9689, 1.8758, 0.0415},
	{0.0557, -0.2040, 1.0570},
}

// bradfordD50ToD65 adapts D50 tristimulus values to D65.
var bradfordD50ToD65 = mustBradford(D50, D65)

// Intent selects how linear RGB is delivered.
type Intent int

const (
	// IntentDisplay applies the sRGB transfer curve and clips to [0,1].
	IntentDisplay Intent = iota
	// IntentAbsolute keeps linear, unclipped values.
	IntentAbsolute
)

func (i Intent) String() string {
	if i == IntentAbsolute {
		return "absolute"
	}
	return "display"
}

// ParseIntent accepts "display" or "absolute" in any case.
func ParseIntent(s string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "display", "":
		return IntentDisplay, nil
	case "absolute":
		return IntentAbsolute, nil
	}
	return IntentDisplay, fmt.Errorf("unknown intent %q (want absolute or display)", s)
}

// Matrix3 is a row-major 3x3 matrix.
type Matrix3 [3][3]float64

// Apply multiplies m by the column vector v.
func (m Matrix3) Apply(v [3]float64) [3]float64 {
	var out [3]float64
	for r := 0; r < 3; r++ {
		out[r] = m[r][0]*v[0] + m[r][1]*v[1] + m[r][2]*v[2]
	}
	return out
}

// RGB is an sRGB triple, nominally in [0,1].
type RGB [3]float64

// RGBA64 quantizes c to 16 bits per channel.
func (c RGB) RGBA64() color.RGBA64 {
	return color.RGBA64{R: Quantize(c[0]), G: Quantize(c[1]), B: Quantize(c[2]), A: 0xffff}
}

// Quantize maps v in [0,1] to [0,65535], saturating outside the range.
func Quantize(v float64) uint16 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(math.Round(v * 0xffff))
}

// LabToXYZ converts CIE LAB to XYZ relative to the D50 white.
func LabToXYZ(l, a, b float64) [3]float64 {
	fy := (l + 16) / 116
	fx := fy + a/500
	fz := fy - b/200
	return [3]float64{
		labInverse(fx) * D50[0],
		labInverse(fy) * D50[1],
		labInverse(fz) * D50[2],
	}
}

func labInverse(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta {
		return t * t * t
	}
	return 3 * delta * delta * (t - 4.0/29.0)
}

// EncodeSRGB applies the sRGB transfer function to a linear component.
func EncodeSRGB(u float64) float64 {
	switch {
	case u <= 0:
		return 0
	case u <= 0.0031308:
		return 12.92 * u
	default:
		return 1.055*math.Pow(u, 1/2.4) - 0.055
	}
}

// Pipeline converts D50 colorimetry to sRGB under one intent.
type Pipeline struct {
	Intent Intent
}

// FromLab converts a LAB (D50) triple.
func (p Pipeline) FromLab(lab [3]float64) RGB {
	return p.FromXYZ(LabToXYZ(lab[0], lab[1], lab[2]))
}

// FromXYZ converts an XYZ (D50, Y of white = 1) triple.
func (p Pipeline) FromXYZ(xyz [3]float64) RGB {
	lin := xyzToLinearSRGB.Apply(bradfordD50ToD65.Apply(xyz))
	if p.Intent == IntentAbsolute {
		return RGB(lin)
	}
	var out RGB
	for i, u := range lin {
		out[i] = clamp01(EncodeSRGB(u))
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
