// Package typeset loads OpenType fonts and renders label text at an exact
// cap height in pixels.
package typeset

import (
	"fmt"
	"image"
	"math"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// refSize is the size used to measure a font's cap height.
const refSize = 100.0

// LoadFont reads a TrueType/OpenType font or the first font of a
// collection. An empty path selects the embedded Go Regular font.
func LoadFont(path string) (*opentype.Font, error) {
	if path == "" {
		return opentype.Parse(goregular.TTF)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	if f, err := opentype.Parse(data); err == nil {
		return f, nil
	}
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	return coll.Font(0)
}

// Face renders text whose capital letters are exactly CapHeight pixels
// tall.
type Face struct {
	face      font.Face
	capHeight float64
}

// NewFace sizes f so that the glyph 'H' is capHeightPx pixels tall.
func NewFace(f *opentype.Font, capHeightPx float64) (*Face, error) {
	if capHeightPx <= 0 {
		return nil, fmt.Errorf("cap height must be positive, got %g", capHeightPx)
	}
	ref, err := opentype.NewFace(f, &opentype.FaceOptions{Size: refSize, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	b, _, ok := ref.GlyphBounds('H')
	ref.Close()
	if !ok {
		return nil, fmt.Errorf("font has no glyph for 'H'")
	}
	capRef := toFloat(b.Max.Y - b.Min.Y)
	if capRef <= 0 {
		return nil, fmt.Errorf("font reports empty cap height")
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    refSize * capHeightPx / capRef,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	return &Face{face: face, capHeight: capHeightPx}, nil
}

// CapHeight returns the target cap height in pixels.
func (f *Face) CapHeight() float64 { return f.capHeight }

// Close releases the underlying face.
func (f *Face) Close() error { return f.face.Close() }

// Measure returns the ink width and height of text in pixels.
func (f *Face) Measure(text string) (width, height float64) {
	b, _ := font.BoundString(f.face, text)
	return toFloat(b.Max.X - b.Min.X), toFloat(b.Max.Y - b.Min.Y)
}

// DrawCentered draws text with the center of its ink box at (cx, cy).
func (f *Face) DrawCentered(dst draw.Image, text string, cx, cy float64, src image.Image) {
	b, _ := font.BoundString(f.face, text)
	inkX := toFloat(b.Min.X+b.Max.X) / 2
	inkY := toFloat(b.Min.Y+b.Max.Y) / 2
	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: f.face,
		Dot:  fixed.Point26_6{X: toFixed(cx - inkX), Y: toFixed(cy - inkY)},
	}
	d.DrawString(text)
}

// DrawAt draws text with the left end of its baseline at (x, baseline).
func (f *Face) DrawAt(dst draw.Image, text string, x, baseline float64, src image.Image) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: f.face,
		Dot:  fixed.Point26_6{X: toFixed(x), Y: toFixed(baseline)},
	}
	d.DrawString(text)
}

// Advance returns the horizontal advance of text in pixels.
func (f *Face) Advance(text string) float64 {
	return toFloat(font.MeasureString(f.face, text))
}

// Ascent returns the font ascent in pixels.
func (f *Face) Ascent() float64 {
	return toFloat(f.face.Metrics().Ascent)
}

// DrawRotated draws text rotated 90 degrees counter-clockwise (reading
// bottom to top) centered at (cx, cy).
func (f *Face) DrawRotated(dst draw.Image, text string, cx, cy float64, src image.Image) {
	b, _ := font.BoundString(f.face, text)
	ink := image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
	w, h := ink.Dx(), ink.Dy()
	if w == 0 || h == 0 {
		return
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: f.face,
		Dot:  fixed.P(-ink.Min.X, -ink.Min.Y),
	}
	d.DrawString(text)

	// (x, y) -> (y, w - x)
	rot := image.NewAlpha(image.Rect(0, 0, h, w))
	s2d := f64.Aff3{0, 1, 0, -1, 0, float64(w)}
	draw.NearestNeighbor.Transform(rot, s2d, mask, mask.Bounds(), draw.Src, nil)

	x0 := int(math.Round(cx - float64(h)/2))
	y0 := int(math.Round(cy - float64(w)/2))
	draw.DrawMask(dst, image.Rect(x0, y0, x0+h, y0+w), src, image.Point{}, rot, image.Point{}, draw.Over)
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
