// Package image paints a reconstructed chart onto a 16-bit canvas and
// writes it as TIFF or PNG.
package image

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"rectarg/internal/alignment"
	"rectarg/internal/labels"
	"rectarg/internal/typeset"
	"rectarg/pkg/colorutil"
	"rectarg/pkg/geometry"
)

// lineSpacing is the footer line advance as a multiple of the cap height.
const lineSpacing = 1.5

// Patch is one filled cell in canvas pixels.
type Patch struct {
	Quad  [4]geometry.Point2D // corners, clockwise from top-left
	Color color.RGBA64
}

// Annotations holds the header and footer text and their anchors.
type Annotations struct {
	Header   string
	HeaderAt geometry.Point2D // top-right corner of the header line

	FooterY float64 // top of the footer block
	LeftX   float64 // left edge of the left column
	RightX  float64 // right edge of the right column
	Left    []string
	Center  string
	Right   []string
}

// Scene is everything the compositor paints.
type Scene struct {
	Size       image.Point
	Background color.RGBA64
	Patches    []Patch
	Marks      []alignment.Mark
	Labels     []labels.Label
	Text       Annotations
}

// Fonts selects the faces for axis labels and footer text. A nil face
// skips that text.
type Fonts struct {
	Label  *typeset.Face
	Footer *typeset.Face
}

// Render paints s onto a new RGBA64 canvas.
func Render(s *Scene, fonts Fonts) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, s.Size.X, s.Size.Y))
	draw.Draw(img, img.Bounds(), image.NewUniform(s.Background), image.Point{}, draw.Src)

	for _, p := range s.Patches {
		fillQuad(img, p.Quad, p.Color)
	}
	for _, m := range s.Marks {
		drawMark(img, m)
	}

	ink := image.NewUniform(colorutil.Black)
	if fonts.Label != nil {
		for _, l := range s.Labels {
			if l.Rotated {
				fonts.Label.DrawRotated(img, l.Text, l.Center.X, l.Center.Y, ink)
			} else {
				fonts.Label.DrawCentered(img, l.Text, l.Center.X, l.Center.Y, ink)
			}
		}
	}
	if fonts.Footer != nil {
		drawAnnotations(img, s.Text, fonts.Footer, ink)
	}
	return img
}

// fillQuad fills an axis-aligned quad with a rectangle copy and any other
// quad pixel by pixel, testing pixel centers.
func fillQuad(img *image.RGBA64, q [4]geometry.Point2D, c color.RGBA64) {
	if isAxisAligned(q) {
		draw.Draw(img, geometry.PixelRect(q[:]), image.NewUniform(c), image.Point{}, draw.Src)
		return
	}
	r := geometry.PixelRect(q[:]).Inset(-1).Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if geometry.PointInPolygon(geometry.NewPoint2D(float64(x)+0.5, float64(y)+0.5), q[:]) {
				img.SetRGBA64(x, y, c)
			}
		}
	}
}

func isAxisAligned(q [4]geometry.Point2D) bool {
	const eps = 1e-9
	return math.Abs(q[0].Y-q[1].Y) < eps && math.Abs(q[1].X-q[2].X) < eps &&
		math.Abs(q[2].Y-q[3].Y) < eps && math.Abs(q[3].X-q[0].X) < eps
}

// drawMark paints both arms of an L mark, each centered on the corner
// lines and covering the corner itself.
func drawMark(img draw.Image, m alignment.Mark) {
	half := float64(m.Stroke) / 2
	c := m.Corner
	black := image.NewUniform(colorutil.Black)

	horiz := geometry.PixelRect([]geometry.Point2D{
		{X: c.X - m.DirX*half, Y: c.Y - half},
		{X: c.X + m.DirX*m.Length, Y: c.Y + half},
	})
	vert := geometry.PixelRect([]geometry.Point2D{
		{X: c.X - half, Y: c.Y - m.DirY*half},
		{X: c.X + half, Y: c.Y + m.DirY*m.Length},
	})
	draw.Draw(img, horiz, black, image.Point{}, draw.Src)
	draw.Draw(img, vert, black, image.Point{}, draw.Src)
}

func drawAnnotations(img *image.RGBA64, a Annotations, face *typeset.Face, ink image.Image) {
	w := float64(img.Bounds().Dx())
	capH := face.CapHeight()
	step := math.Round(capH * lineSpacing)

	if a.Header != "" {
		tw := face.Advance(a.Header)
		x := clamp(a.HeaderAt.X-tw, 0, w-tw)
		face.DrawAt(img, a.Header, x, a.HeaderAt.Y+capH, ink)
	}

	y := a.FooterY
	for _, line := range a.Left {
		if line != "" {
			tw := face.Advance(line)
			face.DrawAt(img, line, clamp(a.LeftX, 0, w-tw), y+capH, ink)
		}
		y += step
	}

	if a.Center != "" {
		tw := face.Advance(a.Center)
		face.DrawAt(img, a.Center, math.Max(0, (w-tw)/2), a.FooterY+capH, ink)
	}

	y = a.FooterY
	for _, line := range a.Right {
		tw := face.Advance(line)
		face.DrawAt(img, line, clamp(a.RightX-tw, 0, w-tw), y+capH, ink)
		y += step
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
