package alignment

import (
	"math"

	"rectarg/internal/chart"
	"rectarg/pkg/geometry"
)

// Fiducial mark dimensions at 300 dpi; they scale with the output
// resolution.
const (
	markLengthAt300 = 40.0
	markStrokeAt300 = 5.0
)

// Mark is an L-shaped fiducial mark in canvas pixels. Its two arms start
// at Corner and extend Length pixels along DirX horizontally and DirY
// vertically (each +1 or -1, pointing toward the chart center).
type Mark struct {
	Corner     geometry.Point2D
	DirX, DirY float64
	Length     float64
	Stroke     int
}

// Bounds returns the box enclosing both arms.
func (m Mark) Bounds() geometry.Rect {
	end := geometry.NewPoint2D(m.Corner.X+m.DirX*m.Length, m.Corner.Y+m.DirY*m.Length)
	r := geometry.BoundingBox([]geometry.Point2D{m.Corner, end})
	half := float64(m.Stroke) / 2
	return geometry.NewRect(r.X-half, r.Y-half, r.Width+2*half, r.Height+2*half)
}

// MarkLength returns the arm length of a fiducial mark in pixels.
func (t Transform) MarkLength() float64 {
	return math.Round(markLengthAt300 * float64(t.DPI) / 300)
}

// MarkStroke returns the line width of a fiducial mark in pixels.
func (t Transform) MarkStroke() int {
	return max(1, int(math.Round(markStrokeAt300*float64(t.DPI)/300)))
}

// Marks places an L mark at every corner of every fiducial, with arms
// pointing toward the center of the chart extent.
func (t Transform) Marks(def *chart.Definition) []Mark {
	center := t.Apply(def.Extent().Center())
	length, stroke := t.MarkLength(), t.MarkStroke()

	var out []Mark
	for _, f := range def.Fiducials {
		for _, p := range f.Points {
			c := t.Apply(p)
			out = append(out, Mark{
				Corner: c,
				DirX:   direction(center.X - c.X),
				DirY:   direction(center.Y - c.Y),
				Length: length,
				Stroke: stroke,
			})
		}
	}
	return out
}

func direction(d float64) float64 {
	if d < 0 {
		return -1
	}
	return 1
}
