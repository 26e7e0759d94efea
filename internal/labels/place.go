package labels

import (
	"rectarg/internal/alignment"
	"rectarg/internal/chart"
	"rectarg/pkg/geometry"
)

// Label is one piece of axis text positioned on the canvas.
type Label struct {
	Text    string
	Side    Sides
	Center  geometry.Point2D // center of the rendered text box, in pixels
	Rotated bool             // drawn rotated by 90 degrees
}

// Place positions the labels of area for every visible side in d, gapPx
// pixels away from the grid edge.
func Place(area *chart.Area, d Decision, tr alignment.Transform, m Metrics, gapPx float64) []Label {
	if m == nil || d.Sides == None {
		return nil
	}
	var out []Label

	for c, text := range area.Axis1.Labels {
		if text == "" {
			continue
		}
		w, h := m.Measure(text)
		if d.Rotated {
			h = w
		}
		cx := cellCenter(area, tr, c, 0).X
		if d.Sides.Has(Top) {
			out = append(out, Label{Text: text, Side: Top, Rotated: d.Rotated,
				Center: geometry.NewPoint2D(cx, d.Box.Y-gapPx-h/2)})
		}
		if d.Sides.Has(Bottom) {
			out = append(out, Label{Text: text, Side: Bottom, Rotated: d.Rotated,
				Center: geometry.NewPoint2D(cx, d.Box.Bottom()+gapPx+h/2)})
		}
	}

	for r, text := range area.Axis2.Labels {
		if text == "" {
			continue
		}
		w, _ := m.Measure(text)
		cy := cellCenter(area, tr, 0, r).Y
		if d.Sides.Has(Left) {
			out = append(out, Label{Text: text, Side: Left,
				Center: geometry.NewPoint2D(d.Box.X-gapPx-w/2, cy)})
		}
		if d.Sides.Has(Right) {
			out = append(out, Label{Text: text, Side: Right,
				Center: geometry.NewPoint2D(d.Box.Right()+gapPx+w/2, cy)})
		}
	}
	return out
}

// cellCenter returns the pixel position of the center of cell (col, row).
func cellCenter(area *chart.Area, tr alignment.Transform, col, row int) geometry.Point2D {
	u := geometry.NewPoint2D(
		area.Pre.X+(float64(col)+0.5)*area.Tile.X,
		area.Pre.Y+(float64(row)+0.5)*area.Tile.Y,
	)
	return tr.Apply(u)
}
