// Package labels decides, per patch area and per side, whether axis labels
// fit next to the grid and where they go.
package labels

import (
	"fmt"
	"math"
	"strings"

	"rectarg/internal/alignment"
	"rectarg/internal/chart"
	"rectarg/pkg/geometry"
)

const (
	// DefaultBufferMM is added to the label size to form the clearance.
	DefaultBufferMM = 2.0
	// DefaultGapMM separates labels from the grid edge.
	DefaultGapMM = 1.0

	// rotateRatio: column labels wider than this fraction of a tile are
	// drawn rotated.
	rotateRatio = 0.95
)

// Sides is a set of area sides.
type Sides uint8

const (
	Left Sides = 1 << iota
	Top
	Right
	Bottom

	None Sides = 0
	All        = Left | Top | Right | Bottom
)

var sideOrder = []struct {
	side   Sides
	letter byte
}{
	{Left, 'L'}, {Top, 'T'}, {Right, 'R'}, {Bottom, 'B'},
}

// Has reports whether every side in x is in s.
func (s Sides) Has(x Sides) bool { return s&x == x }

func (s Sides) String() string {
	if s == None {
		return "NONE"
	}
	var sb strings.Builder
	for _, o := range sideOrder {
		if s.Has(o.side) {
			sb.WriteByte(o.letter)
		}
	}
	return sb.String()
}

// ParseSides parses ALL, NONE or any combination of the letters L, T, R
// and B (case-insensitive).
func ParseSides(flags string) (Sides, error) {
	f := strings.ToUpper(strings.TrimSpace(flags))
	switch f {
	case "ALL":
		return All, nil
	case "NONE":
		return None, nil
	case "":
		return None, fmt.Errorf("empty side flags")
	}
	var s Sides
	for i := 0; i < len(f); i++ {
		found := false
		for _, o := range sideOrder {
			if f[i] == o.letter {
				s |= o.side
				found = true
			}
		}
		if !found {
			return None, fmt.Errorf("invalid side %q in %q (want L, T, R, B, ALL or NONE)", f[i], flags)
		}
	}
	return s, nil
}

// Metrics measures rendered label text in pixels at the label size.
type Metrics interface {
	Measure(text string) (width, height float64)
}

// Options controls label decisions.
type Options struct {
	Metrics   Metrics
	BufferMM  float64          // 0 selects DefaultBufferMM
	Overrides map[string]Sides // by upper-case area name
}

// Decision is the outcome for one area.
type Decision struct {
	Area    string
	Sides   Sides
	Manual  bool
	Rotated bool          // column labels drawn rotated
	Box     geometry.Rect // area cell extent in pixels
	// Gap to the nearest neighbor per side (Left, Top, Right, Bottom);
	// +Inf when none.
	Gaps [4]float64
	// Required clearance for column labels (top/bottom) and row labels
	// (left/right).
	ColumnClearance float64
	RowClearance    float64
}

// Decide computes label decisions for every area of def, in declaration
// order.
func Decide(def *chart.Definition, tr alignment.Transform, opts Options) []Decision {
	if opts.BufferMM == 0 {
		opts.BufferMM = DefaultBufferMM
	}
	ppmX, ppmY := tr.PixelsPerMM()

	boxes := make([]geometry.Rect, len(def.Areas))
	for i, a := range def.Areas {
		boxes[i] = pixelBounds(tr, a.Bounds())
	}
	var markBoxes []geometry.Rect
	for _, m := range tr.Marks(def) {
		markBoxes = append(markBoxes, m.Bounds())
	}

	out := make([]Decision, 0, len(def.Areas))
	for i, a := range def.Areas {
		d := Decision{Area: a.Name, Box: boxes[i]}

		neighbors := make([]geometry.Rect, 0, len(boxes)+len(markBoxes))
		for j, b := range boxes {
			if j != i {
				neighbors = append(neighbors, b)
			}
		}
		neighbors = append(neighbors, markBoxes...)
		d.Gaps = gaps(d.Box, neighbors)

		colW, colH := measureAll(opts.Metrics, a.Axis1.Labels)
		rowW, _ := measureAll(opts.Metrics, a.Axis2.Labels)
		tileW := a.Tile.X * tr.ScaleX()
		d.Rotated = anyWider(opts.Metrics, a.Axis1.Labels, rotateRatio*tileW)
		if d.Rotated {
			d.ColumnClearance = colW + opts.BufferMM*ppmY
		} else {
			d.ColumnClearance = colH + opts.BufferMM*ppmY
		}
		d.RowClearance = rowW + opts.BufferMM*ppmX

		if s, ok := opts.Overrides[strings.ToUpper(a.Name)]; ok {
			d.Sides = s
			d.Manual = true
			out = append(out, d)
			continue
		}

		for k, o := range sideOrder {
			need := d.RowClearance
			if o.side == Top || o.side == Bottom {
				need = d.ColumnClearance
			}
			if d.Gaps[k] >= need {
				d.Sides |= o.side
			}
		}
		if a.Axis1.Disabled() || a.Axis1.Len() == 1 {
			d.Sides &^= Top | Bottom
		}
		if a.Axis2.Disabled() || a.Axis2.Len() == 1 {
			d.Sides &^= Left | Right
		}
		out = append(out, d)
	}
	return out
}

// UnknownOverrides returns override names that match no area.
func UnknownOverrides(def *chart.Definition, overrides map[string]Sides) []string {
	var out []string
	for name := range overrides {
		if def.Area(strings.ToUpper(name)) == nil {
			out = append(out, name)
		}
	}
	return out
}

// gaps measures, per side, the distance from box to the closest neighbor
// that lies on that side and overlaps box in the orthogonal direction.
func gaps(box geometry.Rect, neighbors []geometry.Rect) [4]float64 {
	g := [4]float64{math.Inf(1), math.Inf(1), math.Inf(1), math.Inf(1)}
	for _, nb := range neighbors {
		if nb.OverlapsY(box) {
			if nb.X < box.X {
				g[0] = math.Min(g[0], math.Max(0, box.X-nb.Right()))
			}
			if nb.Right() > box.Right() {
				g[2] = math.Min(g[2], math.Max(0, nb.X-box.Right()))
			}
		}
		if nb.OverlapsX(box) {
			if nb.Y < box.Y {
				g[1] = math.Min(g[1], math.Max(0, box.Y-nb.Bottom()))
			}
			if nb.Bottom() > box.Bottom() {
				g[3] = math.Min(g[3], math.Max(0, nb.Y-box.Bottom()))
			}
		}
	}
	return g
}

func pixelBounds(tr alignment.Transform, r geometry.Rect) geometry.Rect {
	c := tr.ApplyRect(r)
	return geometry.BoundingBox(c[:])
}

func measureAll(m Metrics, texts []string) (maxW, maxH float64) {
	if m == nil {
		return 0, 0
	}
	for _, s := range texts {
		if s == "" {
			continue
		}
		w, h := m.Measure(s)
		maxW = math.Max(maxW, w)
		maxH = math.Max(maxH, h)
	}
	return maxW, maxH
}

func anyWider(m Metrics, texts []string, limit float64) bool {
	if m == nil {
		return false
	}
	for _, s := range texts {
		if s == "" {
			continue
		}
		if w, _ := m.Measure(s); w > limit {
			return true
		}
	}
	return false
}
