// Package chart parses ArgyllCMS chart layout (.cht) files into an
// immutable geometry model of fiducial marks and patch areas.
package chart

import (
	"errors"
	"fmt"

	"rectarg/internal/patchid"
	"rectarg/pkg/geometry"
)

// ErrMalformedChart indicates a layout file that cannot be turned into
// geometry. It is always fatal.
var ErrMalformedChart = errors.New("malformed chart")

// ParseError locates a layout problem by line and field.
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("chart line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("chart line %d, field %s: %v", e.Line, e.Field, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedChart, e.Err}
}

// Fiducial is a registration mark given by four corners, clockwise from
// top-left, in chart units.
type Fiducial struct {
	Points [4]geometry.Point2D
	Line   int
}

// Bounds returns the axis-aligned box around the mark's corners.
func (f Fiducial) Bounds() geometry.Rect {
	return geometry.BoundingBox(f.Points[:])
}

// Expected is the declared patch list at the end of a layout file.
type Expected struct {
	Space string // e.g. "XYZ"
	Count int    // declared count
	Found int    // records actually listed
}

// Definition is a parsed chart layout.
type Definition struct {
	Width, Height float64 // physical dimensions from the D line
	Fiducials     []Fiducial
	Areas         []*Area
	BoxShrink     float64
	RefRotation   float64
	XList, YList  []float64
	Expected      *Expected
}

// Area returns the area with the given name, or nil.
func (d *Definition) Area(name string) *Area {
	for _, a := range d.Areas {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// PatchCount returns the total number of generated patches.
func (d *Definition) PatchCount() int {
	n := 0
	for _, a := range d.Areas {
		n += a.PatchCount()
	}
	return n
}

// Extent returns the union of every area's cell extent and every fiducial
// mark, in chart units.
func (d *Definition) Extent() geometry.Rect {
	var r geometry.Rect
	first := true
	add := func(b geometry.Rect) {
		if first {
			r, first = b, false
			return
		}
		r = r.Union(b)
	}
	for _, a := range d.Areas {
		add(a.Bounds())
	}
	for _, f := range d.Fiducials {
		add(f.Bounds())
	}
	return r
}

// Axis is one labeled dimension of a patch area. A disabled axis ("_")
// has a single unlabeled index.
type Axis struct {
	Start, End string
	Labels     []string
}

// Disabled reports whether the axis carries no labels.
func (a Axis) Disabled() bool {
	return len(a.Labels) == 1 && a.Labels[0] == ""
}

// Len returns the number of indices along the axis.
func (a Axis) Len() int { return len(a.Labels) }

// Area is a named rectangular grid of equally sized patches. Axis1 runs
// horizontally (columns), Axis2 vertically (rows).
type Area struct {
	Name  string
	Axis1 Axis
	Axis2 Axis
	Tile  geometry.Point2D // patch size in units
	Pre   geometry.Point2D // origin of the first patch
	Post  geometry.Point2D // trailing padding after the last column/row
	Line  int
}

// PatchCount returns len(Axis1) x len(Axis2).
func (a *Area) PatchCount() int {
	return a.Axis1.Len() * a.Axis2.Len()
}

// Bounds returns the cell extent of the area, excluding post padding.
func (a *Area) Bounds() geometry.Rect {
	return geometry.NewRect(a.Pre.X, a.Pre.Y,
		float64(a.Axis1.Len())*a.Tile.X, float64(a.Axis2.Len())*a.Tile.Y)
}

// Footprint returns the cell extent extended by post padding.
func (a *Area) Footprint() geometry.Rect {
	b := a.Bounds()
	b.Width += a.Post.X
	b.Height += a.Post.Y
	return b
}

// Patch is one generated cell of an area.
type Patch struct {
	Area       string
	Row, Col   int
	ColLabel   string
	RowLabel   string
	ID         patchid.ID
	Alternates []patchid.ID
	Box        geometry.Rect // chart units
}

// Patches generates the area's cells in row-major order (Axis2 slowest).
func (a *Area) Patches() []Patch {
	out := make([]Patch, 0, a.PatchCount())
	for r, rowLabel := range a.Axis2.Labels {
		for c, colLabel := range a.Axis1.Labels {
			id, declared := patchid.Compose(colLabel, rowLabel)
			reversed := patchid.Parse(rowLabel + colLabel)
			out = append(out, Patch{
				Area:       a.Name,
				Row:        r,
				Col:        c,
				ColLabel:   colLabel,
				RowLabel:   rowLabel,
				ID:         id,
				Alternates: []patchid.ID{declared, reversed},
				Box: geometry.NewRect(
					a.Pre.X+float64(c)*a.Tile.X,
					a.Pre.Y+float64(r)*a.Tile.Y,
					a.Tile.X, a.Tile.Y),
			})
		}
	}
	return out
}
