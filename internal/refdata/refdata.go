// Package refdata reads CGATS / IT8 reference measurement files (.cie,
// .txt, .it8) and resolves per-patch colorimetric values.
package refdata

import (
	"errors"
	"fmt"
	"strings"

	"rectarg/internal/patchid"
)

var (
	// ErrMissingColorData indicates a record without usable color columns.
	ErrMissingColorData = errors.New("missing color data")

	// ErrDuplicateIdentifier indicates two records that normalize to the
	// same patch identifier. The first occurrence is kept.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
)

// Space is the colorimetric space read from the dataset.
type Space int

const (
	SpaceLAB Space = iota
	SpaceXYZ
)

func (s Space) String() string {
	switch s {
	case SpaceXYZ:
		return "xyz"
	default:
		return "lab"
	}
}

// ParseSpace converts "lab" or "xyz" (any case) to a Space.
func ParseSpace(s string) (Space, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lab", "":
		return SpaceLAB, nil
	case "xyz":
		return SpaceXYZ, nil
	}
	return SpaceLAB, fmt.Errorf("unknown color space %q", s)
}

// Metadata holds the descriptive header keywords of a dataset.
type Metadata struct {
	Originator   string
	Descriptor   string
	Created      string
	MeasureDate  string
	Manufacturer string
	Serial       string
	ProdDate     string
}

// Record is one measured sample.
type Record struct {
	ID     patchid.ID
	Label  string   // identifier as written
	Values []string // raw field values in DATA_FORMAT order
	Color  [3]float64
	Valid  bool // Color holds a full triple
	Line   int
}

// DuplicateError reports a record dropped because an earlier record had
// the same normalized identifier.
type DuplicateError struct {
	ID        string
	Line      int
	FirstLine int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("line %d: identifier %s already defined on line %d", e.Line, e.ID, e.FirstLine)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateIdentifier }

// Dataset is a parsed reference file.
type Dataset struct {
	Format       string // first token of the file, e.g. CGATS.17 or IT8.7/2
	Keywords     map[string]string
	Meta         Metadata
	Fields       []string
	Records      []Record
	Space        Space
	Scale        float64 // factor applied to raw values; 0.01 for XYZ on a 0-100 scale
	DeclaredSets int     // NUMBER_OF_SETS, 0 if absent
	Duplicates   []error

	// resolved column indices, -1 if absent
	labelCol int
	colorCol [3]int

	index *patchid.Index
}

// Lookup returns the record matching id, trying each alternate if the
// primary fails.
func (d *Dataset) Lookup(id patchid.ID, alternates ...patchid.ID) (*Record, bool) {
	pos, ok := d.index.Lookup(id, alternates...)
	if !ok {
		return nil, false
	}
	return &d.Records[pos], true
}

// Match is Lookup returning a wrapped patchid.ErrUnmatchedIdentifier when
// no record exists, and a wrapped ErrMissingColorData when the record has
// no usable triple.
func (d *Dataset) Match(id patchid.ID, alternates ...patchid.ID) (*Record, error) {
	pos, err := d.index.Match(id, alternates...)
	if err != nil {
		return nil, err
	}
	rec := &d.Records[pos]
	if !rec.Valid {
		return rec, fmt.Errorf("%w: %s (line %d)", ErrMissingColorData, rec.Label, rec.Line)
	}
	return rec, nil
}

// Len returns the number of records kept after duplicate removal.
func (d *Dataset) Len() int { return len(d.Records) }

// ColorFields returns the names of the columns used for the color triple,
// or nil if any is missing.
func (d *Dataset) ColorFields() []string {
	var out []string
	for _, c := range d.colorCol {
		if c < 0 {
			return nil
		}
		out = append(out, d.Fields[c])
	}
	return out
}

// LabelField returns the name of the identifier column, or "" when the
// first field is used as a fallback without a recognised name.
func (d *Dataset) LabelField() string {
	if d.labelCol < 0 || d.labelCol >= len(d.Fields) {
		return ""
	}
	return d.Fields[d.labelCol]
}
