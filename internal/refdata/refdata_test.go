package refdata

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rectarg/internal/patchid"
)

const labData = `IT8.7/2
ORIGINATOR "Wolf Faust"
DESCRIPTOR "Reflective target R190808"
CREATED "August 2019"
MANUFACTURER "Coloraid"
NUMBER_OF_FIELDS 4
BEGIN_DATA_FORMAT
SAMPLE_ID LAB_L LAB_A LAB_B
END_DATA_FORMAT
NUMBER_OF_SETS 4
BEGIN_DATA
A1 40.12 10.5 -3.2
A2 50.00 0 0
GS0 96.5 0.1 0.2
gs00 10 0 0
END_DATA
`

func TestParseLab(t *testing.T) {
	ds, err := Parse(strings.NewReader(labData), SpaceLAB)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ds.Format != "IT8.7/2" {
		t.Errorf("format = %q", ds.Format)
	}
	if ds.Meta.Originator != "Wolf Faust" || ds.Meta.Manufacturer != "Coloraid" {
		t.Errorf("meta = %+v", ds.Meta)
	}
	if ds.DeclaredSets != 4 {
		t.Errorf("DeclaredSets = %d", ds.DeclaredSets)
	}
	if ds.Len() != 3 {
		t.Fatalf("Len = %d, want 3 after duplicate removal", ds.Len())
	}
	if len(ds.Duplicates) != 1 || !errors.Is(ds.Duplicates[0], ErrDuplicateIdentifier) {
		t.Fatalf("duplicates = %v", ds.Duplicates)
	}
	var dup *DuplicateError
	if !errors.As(ds.Duplicates[0], &dup) || dup.FirstLine != 14 || dup.Line != 15 {
		t.Errorf("duplicate = %+v", dup)
	}
	if got := ds.ColorFields(); len(got) != 3 || got[0] != "LAB_L" {
		t.Errorf("color fields = %v", got)
	}

	rec, ok := ds.Lookup(patchid.Parse("A01"))
	if !ok || rec.Color != [3]float64{40.12, 10.5, -3.2} {
		t.Errorf("A01 -> %+v, %v", rec, ok)
	}
	rec, ok = ds.Lookup(patchid.Parse("GS00"))
	if !ok || rec.Color[0] != 96.5 {
		t.Errorf("GS00 should match the first GS0 record, got %+v", rec)
	}
}

func TestParseXYZPercentScale(t *testing.T) {
	input := `CGATS.17
BEGIN_DATA_FORMAT
SAMPLE_LOC XYZ_X XYZ_Y XYZ_Z
END_DATA_FORMAT
BEGIN_DATA
A01 96.42 100.0 82.52
A02 20.0 21.0 22.0
END_DATA
`
	ds, err := Parse(strings.NewReader(input), SpaceXYZ)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Scale != 0.01 {
		t.Errorf("Scale = %v", ds.Scale)
	}
	rec, _ := ds.Lookup(patchid.Parse("A1"))
	if math.Abs(rec.Color[1]-1.0) > 1e-12 {
		t.Errorf("Y = %v, want 1", rec.Color[1])
	}
}

func TestParseXYZUnitScale(t *testing.T) {
	input := "BEGIN_DATA_FORMAT\nSAMPLE_ID X Y Z\nEND_DATA_FORMAT\nBEGIN_DATA\n1 0.9 1.0 0.8\nEND_DATA\n"
	ds, err := Parse(strings.NewReader(input), SpaceXYZ)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Scale != 1 {
		t.Errorf("Scale = %v", ds.Scale)
	}
}

func TestLabelColumnPriority(t *testing.T) {
	input := `BEGIN_DATA_FORMAT
SAMPLE_ID SAMPLE_NAME SAMPLE_LOC L* A* B*
END_DATA_FORMAT
BEGIN_DATA
1 "red patch" C04 50 60 40
2 x "n/a" 50 0 0
END_DATA
`
	ds, err := Parse(strings.NewReader(input), SpaceLAB)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Records[0].Label != "C04" {
		t.Errorf("label = %q, want SAMPLE_LOC value", ds.Records[0].Label)
	}
	// SAMPLE_LOC is not a plausible identifier, SAMPLE_NAME is.
	if ds.Records[1].Label != "x" {
		t.Errorf("label = %q, want SAMPLE_NAME fallback", ds.Records[1].Label)
	}
	if ds.LabelField() != "SAMPLE_LOC" {
		t.Errorf("LabelField = %q", ds.LabelField())
	}
}

func TestSuffixedColorColumns(t *testing.T) {
	input := `BEGIN_DATA_FORMAT
SAMPLE_ID LAB_L_D50 LAB_A_D50 LAB_B_D50 L
END_DATA_FORMAT
BEGIN_DATA
A1 52.5 -3 12 99
END_DATA
`
	ds, err := Parse(strings.NewReader(input), SpaceLAB)
	if err != nil {
		t.Fatal(err)
	}
	// An exact alias (L) ranks above a suffixed LAB_L_D50.
	want := []string{"L", "LAB_A_D50", "LAB_B_D50"}
	if got := ds.ColorFields(); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("ColorFields = %v, want %v", got, want)
	}
	rec, err := ds.Match(patchid.Parse("A1"))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Color != [3]float64{99, -3, 12} {
		t.Errorf("color = %v", rec.Color)
	}
}

func TestMissingColorData(t *testing.T) {
	input := "BEGIN_DATA_FORMAT\nSAMPLE_ID LAB_L LAB_A\nEND_DATA_FORMAT\nBEGIN_DATA\nA1 50 0\nEND_DATA\n"
	ds, err := Parse(strings.NewReader(input), SpaceLAB)
	if err != nil {
		t.Fatal(err)
	}
	if ds.ColorFields() != nil {
		t.Errorf("ColorFields = %v, want nil", ds.ColorFields())
	}
	if _, err := ds.Match(patchid.Parse("A01")); !errors.Is(err, ErrMissingColorData) {
		t.Errorf("err = %v, want ErrMissingColorData", err)
	}
	if _, err := ds.Match(patchid.Parse("Q9")); !errors.Is(err, patchid.ErrUnmatchedIdentifier) {
		t.Errorf("err = %v, want ErrUnmatchedIdentifier", err)
	}
}

func TestNoDataBlock(t *testing.T) {
	if _, err := Parse(strings.NewReader("IT8.7/2\nORIGINATOR x\n"), SpaceLAB); err == nil {
		t.Error("expected error for missing data block")
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.cie")
	if err := os.WriteFile(path, []byte(labData), 0644); err != nil {
		t.Fatal(err)
	}
	ds, err := ParseFile(path, SpaceLAB)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Meta.Descriptor != "Reflective target R190808" {
		t.Errorf("descriptor = %q", ds.Meta.Descriptor)
	}
}

func TestParseSpace(t *testing.T) {
	if s, err := ParseSpace("XYZ"); err != nil || s != SpaceXYZ {
		t.Errorf("ParseSpace(XYZ) = %v, %v", s, err)
	}
	if _, err := ParseSpace("rgb"); err == nil {
		t.Error("rgb should be rejected")
	}
}
