package app

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rectarg/internal/alignment"
	"rectarg/internal/chart"
	"rectarg/internal/config"
	"rectarg/internal/image"
	"rectarg/internal/labels"
	"rectarg/pkg/colorutil"
	"rectarg/pkg/geometry"
)

const testChart = `BOXES 8
  F _ _ 1 1 201 1 201 101 1 101
  D ALL ALL _ _ 202 102 1 1 _ _
  X 01 03 A B 50 40 20 10 0 0
  Y GS0 GS1 _ _ 50 20 20 100 0 0

EXPECTED LAB 8
`

const testData = `CGATS.17
ORIGINATOR "Test Lab"
DESCRIPTOR "Unit test target"
CREATED "2024-01-01"
MANUFACTURER "Nobody"
NUMBER_OF_FIELDS 4
BEGIN_DATA_FORMAT
SAMPLE_ID LAB_L LAB_A LAB_B
END_DATA_FORMAT
NUMBER_OF_SETS 8
BEGIN_DATA
A1 100 0 0
A2 50 0 0
A3 50 20 -20
B1 0 0 0
B2 n/a 0 0
GS0 100 0 0
GS01 60 0 0
END_DATA
`

func writeInputs(t *testing.T, chartText string) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ChartPath = filepath.Join(dir, "test.cht")
	cfg.DataPath = filepath.Join(dir, "test.cie")
	if err := os.WriteFile(cfg.ChartPath, []byte(chartText), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.DataPath, []byte(testData), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.TargetDPI = 150
	return cfg
}

func prepare(t *testing.T, cfg config.Config) *Result {
	t.Helper()
	r, err := Prepare(cfg, nil)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func patchByID(r *Result, id string) *PatchResult {
	for i := range r.Patches {
		if r.Patches[i].ID.String() == id {
			return &r.Patches[i]
		}
	}
	return nil
}

func TestPrepareCounts(t *testing.T) {
	r := prepare(t, writeInputs(t, testChart))
	s := r.Summary

	if s.Patches != 8 || s.Matched != 6 || s.Unmatched != 1 || s.MissingColor != 1 {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Areas) != 2 || s.Areas[0].Unmatched != 2 || s.Areas[1].Unmatched != 0 {
		t.Errorf("areas = %+v", s.Areas)
	}

	gray := map[string]int{}
	for _, p := range r.Patches {
		if p.Gray() {
			if p.Color.R != 0x8000 || p.Color.G != 0x8000 || p.Color.B != 0x8000 {
				t.Errorf("gray patch %s color %v", p.ID, p.Color)
			}
			gray[p.Area]++
		}
	}
	for _, a := range s.Areas {
		if gray[a.Name] != a.Unmatched {
			t.Errorf("area %s: %d gray patches, %d unmatched", a.Name, gray[a.Name], a.Unmatched)
		}
	}

	if p := patchByID(r, "GS1"); p == nil || p.Gray() || p.Record.Label != "GS01" {
		t.Errorf("GS1 should match GS01: %+v", p)
	}
	if p := patchByID(r, "A01"); p == nil || p.Color.R < 0xff00 {
		t.Errorf("A01 should be white: %+v", p)
	}

	if s.Counts.Chart != 8 || s.Counts.Declared != 8 || s.Counts.Measured != 7 {
		t.Errorf("counts = %+v", s.Counts)
	}
	if s.Counts.Problem() == "" {
		t.Error("expected a count mismatch")
	}
	if r.Background != colorutil.White {
		t.Errorf("default background = %v, want white", r.Background)
	}
	if r.Transform.DPI != 150 || r.Transform.ReferenceDPI != 72 {
		t.Errorf("transform dpi %d ref %d", r.Transform.DPI, r.Transform.ReferenceDPI)
	}
	if len(r.Marks) != 4 {
		t.Errorf("marks = %d", len(r.Marks))
	}
}

func TestBackgroundPatch(t *testing.T) {
	cfg := writeInputs(t, testChart)
	cfg.Background = "a02"
	r := prepare(t, cfg)
	if !r.Summary.BackgroundFound {
		t.Fatal("background patch not found")
	}
	bg := r.Background
	if bg.R > 40000 || bg.R < 20000 || absDiff(bg.R, bg.G) > 16 || absDiff(bg.G, bg.B) > 16 {
		t.Errorf("background = %v, want mid gray", bg)
	}

	cfg.Background = "ZZ9"
	var buf bytes.Buffer
	r2, err := Prepare(cfg, log.New(&buf, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()
	if r2.Summary.BackgroundFound || r2.Background.R != 0xffff {
		t.Errorf("missing background should fall back to white, got %v", r2.Background)
	}
	if !strings.Contains(buf.String(), "ZZ9") {
		t.Errorf("no warning logged: %q", buf.String())
	}
}

func absDiff(a, b uint16) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestLabelOverride(t *testing.T) {
	cfg := writeInputs(t, testChart)
	cfg.LabelSides = map[string]string{"x": "NONE"}
	r := prepare(t, cfg)

	if r.Decisions[0].Sides != labels.None || !r.Decisions[0].Manual {
		t.Errorf("X decision = %+v", r.Decisions[0])
	}
	for _, l := range r.Labels {
		if l.Text == "01" || l.Text == "A" {
			t.Errorf("label %q placed for a hidden area", l.Text)
		}
	}
}

func TestRunWritesOutputs(t *testing.T) {
	cfg := writeInputs(t, testChart)
	dir := filepath.Dir(cfg.ChartPath)
	cfg.OutputPath = filepath.Join(dir, "out.tif")
	cfg.PNG = true
	cfg.Report = filepath.Join(dir, "out.xlsx")

	r, err := Run(cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	x, y, err := image.ReadTIFFDPI(cfg.OutputPath)
	if err != nil || x != 150 || y != 150 {
		t.Errorf("TIFF dpi = %v x %v, %v", x, y, err)
	}
	img, err := image.Load(cfg.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != r.Transform.Canvas.X || img.Bounds().Dy() != r.Transform.Canvas.Y {
		t.Errorf("image size %v, canvas %v", img.Bounds(), r.Transform.Canvas)
	}

	gray := patchByID(r, "B03")
	c := gray.Box.Min.Add(gray.Box.Max).Div(2)
	if cr, cg, cb, _ := img.At(c.X, c.Y).RGBA(); cr != 0x8000 || cg != 0x8000 || cb != 0x8000 {
		t.Errorf("unmatched patch pixel = %04x %04x %04x", cr, cg, cb)
	}

	for _, p := range []string{PreviewPath(cfg.OutputPath), cfg.Report} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}
}

func TestRunRequiresOutput(t *testing.T) {
	if _, err := Run(writeInputs(t, testChart), nil); err == nil {
		t.Error("expected error without output path")
	}
}

func TestMalformedChartIsFatal(t *testing.T) {
	cfg := writeInputs(t, "BOXES 1\n  X 01 03 A B 50 abc 20 10 0 0\n")
	_, err := Prepare(cfg, nil)
	if !errors.Is(err, chart.ErrMalformedChart) {
		t.Errorf("err = %v, want ErrMalformedChart", err)
	}
}

func TestAffineMode(t *testing.T) {
	cfg := writeInputs(t, testChart)
	// Fiducial corners (1,1) (201,1) (201,101) (1,101) mapped by 2u + 10.
	cfg.MeasuredFiducials = []float64{12, 12, 412, 12, 412, 212, 12, 212}
	r := prepare(t, cfg)

	if r.Transform.Mode != alignment.ModeAffine {
		t.Fatalf("mode = %s", r.Transform.Mode)
	}
	got := r.Transform.Apply(geometry.NewPoint2D(20, 10))
	if got.Distance(geometry.NewPoint2D(50, 30)) > 1e-6 {
		t.Errorf("patch origin = %v, want (50, 30)", got)
	}

	cfg.MeasuredFiducials = []float64{0, 0, 10, 10, 20, 20, 30, 30}
	if _, err := Prepare(cfg, nil); !errors.Is(err, alignment.ErrDegenerateFiducials) {
		t.Errorf("err = %v, want ErrDegenerateFiducials", err)
	}
}

func TestPrint(t *testing.T) {
	cfg := writeInputs(t, testChart)
	cfg.OutputPath = "out.tif"
	r := prepare(t, cfg)

	var buf bytes.Buffer
	r.Print(&buf, true)
	out := buf.String()
	for _, want := range []string{
		"Saved: out.tif",
		"Patches: 8, matched 6, unmatched 1, missing color 1",
		"Patch count mismatch",
		"X/B03 (not in reference data)",
		"X/B02 (missing color data)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestAnnotations(t *testing.T) {
	r := prepare(t, writeInputs(t, testChart))
	a := r.annotations()
	if a.Left[0] != "Created: 2024-01-01" || a.Left[1] != "Data File: test.cie" {
		t.Errorf("left footer = %q", a.Left)
	}
	if len(a.Right) != 3 || a.Right[0] != "Test Lab, CGATS.17" || a.Right[2] != "Manufacturer: Nobody" {
		t.Errorf("right footer = %q", a.Right)
	}
	if a.LeftX != r.Transform.Apply(geometry.NewPoint2D(1, 1)).X {
		t.Errorf("left anchor %v should follow the top-left fiducial", a.LeftX)
	}
	if a.FooterY >= float64(r.Transform.Canvas.Y) {
		t.Errorf("footer at %v outside canvas %v", a.FooterY, r.Transform.Canvas)
	}
}

func TestCountCheck(t *testing.T) {
	tests := []struct {
		c       CountCheck
		problem bool
	}{
		{CountCheck{Chart: 8, Declared: 8, Measured: 8}, false},
		{CountCheck{Chart: 8, Declared: 7, Measured: 7}, true},
		{CountCheck{Chart: 8, Declared: 8, Measured: 6}, true},
		{CountCheck{Declared: 5, Measured: 5}, false},
		{CountCheck{Chart: 4, Measured: 3}, true},
		{CountCheck{Measured: 3}, false},
	}
	for _, tt := range tests {
		if got := tt.c.Problem() != ""; got != tt.problem {
			t.Errorf("%+v: problem = %v, want %v", tt.c, got, tt.problem)
		}
	}
}

func TestPreviewPath(t *testing.T) {
	if got := PreviewPath("/tmp/chart.tif"); got != "/tmp/chart.preview.png" {
		t.Errorf("PreviewPath = %q", got)
	}
	if got := PreviewPath("chart"); got != "chart.preview.png" {
		t.Errorf("PreviewPath = %q", got)
	}
}
