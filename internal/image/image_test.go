package image

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"rectarg/internal/alignment"
	"rectarg/internal/labels"
	"rectarg/internal/typeset"
	"rectarg/pkg/colorutil"
	"rectarg/pkg/geometry"
)

func rectQuad(x, y, w, h float64) [4]geometry.Point2D {
	return geometry.NewRect(x, y, w, h).Corners()
}

func TestRenderPatchesAndMarks(t *testing.T) {
	red := color.RGBA64{R: 0xffff, A: 0xffff}
	s := &Scene{
		Size:       image.Pt(200, 100),
		Background: colorutil.White,
		Patches:    []Patch{{Quad: rectQuad(50, 20, 30, 40), Color: red}},
		Marks:      []alignment.Mark{{Corner: geometry.NewPoint2D(10, 10), DirX: 1, DirY: 1, Length: 20, Stroke: 4}},
	}
	img := Render(s, Fonts{})

	if got := img.RGBA64At(60, 30); got != red {
		t.Errorf("patch pixel = %v", got)
	}
	if got := img.RGBA64At(80, 30); got != colorutil.White {
		t.Errorf("pixel right of patch = %v, want background", got)
	}
	// Both arms of the mark, and the corner.
	for _, p := range []image.Point{{25, 10}, {10, 25}, {10, 10}} {
		if got := img.RGBA64At(p.X, p.Y); got != colorutil.Black {
			t.Errorf("mark pixel %v = %v", p, got)
		}
	}
	if got := img.RGBA64At(25, 25); got != colorutil.White {
		t.Errorf("inside the L = %v, want background", got)
	}
}

func TestFillRotatedQuad(t *testing.T) {
	img := image.NewRGBA64(image.Rect(0, 0, 100, 100))
	c := color.RGBA64{G: 0xffff, A: 0xffff}
	diamond := [4]geometry.Point2D{{X: 50, Y: 10}, {X: 90, Y: 50}, {X: 50, Y: 90}, {X: 10, Y: 50}}
	fillQuad(img, diamond, c)

	if img.RGBA64At(50, 50) != c {
		t.Error("center not filled")
	}
	if img.RGBA64At(15, 15) == c {
		t.Error("corner outside the diamond filled")
	}
}

func TestRenderText(t *testing.T) {
	f, err := typeset.LoadFont("")
	if err != nil {
		t.Fatal(err)
	}
	face, err := typeset.NewFace(f, 12)
	if err != nil {
		t.Fatal(err)
	}
	defer face.Close()

	s := &Scene{
		Size:       image.Pt(400, 200),
		Background: colorutil.White,
		Labels:     []labels.Label{{Text: "A1", Center: geometry.NewPoint2D(50, 50)}},
		Text: Annotations{
			Header:   "Created by rectarg",
			HeaderAt: geometry.NewPoint2D(390, 5),
			FooterY:  150,
			LeftX:    10,
			RightX:   390,
			Left:     []string{"Created: today"},
			Right:    []string{"ORIG"},
		},
	}
	img := Render(s, Fonts{Label: face, Footer: face})

	dark := func(r image.Rectangle) bool {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				if img.RGBA64At(x, y).R < 0x8000 {
					return true
				}
			}
		}
		return false
	}
	if !dark(image.Rect(35, 40, 65, 60)) {
		t.Error("label not drawn")
	}
	if !dark(image.Rect(250, 5, 390, 20)) {
		t.Error("header not drawn right-aligned")
	}
	if !dark(image.Rect(10, 150, 100, 165)) {
		t.Error("left footer line not drawn")
	}
	if !dark(image.Rect(340, 150, 390, 165)) {
		t.Error("right footer line not drawn")
	}
	if dark(image.Rect(150, 60, 250, 140)) {
		t.Error("unexpected ink in empty region")
	}
}

func TestTIFFRoundTrip(t *testing.T) {
	img := image.NewRGBA64(image.Rect(0, 0, 8, 4))
	want := color.RGBA64{R: 0x1234, G: 0xabcd, B: 0x0001, A: 0xffff}
	img.SetRGBA64(3, 2, want)

	path := filepath.Join(t.TempDir(), "out.tif")
	if err := WriteTIFF(path, img, 600); err != nil {
		t.Fatalf("WriteTIFF: %v", err)
	}

	x, y, err := ReadTIFFDPI(path)
	if err != nil {
		t.Fatalf("ReadTIFFDPI: %v", err)
	}
	if x != 600 || y != 600 {
		t.Errorf("dpi = %v x %v, want 600", x, y)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	back, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, b, _ := back.At(3, 2).RGBA()
	if uint16(r) != want.R || uint16(g) != want.G || uint16(b) != want.B {
		t.Errorf("pixel = %04x %04x %04x, want 16-bit values preserved", r, g, b)
	}
}

func TestReadTIFFDPIErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.tif")
	os.WriteFile(bad, []byte("GIF89a.."), 0644)
	if _, _, err := ReadTIFFDPI(bad); err == nil {
		t.Error("expected error for non-TIFF data")
	}
	if _, _, err := ReadTIFFDPI(filepath.Join(dir, "missing.tif")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPreviewScales(t *testing.T) {
	img := image.NewRGBA64(image.Rect(0, 0, 400, 100))
	p := Preview(img, 200)
	if p.Bounds().Dx() != 200 || p.Bounds().Dy() != 50 {
		t.Errorf("preview size = %v", p.Bounds())
	}
	full := Preview(img, 0)
	if full.Bounds().Dx() != 400 {
		t.Errorf("unscaled preview size = %v", full.Bounds())
	}

	path := filepath.Join(t.TempDir(), "out.preview.png")
	if err := WritePNG(path, img, 200); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	decoded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds().Dx() != 200 {
		t.Errorf("decoded preview width = %d", decoded.Bounds().Dx())
	}
}

func TestClamp(t *testing.T) {
	if clamp(-5, 0, 10) != 0 || clamp(15, 0, 10) != 10 || clamp(5, 0, 10) != 5 {
		t.Error("clamp within range")
	}
	if clamp(3, 0, -1) != 0 {
		t.Error("inverted range should yield lo")
	}
}
