package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// TIFF tags and field types touched when setting the resolution.
const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	typeShort    = 3
	typeRational = 5

	unitInch       = 2
	unitCentimeter = 3
)

// DefaultPreviewSize bounds the longer side of a PNG preview in pixels.
const DefaultPreviewSize = 2000

var errNotTIFF = errors.New("not a valid TIFF file")

// EncodeTIFF writes img as an uncompressed TIFF whose resolution tags are
// set to dpi pixels per inch. An RGBA64 image is written with 16 bits per
// sample.
func EncodeTIFF(w io.Writer, img image.Image, dpi int) error {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
		return fmt.Errorf("failed to encode TIFF: %w", err)
	}
	data := buf.Bytes()
	if err := setResolution(data, dpi); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// WriteTIFF writes img to path with EncodeTIFF.
func WriteTIFF(path string, img image.Image, dpi int) error {
	var buf bytes.Buffer
	if err := EncodeTIFF(&buf, img, dpi); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WritePNG writes an 8-bit preview of img whose longer side is at most
// maxSize pixels. maxSize <= 0 keeps the full size.
func WritePNG(path string, img image.Image, maxSize int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, Preview(img, maxSize)); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return f.Close()
}

// Preview converts img to 8-bit RGBA, scaling it down so that its longer
// side is at most maxSize pixels.
func Preview(img image.Image, maxSize int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize > 0 && max(w, h) > maxSize {
		if w >= h {
			w, h = maxSize, max(1, h*maxSize/w)
		} else {
			w, h = max(1, w*maxSize/h), maxSize
		}
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	}
	return out
}

// Load decodes the image at path.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// ReadTIFFDPI returns the horizontal and vertical resolution of a TIFF
// file in pixels per inch.
func ReadTIFFDPI(path string) (x, y float64, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	return tiffDPI(data)
}

func tiffDPI(data []byte) (x, y float64, err error) {
	order, entries, err := readIFD(data)
	if err != nil {
		return 0, 0, err
	}

	unit := uint16(unitInch)
	for _, e := range entries {
		switch {
		case e.tag == tagXResolution && e.typ == typeRational:
			x = readRational(data, e.value, order)
		case e.tag == tagYResolution && e.typ == typeRational:
			y = readRational(data, e.value, order)
		case e.tag == tagResolutionUnit && e.typ == typeShort:
			unit = order.Uint16(data[e.pos+8:])
		}
	}
	if x == 0 && y == 0 {
		return 0, 0, fmt.Errorf("no resolution tags found")
	}
	if unit == unitCentimeter {
		x *= 2.54
		y *= 2.54
	}
	return x, y, nil
}

// ifdEntry is one 12-byte directory entry of the first IFD.
type ifdEntry struct {
	tag, typ uint16
	count    uint32
	value    uint32 // value or offset
	pos      int    // entry offset in the file
}

func readIFD(data []byte) (binary.ByteOrder, []ifdEntry, error) {
	if len(data) < 8 {
		return nil, nil, errNotTIFF
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, nil, errNotTIFF
	}

	off := int(order.Uint32(data[4:8]))
	if off+2 > len(data) {
		return nil, nil, fmt.Errorf("IFD offset %d out of range", off)
	}
	n := int(order.Uint16(data[off:]))
	entries := make([]ifdEntry, 0, n)
	for i := 0; i < n; i++ {
		p := off + 2 + i*12
		if p+12 > len(data) {
			return nil, nil, fmt.Errorf("truncated IFD entry %d", i)
		}
		entries = append(entries, ifdEntry{
			tag:   order.Uint16(data[p:]),
			typ:   order.Uint16(data[p+2:]),
			count: order.Uint32(data[p+4:]),
			value: order.Uint32(data[p+8:]),
			pos:   p,
		})
	}
	return order, entries, nil
}

func readRational(data []byte, off uint32, order binary.ByteOrder) float64 {
	o := int(off)
	if o+8 > len(data) {
		return 0
	}
	num, denom := order.Uint32(data[o:]), order.Uint32(data[o+4:])
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// setResolution rewrites the resolution rationals of an encoded TIFF in
// place and sets the unit to inches.
func setResolution(data []byte, dpi int) error {
	order, entries, err := readIFD(data)
	if err != nil {
		return err
	}
	found := 0
	for _, e := range entries {
		switch {
		case (e.tag == tagXResolution || e.tag == tagYResolution) && e.typ == typeRational:
			o := int(e.value)
			if o+8 > len(data) {
				return fmt.Errorf("resolution tag %d points outside the file", e.tag)
			}
			order.PutUint32(data[o:], uint32(dpi))
			order.PutUint32(data[o+4:], 1)
			found++
		case e.tag == tagResolutionUnit && e.typ == typeShort:
			order.PutUint16(data[e.pos+8:], unitInch)
		}
	}
	if found != 2 {
		return fmt.Errorf("encoder wrote %d resolution tags, want 2", found)
	}
	return nil
}
