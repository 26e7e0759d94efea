package chart

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"rectarg/pkg/geometry"
)

type section int

const (
	sectionBoxes section = iota
	sectionXList
	sectionYList
	sectionExpected
	sectionOther
)

// ParseFile reads and parses a layout file.
func ParseFile(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chart: %w", err)
	}
	defer f.Close()

	def, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse reads a layout from r. Lines are whitespace tokenized with quotes
// stripped. A multi-letter upper-case first token switches section; in the
// BOXES section, a single-letter first token declares a fiducial (F),
// the chart dimensions (D) or a patch area (any other letter).
func Parse(r io.Reader) (*Definition, error) {
	def := &Definition{}
	names := make(map[string]int)
	state := sectionBoxes
	dims := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		tokens := tokenize(line)
		if len(tokens) == 0 {
			continue
		}
		head := strings.ToUpper(tokens[0])

		if isKeyword(tokens[0]) {
			var err error
			state, err = def.enterSection(head, tokens, lineNo)
			if err != nil {
				return nil, err
			}
			continue
		}

		switch state {
		case sectionBoxes:
			if len(head) != 1 || !isUpper(head[0]) {
				continue
			}
			if err := def.declare(head, tokens, lineNo, names); err != nil {
				return nil, err
			}
			dims = dims || head == "D"
		case sectionXList:
			if v, err := parseNumber(tokens[0]); err == nil {
				def.XList = append(def.XList, v)
			}
		case sectionYList:
			if v, err := parseNumber(tokens[0]); err == nil {
				def.YList = append(def.YList, v)
			}
		case sectionExpected:
			def.Expected.Found++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chart: %w", err)
	}

	if len(def.Areas) == 0 {
		return nil, &ParseError{Line: lineNo, Err: fmt.Errorf("no patch area definitions")}
	}
	if !dims {
		return nil, &ParseError{Line: lineNo, Field: "D", Err: fmt.Errorf("missing chart dimensions")}
	}
	return def, nil
}

func (d *Definition) enterSection(head string, tokens []string, line int) (section, error) {
	switch head {
	case "BOXES":
		return sectionBoxes, nil
	case "XLIST":
		return sectionXList, nil
	case "YLIST":
		return sectionYList, nil
	case "BOX_SHRINK":
		v, err := keywordValue(tokens, line, head)
		if err != nil {
			return sectionOther, err
		}
		d.BoxShrink = v
	case "REF_ROTATION":
		v, err := keywordValue(tokens, line, head)
		if err != nil {
			return sectionOther, err
		}
		d.RefRotation = v
	case "EXPECTED":
		exp := &Expected{}
		if len(tokens) > 1 {
			exp.Space = strings.ToUpper(tokens[1])
		}
		if len(tokens) > 2 {
			n, err := strconv.Atoi(tokens[2])
			if err != nil {
				return sectionOther, &ParseError{Line: line, Field: "EXPECTED count", Err: err}
			}
			exp.Count = n
		}
		d.Expected = exp
		return sectionExpected, nil
	default:
		log.Printf("chart: line %d: ignoring keyword %s", line, head)
	}
	return sectionOther, nil
}

func keywordValue(tokens []string, line int, name string) (float64, error) {
	if len(tokens) < 2 {
		return 0, &ParseError{Line: line, Field: name, Err: fmt.Errorf("missing value")}
	}
	v, err := parseNumber(tokens[1])
	if err != nil {
		return 0, &ParseError{Line: line, Field: name, Err: err}
	}
	return v, nil
}

func (d *Definition) declare(head string, tokens []string, line int, names map[string]int) error {
	switch head {
	case "F":
		f, err := parseFiducial(tokens, line)
		if err != nil {
			return err
		}
		d.Fiducials = append(d.Fiducials, f)
	case "D":
		return d.parseDimensions(tokens, line)
	default:
		a, err := parseArea(tokens, line)
		if err != nil {
			return err
		}
		if prev, dup := names[a.Name]; dup {
			return &ParseError{Line: line, Field: "name",
				Err: fmt.Errorf("area %s already defined on line %d", a.Name, prev)}
		}
		names[a.Name] = line
		d.Areas = append(d.Areas, a)
	}
	return nil
}

// parseFiducial collects the numeric coordinates of an F line. Three
// points are completed to their bounding rectangle.
func parseFiducial(tokens []string, line int) (Fiducial, error) {
	var nums []float64
	for _, tok := range tokens[1:] {
		if v, err := parseNumber(tok); err == nil {
			nums = append(nums, v)
		}
	}
	if len(nums)%2 != 0 {
		nums = nums[1:]
	}

	var pts []geometry.Point2D
	for i := 0; i+1 < len(nums); i += 2 {
		pts = append(pts, geometry.NewPoint2D(nums[i], nums[i+1]))
	}

	f := Fiducial{Line: line}
	switch {
	case len(pts) >= 4:
		copy(f.Points[:], pts[:4])
	case len(pts) == 3:
		f.Points = geometry.BoundingBox(pts).Corners()
	default:
		return Fiducial{}, &ParseError{Line: line, Field: "F",
			Err: fmt.Errorf("need 4 coordinate pairs, found %d", len(pts))}
	}
	return f, nil
}

func (d *Definition) parseDimensions(tokens []string, line int) error {
	if len(tokens) < 7 {
		return &ParseError{Line: line, Field: "D", Err: fmt.Errorf("missing width/height")}
	}
	w, err := parseNumber(tokens[5])
	if err != nil {
		return &ParseError{Line: line, Field: "width", Err: err}
	}
	h, err := parseNumber(tokens[6])
	if err != nil {
		return &ParseError{Line: line, Field: "height", Err: err}
	}
	d.Width, d.Height = w, h
	return nil
}

var geometryFields = [6]string{"tile_x", "tile_y", "pre_x", "pre_y", "post_x", "post_y"}

func parseArea(tokens []string, line int) (*Area, error) {
	if len(tokens) < 11 {
		return nil, &ParseError{Line: line, Field: tokens[0],
			Err: fmt.Errorf("need 10 fields after area name, found %d", len(tokens)-1)}
	}
	a := &Area{Name: strings.ToUpper(tokens[0]), Line: line}

	var err error
	if a.Axis1, err = parseAxis(tokens[1], tokens[2], line, "axis1"); err != nil {
		return nil, err
	}
	if a.Axis2, err = parseAxis(tokens[3], tokens[4], line, "axis2"); err != nil {
		return nil, err
	}

	var v [6]float64
	for i, field := range geometryFields {
		v[i], err = parseNumber(tokens[5+i])
		if err != nil {
			return nil, &ParseError{Line: line, Field: field, Err: err}
		}
	}
	if v[0] <= 0 || v[1] <= 0 {
		return nil, &ParseError{Line: line, Field: "tile",
			Err: fmt.Errorf("tile size must be positive, got %gx%g", v[0], v[1])}
	}
	a.Tile = geometry.NewPoint2D(v[0], v[1])
	a.Pre = geometry.NewPoint2D(v[2], v[3])
	a.Post = geometry.NewPoint2D(v[4], v[5])
	return a, nil
}

func parseAxis(start, end string, line int, field string) (Axis, error) {
	labels, err := ExpandAxis(start, end)
	if err != nil {
		return Axis{}, &ParseError{Line: line, Field: field, Err: err}
	}
	return Axis{Start: normalizeLabel(start), End: normalizeLabel(end), Labels: labels}, nil
}

func tokenize(line string) []string {
	fields := strings.Fields(line)
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, `"'`)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// isKeyword reports whether tok is a multi-letter section keyword such as
// BOXES or BOX_SHRINK.
func isKeyword(tok string) bool {
	if len(tok) < 2 {
		return false
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if !isUpper(c) && c != '_' {
			return false
		}
	}
	return true
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
