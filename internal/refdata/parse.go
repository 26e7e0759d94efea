package refdata

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"rectarg/internal/patchid"
)

// xyzPercentThreshold separates XYZ data on a 0-1 scale from data on a
// 0-100 scale.
const xyzPercentThreshold = 5.0

type parseState int

const (
	stateHeader parseState = iota
	stateFormat
	stateData
	stateDone
)

// ParseFile reads a reference dataset, resolving color values in space.
func ParseFile(path string, space Space) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference data: %w", err)
	}
	defer f.Close()

	ds, err := Parse(f, space)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Parse reads a CGATS-style dataset from r.
func Parse(r io.Reader, space Space) (*Dataset, error) {
	ds := &Dataset{
		Keywords: make(map[string]string),
		Space:    space,
		Scale:    1,
		labelCol: -1,
		colorCol: [3]int{-1, -1, -1},
		index:    patchid.NewIndex(),
	}
	var labelCols []int
	state := stateHeader
	sawData := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := splitFields(line)
		if len(tokens) == 0 {
			continue
		}
		head := strings.ToUpper(tokens[0])

		switch state {
		case stateFormat:
			if head == "END_DATA_FORMAT" {
				state = stateHeader
				continue
			}
			ds.Fields = append(ds.Fields, tokens...)
			continue
		case stateData:
			if head == "END_DATA" {
				state = stateDone
				continue
			}
			ds.addRecord(tokens, labelCols, lineNo)
			continue
		case stateDone:
			continue
		}

		switch head {
		case "BEGIN_DATA_FORMAT":
			ds.Fields = append(ds.Fields, tokens[1:]...)
			state = stateFormat
		case "BEGIN_DATA":
			if len(ds.Fields) == 0 {
				return nil, fmt.Errorf("line %d: BEGIN_DATA without a data format", lineNo)
			}
			labelCols, ds.colorCol = resolveColumns(ds.Fields, space)
			if len(labelCols) > 0 {
				ds.labelCol = labelCols[0]
			}
			if ds.ColorFields() == nil {
				log.Printf("refdata: no %s columns among %v", space, ds.Fields)
			}
			sawData = true
			state = stateData
		default:
			if ds.Format == "" {
				ds.Format = tokens[0]
				if len(tokens) == 1 {
					continue
				}
			}
			ds.keyword(head, tokens[1:], lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reference data: %w", err)
	}
	if !sawData {
		return nil, fmt.Errorf("no BEGIN_DATA block")
	}

	ds.fillMetadata()
	ds.normalizeScale()
	return ds, nil
}

func (ds *Dataset) keyword(key string, rest []string, line int) {
	value := strings.Join(rest, " ")
	if _, seen := ds.Keywords[key]; !seen {
		ds.Keywords[key] = value
	}
	if key == "NUMBER_OF_SETS" {
		n, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("refdata: line %d: bad NUMBER_OF_SETS %q", line, value)
			return
		}
		ds.DeclaredSets = n
	}
}

func (ds *Dataset) addRecord(values []string, labelCols []int, line int) {
	label := ""
	for _, c := range labelCols {
		if c < len(values) && plausibleLabel(values[c]) {
			label = values[c]
			break
		}
	}
	if label == "" {
		label = values[0]
	}

	rec := Record{
		ID:     patchid.Parse(label),
		Label:  label,
		Values: values,
		Line:   line,
	}
	rec.Valid = true
	for ch, c := range ds.colorCol {
		if c < 0 || c >= len(values) {
			rec.Valid = false
			break
		}
		v, err := strconv.ParseFloat(values[c], 64)
		if err != nil {
			rec.Valid = false
			break
		}
		rec.Color[ch] = v
	}
	if !rec.Valid {
		rec.Color = [3]float64{}
	}

	first, ok := ds.index.Add(rec.ID, len(ds.Records))
	if !ok {
		ds.Duplicates = append(ds.Duplicates, &DuplicateError{
			ID:        rec.ID.String(),
			Line:      line,
			FirstLine: ds.Records[first].Line,
		})
		return
	}
	ds.Records = append(ds.Records, rec)
}

func (ds *Dataset) fillMetadata() {
	kw := ds.Keywords
	ds.Meta = Metadata{
		Originator:   kw["ORIGINATOR"],
		Descriptor:   kw["DESCRIPTOR"],
		Created:      kw["CREATED"],
		MeasureDate:  kw["MEASURE_DATE"],
		Manufacturer: kw["MANUFACTURER"],
		Serial:       kw["SERIAL"],
		ProdDate:     kw["PROD_DATE"],
	}
}

// normalizeScale divides XYZ values by 100 when the dataset is on a 0-100
// scale (any component above 5).
func (ds *Dataset) normalizeScale() {
	if ds.Space != SpaceXYZ {
		return
	}
	vmax := 0.0
	for _, rec := range ds.Records {
		if !rec.Valid {
			continue
		}
		for _, v := range rec.Color {
			vmax = max(vmax, v)
		}
	}
	if vmax <= xyzPercentThreshold {
		return
	}
	ds.Scale = 0.01
	for i := range ds.Records {
		for ch := range ds.Records[i].Color {
			ds.Records[i].Color[ch] *= ds.Scale
		}
	}
}

// splitFields splits a line on whitespace, keeping double-quoted runs
// together and stripping the quotes.
func splitFields(line string) []string {
	var out []string
	var sb strings.Builder
	inQuote, have := false, false
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			have = true
		case !inQuote && (r == ' ' || r == '\t'):
			if have {
				out = append(out, sb.String())
				sb.Reset()
				have = false
			}
		default:
			sb.WriteRune(r)
			have = true
		}
	}
	if have {
		out = append(out, sb.String())
	}
	return out
}
