package chart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"rectarg/internal/patchid"
)

// DisabledLabel marks an unlabeled axis in a layout file.
const DisabledLabel = "_"

// ExpandAxis resolves a start/end label pair into the ordered list of
// labels along an axis. Supported forms are zero-padded numbers (01..22),
// spreadsheet-style letter runs (A..L, A..AX), letters with a numeric
// suffix (GS00..GS23) and numbers with a letter suffix (2A..2D). A "_"
// endpoint yields one unlabeled index.
func ExpandAxis(start, end string) ([]string, error) {
	s := normalizeLabel(start)
	e := normalizeLabel(end)
	if s == DisabledLabel || e == DisabledLabel {
		if s != e {
			return nil, fmt.Errorf("%w: range %s..%s mixes a disabled endpoint", ErrMalformedChart, s, e)
		}
		return []string{""}, nil
	}
	if s == "" || e == "" {
		return nil, fmt.Errorf("%w: empty axis label", ErrMalformedChart)
	}
	if s == e {
		return []string{s}, nil
	}

	a, b := patchid.Parse(s), patchid.Parse(e)
	switch {
	case a.NumberOnly() && b.NumberOnly():
		nums, err := numberRange(a.Number, b.Number, max(a.Width, b.Width))
		if err != nil {
			return nil, fmt.Errorf("range %s..%s: %w", s, e, err)
		}
		return nums, nil

	case a.LetterOnly() && b.LetterOnly() && a.Prefix == b.Prefix:
		cols, err := columnRange(a.Letters, b.Letters)
		if err != nil {
			return nil, fmt.Errorf("range %s..%s: %w", s, e, err)
		}
		for i := range cols {
			cols[i] = a.Prefix + cols[i]
		}
		return cols, nil

	case a.HasNumber && b.HasNumber && a.Letters != "" && a.Letters == b.Letters && a.Prefix == "" && b.Prefix == "":
		nums, err := numberRange(a.Number, b.Number, max(a.Width, b.Width))
		if err != nil {
			return nil, fmt.Errorf("range %s..%s: %w", s, e, err)
		}
		for i := range nums {
			nums[i] = a.Letters + nums[i]
		}
		return nums, nil
	}
	return nil, fmt.Errorf("%w: incompatible range endpoints %s..%s", ErrMalformedChart, s, e)
}

func numberRange(from, to, width int) ([]string, error) {
	if to < from {
		return nil, fmt.Errorf("%w: reversed range", ErrMalformedChart)
	}
	out := make([]string, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, fmt.Sprintf("%0*d", width, n))
	}
	return out, nil
}

// columnRange enumerates letter labels the way spreadsheet columns are
// named: A..Z, AA..AZ, BA.. .
func columnRange(from, to string) ([]string, error) {
	lo, err := excelize.ColumnNameToNumber(from)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedChart, err)
	}
	hi, err := excelize.ColumnNameToNumber(to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedChart, err)
	}
	if hi < lo {
		return nil, fmt.Errorf("%w: reversed range", ErrMalformedChart)
	}
	out := make([]string, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		name, err := excelize.ColumnNumberToName(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedChart, err)
		}
		out = append(out, name)
	}
	return out, nil
}

func normalizeLabel(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	return strings.ToUpper(strings.TrimSpace(s))
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.Trim(s, `"'`), 64)
}
