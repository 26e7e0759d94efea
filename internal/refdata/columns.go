package refdata

import "strings"

// labelColumns lists identifier columns in priority order.
var labelColumns = []string{"SAMPLE_LOC", "SAMPLE_LABEL", "SAMPLE_NAME", "SAMPLE_ID"}

// colorColumns lists, per space and per channel, the accepted column
// names in priority order.
var colorColumns = map[Space][3][]string{
	SpaceLAB: {
		{"LAB_L", "L", "L*", "LAB-L", "LABL", "LCH_L"},
		{"LAB_A", "A", "A*", "LAB-A", "LABA", "LCH_A"},
		{"LAB_B", "B", "B*", "LAB-B", "LABB", "LCH_B"},
	},
	SpaceXYZ: {
		{"XYZ_X", "X"},
		{"XYZ_Y", "Y"},
		{"XYZ_Z", "Z"},
	},
}

// findColumn returns the index of the first candidate present in fields.
func findColumn(fields []string, candidates []string) int {
	for _, c := range candidates {
		for i, f := range fields {
			if strings.EqualFold(f, c) {
				return i
			}
		}
	}
	return -1
}

// findPrefixed returns the index of the first field starting with prefix,
// for suffixed dialects such as LAB_L_D50.
func findPrefixed(fields []string, prefix string) int {
	for i, f := range fields {
		if len(f) > len(prefix) && strings.EqualFold(f[:len(prefix)], prefix) {
			return i
		}
	}
	return -1
}

func resolveColumns(fields []string, space Space) (labels []int, color [3]int) {
	for _, c := range labelColumns {
		if i := findColumn(fields, []string{c}); i >= 0 {
			labels = append(labels, i)
		}
	}
	table := colorColumns[space]
	for ch := range color {
		color[ch] = findColumn(fields, table[ch])
		if color[ch] < 0 {
			color[ch] = findPrefixed(fields, table[ch][0])
		}
	}
	return labels, color
}

// plausibleLabel reports whether a value looks like a patch identifier
// (letters and digits only).
func plausibleLabel(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}
