// Package patchid models patch identifiers as structured values and
// reconciles the labeling conventions of chart layouts and reference data.
package patchid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnmatchedIdentifier indicates no reference record exists for a
// generated identifier after all normalization attempts.
var ErrUnmatchedIdentifier = errors.New("unmatched identifier")

// ID is a patch identifier split into a leading numeric prefix, a letter
// run and a trailing number. Text that does not fit that shape is kept
// verbatim in Raw.
type ID struct {
	Prefix    string // leading digits as written, "" if none
	Letters   string
	Number    int
	Width     int // digit count of the trailing number as written
	HasNumber bool
	Raw       string
}

// Parse normalizes s (quotes and whitespace stripped, upper-cased) and
// splits it into its structured parts.
func Parse(s string) ID {
	s = normalizeText(s)
	if s == "" {
		return ID{}
	}

	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	j := i
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	k := j
	for k < len(s) && isDigit(s[k]) {
		k++
	}
	if k != len(s) {
		return ID{Raw: s}
	}

	// Pure digits: a bare number, no letters.
	if j == i {
		n, err := strconv.Atoi(s)
		if err != nil {
			return ID{Raw: s}
		}
		return ID{Number: n, Width: len(s), HasNumber: true}
	}

	id := ID{Prefix: s[:i], Letters: s[i:j]}
	if k > j {
		n, err := strconv.Atoi(s[j:k])
		if err != nil {
			return ID{Raw: s}
		}
		id.Number = n
		id.Width = k - j
		id.HasNumber = true
	}
	return id
}

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool {
	return id == ID{}
}

// Structured reports whether the identifier was split into parts.
func (id ID) Structured() bool {
	return id.Raw == ""
}

// String flattens the identifier in its generated form, keeping the
// declared width of the trailing number.
func (id ID) String() string {
	if !id.Structured() {
		return id.Raw
	}
	return id.format(id.Prefix, id.Width)
}

// WithWidth flattens the identifier with the trailing number padded to
// width digits.
func (id ID) WithWidth(width int) string {
	if !id.Structured() {
		return id.Raw
	}
	return id.format(id.Prefix, width)
}

// Key returns the canonical form used for matching: every numeric run at
// its minimum width, so "A01", "A1" and "a001" share one key.
func (id ID) Key() string {
	if !id.Structured() {
		return id.Raw
	}
	return id.format(trimZeros(id.Prefix), 0)
}

// LetterOnly reports whether the identifier is a letter run with an
// optional numeric prefix and no trailing number, e.g. "A" or "2A".
func (id ID) LetterOnly() bool {
	return id.Structured() && id.Letters != "" && !id.HasNumber
}

// NumberOnly reports whether the identifier is a bare number.
func (id ID) NumberOnly() bool {
	return id.Structured() && id.Letters == "" && id.Prefix == "" && id.HasNumber
}

func (id ID) format(prefix string, width int) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(id.Letters)
	if id.HasNumber {
		num := strconv.Itoa(id.Number)
		for i := len(num); i < width; i++ {
			sb.WriteByte('0')
		}
		sb.WriteString(num)
	}
	return sb.String()
}

// Compose combines the labels of the two grid axes into a patch
// identifier. A letter label paired with a number label produces
// prefix+letters+number regardless of which axis carries which, so "01" x
// "A" yields "A01". Any other pairing concatenates in declared order. An
// empty label marks a disabled axis. The second return value is the plain
// declared-order concatenation, used as an alternate match candidate.
func Compose(axis1, axis2 string) (ID, ID) {
	declared := Parse(axis1 + axis2)
	if normalizeText(axis1) == "" {
		return declared, declared
	}
	if normalizeText(axis2) == "" {
		return declared, declared
	}

	p1, p2 := Parse(axis1), Parse(axis2)
	switch {
	case p1.LetterOnly() && p2.NumberOnly():
		return join(p1, p2), declared
	case p1.NumberOnly() && p2.LetterOnly():
		return join(p2, p1), declared
	}
	return declared, declared
}

func join(letters, number ID) ID {
	return ID{
		Prefix:    letters.Prefix,
		Letters:   letters.Letters,
		Number:    number.Number,
		Width:     number.Width,
		HasNumber: true,
	}
}

// Index maps normalized identifiers to positions in a dataset.
type Index struct {
	exact map[string]int
	canon map[string]int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		exact: make(map[string]int),
		canon: make(map[string]int),
	}
}

// Len returns the number of distinct canonical identifiers.
func (x *Index) Len() int {
	return len(x.canon)
}

// Add records id at position pos. If another identifier with the same
// canonical key was added first, Add keeps the first and returns its
// position with ok=false.
func (x *Index) Add(id ID, pos int) (first int, ok bool) {
	key := id.Key()
	if prev, exists := x.canon[key]; exists {
		return prev, false
	}
	x.canon[key] = pos
	if _, exists := x.exact[id.String()]; !exists {
		x.exact[id.String()] = pos
	}
	return pos, true
}

// Lookup finds the position for id. It tries the direct normalized text,
// then the canonical key, then the text expanded to the identifier's own
// width and to widths 1..3, and finally the same steps for each alternate.
func (x *Index) Lookup(id ID, alternates ...ID) (int, bool) {
	candidates := append([]ID{id}, alternates...)
	for _, c := range candidates {
		if c.IsZero() {
			continue
		}
		if pos, ok := x.exact[c.String()]; ok {
			return pos, true
		}
		if pos, ok := x.canon[c.Key()]; ok {
			return pos, true
		}
		if !c.HasNumber {
			continue
		}
		for _, w := range []int{c.Width, 1, 2, 3} {
			if pos, ok := x.exact[c.WithWidth(w)]; ok {
				return pos, true
			}
		}
	}
	return -1, false
}

// Match is Lookup returning ErrUnmatchedIdentifier on failure.
func (x *Index) Match(id ID, alternates ...ID) (int, error) {
	pos, ok := x.Lookup(id, alternates...)
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrUnmatchedIdentifier, id)
	}
	return pos, nil
}

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.ToUpper(strings.TrimSpace(s))
}

func trimZeros(digits string) string {
	if digits == "" {
		return ""
	}
	t := strings.TrimLeft(digits, "0")
	if t == "" {
		return "0"
	}
	return t
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'A' && c <= 'Z' }
