package freq

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Table is a final, immutable letter-frequency result.
type Table struct {
	counts map[rune]int
	total  int
}

// NewTable freezes m into a Table. m is copied.
func NewTable(m CharMap) Table {
	return freeze(maps.Clone(m))
}

// freeze takes ownership of m.
func freeze(m CharMap) Table {
	total := 0
	for _, n := range m {
		total += n
	}
	return Table{counts: m, total: total}
}

// Get returns the count for r, zero when absent.
func (t Table) Get(r rune) int {
	return t.counts[r]
}

// Len returns the number of distinct letters.
func (t Table) Len() int {
	return len(t.counts)
}

// Total returns the number of letters counted.
func (t Table) Total() int {
	return t.total
}

// Runes returns the distinct letters in ascending order.
func (t Table) Runes() []rune {
	return slices.Sorted(maps.Keys(t.counts))
}

// Map returns a copy of the counts.
func (t Table) Map() map[rune]int {
	out := make(map[rune]int, len(t.counts))
	maps.Copy(out, t.counts)
	return out
}

// Equal reports whether both tables hold exactly the same counts.
func (t Table) Equal(o Table) bool {
	return t.total == o.total && maps.Equal(t.counts, o.counts)
}

// String renders the table as "a:4 b:2" in rune order.
func (t Table) String() string {
	var sb strings.Builder
	for i, r := range t.Runes() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(t.counts[r]))
	}
	return sb.String()
}

// MarshalJSON encodes the table as an object keyed by letter.
func (t Table) MarshalJSON() ([]byte, error) {
	out := make(map[string]int, len(t.counts))
	for r, n := range t.counts {
		out[string(r)] = n
	}
	return json.Marshal(out)
}
