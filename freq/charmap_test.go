package freq

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  CharMap
	}{
		{"empty", "", CharMap{}},
		{"repeated", "aaaa", CharMap{'a': 4}},
		{"case folded", "AaBb", CharMap{'a': 2, 'b': 2}},
		{"punctuation skipped", "a, b. c! 1 2 3", CharMap{'a': 1, 'b': 1, 'c': 1}},
		{"non-ascii letters", "Ünïcödé Ü", CharMap{'ü': 2, 'n': 1, 'ï': 1, 'c': 1, 'ö': 1, 'd': 1, 'é': 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Count(tt.chunk))
		})
	}
}

func TestMergeCommutativeAssociative(t *testing.T) {
	parts := []string{"hello", "world", "", "Hamlet", "ZZZ"}

	left := Count(parts[0])
	for _, p := range parts[1:] {
		left = Merge(left, Count(p))
	}

	right := Count(parts[len(parts)-1])
	for i := len(parts) - 2; i >= 0; i-- {
		right = Merge(Count(parts[i]), right)
	}

	tree := Merge(
		Merge(Count(parts[0]), Count(parts[1])),
		Merge(Count(parts[2]), Merge(Count(parts[3]), Count(parts[4]))),
	)

	assert.Equal(t, left, right)
	assert.Equal(t, left, tree)
	assert.Equal(t, 4, left['l'])
}

func TestTable(t *testing.T) {
	tbl := NewTable(CharMap{'b': 2, 'a': 3})

	assert.Equal(t, 3, tbl.Get('a'))
	assert.Equal(t, 0, tbl.Get('z'))
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 5, tbl.Total())
	assert.Equal(t, []rune{'a', 'b'}, tbl.Runes())
	assert.Equal(t, "a:3 b:2", tbl.String())

	m := tbl.Map()
	m['a'] = 100
	assert.Equal(t, 3, tbl.Get('a'), "Map returns a copy")

	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":2}`, string(data))
}

func TestTableEqual(t *testing.T) {
	assert.True(t, NewTable(CharMap{'a': 1}).Equal(NewTable(CharMap{'a': 1})))
	assert.False(t, NewTable(CharMap{'a': 1}).Equal(NewTable(CharMap{'a': 2})))
	assert.False(t, NewTable(CharMap{'a': 1}).Equal(NewTable(CharMap{'b': 1})))
	assert.True(t, Table{}.Equal(NewTable(CharMap{})), "zero table equals an empty one")
}

func TestNewTableCopies(t *testing.T) {
	src := CharMap{'a': 1}
	tbl := NewTable(src)
	src['a'] = 9
	assert.Equal(t, 1, tbl.Get('a'))
}
