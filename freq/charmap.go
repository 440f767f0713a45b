// Package freq counts letter frequencies in parallel on a worker pool.
//
// A chunk is folded into a CharMap: letters only, case folded to lower case.
// CharMaps are merged by summing counts, which is commutative and
// associative, and the merged map is frozen into a Table.
package freq

import (
	"unicode"
)

// CharMap is a partial result: letter to count. A CharMap is owned by the
// task that produced it until it is merged.
type CharMap map[rune]int

// Count folds the letters of chunk into a fresh CharMap.
// Non-letters are skipped; letters are lower-cased.
func Count(chunk string) CharMap {
	m := make(CharMap)
	for _, r := range chunk {
		if !unicode.IsLetter(r) {
			continue
		}
		m[unicode.ToLower(r)]++
	}
	return m
}

// Merge adds the counts of the smaller map into the larger one and returns
// it. Keys present in only one map are carried over. Both arguments are
// consumed: the caller must not use either afterwards.
func Merge(a, b CharMap) CharMap {
	if len(a) < len(b) {
		a, b = b, a
	}
	for r, n := range b {
		a[r] += n
	}
	return a
}
