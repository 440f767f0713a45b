// Package split partitions an input payload into a bounded number of
// independent chunks for parallel mapping.
//
// The input is walked in fixed-size byte windows of max(1, len/concurrency)
// bytes. The last window absorbs any remainder, so there are never more than
// concurrency chunks. When a window edge falls inside a multi-byte UTF-8
// sequence, that character is dropped: the window ending mid-sequence loses
// its incomplete trailing bytes and the following window skips the
// continuation bytes it starts with. Dropped bytes are never reattached to a
// neighbouring chunk; Dropped reports how many were lost.
package split

import "unicode/utf8"

// Split partitions input into at least one and at most concurrency chunks.
// A concurrency of zero or less is treated as one. Empty input yields exactly
// one empty chunk.
func Split(input string, concurrency int) []string {
	bounds := windows(len(input), concurrency, func(i int) byte { return input[i] })
	out := make([]string, len(bounds))
	for i, b := range bounds {
		out[i] = input[b.lo:b.hi]
	}
	return out
}

// SplitBytes is Split for byte slices. The chunks alias input.
func SplitBytes(input []byte, concurrency int) [][]byte {
	bounds := windows(len(input), concurrency, func(i int) byte { return input[i] })
	out := make([][]byte, len(bounds))
	for i, b := range bounds {
		out[i] = input[b.lo:b.hi:b.hi]
	}
	return out
}

// Dropped returns the number of input bytes missing from chunks.
func Dropped(input string, chunks []string) int {
	kept := 0
	for _, c := range chunks {
		kept += len(c)
	}
	return len(input) - kept
}

// TargetLen is the window size used for an input of n bytes.
func TargetLen(n, concurrency int) int {
	if concurrency < 1 {
		concurrency = 1
	}
	return max(1, n/concurrency)
}

type bound struct{ lo, hi int }

func windows(n, concurrency int, at func(int) byte) []bound {
	if concurrency < 1 {
		concurrency = 1
	}
	if n == 0 {
		return []bound{{0, 0}}
	}

	target := TargetLen(n, concurrency)
	count := min(concurrency, (n+target-1)/target)

	out := make([]bound, 0, count)
	for i := range count {
		start := i * target
		end := start + target
		if i == count-1 {
			end = n
		}

		lo := start
		if start > 0 {
			for k := 0; k < utf8.UTFMax-1 && lo < end && !utf8.RuneStart(at(lo)); k++ {
				lo++
			}
		}

		hi := end
		if end < n {
			hi = trimIncomplete(lo, end, at)
		}

		out = append(out, bound{lo, hi})
	}
	return out
}

// trimIncomplete pulls end back to the start of a trailing UTF-8 sequence that
// does not fit in [lo, end).
func trimIncomplete(lo, end int, at func(int) byte) int {
	for i := end - 1; i >= lo && i >= end-utf8.UTFMax; i-- {
		b := at(i)
		if !utf8.RuneStart(b) {
			continue
		}
		if b < utf8.RuneSelf {
			return end
		}
		if end-i < seqLen(b) {
			return i
		}
		return end
	}
	return end
}

// seqLen is the encoded length announced by a leading byte.
func seqLen(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}
