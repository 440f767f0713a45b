package cpu

import "math/bits"

// maskBit returns the single-bit affinity mask for unit on a machine with
// numCPU logical CPUs. A thread mask holds one processor group of at most
// bits.UintSize CPUs, so units wrap within the first group.
func maskBit(unit, numCPU int) uintptr {
	width := min(max(1, numCPU), bits.UintSize)
	return uintptr(1) << uint(((unit%width)+width)%width)
}
