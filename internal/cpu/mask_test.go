package cpu

import (
	"math/bits"
	"testing"
)

func TestMaskBit(t *testing.T) {
	tests := []struct {
		name   string
		unit   int
		numCPU int
		want   uintptr
	}{
		{"first", 0, 8, 1},
		{"within", 3, 8, 1 << 3},
		{"wraps numCPU", 9, 8, 1 << 1},
		{"negative unit", -1, 8, 1 << 7},
		{"zero cpus", 5, 0, 1},
		{"last bit of group", bits.UintSize - 1, 256, 1 << (bits.UintSize - 1)},
		{"wraps group", bits.UintSize + 2, 256, 1 << 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maskBit(tt.unit, tt.numCPU)
			if got != tt.want {
				t.Errorf("maskBit(%d, %d) = %#x, want %#x", tt.unit, tt.numCPU, got, tt.want)
			}
		})
	}

	for unit := range 4 * bits.UintSize {
		if maskBit(unit, 1024) == 0 {
			t.Fatalf("maskBit(%d, 1024) is empty", unit)
		}
	}
}
