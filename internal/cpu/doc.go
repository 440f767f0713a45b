// Package cpu binds execution units to OS threads and, where the platform
// allows it, to a single logical CPU.
package cpu
