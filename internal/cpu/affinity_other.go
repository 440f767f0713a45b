//go:build !linux && !darwin && !windows

package cpu

import "runtime"

// LockUnit locks the calling goroutine to its OS thread; pin is ignored.
func LockUnit(unit int, pin bool) (release func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}
