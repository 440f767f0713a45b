//go:build darwin

package cpu

import "runtime"

// LockUnit locks the calling goroutine to its OS thread.
// CPU pinning is not available on macOS, so pin is ignored.
func LockUnit(unit int, pin bool) (release func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}
