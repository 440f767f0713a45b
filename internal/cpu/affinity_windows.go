//go:build windows

package cpu

import (
	"fmt"
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// pinToCore pins the current OS thread to one CPU of the first processor
// group. Must be called after runtime.LockOSThread().
func pinToCore(cpu int) error {
	handle, _, _ := getCurrentThread.Call()
	mask := maskBit(cpu, runtime.NumCPU())

	prevMask, _, err := setThreadAffinityMask.Call(handle, mask)
	if prevMask == 0 {
		return fmt.Errorf("pin thread to cpu mask %#x: %w", mask, err)
	}
	return nil
}

// LockUnit locks the calling goroutine to its OS thread and, if pin is set,
// pins that thread to one CPU, wrapping unit within the first processor group.
func LockUnit(unit int, pin bool) (release func(), err error) {
	runtime.LockOSThread()
	if pin {
		if err := pinToCore(unit); err != nil {
			runtime.UnlockOSThread()
			return nil, err
		}
		// A pinned thread stays locked so the runtime discards it when the
		// goroutine exits instead of reusing it with a narrowed affinity.
		return func() {}, nil
	}
	return runtime.UnlockOSThread, nil
}
