//go:build linux

package cpu

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore pins the current OS thread to the n-th CPU (modulo) of the set
// the process is allowed to run on. Must be called after runtime.LockOSThread().
func pinToCore(n int) error {
	var allowed unix.CPUSet
	if err := unix.SchedGetaffinity(0, &allowed); err != nil {
		return fmt.Errorf("read cpu affinity: %w", err)
	}

	count := allowed.Count()
	if count == 0 {
		return nil
	}
	n = ((n % count) + count) % count

	cpu := -1
	for i := 0; cpu < 0 && i < len(allowed)*64; i++ {
		if allowed.IsSet(i) {
			if n == 0 {
				cpu = i
			}
			n--
		}
	}
	if cpu < 0 {
		return nil
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpu)

	if err := unix.SchedSetaffinity(0, &mask); err != nil { // 0 = current thread
		return fmt.Errorf("pin thread to cpu %d: %w", cpu, err)
	}
	return nil
}

// LockUnit locks the calling goroutine to its OS thread and, if pin is set,
// pins that thread to one allowed CPU chosen by unit. The returned release
// must run on the same goroutine. On a pinning error the thread is already
// unlocked.
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
