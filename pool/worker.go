package pool

import (
	"github.com/utkarsh5026/poolreduce/internal/cpu"
)

// Spawner is the capability that brings an execution unit to life.
//
// Spawn must start loop on a new thread of control and return once it is
// running (or about to run). If Spawn returns an error, loop must not run.
// The loop returns only when the pool has been torn down and drained.
//
// Swapping the Spawner changes what an execution unit is (a goroutine, a
// goroutine locked to an OS thread, a thread pinned to a CPU) without touching
// the pool's scheduling.
type Spawner interface {
	Spawn(unit int, loop func()) error
}

// SpawnerFunc adapts a plain function to the Spawner interface.
type SpawnerFunc func(unit int, loop func()) error

// Spawn calls f(unit, loop).
func (f SpawnerFunc) Spawn(unit int, loop func()) error {
	return f(unit, loop)
}

// GoroutineSpawner runs every unit on its own goroutine. It is the default.
type GoroutineSpawner struct{}

// Spawn starts loop on a new goroutine.
func (GoroutineSpawner) Spawn(_ int, loop func()) error {
	go loop()
	return nil
}

// ThreadSpawner runs every unit on a goroutine locked to a dedicated OS
// thread for the unit's whole lifetime. With Pin set, the thread is also
// pinned to one of the CPUs the process may run on, where the platform
// supports it.
type ThreadSpawner struct {
	Pin bool
}

// Spawn starts loop on a locked OS thread. Locking or pinning failures are
// reported before loop runs.
func (s ThreadSpawner) Spawn(unit int, loop func()) error {
	ready := make(chan error, 1)

	go func() {
		release, err := cpu.LockUnit(unit, s.Pin)
		ready <- err
		if err != nil {
			return
		}
		defer release()
		loop()
	}()

	return <-ready
}
