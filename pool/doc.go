// Package pool provides a fixed-size pool of reusable execution units.
//
// The primary type is WorkerPool, created once with a fixed number of units.
// Every unit is a long-lived thread of control that pulls zero-argument tasks
// from a shared queue and runs them to completion. Submitting never spawns a
// new goroutine and never blocks on busy units.
//
// # Basic Usage
//
//	p, err := pool.New(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.Submit(func() { work() }); err != nil {
//	    // pool is shutting down: pool.ErrDispatch
//	}
//
// # Execution Units
//
// How a unit comes to life is an injected capability, the Spawner:
//
//   - GoroutineSpawner: one goroutine per unit (default)
//   - ThreadSpawner: one goroutine locked to its own OS thread per unit,
//     optionally pinned to a CPU (WithCPUAffinity)
//   - SpawnerFunc: any custom mechanism
//
// # Driver Loops
//
// A task may be a long-running loop. This is how higher-level layers (see
// package parallel) borrow units from the pool instead of creating their own
// threads. Such loops should watch Stopping() and return when it is closed.
//
// # Teardown
//
// Shutdown closes the queue for new tasks and waits for every accepted task to
// run. Submissions made after Shutdown fail with ErrDispatch.
//
// # Configuration Options
//
//   - WithLogger(l): Inject a zap logger (default: no-op)
//   - WithSpawner(s): Choose how units are created
//   - WithCPUAffinity(): Pin each unit to its own CPU
//   - WithTaskBuffer(n): Initial queue capacity (default: pool size)
//   - WithMaxQueued(n): Bound the queue; overflow fails with ErrQueueFull
//   - WithRateLimit(tasksPerSecond, burst): Throttle task starts
//   - WithBeforeTaskStart(fn), WithOnTaskEnd(fn): Per-task hooks
//
// # Error Handling
//
// A panicking task is recovered, counted in Stats and logged; its unit keeps
// running. Errors are sentinel values checked with errors.Is.
package pool
