package pool

// Task is a zero-argument unit of work handed to an execution unit.
// A task may run for as long as it likes; a long-lived driver loop is just a
// task that returns late.
type Task func()

// Stats is a point-in-time snapshot of pool activity.
//
// Fields:
//   - Size: Number of execution units, fixed at construction
//   - Busy: Units currently running a task
//   - PeakBusy: Highest Busy value observed so far (never exceeds Size)
//   - Queued: Tasks accepted but not yet picked up by a unit
//   - Submitted: Tasks accepted since construction
//   - Completed: Tasks that finished, including ones that panicked
//   - Panicked: Tasks that panicked and were recovered
type Stats struct {
	Size      int
	Busy      int
	PeakBusy  int
	Queued    int
	Submitted int64
	Completed int64
	Panicked  int64
}
