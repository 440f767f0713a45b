// Package parallel layers a generic parallel-compute executor on top of a
// pool.WorkerPool.
//
// An Executor does not create threads of its own. NewExecutor submits a
// fixed number of driver loops to the pool; each loop occupies one pool unit
// and runs the executor's jobs until the executor is closed or the pool
// begins teardown. Submitting a job to the executor never spawns anything.
//
//	ex, err := parallel.NewExecutor(p, p.Size()-1)
//	if err != nil {
//	    return err
//	}
//	defer ex.Close()
//
//	err = ex.ForEach(len(items), func(i int) { process(items[i]) })
//
// Install submits the loops together with the task that uses them, so the
// work runs even when other tasks already hold some of the pool's units:
//
//	err := parallel.Install(p, 3, func(ex *parallel.Executor) {
//	    _ = ex.ForEach(len(items), func(i int) { process(items[i]) })
//	})
package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/utkarsh5026/poolreduce/internal/scheduler"
	"github.com/utkarsh5026/poolreduce/pool"
)

var (
	// ErrTooManyThreads is returned when an executor would take every unit
	// of its pool, leaving none for the task that drives it.
	ErrTooManyThreads = errors.New("parallel: executor needs fewer threads than pool units")

	ErrInvalidThreads = errors.New("parallel: threads must be at least 1")
	ErrExecutorClosed = errors.New("parallel: executor closed")
)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger injects the logger for recovered job panics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// Executor runs jobs on driver loops borrowed from a pool.
type Executor struct {
	threads int
	jobs    *scheduler.Queue[func()]
	exec    *scheduler.ExecConfig
	log     *zap.Logger

	loops  sync.WaitGroup
	idle   atomic.Int64 // Loops submitted but not yet running
	closed atomic.Bool
	quit   chan struct{}
}

// NewExecutor starts threads driver loops on p.
//
// Returns:
//   - ErrInvalidThreads if threads < 1
//   - ErrTooManyThreads if threads >= p.Size()
//   - the pool's dispatch error if the loops could not be submitted
func NewExecutor(p *pool.WorkerPool, threads int, opts ...Option) (*Executor, error) {
	e, err := newExecutor(p, threads, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.start(p, nil); err != nil {
		return nil, err
	}
	return e, nil
}

// Install runs fn on a unit of p with an Executor of threads driver loops.
// fn and the loops are submitted in one batch, fn first, so fn always gets a
// unit ahead of its own loops. Since ForEach lets its caller run queued jobs,
// fn makes progress even if none of the loops ever gets a unit. The executor
// is closed when fn returns.
//
// The errors are the same as for NewExecutor.
func Install(p *pool.WorkerPool, threads int, fn func(*Executor), opts ...Option) error {
	e, err := newExecutor(p, threads, opts...)
	if err != nil {
		return err
	}
	return e.start(p, func() {
		defer e.Close()
		fn(e)
	})
}

func newExecutor(p *pool.WorkerPool, threads int, opts ...Option) (*Executor, error) {
	if threads < 1 {
		return nil, ErrInvalidThreads
	}
	if threads >= p.Size() {
		return nil, fmt.Errorf("%w: %d threads on a pool of %d", ErrTooManyThreads, threads, p.Size())
	}

	e := &Executor{
		threads: threads,
		jobs:    scheduler.NewQueue[func()](threads, 0),
		exec:    &scheduler.ExecConfig{},
		log:     p.Logger(),
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("parallel")
	return e, nil
}

// start submits lead, when set, followed by the driver loops.
func (e *Executor) start(p *pool.WorkerPool, lead pool.Task) error {
	tasks := make([]pool.Task, 0, e.threads+1)
	if lead != nil {
		tasks = append(tasks, lead)
	}
	for i := range e.threads {
		tasks = append(tasks, e.loop(i))
	}

	e.loops.Add(e.threads)
	e.idle.Store(int64(e.threads))
	if err := p.SubmitBatch(tasks); err != nil {
		e.idle.Store(0)
		e.loops.Add(-e.threads)
		return fmt.Errorf("parallel: start %d loops: %w", e.threads, err)
	}

	go e.watch(p.Stopping())
	return nil
}

// watch closes the job queue when the pool starts tearing down so the loops
// give their units back.
func (e *Executor) watch(stopping <-chan struct{}) {
	select {
	case <-stopping:
		e.jobs.Close()
	case <-e.quit:
	}
}

func (e *Executor) loop(thread int) pool.Task {
	return func() {
		if !e.claim() {
			return
		}
		defer e.loops.Done()
		for {
			job, ok := e.jobs.Pop()
			if !ok {
				return
			}
			e.run(thread, job)
		}
	}
}

// claim marks one idle loop as running. It fails once Close has released
// the loops that never got a unit.
func (e *Executor) claim() bool {
	for {
		n := e.idle.Load()
		if n == 0 {
			return false
		}
		if e.idle.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func (e *Executor) run(thread int, job func()) {
	if err := scheduler.Execute(context.Background(), e.exec, thread, job); err != nil {
		e.log.Error("job panicked", zap.Int("thread", thread), zap.Error(err))
	}
}

// Threads returns the number of driver loops.
func (e *Executor) Threads() int {
	return e.threads
}

// Go queues fn for one of the executor's threads.
func (e *Executor) Go(fn func()) error {
	if fn == nil {
		return pool.ErrNilTask
	}
	if err := e.jobs.Push(fn); err != nil {
		return ErrExecutorClosed
	}
	return nil
}

// ForEach runs fn(0) .. fn(n-1) on the executor's threads and waits for all
// of them. While waiting, the caller runs queued jobs itself, so ForEach
// finishes even when no loop is running.
//
// A panicking body does not stop the others; ForEach returns the first
// *pool.PanicError after all bodies have run.
func (e *Executor) ForEach(n int, fn func(i int)) error {
	if n <= 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)

	bodies := make([]func(), n)
	for i := range bodies {
		bodies[i] = func() {
			defer wg.Done()
			if err := scheduler.Execute(context.Background(), e.exec, -1, func() { fn(i) }); err != nil {
				once.Do(func() { firstErr = err })
			}
		}
	}

	wg.Add(n)
	if err := e.jobs.PushBatch(bodies); err != nil {
		return ErrExecutorClosed
	}
	for {
		job, ok := e.jobs.TryPop()
		if !ok {
			break
		}
		e.run(-1, job)
	}
	wg.Wait()
	return firstErr
}

// Close drains queued jobs, stops the driver loops and waits for the running
// ones to hand their units back to the pool. Loops still waiting in the pool
// queue are released without being waited for; they return as soon as they
// get a unit. A second call returns ErrExecutorClosed.
func (e *Executor) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrExecutorClosed
	}
	e.jobs.Close()
	close(e.quit)
	e.loops.Add(-int(e.idle.Swap(0)))
	e.loops.Wait()
	return nil
}
