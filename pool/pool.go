package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/utkarsh5026/poolreduce/internal/scheduler"
)

// WorkerPool owns a fixed set of long-lived execution units that pull tasks
// from one shared queue. Units are created once in New and reused for every
// submission until Shutdown; no submission ever spawns a new thread of control.
//
// Teardown runs to completion: every task accepted before Shutdown is run
// before the units exit.
type WorkerPool struct {
	id    string
	size  int
	queue *scheduler.Queue[Task]
	exec  *scheduler.ExecConfig
	log   *zap.Logger

	wg       sync.WaitGroup
	shutdown atomic.Bool
	stopping chan struct{} // Closed when teardown begins
	done     chan struct{} // Closed when every unit has exited

	busy      atomic.Int64
	peakBusy  atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
}

// New creates a pool of exactly size execution units and starts them.
//
// Parameters:
//   - size: Number of units, must be at least 1
//   - opts: Functional options (logger, spawner, queue bound, rate limit, hooks)
//
// Returns:
//   - *WorkerPool: A running pool
//   - error: ErrPoolCreation if size < 1 or a unit could not be spawned; in that
//     case every unit already started has been released
//
// Example:
//
//	p, err := pool.New(runtime.NumCPU(), pool.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	_ = p.Submit(func() { fmt.Println("hello from a unit") })
func New(size int, opts ...Option) (*WorkerPool, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: size must be at least 1, got %d", ErrPoolCreation, size)
	}

	cfg := createConfig(opts...)
	if cfg.taskBuffer == 0 {
		cfg.taskBuffer = size
	}

	id := uuid.NewString()
	p := &WorkerPool{
		id:    id,
		size:  size,
		queue: scheduler.NewQueue[Task](cfg.taskBuffer, cfg.maxQueued),
		exec: &scheduler.ExecConfig{
			RateLimiter:     cfg.rateLimiter,
			BeforeTaskStart: cfg.beforeTaskStart,
			OnTaskEnd:       cfg.onTaskEnd,
		},
		log:      cfg.logger.Named("pool").With(zap.String("pool_id", id)),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for unit := range size {
		p.wg.Add(1)
		if err := cfg.spawner.Spawn(unit, p.unitLoop(unit)); err != nil {
			p.wg.Done()
			p.abort()
			p.log.Error("unit spawn failed", zap.Int("unit", unit), zap.Error(err))
			return nil, fmt.Errorf("%w: spawn unit %d: %w", ErrPoolCreation, unit, err)
		}
	}

	go func() {
		p.wg.Wait()
		close(p.done)
	}()

	p.log.Debug("pool started", zap.Int("size", size))
	return p, nil
}

// abort releases the units started so far after a failed construction.
func (p *WorkerPool) abort() {
	p.shutdown.Store(true)
	p.queue.Close()
	close(p.stopping)
	p.wg.Wait()
	close(p.done)
}

// unitLoop is the body of one execution unit: pull, run, repeat until the
// queue is closed and drained.
func (p *WorkerPool) unitLoop(unit int) func() {
	return func() {
		defer p.wg.Done()
		for {
			task, ok := p.queue.Pop()
			if !ok {
				return
			}
			p.run(unit, task)
		}
	}
}

func (p *WorkerPool) run(unit int, task Task) {
	n := p.busy.Add(1)
	for {
		peak := p.peakBusy.Load()
		if n <= peak || p.peakBusy.CompareAndSwap(peak, n) {
			break
		}
	}

	// The pool never cancels this context: a queued task is always run.
	err := scheduler.Execute(context.Background(), p.exec, unit, task)

	p.busy.Add(-1)
	p.completed.Add(1)

	var pe *scheduler.PanicError
	if errors.As(err, &pe) {
		p.panicked.Add(1)
		p.log.Error("task panicked",
			zap.Int("unit", unit),
			zap.Any("panic", pe.Value),
			zap.ByteString("stack", pe.Stack))
	}
}

// Submit hands task to the next available unit and returns immediately.
//
// Returns:
//   - error: ErrNilTask for a nil task, ErrQueueFull if a queue bound is set
//     and reached, or ErrDispatch once teardown has started
func (p *WorkerPool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	if p.shutdown.Load() {
		return fmt.Errorf("%w: %w", ErrDispatch, ErrAlreadyShutdown)
	}

	if err := p.queue.Push(task); err != nil {
		return dispatchError(err)
	}
	p.submitted.Add(1)
	return nil
}

// SubmitBatch enqueues every task or none of them.
// The errors are the same as for Submit.
func (p *WorkerPool) SubmitBatch(tasks []Task) error {
	for _, t := range tasks {
		if t == nil {
			return ErrNilTask
		}
	}
	if p.shutdown.Load() {
		return fmt.Errorf("%w: %w", ErrDispatch, ErrAlreadyShutdown)
	}

	if err := p.queue.PushBatch(tasks); err != nil {
		return dispatchError(err)
	}
	p.submitted.Add(int64(len(tasks)))
	return nil
}

// Shutdown stops accepting tasks and waits for every accepted task to finish.
//
// Parameters:
//   - timeout: Maximum duration to wait (0 = wait forever). On timeout the
//     units keep draining in the background.
//
// Returns:
//   - error: ErrAlreadyShutdown on a second call, ErrShutdownTimeout if the
//     timeout was exceeded
//
// Calling Shutdown(0) from inside a task deadlocks, since the pool waits for
// that very task.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	if !p.shutdown.CompareAndSwap(false, true) {
		return ErrAlreadyShutdown
	}

	p.log.Debug("pool shutting down", zap.Int("queued", p.queue.Len()), zap.Int64("busy", p.busy.Load()))

	p.queue.Close()
	close(p.stopping)

	if err := waitUntil(p.done, timeout); err != nil {
		p.log.Warn("pool shutdown timed out", zap.Duration("timeout", timeout))
		return err
	}

	p.log.Debug("pool stopped", zap.Int64("completed", p.completed.Load()))
	return nil
}

// Close is Shutdown(0).
func (p *WorkerPool) Close() error {
	return p.Shutdown(0)
}

// Stopping returns a channel closed when teardown begins.
// Long-running driver loops select on it to know when to wind down.
func (p *WorkerPool) Stopping() <-chan struct{} {
	return p.stopping
}

// Done returns a channel closed once every unit has exited.
func (p *WorkerPool) Done() <-chan struct{} {
	return p.done
}

// Size returns the fixed number of execution units.
func (p *WorkerPool) Size() int {
	return p.size
}

// ID returns the pool's unique identifier, also attached to its log lines.
func (p *WorkerPool) ID() string {
	return p.id
}

// Logger returns the pool's logger so layers built on top can share it.
func (p *WorkerPool) Logger() *zap.Logger {
	return p.log
}

// Stats returns a snapshot of the pool's counters.
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Size:      p.size,
		Busy:      int(p.busy.Load()),
		PeakBusy:  int(p.peakBusy.Load()),
		Queued:    p.queue.Len(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
	}
}
