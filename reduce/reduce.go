// Package reduce runs a map phase and a reduce phase over a set of chunks on a
// worker pool and delivers the single final value through a Handle.
//
// Every chunk is mapped by its own task into a partial result that no other
// task touches. The task that finishes last merges all partials pairwise and
// finishes the value, so the reduce phase also runs inside the pool and the
// caller never blocks. Because Merge is commutative and associative, the
// result does not depend on how many chunks there are, which one finishes
// first, or the shape of the merge tree.
package reduce

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/utkarsh5026/poolreduce/oneshot"
	"github.com/utkarsh5026/poolreduce/pool"
)

var (
	// ErrNoChunks is returned by Reduce for an empty chunk list.
	ErrNoChunks = errors.New("reduce: no chunks")

	// ErrInvalidJob is returned when Map or Merge is missing, or Finish is
	// missing and the partial type is not the result type.
	ErrInvalidJob = errors.New("reduce: invalid job")

	// ErrCancelled is the outcome of a job whose map, merge or finish step
	// failed or was cancelled before producing a value.
	ErrCancelled = oneshot.ErrCancelled
)

// Submitter accepts a batch of tasks all at once or not at all.
// Every accepted task must eventually run. *pool.WorkerPool satisfies it.
type Submitter interface {
	SubmitBatch(tasks []pool.Task) error
}

// Job describes one map/reduce computation.
//
// Map turns a chunk into a partial result the task owns exclusively. Merge
// combines two partials and must be commutative and associative; it may
// reuse either argument. Finish converts the merged partial into the final
// value. Finish may be nil when P and R are the same type.
type Job[C, P, R any] struct {
	Map    func(C) P
	Merge  func(P, P) P
	Finish func(P) R
}

func (j Job[C, P, R]) validate() error {
	if j.Map == nil || j.Merge == nil {
		return fmt.Errorf("%w: Map and Merge are required", ErrInvalidJob)
	}
	if j.Finish == nil {
		if _, ok := any(new(P)).(*R); !ok {
			return fmt.Errorf("%w: Finish is required when the partial and result types differ", ErrInvalidJob)
		}
	}
	return nil
}

// Reduce submits one map task per chunk to s and returns a handle to the
// final value.
//
// The tasks are handed over in a single SubmitBatch call. If s rejects the
// batch, the returned error wraps the submitter's error (pool.ErrDispatch for
// a pool that is shutting down) and no handle is created.
//
// Example:
//
//	h, err := reduce.Reduce(p, words, reduce.Job[string, int, int]{
//	    Map:   func(w string) int { return len(w) },
//	    Merge: func(a, b int) int { return a + b },
//	})
//	if err != nil {
//	    return err
//	}
//	total, err := h.Await(ctx)
func Reduce[C, P, R any](s Submitter, chunks []C, job Job[C, P, R], opts ...Option) (*Handle[R], error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	if err := job.validate(); err != nil {
		return nil, err
	}

	cfg := createConfig(opts...)
	log := cfg.logger.Named("reduce").With(zap.String("job_id", cfg.jobID))

	tx, rx := oneshot.New[R]()
	r := &run[C, P, R]{
		job:      job,
		chunks:   chunks,
		partials: make([]P, len(chunks)),
		tx:       tx,
		cancel:   cfg.cancel,
		log:      log,
		started:  time.Now(),
	}
	r.pending.Store(int64(len(chunks)))

	tasks := make([]pool.Task, len(chunks))
	for i := range chunks {
		tasks[i] = func() { r.mapChunk(i) }
	}

	if err := s.SubmitBatch(tasks); err != nil {
		tx.Close()
		log.Debug("job rejected", zap.Error(err))
		return nil, fmt.Errorf("reduce: submit %d map tasks: %w", len(tasks), err)
	}

	log.Debug("job dispatched", zap.Int("chunks", len(chunks)))
	return newHandle(cfg.jobID, rx), nil
}

// run is the state shared by the tasks of one job. Each map task writes only
// its own partials slot; the pending countdown orders those writes before the
// merge done by the last task.
type run[C, P, R any] struct {
	job      Job[C, P, R]
	chunks   []C
	partials []P
	tx       *oneshot.Sender[R]
	cancel   <-chan struct{}
	log      *zap.Logger
	started  time.Time

	pending atomic.Int64
	failed  atomic.Bool
}

func (r *run[C, P, R]) mapChunk(i int) {
	defer r.arrive()

	ok := false
	defer func() {
		if !ok {
			r.failed.Store(true)
		}
	}()

	if r.failed.Load() || r.cancelled() {
		return
	}
	r.partials[i] = r.job.Map(r.chunks[i])
	ok = true
}

func (r *run[C, P, R]) cancelled() bool {
	if r.cancel == nil {
		return false
	}
	select {
	case <-r.cancel:
		return true
	default:
		return false
	}
}

// arrive counts one finished map task. The last one to arrive completes the job.
func (r *run[C, P, R]) arrive() {
	if r.pending.Add(-1) != 0 {
		return
	}
	r.complete()
}

func (r *run[C, P, R]) complete() {
	// No-op after a successful Send. On failure or a panic in Merge or
	// Finish it resolves the handle to ErrCancelled.
	defer r.tx.Close()

	if r.failed.Load() {
		r.partials = nil
		r.log.Warn("job cancelled", zap.Duration("elapsed", time.Since(r.started)))
		return
	}

	acc := treeMerge(r.partials, r.job.Merge)
	r.partials = nil

	var out R
	if r.job.Finish != nil {
		out = r.job.Finish(acc)
	} else {
		out = *any(&acc).(*R)
	}

	if err := r.tx.Send(out); err != nil {
		r.log.Error("job result already sent", zap.Error(err))
		return
	}
	r.log.Debug("job completed",
		zap.Int("chunks", len(r.chunks)),
		zap.Duration("elapsed", time.Since(r.started)))
}

// treeMerge folds parts pairwise, level by level, reusing the slice.
func treeMerge[P any](parts []P, merge func(P, P) P) P {
	for len(parts) > 1 {
		half := len(parts) / 2
		for i := range half {
			parts[i] = merge(parts[2*i], parts[2*i+1])
		}
		n := half
		if len(parts)%2 == 1 {
			parts[n] = parts[len(parts)-1]
			n++
		}
		clear(parts[n:])
		parts = parts[:n]
	}
	return parts[0]
}
