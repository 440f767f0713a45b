package freq

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/utkarsh5026/poolreduce/oneshot"
	"github.com/utkarsh5026/poolreduce/parallel"
	"github.com/utkarsh5026/poolreduce/pool"
	"github.com/utkarsh5026/poolreduce/reduce"
	"github.com/utkarsh5026/poolreduce/split"
)

// ErrPoolTooSmall is returned by ProcessLayered when the pool has no unit to
// spare for the driver task.
var ErrPoolTooSmall = errors.New("freq: pool too small for a layered run")

// Job is the letter-frequency map/reduce job.
func Job() reduce.Job[string, CharMap, Table] {
	return reduce.Job[string, CharMap, Table]{
		Map:    Count,
		Merge:  Merge,
		Finish: freeze,
	}
}

// Process splits input into at most concurrency chunks, counts every chunk
// on the pool and merges the counts there too. It returns as soon as the
// tasks are queued; the Table is delivered through the handle.
//
// A pool that is shutting down rejects the job with pool.ErrDispatch and no
// handle is returned.
//
// Example:
//
//	h, err := freq.Process(text, 8, p)
//	if err != nil {
//	    return err
//	}
//	table, err := h.Await(ctx)
func Process(input string, concurrency int, s reduce.Submitter, opts ...reduce.Option) (*reduce.Handle[Table], error) {
	return reduce.Reduce(s, split.Split(input, concurrency), Job(), opts...)
}

// LayeredOption configures ProcessLayered.
type LayeredOption func(*layeredConfig)

type layeredConfig struct {
	logger *zap.Logger
	jobID  string
}

// WithLayeredLogger injects the logger for the layered run.
func WithLayeredLogger(l *zap.Logger) LayeredOption {
	return func(cfg *layeredConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// ProcessLayered runs the same computation through a parallel.Executor
// whose threads are units of p. One driver task on p splits the input,
// counts the chunks with the executor and folds the partials, then sends
// the Table.
//
// The executor uses min(concurrency, p.Size()-1) threads. The driver and
// its threads are submitted together with parallel.Install and the driver
// helps count its own chunks, so the run completes even when other work
// holds some of the pool's units.
func ProcessLayered(input string, concurrency int, p *pool.WorkerPool, opts ...LayeredOption) (*reduce.Handle[Table], error) {
	cfg := &layeredConfig{logger: zap.NewNop(), jobID: uuid.NewString()}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.logger.Named("freq").With(zap.String("job_id", cfg.jobID))

	threads := min(max(1, concurrency), p.Size()-1)
	if threads < 1 {
		return nil, fmt.Errorf("%w: need at least 2 units, have %d", ErrPoolTooSmall, p.Size())
	}

	tx, rx := oneshot.New[Table]()
	driver := func(ex *parallel.Executor) {
		defer tx.Close()

		start := time.Now()
		chunks := split.Split(input, concurrency)
		partials := make([]CharMap, len(chunks))
		err := ex.ForEach(len(chunks), func(i int) {
			partials[i] = Count(chunks[i])
		})
		if err != nil {
			log.Warn("layered map failed", zap.Error(err))
			return
		}

		acc := partials[0]
		for _, m := range partials[1:] {
			acc = Merge(acc, m)
		}
		if err := tx.Send(freeze(acc)); err != nil {
			log.Error("layered result already sent", zap.Error(err))
			return
		}
		log.Debug("layered job completed",
			zap.Int("chunks", len(chunks)),
			zap.Int("threads", threads),
			zap.Duration("elapsed", time.Since(start)))
	}

	if err := parallel.Install(p, threads, driver, parallel.WithLogger(cfg.logger)); err != nil {
		tx.Close()
		return nil, fmt.Errorf("freq: start layered run: %w", err)
	}
	return reduce.NewHandle(cfg.jobID, rx), nil
}
