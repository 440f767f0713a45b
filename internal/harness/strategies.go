// Package harness times the pool engine against simpler ways of counting
// letters in parallel and checks that they all agree.
package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/utkarsh5026/poolreduce/freq"
	"github.com/utkarsh5026/poolreduce/internal/algorithms"
	"github.com/utkarsh5026/poolreduce/pool"
	"github.com/utkarsh5026/poolreduce/reduce"
)

// Sentence is the default line the harness repeats to build its input.
const Sentence = "To be or Not to Be, that is the question. Said the guy named Hamlet before he set out to take revenge on his uncle."

// StrategyFunc counts the letters of lines using up to workers workers.
type StrategyFunc func(ctx context.Context, lines []string, workers int) (freq.Table, error)

// Strategy is a named StrategyFunc.
type Strategy struct {
	Name string
	Run  StrategyFunc
	// Lossy marks strategies that cut the joined input with
	// split.Split(input, workers) and so may drop characters at multibyte
	// boundaries.
	Lossy bool
}

// Lines returns n copies of line.
func Lines(line string, n int) []string {
	out := make([]string, max(0, n))
	for i := range out {
		out[i] = line
	}
	return out
}

// chunkLines groups lines into runs of max(1, len/workers) lines, each joined
// into one string. Like the comparison programs it mirrors, this yields more
// than workers chunks when the division leaves a remainder.
func chunkLines(lines []string, workers int) []string {
	size := max(1, len(lines)/max(1, workers))
	out := make([]string, 0, len(lines)/size+1)
	for start := 0; start < len(lines); start += size {
		end := min(start+size, len(lines))
		out = append(out, strings.Join(lines[start:end], ""))
	}
	return out
}

// Sequential counts every line on the calling goroutine.
func Sequential(_ context.Context, lines []string, _ int) (freq.Table, error) {
	acc := make(freq.CharMap)
	for _, line := range lines {
		acc = freq.Merge(acc, freq.Count(line))
	}
	return freq.NewTable(acc), nil
}

// ThreadPerChunk starts one goroutine per chunk and merges after all of them
// returned.
func ThreadPerChunk(ctx context.Context, lines []string, workers int) (freq.Table, error) {
	chunks := chunkLines(lines, workers)
	partials := make([]freq.CharMap, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[i] = freq.Count(chunk)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return freq.Table{}, err
	}

	acc := make(freq.CharMap)
	for _, m := range partials {
		acc = freq.Merge(acc, m)
	}
	return freq.NewTable(acc), nil
}

// Channels fans partials in over a channel and merges them as they arrive.
func Channels(ctx context.Context, lines []string, workers int) (freq.Table, error) {
	chunks := chunkLines(lines, workers)
	results := make(chan freq.CharMap)

	var g errgroup.Group
	for _, chunk := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case results <- freq.Count(chunk):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	acc := make(freq.CharMap)
	for m := range results {
		acc = freq.Merge(acc, m)
	}
	if err := g.Wait(); err != nil {
		return freq.Table{}, err
	}
	return freq.NewTable(acc), nil
}

// Mutex has every goroutine add its counts into one shared map under a lock.
func Mutex(ctx context.Context, lines []string, workers int) (freq.Table, error) {
	chunks := chunkLines(lines, workers)

	var (
		mu  sync.Mutex
		acc = make(freq.CharMap)
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, chunk := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m := freq.Count(chunk)
			mu.Lock()
			defer mu.Unlock()
			for r, n := range m {
				acc[r] += n
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return freq.Table{}, err
	}
	return freq.NewTable(acc), nil
}

// PoolFactory creates the pool for one engine attempt.
type PoolFactory func(size int, log *zap.Logger) (*pool.WorkerPool, error)

// DefaultPoolFactory creates a goroutine-backed pool.
func DefaultPoolFactory(size int, log *zap.Logger) (*pool.WorkerPool, error) {
	return pool.New(size, pool.WithLogger(log))
}

// Suite holds what the pool-based strategies need.
type Suite struct {
	Logger  *zap.Logger
	NewPool PoolFactory
	// Retry applies when a pool rejects a job with pool.ErrDispatch; each
	// attempt gets a fresh pool.
	Retry algorithms.Policy
}

// NewSuite returns a Suite with a fresh pool per run and three attempts on
// dispatch failure.
func NewSuite(log *zap.Logger) *Suite {
	if log == nil {
		log = zap.NewNop()
	}
	return &Suite{
		Logger:  log,
		NewPool: DefaultPoolFactory,
		Retry: algorithms.Policy{
			MaxAttempts: 3,
			Backoff:     algorithms.NewBackoff(algorithms.Jittered, 5*time.Millisecond, 100*time.Millisecond, 0.2),
		},
	}
}

// Strategies lists every strategy in display order. Sequential comes first
// because the runner uses it as the reference.
func (s *Suite) Strategies() []Strategy {
	return []Strategy{
		{Name: "sequential", Run: Sequential},
		{Name: "thread-per-chunk", Run: ThreadPerChunk},
		{Name: "channels", Run: Channels},
		{Name: "mutex", Run: Mutex},
		{Name: "engine", Run: s.Engine, Lossy: true},
		{Name: "layered", Run: s.Layered, Lossy: true},
	}
}

// Engine counts with freq.Process on a pool of workers units.
func (s *Suite) Engine(ctx context.Context, lines []string, workers int) (freq.Table, error) {
	return s.withPool(ctx, "engine", max(1, workers), func(p *pool.WorkerPool) (*reduce.Handle[freq.Table], error) {
		return freq.Process(strings.Join(lines, ""), workers, p, reduce.WithLogger(s.logger()))
	})
}

// Layered counts with freq.ProcessLayered on a pool with one extra unit for
// the driver task.
func (s *Suite) Layered(ctx context.Context, lines []string, workers int) (freq.Table, error) {
	return s.withPool(ctx, "layered", max(1, workers)+1, func(p *pool.WorkerPool) (*reduce.Handle[freq.Table], error) {
		return freq.ProcessLayered(strings.Join(lines, ""), workers, p, freq.WithLayeredLogger(s.logger()))
	})
}

func (s *Suite) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Suite) withPool(
	ctx context.Context,
	name string,
	size int,
	start func(*pool.WorkerPool) (*reduce.Handle[freq.Table], error),
) (freq.Table, error) {
	newPool := s.NewPool
	if newPool == nil {
		newPool = DefaultPoolFactory
	}
	base := s.logger()
	log := base.With(zap.String("strategy", name))

	policy := s.Retry
	policy.Retryable = func(err error) bool { return errors.Is(err, pool.ErrDispatch) }

	var out freq.Table
	err := algorithms.Retry(ctx, policy, func(attempt int) error {
		p, err := newPool(size, base)
		if err != nil {
			return err
		}
		defer func() { _ = p.Shutdown(0) }()

		h, err := start(p)
		if err != nil {
			log.Warn("job rejected", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		out, err = h.Await(ctx)
		return err
	})
	if err != nil {
		return freq.Table{}, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
