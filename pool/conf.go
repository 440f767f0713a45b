package pool

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option is a functional option for configuring the worker pool.
type Option func(*poolConfig)

type poolConfig struct {
	logger          *zap.Logger
	spawner         Spawner
	taskBuffer      int
	maxQueued       int
	rateLimiter     *rate.Limiter
	beforeTaskStart func(unit int)
	onTaskEnd       func(unit int, err error)
}

func createConfig(opts ...Option) *poolConfig {
	cfg := &poolConfig{
		logger:  zap.NewNop(),
		spawner: GoroutineSpawner{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// WithLogger injects the logger used for lifecycle events and recovered panics.
// If not specified, the pool logs nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *poolConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithSpawner sets how execution units are created.
// If not specified, every unit is a plain goroutine.
func WithSpawner(s Spawner) Option {
	return func(cfg *poolConfig) {
		if s != nil {
			cfg.spawner = s
		}
	}
}

// WithCPUAffinity runs every unit on its own OS thread pinned to one CPU.
// Pinning is best effort on platforms that do not support it.
func WithCPUAffinity() Option {
	return func(cfg *poolConfig) {
		cfg.spawner = ThreadSpawner{Pin: true}
	}
}

// WithTaskBuffer sets the initial capacity of the shared task queue.
// The queue still grows past it; this only avoids early reallocations.
// If not specified, defaults to the pool size.
func WithTaskBuffer(size int) Option {
	return func(cfg *poolConfig) {
		if size >= 0 {
			cfg.taskBuffer = size
		}
	}
}

// WithMaxQueued bounds the number of tasks waiting for a unit.
// Submissions beyond the bound fail with ErrQueueFull instead of blocking.
// If not specified, the queue is unbounded.
func WithMaxQueued(n int) Option {
	return func(cfg *poolConfig) {
		if n > 0 {
			cfg.maxQueued = n
		}
	}
}

// WithRateLimit sets a rate limiter for controlling task throughput.
// tasksPerSecond specifies the maximum number of tasks started per second.
// burst specifies the maximum number of tasks that can be started in a burst.
// If not specified, no rate limiting is applied.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *poolConfig) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithBeforeTaskStart registers a hook called on the unit right before each task.
func WithBeforeTaskStart(fn func(unit int)) Option {
	return func(cfg *poolConfig) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd registers a hook called on the unit after each task.
// err is a *PanicError when the task panicked, nil otherwise.
func WithOnTaskEnd(fn func(unit int, err error)) Option {
	return func(cfg *poolConfig) {
		cfg.onTaskEnd = fn
	}
}
