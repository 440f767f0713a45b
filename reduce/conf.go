package reduce

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures a single Reduce call.
type Option func(*jobConfig)

type jobConfig struct {
	logger *zap.Logger
	jobID  string
	cancel <-chan struct{}
}

func createConfig(opts ...Option) *jobConfig {
	cfg := &jobConfig{
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.jobID == "" {
		cfg.jobID = uuid.NewString()
	}
	return cfg
}

// WithLogger injects the logger for job lifecycle events.
// If not specified, nothing is logged.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *jobConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithJobID sets the identifier attached to the handle and to log lines.
// If not specified, a random UUID is used.
func WithJobID(id string) Option {
	return func(cfg *jobConfig) {
		cfg.jobID = id
	}
}

// WithCancel makes map tasks that start after ch is closed skip their work.
// The job then resolves to ErrCancelled instead of a value. Passing a pool's
// Stopping channel turns teardown into cancellation for this job.
func WithCancel(ch <-chan struct{}) Option {
	return func(cfg *jobConfig) {
		cfg.cancel = ch
	}
}
