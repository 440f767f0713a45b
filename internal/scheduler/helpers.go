package scheduler

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/time/rate"
)

// ExecConfig carries the per-pool settings applied around every task.
type ExecConfig struct {
	// Optional token bucket rate limiter applied before each task (may be nil).
	RateLimiter *rate.Limiter

	// Hook called on the unit right before a task starts.
	BeforeTaskStart func(unit int)

	// Hook called after a task ends; err is a *PanicError if the task panicked
	// or the rate limiter's error if the task never ran.
	OnTaskEnd func(unit int, err error)
}

// PanicError is returned when a task panics. The unit that ran it survives.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panic: %v\nstack trace:\n%s", e.Value, e.Stack)
}

// Execute runs fn on behalf of unit with rate limiting, hooks and panic recovery.
// A rate limiter wait that fails (ctx done) skips the task and reports the error.
func Execute(ctx context.Context, conf *ExecConfig, unit int, fn func()) error {
	if conf.RateLimiter != nil {
		if err := conf.RateLimiter.Wait(ctx); err != nil {
			// Rate limiter's error doesn't wrap context errors, so check context explicitly
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			if conf.OnTaskEnd != nil {
				conf.OnTaskEnd(unit, err)
			}
			return err
		}
	}

	if conf.BeforeTaskStart != nil {
		conf.BeforeTaskStart(unit)
	}

	err := runWithRecovery(fn)

	if conf.OnTaskEnd != nil {
		conf.OnTaskEnd(unit, err)
	}
	return err
}

// runWithRecovery converts a panic into a *PanicError so a single task cannot
// take its execution unit down with it.
func runWithRecovery(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = &PanicError{Value: r, Stack: buf[:n]}
		}
	}()

	fn()
	return nil
}
