// Package algorithms holds the retry policy used by the comparison harness
// when a pool rejects a job. The engine itself never retries.
package algorithms

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// maxShift keeps 1<<attempt from overflowing.
const maxShift = 62

// Kind selects the delay curve of a Backoff.
type Kind int

const (
	// Exponential doubles the delay on every attempt.
	Exponential Kind = iota
	// Jittered is Exponential scaled by a random factor of 1 ± jitter.
	Jittered
	// Decorrelated picks each delay between the initial delay and three
	// times the previous one.
	Decorrelated
)

// Backoff yields the wait before retry attempt n (0 = first retry).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// NewBackoff builds a Backoff of the given kind. jitter is clamped to
// [0, 1] and only used by Jittered.
func NewBackoff(kind Kind, initial, maxDelay time.Duration, jitter float64) Backoff {
	switch kind {
	case Jittered:
		return &jittered{base: exponential{initial, maxDelay}, factor: clamp(jitter, 0, 1), rng: newRand()}
	case Decorrelated:
		return &decorrelated{initial: initial, maxDelay: maxDelay, prev: initial, rng: newRand()}
	default:
		return exponential{initial, maxDelay}
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404 -- jitter only
}

type exponential struct {
	initial, maxDelay time.Duration
}

func (e exponential) Delay(attempt int) time.Duration {
	switch {
	case attempt < 0:
		return 0
	case attempt >= maxShift:
		return e.maxDelay
	}

	d := time.Duration(int64(1)<<uint(attempt)) * e.initial
	if d > e.maxDelay || d < 0 {
		return e.maxDelay
	}
	return d
}

type jittered struct {
	base   exponential
	factor float64

	mu  sync.Mutex
	rng *rand.Rand
}

func (j *jittered) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}

	j.mu.Lock()
	mult := 1.0 + (j.rng.Float64()*2-1)*j.factor
	j.mu.Unlock()

	return clamp(time.Duration(float64(j.base.Delay(attempt))*mult), 0, j.base.maxDelay)
}

// decorrelated is stateful: each delay depends on the previous one, so
// concurrent retriers drift apart. Attempt 0 restarts the sequence.
type decorrelated struct {
	initial, maxDelay time.Duration

	mu   sync.Mutex
	prev time.Duration
	rng  *rand.Rand
}

func (d *decorrelated) Delay(attempt int) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if attempt <= 0 {
		d.prev = d.initial
		return d.initial
	}

	upper := min(time.Duration(float64(d.prev)*3), d.maxDelay)
	span := upper - d.initial
	if span <= 0 {
		d.prev = d.initial
		return d.initial
	}

	d.prev = d.initial + time.Duration(d.rng.Int63n(int64(span)))
	return d.prev
}

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries, the first one included.
	// Values below 1 mean a single try.
	MaxAttempts int
	Backoff     Backoff
	// Retryable decides whether an error is worth another try.
	// Nil retries every error.
	Retryable func(error) bool
}

// ErrAttemptsExhausted wraps the last error once a Policy runs out of tries.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx ends. fn receives the 0-based attempt number.
func Retry(ctx context.Context, p Policy, fn func(attempt int) error) error {
	attempts := max(1, p.MaxAttempts)

	var err error
	for attempt := range attempts {
		if err = fn(attempt); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff.Delay(attempt)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	if attempts == 1 {
		return err
	}
	return errors.Join(ErrAttemptsExhausted, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func clamp[T int | int64 | float64 | time.Duration](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
