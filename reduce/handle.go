package reduce

import (
	"context"
	"sync"

	"github.com/utkarsh5026/poolreduce/oneshot"
)

// Handle is the caller's side of a running job. It resolves exactly once, to
// the final value or to ErrCancelled, and caches that outcome.
//
// A Handle is meant for one consumer. Observing it again after resolution
// returns the cached outcome.
type Handle[R any] struct {
	id string
	rx *oneshot.Receiver[R]

	once  sync.Once
	value R
	err   error
}

func newHandle[R any](id string, rx *oneshot.Receiver[R]) *Handle[R] {
	return &Handle[R]{id: id, rx: rx}
}

// ID returns the job identifier.
func (h *Handle[R]) ID() string {
	return h.id
}

// Done returns a channel closed once the outcome is available. An event loop
// selects on it alongside its other work.
func (h *Handle[R]) Done() <-chan struct{} {
	return h.rx.Done()
}

// Await waits for the outcome or for ctx to end. A ctx error leaves the
// handle pending; a later call can still observe the outcome.
func (h *Handle[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-h.rx.Done():
		return h.resolve()
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Poll returns the outcome without waiting; ok is false while pending.
func (h *Handle[R]) Poll() (value R, err error, ok bool) {
	select {
	case <-h.rx.Done():
		value, err = h.resolve()
		return value, err, true
	default:
		return value, nil, false
	}
}

// Result blocks until the outcome is available.
func (h *Handle[R]) Result() (R, error) {
	return h.Await(context.Background())
}

func (h *Handle[R]) resolve() (R, error) {
	h.once.Do(func() {
		h.value, h.err = h.rx.Recv(context.Background())
	})
	return h.value, h.err
}

// NewHandle wraps the receiving end of a bridge whose sender is driven by the
// caller's own task. Reduce uses it for its jobs; layered computations that
// schedule their reduce differently use it too.
func NewHandle[R any](id string, rx *oneshot.Receiver[R]) *Handle[R] {
	return newHandle(id, rx)
}
