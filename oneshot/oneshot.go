// Package oneshot implements a single-producer, single-consumer channel that
// carries exactly one value, once.
//
// A pair is created with New. The Sender moves into whatever goroutine
// computes the value; the Receiver stays with the party that wants it. The
// sender either sends once or is closed without sending, in which case the
// receiver observes ErrCancelled instead of waiting forever.
//
//	tx, rx := oneshot.New[int]()
//	go func() {
//	    defer tx.Close() // no-op after a successful Send
//	    _ = tx.Send(compute())
//	}()
//
//	select {
//	case <-rx.Done():
//	    v, err := rx.Recv(ctx)
//	case <-tick:
//	    // keep doing other work while the value is pending
//	}
package oneshot

import (
	"context"
	"errors"
	"sync/atomic"
)

var (
	// ErrAlreadySent is returned by a Send on a cell that is no longer empty,
	// either because a value was sent or because the sender was closed.
	ErrAlreadySent = errors.New("oneshot: value already sent")

	// ErrCancelled is observed by the receiver when the sender was closed
	// without sending.
	ErrCancelled = errors.New("oneshot: sender dropped without sending")
)

const (
	stateEmpty int32 = iota
	stateFulfilled
	stateCancelled
)

// cell is the one shared point between both ends. The state CAS elects the
// single writer; closing done publishes the value to the reader.
type cell[T any] struct {
	state atomic.Int32
	value T
	done  chan struct{}
}

// Sender is the producing end.
type Sender[T any] struct {
	c *cell[T]
}

// Receiver is the consuming end.
type Receiver[T any] struct {
	c *cell[T]
}

// New creates a connected Sender/Receiver pair.
func New[T any]() (*Sender[T], *Receiver[T]) {
	c := &cell[T]{done: make(chan struct{})}
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

// Send delivers v to the receiver. Only the first Send succeeds.
func (s *Sender[T]) Send(v T) error {
	if !s.c.state.CompareAndSwap(stateEmpty, stateFulfilled) {
		return ErrAlreadySent
	}
	s.c.value = v
	close(s.c.done)
	return nil
}

// Close drops the sender. If nothing was sent, the receiver resolves to
// ErrCancelled. Close after Send, or a second Close, does nothing.
func (s *Sender[T]) Close() {
	if s.c.state.CompareAndSwap(stateEmpty, stateCancelled) {
		close(s.c.done)
	}
}

// Done returns a channel closed once the cell is fulfilled or cancelled.
// Selecting on it never blocks the caller's own loop.
func (r *Receiver[T]) Done() <-chan struct{} {
	return r.c.done
}

// Recv waits for the outcome or for ctx to end.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	select {
	case <-r.c.done:
		return r.outcome()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryRecv returns the outcome without waiting; ok is false while pending.
func (r *Receiver[T]) TryRecv() (v T, err error, ok bool) {
	select {
	case <-r.c.done:
		v, err = r.outcome()
		return v, err, true
	default:
		return v, nil, false
	}
}

// outcome must only be called after done is closed.
func (r *Receiver[T]) outcome() (T, error) {
	if r.c.state.Load() == stateCancelled {
		var zero T
		return zero, ErrCancelled
	}
	return r.c.value, nil
}
