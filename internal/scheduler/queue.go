package scheduler

import (
	"errors"
	"sync"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue is the shared FIFO every execution unit pulls from.
//
// It is unbounded unless a limit is given, so producers never block on busy
// consumers. Any idle unit can take any queued task.
//
// Closing the queue rejects new items but keeps the ones already queued: Pop
// keeps handing them out until the queue is both closed and empty.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	head   int
	limit  int
	closed bool
}

// NewQueue creates a queue with the given initial capacity.
// A limit <= 0 means the queue grows without bound.
func NewQueue[T any](capacity, limit int) *Queue[T] {
	q := &Queue[T]{
		items: make([]T, 0, max(capacity, 0)),
		limit: limit,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a single item.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.admit(1); err != nil {
		return err
	}

	q.items = append(q.items, item)
	q.cond.Signal()
	return nil
}

// PushBatch appends every item or none of them.
func (q *Queue[T]) PushBatch(items []T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.admit(len(items)); err != nil {
		return err
	}

	q.items = append(q.items, items...)
	if len(items) == 1 {
		q.cond.Signal()
	} else if len(items) > 1 {
		q.cond.Broadcast()
	}
	return nil
}

// admit must be called with q.mu held.
func (q *Queue[T]) admit(n int) error {
	if q.closed {
		return ErrQueueClosed
	}
	if q.limit > 0 && q.lenLocked()+n > q.limit {
		return ErrQueueFull
	}
	return nil
}

// Pop blocks until an item is available and returns it.
// ok is false once the queue is closed and fully drained.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.lenLocked() == 0 {
		if q.closed {
			return item, false
		}
		q.cond.Wait()
	}

	item = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	q.compact()
	return item, true
}

// TryPop returns the next item without waiting.
func (q *Queue[T]) TryPop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.lenLocked() == 0 {
		return item, false
	}

	item = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	q.compact()
	return item, true
}

// compact reclaims the consumed prefix once it dominates the backing array.
func (q *Queue[T]) compact() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
}

// Close stops admission and wakes every waiting consumer.
// It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *Queue[T]) lenLocked() int {
	return len(q.items) - q.head
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
