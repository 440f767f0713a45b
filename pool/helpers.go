package pool

import (
	"errors"
	"fmt"
	"time"

	"github.com/utkarsh5026/poolreduce/internal/scheduler"
)

var (
	// ErrPoolCreation is returned by New when the requested size is invalid or
	// the Spawner could not start every unit. No units are left running.
	ErrPoolCreation = errors.New("pool creation failed")

	// ErrDispatch is returned when a task cannot be handed to the pool,
	// typically because teardown has started. Retry against a new pool.
	ErrDispatch = errors.New("dispatch failed")

	// ErrQueueFull is returned when WithMaxQueued is set and the bound is
	// reached. It matches ErrDispatch with errors.Is.
	ErrQueueFull = fmt.Errorf("%w: task queue is full", ErrDispatch)

	ErrNilTask         = errors.New("nil task")
	ErrAlreadyShutdown = errors.New("pool already shut down")
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")
)

// PanicError is the error handed to the OnTaskEnd hook when a task panics.
type PanicError = scheduler.PanicError

// dispatchError maps queue admission failures onto the pool's error taxonomy.
func dispatchError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scheduler.ErrQueueFull):
		return ErrQueueFull
	case errors.Is(err, scheduler.ErrQueueClosed):
		return fmt.Errorf("%w: %w", ErrDispatch, ErrAlreadyShutdown)
	default:
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
}

// waitUntil blocks until either the done channel is closed or the timeout is reached.
// It is used during graceful shutdown to wait for units to drain the queue.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	select {
	case <-d:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
