package reduce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkarsh5026/poolreduce/oneshot"
)

func TestHandleIdempotentObservation(t *testing.T) {
	tx, rx := oneshot.New[[]int]()
	h := newHandle("h", rx)
	require.NoError(t, tx.Send([]int{1, 2, 3}))

	first, err := h.Result()
	require.NoError(t, err)

	second, err := h.Await(context.Background())
	require.NoError(t, err)

	third, err, ok := h.Poll()
	require.True(t, ok)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
}

func TestHandleCancelled(t *testing.T) {
	tx, rx := oneshot.New[int]()
	h := newHandle("h", rx)
	tx.Close()

	_, err := h.Result()
	assert.ErrorIs(t, err, ErrCancelled)

	_, err, ok := h.Poll()
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestHandleAwaitContextKeepsPending(t *testing.T) {
	tx, rx := oneshot.New[int]()
	h := newHandle("h", rx)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Send(9))
	v, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestHandleDoneSelectable(t *testing.T) {
	tx, rx := oneshot.New[int]()
	h := newHandle("h", rx)

	ticks := 0
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = tx.Send(1)
	}()

loop:
	for {
		select {
		case <-h.Done():
			break loop
		case <-ticker.C:
			ticks++
		}
	}

	assert.Positive(t, ticks, "the loop kept running while the handle was pending")
	v, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
