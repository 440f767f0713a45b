package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Hooks(t *testing.T) {
	var started, ended atomic.Int32
	var mu sync.Mutex
	units := map[int]bool{}

	p, _ := New(3,
		WithBeforeTaskStart(func(unit int) {
			started.Add(1)
			mu.Lock()
			units[unit] = true
			mu.Unlock()
		}),
		WithOnTaskEnd(func(unit int, err error) {
			ended.Add(1)
		}),
	)

	for range 30 {
		_ = p.Submit(func() {})
	}
	_ = p.Close()

	if started.Load() != 30 || ended.Load() != 30 {
		t.Errorf("expected 30 start/end hook calls, got %d/%d", started.Load(), ended.Load())
	}

	mu.Lock()
	defer mu.Unlock()
	for u := range units {
		if u < 0 || u >= 3 {
			t.Errorf("hook saw unit %d outside [0,3)", u)
		}
	}
}

func TestWorkerPool_PanicRecovery(t *testing.T) {
	runSpawnerTest(t, func(t *testing.T, s spawnerConfig) {
		var hookErr atomic.Value
		opts := append(s.opts, WithOnTaskEnd(func(_ int, err error) {
			if err != nil {
				hookErr.Store(err)
			}
		}))

		p, _ := New(1, opts...)
		defer p.Close()

		_ = p.Submit(func() { panic("task exploded") })

		var wg sync.WaitGroup
		wg.Add(1)
		_ = p.Submit(func() { wg.Done() })
		waitTimeout(t, &wg, time.Second)

		err, _ := hookErr.Load().(error)
		var pe *PanicError
		if !errors.As(err, &pe) {
			t.Fatalf("expected *PanicError in hook, got %v", err)
		}
		if pe.Value != "task exploded" {
			t.Errorf("unexpected panic value %v", pe.Value)
		}
		if st := p.Stats(); st.Panicked != 1 {
			t.Errorf("expected 1 panicked task, got %d", st.Panicked)
		}
	})
}
