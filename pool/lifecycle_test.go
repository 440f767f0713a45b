package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("invalid sizes fail", func(t *testing.T) {
		for _, size := range []int{0, -1, -100} {
			p, err := New(size)
			if !errors.Is(err, ErrPoolCreation) {
				t.Errorf("New(%d): expected ErrPoolCreation, got %v", size, err)
			}
			if p != nil {
				t.Errorf("New(%d): expected nil pool", size)
			}
		}
	})

	t.Run("spawns exactly size units", func(t *testing.T) {
		var spawned atomic.Int32
		inner := ThreadSpawner{}
		p, err := New(5, WithSpawner(SpawnerFunc(func(unit int, loop func()) error {
			spawned.Add(1)
			return inner.Spawn(unit, loop)
		})))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer p.Close()

		if got := spawned.Load(); got != 5 {
			t.Errorf("expected 5 spawned units, got %d", got)
		}
		if p.Size() != 5 {
			t.Errorf("expected Size() 5, got %d", p.Size())
		}
		if p.ID() == "" {
			t.Error("pool ID should not be empty")
		}
	})

	t.Run("spawn failure releases started units", func(t *testing.T) {
		var running atomic.Int32
		spawnErr := errors.New("no more workers")

		p, err := New(4, WithSpawner(SpawnerFunc(func(unit int, loop func()) error {
			if unit == 2 {
				return spawnErr
			}
			go func() {
				running.Add(1)
				defer running.Add(-1)
				loop()
			}()
			return nil
		})))

		if !errors.Is(err, ErrPoolCreation) {
			t.Fatalf("expected ErrPoolCreation, got %v", err)
		}
		if !errors.Is(err, spawnErr) {
			t.Errorf("expected the spawner error to be wrapped, got %v", err)
		}
		if p != nil {
			t.Error("expected nil pool on failure")
		}

		deadline := time.Now().Add(time.Second)
		for running.Load() != 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if n := running.Load(); n != 0 {
			t.Errorf("expected every started unit to exit, %d still running", n)
		}
	})
}

func TestWorkerPool_Shutdown(t *testing.T) {
	t.Run("runs queued tasks to completion", func(t *testing.T) {
		runSpawnerTest(t, func(t *testing.T, s spawnerConfig) {
			p, err := New(2, s.opts...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var ran atomic.Int32
			for range 50 {
				if err := p.Submit(func() {
					time.Sleep(time.Millisecond)
					ran.Add(1)
				}); err != nil {
					t.Fatalf("submit failed: %v", err)
				}
			}

			if err := p.Shutdown(0); err != nil {
				t.Fatalf("shutdown failed: %v", err)
			}
			if got := ran.Load(); got != 50 {
				t.Errorf("expected all 50 tasks to run before shutdown returned, got %d", got)
			}

			select {
			case <-p.Done():
			default:
				t.Error("Done() should be closed after Shutdown returns")
			}
		})
	})

	t.Run("double shutdown fails", func(t *testing.T) {
		p, _ := New(1)
		if err := p.Shutdown(time.Second); err != nil {
			t.Fatalf("first shutdown failed: %v", err)
		}
		if err := p.Shutdown(time.Second); !errors.Is(err, ErrAlreadyShutdown) {
			t.Errorf("expected ErrAlreadyShutdown, got %v", err)
		}
	})

	t.Run("timeout leaves units draining", func(t *testing.T) {
		p, _ := New(1)
		release := make(chan struct{})
		finished := make(chan struct{})
		_ = p.Submit(func() {
			<-release
			close(finished)
		})

		if err := p.Shutdown(20 * time.Millisecond); !errors.Is(err, ErrShutdownTimeout) {
			t.Fatalf("expected ErrShutdownTimeout, got %v", err)
		}

		close(release)
		select {
		case <-finished:
		case <-time.After(time.Second):
			t.Fatal("in-flight task did not finish after timeout")
		}
		select {
		case <-p.Done():
		case <-time.After(time.Second):
			t.Fatal("units did not exit after draining")
		}
	})

	t.Run("submit after shutdown fails", func(t *testing.T) {
		runSpawnerTest(t, func(t *testing.T, s spawnerConfig) {
			p, _ := New(2, s.opts...)
			_ = p.Close()

			if err := p.Submit(func() {}); !errors.Is(err, ErrDispatch) {
				t.Errorf("Submit: expected ErrDispatch, got %v", err)
			}
			if err := p.SubmitBatch([]Task{func() {}}); !errors.Is(err, ErrDispatch) {
				t.Errorf("SubmitBatch: expected ErrDispatch, got %v", err)
			}
		})
	})

	t.Run("stopping is closed when teardown begins", func(t *testing.T) {
		p, _ := New(2)

		var wg sync.WaitGroup
		wg.Add(1)
		_ = p.Submit(func() {
			defer wg.Done()
			<-p.Stopping()
		})

		go func() { _ = p.Shutdown(0) }()
		waitTimeout(t, &wg, time.Second)
	})
}
