package pool

import (
	"sync"
	"testing"
	"time"
)

// spawnerConfig defines a test configuration for a unit spawner
type spawnerConfig struct {
	name string
	opts []Option
}

// getAllSpawners returns every built-in way of creating execution units
func getAllSpawners() []spawnerConfig {
	return []spawnerConfig{
		{name: "Goroutine", opts: []Option{WithSpawner(GoroutineSpawner{})}},
		{name: "Thread", opts: []Option{WithSpawner(ThreadSpawner{})}},
		{name: "PinnedThread", opts: []Option{WithCPUAffinity()}},
	}
}

func runSpawnerTest(t *testing.T, testFunc func(t *testing.T, s spawnerConfig), additionalOpts ...Option) {
	for _, sp := range getAllSpawners() {
		sp.opts = append(sp.opts, additionalOpts...)
		t.Run(sp.name, func(t *testing.T) {
			testFunc(t, sp)
		})
	}
}

// waitTimeout fails the test if wg is not released within d.
func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("timed out after %v waiting for tasks", d)
	}
}
