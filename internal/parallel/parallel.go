// Package parallel runs independent per-item work on a bounded set of goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Workers  int // Upper bound on concurrent goroutines.
	MinItems int // Below this many items work runs on the calling goroutine.
}

// DefaultConfig uses one worker per CPU and stays sequential for small inputs.
func DefaultConfig() Config {
	return Config{
		Workers:  runtime.NumCPU(),
		MinItems: 4,
	}
}

// For executes f(i) for every i in [0, n) and returns when all calls are done.
// Items are handed out one at a time, so uneven work still spreads across workers.
func For(n int, f func(i int), cfg Config) {
	workers := min(cfg.Workers, n)
	if workers <= 1 || n < cfg.MinItems {
		for i := range n {
			f(i)
		}
		return
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				f(i)
			}
		}()
	}
	for i := range n {
		next <- i
	}
	close(next)
	wg.Wait()
}
