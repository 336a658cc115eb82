// Package parallel provides chunked data-parallel loops for elementwise
// array kernels. A loop never outlives its call: every goroutine is joined
// before For or Reduce returns.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count. Elementwise kernels are
// cheap, so chunks are large.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1 << 14,
	}
}

// Sequential returns a config that always runs inline.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// chunks splits [0, n) into contiguous ranges according to cfg.
func chunks(n int, cfg Config) [][2]int {
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < 2*cfg.MinChunkSize {
		return [][2]int{{0, n}}
	}
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)
	out := make([][2]int, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		out = append(out, [2]int{start, min(start+chunkSize, n)})
	}
	return out
}

// For executes f(i) for i in [0, n), splitting the range across goroutines
// when n is large enough.
func For(n int, f func(i int), cfg Config) {
	parts := chunks(n, cfg)
	if len(parts) == 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	for _, p := range parts {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(p[0], p[1])
	}
	wg.Wait()
}

// Reduce sums f(i) over [0, n). Partial sums are combined in chunk order, so
// the result does not depend on goroutine scheduling.
func Reduce(n int, f func(i int) complex128, cfg Config) complex128 {
	parts := chunks(n, cfg)
	partial := make([]complex128, len(parts))

	run := func(k int) {
		var acc complex128
		for i := parts[k][0]; i < parts[k][1]; i++ {
			acc += f(i)
		}
		partial[k] = acc
	}

	if len(parts) == 1 {
		run(0)
		return partial[0]
	}

	var wg sync.WaitGroup
	for k := range parts {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			run(k)
		}(k)
	}
	wg.Wait()

	var total complex128
	for _, p := range partial {
		total += p
	}
	return total
}
