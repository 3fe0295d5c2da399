// Package parallel provides chunked parallel execution for the Veil
// framework's numeric kernels.
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

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 256,
	}
}

// For executes f(i) for i in [0, n) with optional parallelism. Runs
// sequentially when parallelism is disabled or n is too small to amortize
// goroutine overhead.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// Map writes f(src[i]) into dst[i] for every element. dst and src must have
// the same length; dst may alias src. This is the workhorse behind the
// envelope and payload scalar kernels.
func Map(dst, src []float64, f func(v float64) float64, cfg Config) {
	For(len(dst), func(i int) { dst[i] = f(src[i]) }, cfg)
}

// Zip writes f(a[i], b[i]) into dst[i] for every element. All three slices
// must have the same length.
func Zip(dst, a, b []float64, f func(x, y float64) float64, cfg Config) {
	For(len(dst), func(i int) { dst[i] = f(a[i], b[i]) }, cfg)
}
