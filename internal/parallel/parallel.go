// Package parallel runs independent units of work on a bounded set of goroutines.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// Workers returns n when positive, otherwise the number of CPU cores.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// ForEach calls fn once for every index in [0, items) using at most
// workers goroutines. Indices are handed out dynamically so a slow item
// does not hold back a whole chunk. Once ctx is done no new index is
// started and ctx.Err() is returned after running calls finish.
func ForEach(ctx context.Context, items, workers int, fn func(ctx context.Context, i int)) error {
	if items == 0 {
		return ctx.Err()
	}

	numWorkers := min(Workers(workers), items)

	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				i := int(next.Add(1) - 1)
				if i >= items {
					return
				}
				fn(ctx, i)
			}
		}()
	}

	wg.Wait()
	return ctx.Err()
}

// Parallelize divides items into contiguous ranges, one per worker, and
// runs fn on each range concurrently.
func Parallelize(items, workers int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := min(Workers(workers), items)

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, items)
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items does not exceed threshold, and in parallel otherwise.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, workers, fn)
}
