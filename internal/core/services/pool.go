package services

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// embedBatchSize is the number of texts sent per embedding request.
const embedBatchSize = 32

// workerPool bounds the number of concurrent embedding and search calls
// across all users.
type workerPool struct {
	sem  *semaphore.Weighted
	size int
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &workerPool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Do runs fn once a worker slot is free.
func (p *workerPool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// batches splits n items into [start, end) ranges of at most size.
func batches(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// forEachBatch runs fn for each batch of n items on the pool.
// The first error cancels the remaining batches.
func (p *workerPool) forEachBatch(ctx context.Context, n, size int, fn func(ctx context.Context, start, end int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range batches(n, size) {
		start, end := b[0], b[1]
		g.Go(func() error {
			return p.Do(gctx, func() error {
				return fn(gctx, start, end)
			})
		})
	}
	return g.Wait()
}
