package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatches(t *testing.T) {
	tests := []struct {
		n, size int
		want    [][2]int
	}{
		{n: 0, size: 32, want: nil},
		{n: 5, size: 32, want: [][2]int{{0, 5}}},
		{n: 64, size: 32, want: [][2]int{{0, 32}, {32, 64}}},
		{n: 70, size: 32, want: [][2]int{{0, 32}, {32, 64}, {64, 70}}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, batches(tt.n, tt.size))
	}
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	pool := newWorkerPool(2)

	var active, peak atomic.Int32
	err := pool.forEachBatch(context.Background(), 10, 1, func(_ context.Context, _, _ int) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
		return nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerPool_CoversEveryItem(t *testing.T) {
	pool := newWorkerPool(3)
	seen := make([]atomic.Int32, 100)

	err := pool.forEachBatch(context.Background(), len(seen), 7, func(_ context.Context, start, end int) error {
		for i := start; i < end; i++ {
			seen[i].Add(1)
		}
		return nil
	})

	require.NoError(t, err)
	for i := range seen {
		assert.Equal(t, int32(1), seen[i].Load(), "item %d", i)
	}
}

func TestWorkerPool_FirstErrorWins(t *testing.T) {
	pool := newWorkerPool(1)
	boom := errors.New("boom")

	err := pool.forEachBatch(context.Background(), 5, 1, func(_ context.Context, start, _ int) error {
		if start == 0 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
}

func TestWorkerPool_Do_Cancelled(t *testing.T) {
	pool := newWorkerPool(1)
	release := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func() error {
			<-release
			return nil
		})
	}()
	defer close(release)

	// Give the holder a moment to take the only slot.
	time.Sleep(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pool.Do(ctx, func() error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewWorkerPool_DefaultSize(t *testing.T) {
	assert.Positive(t, newWorkerPool(0).size)
}
