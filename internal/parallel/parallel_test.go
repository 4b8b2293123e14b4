package parallel

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestForEachVisitsEveryIndex(t *testing.T) {
	const items = 100
	var seen [items]atomic.Int32

	err := ForEach(context.Background(), items, 4, func(_ context.Context, i int) {
		seen[i].Add(1)
	})
	if err != nil {
		t.Fatalf("ForEach returned error: %v", err)
	}

	for i := range seen {
		if got := seen[i].Load(); got != 1 {
			t.Errorf("Index %d visited %d times", i, got)
		}
	}
}

func TestForEachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := ForEach(ctx, 10, 2, func(context.Context, int) {
		calls.Add(1)
	})
	if err != context.Canceled {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no calls after cancellation, got %d", calls.Load())
	}
}

func TestForEachEmpty(t *testing.T) {
	if err := ForEach(context.Background(), 0, 4, func(context.Context, int) {
		t.Error("fn should not be called")
	}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestParallelizeCoversRange(t *testing.T) {
	const items = 37
	var sum atomic.Int64

	Parallelize(items, 5, func(start, end int) {
		for i := start; i < end; i++ {
			sum.Add(int64(i))
		}
	})

	if want := int64(items * (items - 1) / 2); sum.Load() != want {
		t.Errorf("Expected sum %d, got %d", want, sum.Load())
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var calls int
	ParallelizeWithThreshold(3, 10, 4, func(start, end int) {
		calls++
		if start != 0 || end != 3 {
			t.Errorf("Expected a single [0,3) range, got [%d,%d)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("Expected one sequential call, got %d", calls)
	}
}

func TestWorkers(t *testing.T) {
	if Workers(3) != 3 {
		t.Error("Expected explicit worker count to be kept")
	}
	if Workers(0) < 1 {
		t.Error("Expected at least one default worker")
	}
}
