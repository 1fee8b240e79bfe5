package threads

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestCounter_Sentinel(t *testing.T) {
	c := NewCounter(3, 6)
	for _, expected := range []int{3, 4, 5, -1, -1} {
		if got := c.Next(); got != expected {
			t.Errorf("Expected %d, got %d", expected, got)
		}
	}
}

func TestRunThreadsOn_VisitsEveryItemOnce(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		workers    int
	}{
		{"single worker", 0, 100, 1},
		{"many workers", 0, 1000, 8},
		{"more workers than items", 5, 8, 16},
		{"default worker count", 0, 50, 0},
		{"empty range", 4, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			seen := make(map[int]int)

			RunThreadsOn(tt.start, tt.end, tt.workers, func(worker, i int) {
				mu.Lock()
				seen[i]++
				mu.Unlock()
			})

			if len(seen) != tt.end-tt.start {
				t.Errorf("Expected %d items, got %d", tt.end-tt.start, len(seen))
			}
			for i, n := range seen {
				if n != 1 || i < tt.start || i >= tt.end {
					t.Errorf("Item %d visited %d times", i, n)
				}
			}
		})
	}
}

func TestPool_WorkerIndexIsExclusive(t *testing.T) {
	pool := NewPool(4)
	var busy [4]atomic.Int32
	var clash atomic.Bool

	pool.Run(0, 500, func(worker, i int) {
		if busy[worker].Add(1) != 1 {
			clash.Store(true)
		}
		busy[worker].Add(-1)
	})

	if clash.Load() {
		t.Error("Two goroutines shared a worker index")
	}
}

func TestPool_Progress(t *testing.T) {
	pool := NewPool(3)
	var calls atomic.Int32
	var maxDone atomic.Int32
	pool.OnProgress(func(done, total int) {
		calls.Add(1)
		if total != 20 {
			t.Errorf("Expected total 20, got %d", total)
		}
		for {
			cur := maxDone.Load()
			if int32(done) <= cur || maxDone.CompareAndSwap(cur, int32(done)) {
				break
			}
		}
	})
	pool.Run(0, 20, func(worker, i int) {})

	if calls.Load() != 20 || maxDone.Load() != 20 {
		t.Errorf("Expected 20 progress calls ending at 20, got %d calls max %d", calls.Load(), maxDone.Load())
	}
}
