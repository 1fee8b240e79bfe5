package threads

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Counter hands out work items one at a time from a shared range
type Counter struct {
	next atomic.Int64
	end  int64
}

// NewCounter creates a counter over [start, end)
func NewCounter(start, end int) *Counter {
	c := &Counter{end: int64(end)}
	c.next.Store(int64(start))
	return c
}

// Next claims the next item, or returns -1 once the range is exhausted
func (c *Counter) Next() int {
	i := c.next.Add(1) - 1
	if i >= c.end {
		return -1
	}
	return int(i)
}

// Pool runs work items across a fixed number of workers pulling from a
// shared Counter
type Pool struct {
	numWorkers int
	progress   func(done, total int)
}

// NewPool creates a pool. numWorkers <= 0 uses every CPU.
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{numWorkers: numWorkers}
}

// NumWorkers returns the number of worker goroutines Run starts
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// OnProgress registers a callback invoked after each finished item. It is
// called from worker goroutines and must be safe for concurrent use.
func (p *Pool) OnProgress(fn func(done, total int)) {
	p.progress = fn
}

// Run calls fn(worker, i) for every i in [start, end) and blocks until all
// items are done. Each worker index is owned by exactly one goroutine, so
// fn may keep per-worker state indexed by it.
func (p *Pool) Run(start, end int, fn func(worker, i int)) {
	if end <= start {
		return
	}
	total := end - start
	counter := NewCounter(start, end)
	var done atomic.Int64

	workers := p.numWorkers
	if workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i := counter.Next()
				if i == -1 {
					return
				}
				fn(worker, i)
				if p.progress != nil {
					p.progress(int(done.Add(1)), total)
				}
			}
		}(w)
	}
	wg.Wait()
}

// RunThreadsOn runs fn over [start, end) on numWorkers workers
func RunThreadsOn(start, end, numWorkers int, fn func(worker, i int)) {
	NewPool(numWorkers).Run(start, end, fn)
}
