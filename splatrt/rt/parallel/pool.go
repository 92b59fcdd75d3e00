// Package parallel runs the data-parallel stages of the rasterizer on a fixed
// set of goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed set of worker goroutines fed from per-worker queues.
// Idle workers steal from the other queues so uneven tiles still balance.
type Pool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
	// mu orders submission against Close: ExecuteAll submits under the
	// read lock and Close flips running under the write lock.
	mu sync.RWMutex
}

// NewPool starts a pool. workers <= 0 means GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case work := <-own:
				work()
			}
		}
	}
}

func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

func (p *Pool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case work := <-p.queues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll runs every item and blocks until all of them returned.
// It reports false if the pool was already closed, in which case nothing ran.
func (p *Pool) ExecuteAll(work []func()) bool {
	p.mu.RLock()
	if !p.running.Load() {
		p.mu.RUnlock()
		return false
	}
	if len(work) == 0 {
		p.mu.RUnlock()
		return true
	}

	var wg sync.WaitGroup
	wg.Add(len(work))
	for i, fn := range work {
		p.queues[i%p.workers] <- func() {
			defer wg.Done()
			fn()
		}
	}
	p.mu.RUnlock()

	wg.Wait()
	return true
}

// For splits [0, n) into contiguous chunks of at most chunk items and runs
// fn(lo, hi) for each of them on the pool.
func (p *Pool) For(n, chunk int, fn func(lo, hi int)) bool {
	if chunk <= 0 {
		chunk = 1
	}
	work := make([]func(), 0, (n+chunk-1)/chunk)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		work = append(work, func() { fn(lo, hi) })
	}
	return p.ExecuteAll(work)
}

// ChunkSize spreads n items over roughly four chunks per worker.
func (p *Pool) ChunkSize(n int) int {
	c := n / (p.workers * 4)
	if c < 64 {
		c = 64
	}
	return c
}

// Close waits for queued work and stops the workers. Work submitted before
// Close still runs to completion. Safe to call twice.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	for _, q := range p.queues {
		p.drain(q)
	}
}

func (p *Pool) Workers() int {
	return p.workers
}

func (p *Pool) IsRunning() bool {
	return p.running.Load()
}
