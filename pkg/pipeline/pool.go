package pipeline

import (
	"runtime"
	"sync"
)

// workerPool runs submitted functions on a fixed set of goroutines that
// pull from one shared queue.
type workerPool struct {
	work chan func()
	wg   sync.WaitGroup
}

// newWorkerPool starts workers goroutines. If workers is 0 or negative,
// GOMAXPROCS is used.
func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &workerPool{work: make(chan func(), workers*2)}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for f := range p.work {
		f()
	}
}

// submit queues f, or gives up and returns false once stop is closed.
func (p *workerPool) submit(f func(), stop <-chan struct{}) bool {
	select {
	case p.work <- f:
		return true
	case <-stop:
		return false
	}
}

// close stops accepting work and waits for queued work to finish.
func (p *workerPool) close() {
	close(p.work)
	p.wg.Wait()
}
