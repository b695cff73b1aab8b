package engine

import (
	"context"
	"errors"
	"sync"
)

var errPoolClosed = errors.New("worker pool closed")

// workerPool is a fixed-size goroutine pool with a bounded input queue.
// Workers run until Drain; every item accepted by the queue is processed.
type workerPool[T any] struct {
	queue   chan T
	process func(ctx context.Context, t T)

	mu     sync.RWMutex // held for reading while sending to queue
	closed bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

// newWorkerPool creates and starts a pool with n goroutines and queue capacity cap.
func newWorkerPool[T any](ctx context.Context, n, cap int, fn func(context.Context, T)) *workerPool[T] {
	p := &workerPool[T]{
		queue:   make(chan T, cap),
		process: fn,
		quit:    make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T]) run(ctx context.Context) {
	for {
		select {
		case t := <-p.queue:
			p.process(ctx, t)
		case <-p.quit:
			// No sender can be active any more; finish what is queued.
			for {
				select {
				case t := <-p.queue:
					p.process(ctx, t)
				default:
					return
				}
			}
		}
	}
}

// Enqueue blocks until t is queued or ctx is done. It fails with
// errPoolClosed after Drain.
func (p *workerPool[T]) Enqueue(ctx context.Context, t T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.queue <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain stops accepting work, lets workers finish the queued items and waits for them.
func (p *workerPool[T]) Drain() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.quit)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// QueueLen returns how many items are currently queued.
func (p *workerPool[T]) QueueLen() int {
	return len(p.queue)
}

// QueueCap returns the total queue capacity.
func (p *workerPool[T]) QueueCap() int {
	return cap(p.queue)
}
