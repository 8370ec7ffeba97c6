package workers

import "context"

// Pool bounds the number of concurrent CPU-heavy operations. It is a plain
// counting semaphore: Acquire blocks until a slot is free or the caller's
// context is cancelled.
type Pool struct {
	slots chan struct{}
}

// NewPool creates a pool with the given number of slots. A size below 1 is
// raised to 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{slots: make(chan struct{}, size)}
}

// Acquire claims a slot, blocking until one is available. Every successful
// Acquire must be paired with a Release.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot to the pool.
func (p *Pool) Release() {
	<-p.slots
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return cap(p.slots)
}
