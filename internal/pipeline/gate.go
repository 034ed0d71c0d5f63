package pipeline

import "context"

// Gate bounds concurrent synthesis round trips process-wide. It is a
// counting semaphore; the default capacity of one serializes backend calls.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate admitting at most n concurrent holders
func NewGate(n int) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or the context is cancelled
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired with Acquire
func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
	}
}
