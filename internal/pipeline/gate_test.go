package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateBoundsConcurrency(t *testing.T) {
	gate := NewGate(2)
	var current, peak int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gate.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer gate.Release()

			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
		}()
	}
	wg.Wait()

	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("gate admitted %d concurrent holders, want at most 2", p)
	}
}

func TestGateAcquireCancelled(t *testing.T) {
	gate := NewGate(1)
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := gate.Acquire(ctx); err == nil {
		t.Error("expected Acquire to fail once the context expires")
	}
}

func TestGateMinimumCapacity(t *testing.T) {
	gate := NewGate(0)
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("zero-capacity gate must clamp to one slot: %v", err)
	}
	gate.Release()
}
