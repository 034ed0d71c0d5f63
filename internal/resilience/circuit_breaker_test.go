package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("backend", 3, time.Minute)
	failing := func() error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		if err := cb.Call(failing); err == nil {
			t.Fatalf("Expected failure on call %d", i)
		}
	}

	if cb.State() != StateOpen {
		t.Errorf("Expected open state after 3 failures, got %v", cb.State())
	}

	err := cb.Call(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("backend", 3, time.Minute)

	cb.Record(false)
	cb.Record(false)
	cb.Record(true)
	cb.Record(false)
	cb.Record(false)

	if cb.State() != StateClosed {
		t.Errorf("Expected closed state, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker("backend", 1, 10*time.Millisecond)

	cb.Record(false)
	if cb.State() != StateOpen {
		t.Fatalf("Expected open state, got %v", cb.State())
	}

	time.Sleep(15 * time.Millisecond)

	// Three successful probes close the circuit
	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("Probe %d rejected: %v", i, err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("Expected closed state after recovery, got %v", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("backend", 1, 10*time.Millisecond)

	cb.Record(false)
	time.Sleep(15 * time.Millisecond)

	if err := cb.Call(func() error { return errors.New("still down") }); err == nil {
		t.Fatal("Expected probe to fail")
	}

	if cb.State() != StateOpen {
		t.Errorf("Expected circuit reopened, got %v", cb.State())
	}
}

func TestBackoff_DelayGrowsAndCaps(t *testing.T) {
	cfg := BackoffConfig{Initial: 100 * time.Millisecond, Max: 500 * time.Millisecond, Multiplier: 2.0}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond}, // capped
		{-1, 100 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := cfg.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
