package tts

import (
	"context"
	"sync"
	"time"
)

// MockCall records one synthesis request made against a MockBackend
type MockCall struct {
	Text      string
	Directive string
}

// MockBackend is a scriptable in-memory Backend for tests. If
// SynthesizeFunc is nil every call succeeds with Audio.
type MockBackend struct {
	SynthesizeFunc func(ctx context.Context, text, directive string) ([]byte, error)
	Audio          []byte
	Delay          time.Duration

	mu    sync.Mutex
	calls []MockCall
}

// Synthesize records the call and returns the scripted result
func (m *MockBackend) Synthesize(ctx context.Context, text, directive string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Text: text, Directive: directive})
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, NewError(CodeTimeout, "mock synthesis cancelled", ctx.Err())
		case <-time.After(m.Delay):
		}
	}

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, directive)
	}
	return m.Audio, nil
}

// Calls returns a copy of all recorded synthesis requests
func (m *MockBackend) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of synthesis requests made so far
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
