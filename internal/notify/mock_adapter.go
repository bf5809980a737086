package notify

import (
	"context"
	"sync"
)

// MockAdapter records sent events for tests.
type MockAdapter struct {
	mu     sync.Mutex
	events []Event
	Err    error // returned from Send when set
}

// NewMockAdapter creates an empty MockAdapter.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

// Send records the event.
func (m *MockAdapter) Send(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of everything sent so far.
func (m *MockAdapter) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
