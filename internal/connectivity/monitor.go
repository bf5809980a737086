// Package connectivity exposes the host platform's online/offline signal as
// an observable. The host calls Set; the sync drainer subscribes and fires
// on the offline→online edge.
package connectivity

import "sync"

// Monitor is a boolean online/offline observable. Subscribers receive the
// new value on every edge (never on redundant Set calls).
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool
}

// NewMonitor creates a Monitor with the given initial state.
func NewMonitor(online bool) *Monitor {
	return &Monitor{online: online}
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set updates the connectivity state and notifies subscribers on change.
// Notification is non-blocking; a subscriber that hasn't drained its
// channel misses intermediate edges but always observes the latest via
// Online().
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	for _, ch := range m.subs {
		select {
		case ch <- online:
		default:
		}
	}
}

// Subscribe registers a new edge listener. The channel is buffered so a
// slow subscriber never blocks Set.
func (m *Monitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan bool, 1)
	m.subs = append(m.subs, ch)
	return ch
}
