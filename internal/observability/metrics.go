package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters over conversation dispatch.
type Metrics struct {
	mu         sync.Mutex
	eventCount map[string]int64
	errorCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		eventCount: make(map[string]int64),
		errorCount: make(map[string]int64),
	}
}

// RecordEvent increments the counter for an event kind dispatched in a state.
func (m *Metrics) RecordEvent(kind, state string) {
	if m == nil {
		return
	}
	key := kind + "|" + state
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCount[key]++
}

// RecordError increments error counters by taxonomy code.
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[code]++
}

// EventCount returns the dispatch count for an event kind in a state.
func (m *Metrics) EventCount(kind, state string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventCount[kind+"|"+state]
}
