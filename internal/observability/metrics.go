package observability

import (
	"maps"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters keyed by operation name.
type Metrics struct {
	mu             sync.Mutex
	operationCount map[string]int64
	operationTime  map[string]time.Duration
	errorCount     map[string]int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Operations map[string]int64         `json:"operations"`
	Durations  map[string]time.Duration `json:"durations"`
	Errors     map[string]int64         `json:"errors"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		operationCount: make(map[string]int64),
		operationTime:  make(map[string]time.Duration),
		errorCount:     make(map[string]int64),
	}
}

// RecordOperation counts one run of op and adds its duration.
func (m *Metrics) RecordOperation(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationCount[op]++
	m.operationTime[op] += duration
}

// RecordError counts a failure of op with the given error code.
func (m *Metrics) RecordError(op, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[op+"|"+code]++
}

// Snapshot copies the current counters. A nil Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{
			Operations: map[string]int64{},
			Durations:  map[string]time.Duration{},
			Errors:     map[string]int64{},
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Operations: maps.Clone(m.operationCount),
		Durations:  maps.Clone(m.operationTime),
		Errors:     maps.Clone(m.errorCount),
	}
}
