// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Metrics is a plain counter registry, constructor-injected into the HTTP
// and WebSocket servers instead of read through a global. Call New once at
// process startup and pass the same pointer to every component that should
// contribute to it.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates the counters listed in SPEC_FULL.md §4.11: request
// volume, transferred bytes, live WebSocket connections
// and handshake failures, plus a free-form sink for anything else a
// handler wants to record.
type Metrics struct {
	requestsTotal      int64
	responsesByStatus  sync.Map // int (status code, e.g. 404) -> *int64
	bytesIn            int64
	bytesOut           int64
	activeWSConns      int64
	handshakeFailures  int64
	framesReceived     int64
	framesSent         int64

	mu      sync.RWMutex
	custom  map[string]any
	updated time.Time
}

// New creates an empty, ready-to-use Metrics registry.
func New() *Metrics {
	return &Metrics{custom: make(map[string]any)}
}

func (m *Metrics) IncRequests()            { atomic.AddInt64(&m.requestsTotal, 1) }
func (m *Metrics) AddBytesIn(n int64)      { atomic.AddInt64(&m.bytesIn, n) }
func (m *Metrics) AddBytesOut(n int64)     { atomic.AddInt64(&m.bytesOut, n) }
func (m *Metrics) IncActiveWSConns()       { atomic.AddInt64(&m.activeWSConns, 1) }
func (m *Metrics) DecActiveWSConns()       { atomic.AddInt64(&m.activeWSConns, -1) }
func (m *Metrics) IncHandshakeFailures()   { atomic.AddInt64(&m.handshakeFailures, 1) }
func (m *Metrics) AddFramesReceived(n int64) { atomic.AddInt64(&m.framesReceived, n) }
func (m *Metrics) AddFramesSent(n int64)     { atomic.AddInt64(&m.framesSent, n) }

// RecordStatus tallies responses per HTTP status code.
func (m *Metrics) RecordStatus(status int) {
	v, _ := m.responsesByStatus.LoadOrStore(status, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// Set stores an arbitrary named value, for metrics that don't fit the
// fixed counters above (e.g. a gauge computed by the caller).
func (m *Metrics) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.custom[key] = value
	m.updated = time.Now()
}

// Snapshot is a point-in-time copy of every counter, safe to serialize.
type Snapshot struct {
	RequestsTotal     int64
	ResponsesByStatus map[int]int64
	BytesIn           int64
	BytesOut          int64
	ActiveWSConns     int64
	HandshakeFailures int64
	FramesReceived    int64
	FramesSent        int64
	Custom            map[string]any
	UpdatedAt         time.Time
}

// GetSnapshot returns a consistent copy of all counters for reporting.
func (m *Metrics) GetSnapshot() Snapshot {
	byStatus := make(map[int]int64)
	m.responsesByStatus.Range(func(k, v any) bool {
		byStatus[k.(int)] = atomic.LoadInt64(v.(*int64))
		return true
	})

	m.mu.RLock()
	custom := make(map[string]any, len(m.custom))
	for k, v := range m.custom {
		custom[k] = v
	}
	updated := m.updated
	m.mu.RUnlock()

	return Snapshot{
		RequestsTotal:     atomic.LoadInt64(&m.requestsTotal),
		ResponsesByStatus: byStatus,
		BytesIn:           atomic.LoadInt64(&m.bytesIn),
		BytesOut:          atomic.LoadInt64(&m.bytesOut),
		ActiveWSConns:     atomic.LoadInt64(&m.activeWSConns),
		HandshakeFailures: atomic.LoadInt64(&m.handshakeFailures),
		FramesReceived:    atomic.LoadInt64(&m.framesReceived),
		FramesSent:        atomic.LoadInt64(&m.framesSent),
		Custom:            custom,
		UpdatedAt:         updated,
	}
}
