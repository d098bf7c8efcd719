// internal/utils/metrics.go
package utils

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector collects application metrics
type MetricsCollector struct {
	counters   map[string]*Counter
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Counter metric - using atomic operations for thread-safe value updates
type Counter struct {
	name  string
	value int64
}

// Inc increments the counter by one
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Value returns the current counter value
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Histogram metric (simple implementation tracking count, sum, min, max)
type Histogram struct {
	name  string
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

// Observe records a duration sample in milliseconds
func (h *Histogram) Observe(d time.Duration) {
	ms := d.Milliseconds()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 || ms < h.min {
		h.min = ms
	}
	if ms > h.max {
		h.max = ms
	}
	h.count++
	h.sum += ms
}

// HistogramSnapshot is a point-in-time view of a histogram
type HistogramSnapshot struct {
	Count int64 `json:"count"`
	SumMS int64 `json:"sum_ms"`
	MinMS int64 `json:"min_ms"`
	MaxMS int64 `json:"max_ms"`
	AvgMS int64 `json:"avg_ms"`
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics collector
func GetMetrics() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = &MetricsCollector{
			counters:   make(map[string]*Counter),
			histograms: make(map[string]*Histogram),
		}
	})
	return globalMetrics
}

// Counter returns (creating if needed) the named counter
func (m *MetricsCollector) Counter(name string) *Counter {
	m.mu.RLock()
	c, exists := m.counters[name]
	m.mu.RUnlock()
	if exists {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, exists = m.counters[name]; exists {
		return c
	}
	c = &Counter{name: name}
	m.counters[name] = c
	return c
}

// Histogram returns (creating if needed) the named histogram
func (m *MetricsCollector) Histogram(name string) *Histogram {
	m.mu.RLock()
	h, exists := m.histograms[name]
	m.mu.RUnlock()
	if exists {
		return h
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, exists = m.histograms[name]; exists {
		return h
	}
	h = &Histogram{name: name}
	m.histograms[name] = h
	return h
}

// Snapshot returns all metric values for reporting
func (m *MetricsCollector) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, c := range m.counters {
		counters[name] = c.Value()
	}

	histograms := make(map[string]HistogramSnapshot, len(m.histograms))
	for name, h := range m.histograms {
		h.mu.Lock()
		snapshot := HistogramSnapshot{
			Count: h.count,
			SumMS: h.sum,
			MinMS: h.min,
			MaxMS: h.max,
		}
		if h.count > 0 {
			snapshot.AvgMS = h.sum / h.count
		}
		h.mu.Unlock()
		histograms[name] = snapshot
	}

	return map[string]interface{}{
		"counters":   counters,
		"histograms": histograms,
	}
}
