package metrics

import (
	"sync"
	"sync/atomic"
)

// Collector collects and aggregates metrics of graph operations.
type Collector struct {
	// Operation metrics
	opCounts   sync.Map // map[string]*uint64 - operation -> count
	opErrors   sync.Map // map[string]*uint64 - operation -> error count
	opDuration sync.Map // map[string]*durationValue - operation -> total duration in seconds

	// Graph churn
	edgesCreated uint64
	edgesDeleted uint64
	linksCreated uint64
	linksDeleted uint64
}

// durationValue holds duration with mutex for thread-safe updates.
type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// OperationMetrics holds per-operation metrics.
type OperationMetrics struct {
	Counts               map[string]uint64
	ErrorCounts          map[string]uint64
	TotalDurationSeconds map[string]float64
}

// ChurnMetrics holds created and deleted edge and link counts.
type ChurnMetrics struct {
	EdgesCreated uint64
	EdgesDeleted uint64
	LinksCreated uint64
	LinksDeleted uint64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordOperation records one engine operation.
func (c *Collector) RecordOperation(op string) {
	counter := c.getOrCreateCounter(&c.opCounts, op)
	atomic.AddUint64(counter, 1)
}

// RecordError records a failed engine operation.
func (c *Collector) RecordError(op string) {
	counter := c.getOrCreateCounter(&c.opErrors, op)
	atomic.AddUint64(counter, 1)
}

// RecordDuration records the duration of an operation in seconds.
func (c *Collector) RecordDuration(op string, durationSeconds float64) {
	val, _ := c.opDuration.LoadOrStore(op, &durationValue{})
	dv := val.(*durationValue)

	dv.mu.Lock()
	dv.totalSeconds += durationSeconds
	dv.mu.Unlock()
}

// RecordEdges records created and deleted edges.
func (c *Collector) RecordEdges(created, deleted int) {
	atomic.AddUint64(&c.edgesCreated, uint64(created))
	atomic.AddUint64(&c.edgesDeleted, uint64(deleted))
}

// RecordLinks records created and deleted links.
func (c *Collector) RecordLinks(created, deleted int) {
	atomic.AddUint64(&c.linksCreated, uint64(created))
	atomic.AddUint64(&c.linksDeleted, uint64(deleted))
}

// GetChurnMetrics returns current churn counters.
func (c *Collector) GetChurnMetrics() *ChurnMetrics {
	return &ChurnMetrics{
		EdgesCreated: atomic.LoadUint64(&c.edgesCreated),
		EdgesDeleted: atomic.LoadUint64(&c.edgesDeleted),
		LinksCreated: atomic.LoadUint64(&c.linksCreated),
		LinksDeleted: atomic.LoadUint64(&c.linksDeleted),
	}
}

// GetOperationMetrics returns current operation metrics.
func (c *Collector) GetOperationMetrics() *OperationMetrics {
	result := &OperationMetrics{
		Counts:               make(map[string]uint64),
		ErrorCounts:          make(map[string]uint64),
		TotalDurationSeconds: make(map[string]float64),
	}

	c.opCounts.Range(func(key, value interface{}) bool {
		result.Counts[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	c.opErrors.Range(func(key, value interface{}) bool {
		result.ErrorCounts[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	c.opDuration.Range(func(key, value interface{}) bool {
		dv := value.(*durationValue)
		dv.mu.Lock()
		result.TotalDurationSeconds[key.(string)] = dv.totalSeconds
		dv.mu.Unlock()
		return true
	})

	return result
}

// getOrCreateCounter gets or creates a counter for the given key.
func (c *Collector) getOrCreateCounter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}
