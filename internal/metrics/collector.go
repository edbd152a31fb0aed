// Package metrics provides in-memory runtime statistics collection for
// engine operations.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpSend   = "send"
	OpStream = "send_stream"
	OpLoad   = "load"
	OpList   = "list"
	OpDelete = "delete"
	OpUpdate = "update"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Token usage (only tracked for send operations)
	TotalTokens int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
	TotalTokens int64
	AvgTokens   float64
}

// Snapshot is a point-in-time view of all operation statistics.
type Snapshot struct {
	UptimeSeconds float64
	Operations    map[string]OperationSnapshot
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordSendUsage records timing and token usage for a send operation.
func (c *Collector) RecordSendUsage(op string, duration time.Duration, tokens int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	m.TotalTokens += tokens

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Operations:    make(map[string]OperationSnapshot, len(c.ops)),
	}

	for op, m := range c.ops {
		if m.Count == 0 {
			continue
		}
		s := OperationSnapshot{
			Count:       m.Count,
			TotalTimeMs: m.TotalTime.Milliseconds(),
			AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
			MinTimeMs:   m.MinTime.Milliseconds(),
			MaxTimeMs:   m.MaxTime.Milliseconds(),
			TotalTokens: m.TotalTokens,
		}
		if m.TotalTokens > 0 {
			s.AvgTokens = float64(m.TotalTokens) / float64(m.Count)
		}
		snap.Operations[op] = s
	}
	return snap
}
