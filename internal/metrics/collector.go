// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Stream metrics (only for turn operations)
	TotalFrames    int64
	TotalBytes     int64
	TotalAnomalies int64
	MinFrames      int64
	MaxFrames      int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	// Stream stats (nil if not applicable)
	TotalFrames    *int64
	TotalBytes     *int64
	TotalAnomalies *int64
	AvgFrames      *float64
	MinFrames      *int64
	MaxFrames      *int64
}

// Snapshot represents the full client statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Turn          *OperationSnapshot
	StreamOpen    *OperationSnapshot
	Store         *OperationSnapshot
}

// Operation names for the collector.
const (
	OpTurn       = "turn"
	OpStreamOpen = "stream_open"
	OpStore      = "store"
)

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
			MinTime:   time.Duration(math.MaxInt64),
			MinFrames: math.MaxInt64,
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

// RecordTurn records timing and stream volume for one completed turn.
func (c *Collector) RecordTurn(duration time.Duration, frames, bytes, anomalies int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(OpTurn)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalFrames += frames
	m.TotalBytes += bytes
	m.TotalAnomalies += anomalies

	if frames < m.MinFrames {
		m.MinFrames = frames
	}
	if frames > m.MaxFrames {
		m.MaxFrames = frames
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeStream bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeStream {
		totalFrames := m.TotalFrames
		totalBytes := m.TotalBytes
		totalAnomalies := m.TotalAnomalies
		avgFrames := float64(m.TotalFrames) / float64(m.Count)
		minFrames := m.MinFrames
		maxFrames := m.MaxFrames

		// Reset sentinel values for display
		if minFrames == math.MaxInt64 {
			minFrames = 0
		}

		snap.TotalFrames = &totalFrames
		snap.TotalBytes = &totalBytes
		snap.TotalAnomalies = &totalAnomalies
		snap.AvgFrames = &avgFrames
		snap.MinFrames = &minFrames
		snap.MaxFrames = &maxFrames
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Turn:          snapshotOp(c.ops[OpTurn], true),
		StreamOpen:    snapshotOp(c.ops[OpStreamOpen], false),
		Store:         snapshotOp(c.ops[OpStore], false),
	}
}
