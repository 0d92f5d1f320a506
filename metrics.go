package tierkv

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordSet is called after each write operation.
	RecordSet(duration time.Duration, err error)

	// RecordGet is called after each read operation. cold reports whether the
	// value was served from the cold store instead of memory.
	RecordGet(cold bool, duration time.Duration, err error)

	// RecordEviction is called when keys are reclaimed from memory.
	// count is the number of keys, bytes the memory returned.
	RecordEviction(count int, bytes int64)

	// RecordTiering is called after each batch tiering pass.
	// moved is the number of candidates durably persisted.
	RecordTiering(moved int, duration time.Duration, err error)

	// RecordReclaim is called after each reclamation cycle.
	RecordReclaim(freed int64, duration time.Duration, err error)

	// RecordScan is called after each relational scan.
	RecordScan(rows int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSet(time.Duration, error)           {}
func (NoopMetricsCollector) RecordGet(bool, time.Duration, error)     {}
func (NoopMetricsCollector) RecordEviction(int, int64)                {}
func (NoopMetricsCollector) RecordTiering(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordReclaim(int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordScan(int, time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SetCount      atomic.Int64
	SetErrors     atomic.Int64
	GetCount      atomic.Int64
	GetErrors     atomic.Int64
	ColdReads     atomic.Int64
	EvictedKeys   atomic.Int64
	EvictedBytes  atomic.Int64
	TieringPasses atomic.Int64
	TieredKeys    atomic.Int64
	TieringErrors atomic.Int64
	ReclaimCycles atomic.Int64
	ReclaimFreed  atomic.Int64
	ReclaimErrors atomic.Int64
	ScanCount     atomic.Int64
	ScanRows      atomic.Int64
	ScanErrors    atomic.Int64
}

// RecordSet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSet(_ time.Duration, err error) {
	b.SetCount.Add(1)
	if err != nil {
		b.SetErrors.Add(1)
	}
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(cold bool, _ time.Duration, err error) {
	b.GetCount.Add(1)
	if cold {
		b.ColdReads.Add(1)
	}
	if err != nil {
		b.GetErrors.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(count int, bytes int64) {
	b.EvictedKeys.Add(int64(count))
	b.EvictedBytes.Add(bytes)
}

// RecordTiering implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTiering(moved int, _ time.Duration, err error) {
	b.TieringPasses.Add(1)
	b.TieredKeys.Add(int64(moved))
	if err != nil {
		b.TieringErrors.Add(1)
	}
}

// RecordReclaim implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReclaim(freed int64, _ time.Duration, err error) {
	b.ReclaimCycles.Add(1)
	b.ReclaimFreed.Add(freed)
	if err != nil {
		b.ReclaimErrors.Add(1)
	}
}

// RecordScan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScan(rows int, _ time.Duration, err error) {
	b.ScanCount.Add(1)
	b.ScanRows.Add(int64(rows))
	if err != nil {
		b.ScanErrors.Add(1)
	}
}
