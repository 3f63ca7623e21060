package nearestvehicle

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives timings of the caching phase and of queries.
type MetricsCollector interface {
	// RecordCache is called once when the caching phase ends. records is the
	// number of cached vehicles, err is nil on success.
	RecordCache(records int, duration time.Duration, err error)

	// RecordFind is called after each query. scanned is the number of
	// vehicles compared.
	RecordFind(scanned int, duration time.Duration)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCache(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFind(int, time.Duration)         {}

// BasicMetricsCollector keeps in-memory counters.
type BasicMetricsCollector struct {
	CacheCount      atomic.Int64
	CacheErrors     atomic.Int64
	CachedRecords   atomic.Int64
	CacheTotalNanos atomic.Int64
	FindCount       atomic.Int64
	FindScanned     atomic.Int64
	FindTotalNanos  atomic.Int64
}

// RecordCache implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCache(records int, duration time.Duration, err error) {
	b.CacheCount.Add(1)
	b.CacheTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CacheErrors.Add(1)
		return
	}
	b.CachedRecords.Add(int64(records))
}

// RecordFind implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFind(scanned int, duration time.Duration) {
	b.FindCount.Add(1)
	b.FindScanned.Add(int64(scanned))
	b.FindTotalNanos.Add(duration.Nanoseconds())
}

// MeanFindLatency returns the average query duration.
func (b *BasicMetricsCollector) MeanFindLatency() time.Duration {
	n := b.FindCount.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(b.FindTotalNanos.Load() / n)
}
