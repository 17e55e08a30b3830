package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics records Go runtime statistics for a cleaning run. A batch
// process has no scrape window, so stats are collected once after the last
// file and land in the metrics textfile next to the pipeline counters.
type RuntimeMetrics struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	totalAlloc metric.Int64Gauge
	memSystem  metric.Int64Gauge
	gcCount    metric.Int64Counter
	gcPause    metric.Float64Histogram
	uptime     metric.Float64Gauge
}

// NewRuntimeMetrics creates the runtime instrument set on the given meter.
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64Gauge(
		"process_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapAlloc, err := meter.Int64Gauge(
		"process_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	totalAlloc, err := meter.Int64Gauge(
		"process_total_alloc_bytes",
		metric.WithDescription("Cumulative bytes allocated for heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	memSystem, err := meter.Int64Gauge(
		"process_memory_system_bytes",
		metric.WithDescription("Bytes obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Counter(
		"process_gc_collections_total",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	gcPause, err := meter.Float64Histogram(
		"process_gc_pause_seconds",
		metric.WithDescription("Most recent garbage collection pause"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64Gauge(
		"process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RuntimeMetrics{
		goroutines: goroutines,
		heapAlloc:  heapAlloc,
		totalAlloc: totalAlloc,
		memSystem:  memSystem,
		gcCount:    gcCount,
		gcPause:    gcPause,
		uptime:     uptime,
	}, nil
}

// RuntimeStats holds one snapshot of runtime statistics.
type RuntimeStats struct {
	Goroutines  int64
	HeapAlloc   int64
	TotalAlloc  int64
	MemSystem   int64
	GCCount     uint32
	LastGCPause time.Duration
	Uptime      time.Duration
}

// Collect reads the runtime counters, records them on the instruments and
// returns the snapshot for logging.
func (rm *RuntimeMetrics) Collect(ctx context.Context, startTime time.Time) *RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &RuntimeStats{
		Goroutines:  int64(runtime.NumGoroutine()),
		HeapAlloc:   int64(memStats.Alloc),
		TotalAlloc:  int64(memStats.TotalAlloc),
		MemSystem:   int64(memStats.Sys),
		GCCount:     memStats.NumGC,
		LastGCPause: time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256]),
		Uptime:      time.Since(startTime),
	}

	rm.goroutines.Record(ctx, stats.Goroutines)
	rm.heapAlloc.Record(ctx, stats.HeapAlloc)
	rm.totalAlloc.Record(ctx, stats.TotalAlloc)
	rm.memSystem.Record(ctx, stats.MemSystem)
	rm.gcCount.Add(ctx, int64(stats.GCCount))
	rm.uptime.Record(ctx, stats.Uptime.Seconds())
	if stats.LastGCPause > 0 {
		rm.gcPause.Record(ctx, stats.LastGCPause.Seconds())
	}

	return stats
}
