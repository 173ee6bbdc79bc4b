package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics records process resource usage during an export. Large
// result sets are buffered by the workbook writer, so heap size is the
// figure operators watch.
type RuntimeMetrics struct {
	goroutines    metric.Int64Gauge
	heapAlloc     metric.Int64Gauge
	heapSys       metric.Int64Gauge
	gcCount       metric.Int64Gauge
	processUptime metric.Float64Gauge
}

// RuntimeStats holds the last collected values
type RuntimeStats struct {
	Goroutines    int64   `json:"goroutines"`
	HeapAllocMB   int64   `json:"heap_alloc_mb"`
	HeapSysMB     int64   `json:"heap_sys_mb"`
	GCCount       uint32  `json:"gc_count"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewRuntimeMetrics creates the runtime gauges
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

	heapSys, err := meter.Int64Gauge(
		"process_heap_sys_bytes",
		metric.WithDescription("Heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"process_gc_count",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	processUptime, err := meter.Float64Gauge(
		"process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RuntimeMetrics{
		goroutines:    goroutines,
		heapAlloc:     heapAlloc,
		heapSys:       heapSys,
		gcCount:       gcCount,
		processUptime: processUptime,
	}, nil
}

// Collect reads the runtime statistics and records them
func (rm *RuntimeMetrics) Collect(ctx context.Context, startTime time.Time) RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := RuntimeStats{
		Goroutines:    int64(runtime.NumGoroutine()),
		HeapAllocMB:   int64(memStats.HeapAlloc / 1024 / 1024),
		HeapSysMB:     int64(memStats.HeapSys / 1024 / 1024),
		GCCount:       memStats.NumGC,
		UptimeSeconds: time.Since(startTime).Seconds(),
	}

	rm.goroutines.Record(ctx, stats.Goroutines)
	rm.heapAlloc.Record(ctx, int64(memStats.HeapAlloc))
	rm.heapSys.Record(ctx, int64(memStats.HeapSys))
	rm.gcCount.Record(ctx, int64(memStats.NumGC))
	rm.processUptime.Record(ctx, stats.UptimeSeconds)

	return stats
}

// RuntimeCollector records runtime metrics on an interval
type RuntimeCollector struct {
	metrics   *RuntimeMetrics
	startTime time.Time
	interval  time.Duration
}

// NewRuntimeCollector creates a collector recording every interval
func NewRuntimeCollector(meter metric.Meter, interval time.Duration) (*RuntimeCollector, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("collection interval must be positive, got %s", interval)
	}
	metrics, err := NewRuntimeMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	return &RuntimeCollector{
		metrics:   metrics,
		startTime: time.Now(),
		interval:  interval,
	}, nil
}

// Run collects until ctx is done
func (rc *RuntimeCollector) Run(ctx context.Context) {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	rc.metrics.Collect(ctx, rc.startTime)

	for {
		select {
		case <-ticker.C:
			rc.metrics.Collect(ctx, rc.startTime)
		case <-ctx.Done():
			return
		}
	}
}

// Current collects and returns the current statistics
func (rc *RuntimeCollector) Current(ctx context.Context) RuntimeStats {
	return rc.metrics.Collect(ctx, rc.startTime)
}
