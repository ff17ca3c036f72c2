// Package metrics holds the pipeline's in-process business counters: tick
// and bar throughput, event-bus drops, storage flush durations, and queue
// depths. These are prometheus.Counter/Gauge values used purely as typed
// atomic accumulators — nothing here registers an HTTP /metrics endpoint.
// cmd/datacenter updates them from the tick and bar handlers, the archiver
// job and the health checks; nothing in this module reads them back.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds every gauge/counter the pipeline updates as it runs.
type Collector struct {
	TicksReceived   prometheus.Counter
	BarsGenerated   prometheus.Counter
	EventsDropped   prometheus.Counter
	MarketQueueSize prometheus.Gauge
	GeneralQueueSize prometheus.Gauge

	HotStoreFlushSeconds prometheus.Histogram
	ZombieFlushCount     prometheus.Gauge

	AppendLogRowsWritten  prometheus.Counter
	AppendLogRowsFailed   prometheus.Counter
	AppendLogDirectWrites prometheus.Counter

	ArchiverRunsTotal  prometheus.Counter
	ArchiverRunsFailed prometheus.Counter

	appendLogState *syncedCounters
}

// New builds a Collector whose metrics are not registered with any
// registry, the global default included, since nothing in this module
// exports metrics over HTTP.
func New() *Collector {
	return &Collector{
		TicksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datacenter_ticks_received_total",
			Help: "Ticks accepted by the event bus.",
		}),
		BarsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datacenter_bars_generated_total",
			Help: "Bars finished by the bar generator set.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datacenter_events_dropped_total",
			Help: "Async events dropped by a full, non-market subscriber queue.",
		}),
		MarketQueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "datacenter_market_queue_size",
			Help: "Current depth of the event bus market worker queue.",
		}),
		GeneralQueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "datacenter_general_queue_size",
			Help: "Current depth of the event bus general worker queue.",
		}),
		HotStoreFlushSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "datacenter_hotstore_flush_seconds",
			Help:    "Time spent flushing a buffered day's rows to the hot store.",
			Buckets: prometheus.DefBuckets,
		}),
		ZombieFlushCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "datacenter_hotstore_zombie_flush_count",
			Help: "Day files that still hold buffered, unflushed rows.",
		}),
		AppendLogRowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datacenter_appendlog_rows_written_total",
			Help: "Rows successfully written by the append log.",
		}),
		AppendLogRowsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datacenter_appendlog_rows_failed_total",
			Help: "Rows that failed even after the degraded direct-write fallback.",
		}),
		AppendLogDirectWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datacenter_appendlog_direct_writes_total",
			Help: "Writes that bypassed a full shard queue.",
		}),
		ArchiverRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datacenter_archiver_runs_total",
			Help: "Archiver cycles attempted.",
		}),
		ArchiverRunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datacenter_archiver_runs_failed_total",
			Help: "Archiver cycles that aborted before completing.",
		}),
		appendLogState: &syncedCounters{},
	}
}
