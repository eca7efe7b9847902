// Package metrics aggregates per-request outcomes for a benchmark run.
//
// A [Collector] is created per run and ingests one [Outcome] at a time:
//
//	collector := metrics.NewCollector()
//	collector.Record(outcome)
//
//	// Live view, cheap enough to call every 100ms.
//	snap := collector.Snapshot()
//
//	// Once every writer has stopped.
//	result, err := collector.Finalize(metrics.RunInfo{URL: url, Method: "GET", Connections: 10})
//
// # Live versus final percentiles
//
// [Collector.Snapshot] computes p50/p99 from a bounded ring of the most
// recent latencies (see [DefaultWindowSize]), so its cost does not grow with
// the run. [Collector.Finalize] sorts the full latency history once and
// computes exact nearest-rank percentiles via [Percentile].
//
// # Time series
//
// While recording, the collector captures a coarse [TimeSeriesPoint] every
// [DefaultSampleInterval] of wall-clock time, independent of request volume.
//
// # Latency correction
//
// With [WithCorrectedHistogram] the collector also feeds an HdrHistogram with
// coordinated-omission corrected values and exposes them as
// [Result.CorrectedLatency].
//
// # Thread Safety
//
// All mutable state sits behind a single mutex. Record and Snapshot are safe
// to interleave; Finalize must not race with Record.
package metrics
