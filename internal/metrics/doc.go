// Package metrics provides Prometheus instrumentation for the media inspector.
//
// All metrics are prefixed with "media_inspector_" and registered on the
// default registry through promauto. They are exposed on the metrics port
// (METRICS_PORT, default 9090) at /metrics.
//
// # Metric Categories
//
//   - HTTP: request counts, durations and in-flight requests
//   - Database: SQLite query counts/durations and open connections
//   - Filesystem: NFS stale-handle retries during library walks
//   - Probe: ffprobe invocations, durations and running processes
//   - Analysis: run outcomes, run duration, per-file classification counts,
//     in-flight state, attached stream subscribers and the last result
//   - Cache: get/put outcomes per backend and the age of the cached result
//
// InitializeMetrics pre-populates label combinations so dashboards see zero
// values before the first event. Collector refreshes gauges that are derived
// from state (cache age, database connections) on an interval.
package metrics
