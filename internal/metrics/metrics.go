package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_inspector_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_inspector_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_inspector_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_inspector_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_inspector_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_inspector_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_inspector_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retry attempts after stale NFS handles",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_inspector_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after at least one retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_inspector_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_inspector_filesystem_stale_errors_total",
			Help: "Stale NFS file handle errors observed",
		},
		[]string{"operation"},
	)

	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_inspector_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)
)

// Probe metrics
var (
	ProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_inspector_probe_total",
			Help: "Total number of ffprobe invocations by result",
		},
		[]string{"status"}, // "success", "error", "timeout"
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_inspector_probe_duration_seconds",
			Help:    "Duration of a single ffprobe invocation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ProbesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_inspector_probes_in_flight",
			Help: "Number of ffprobe processes currently running",
		},
	)
)

// Analysis metrics
var (
	AnalysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_inspector_analysis_runs_total",
			Help: "Total number of analysis requests by outcome",
		},
		[]string{"outcome"}, // "completed", "failed", "cached", "attached"
	)

	AnalysisRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_inspector_analysis_run_duration_seconds",
			Help:    "Duration of full library analysis runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	AnalysisFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_inspector_analysis_files_total",
			Help: "Files processed by analysis runs by classification",
		},
		[]string{"status"}, // "compatible", "problematic", "skipped"
	)

	AnalysisIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_inspector_analysis_running",
			Help: "Whether an analysis run is in progress (1 = running, 0 = idle)",
		},
	)

	AnalysisSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_inspector_analysis_subscribers",
			Help: "Number of clients attached to the in-flight analysis stream",
		},
	)

	AnalysisLastCompletedTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_inspector_analysis_last_completed_timestamp",
			Help: "Unix timestamp of the last completed analysis run",
		},
	)

	AnalysisCompatibilityPercentage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_inspector_analysis_compatibility_percentage",
			Help: "Compatibility percentage reported by the last completed analysis",
		},
	)
)

// Cache metrics
var (
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_inspector_cache_operations_total",
			Help: "Analysis cache operations by backend, operation and result",
		},
		[]string{"backend", "operation", "result"}, // operation: get|put, result: hit|miss|corrupt|ok|error
	)

	CacheAgeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_inspector_cache_age_seconds",
			Help: "Age of the cached analysis result in seconds (0 when absent)",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_inspector_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// runRecorded is set once a run completes in this process. Until then the
// collector seeds the last-run gauges from the cached result.
var runRecorded atomic.Bool

// RecordCompletedRun updates the gauges describing the latest completed run.
func RecordCompletedRun(finished time.Time, compatibilityPercentage float64) {
	runRecorded.Store(true)
	AnalysisLastCompletedTimestamp.Set(float64(finished.Unix()))
	AnalysisCompatibilityPercentage.Set(compatibilityPercentage)
}
