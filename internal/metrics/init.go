package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(cacheBackend string) {
	for _, op := range []string{"stat", "readdir", "read"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemOperationDuration.WithLabelValues(op)
	}

	for _, status := range []string{"success", "error", "timeout"} {
		ProbeTotal.WithLabelValues(status)
	}

	for _, outcome := range []string{"completed", "failed", "cached", "attached"} {
		AnalysisRunsTotal.WithLabelValues(outcome)
	}

	for _, status := range []string{"compatible", "problematic", "skipped"} {
		AnalysisFilesTotal.WithLabelValues(status)
	}

	for _, result := range []string{"hit", "miss", "corrupt", "error"} {
		CacheOperationsTotal.WithLabelValues(cacheBackend, "get", result)
	}
	for _, result := range []string{"ok", "error"} {
		CacheOperationsTotal.WithLabelValues(cacheBackend, "put", result)
	}

	for _, op := range []string{"initialize_schema", "get_metadata", "set_metadata", "get_cache", "put_cache", "clear_cache", "record_run", "list_runs"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
