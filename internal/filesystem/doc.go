/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

Media libraries are frequently mounted over NFS. Walking a large library while the
server-side export changes can surface ESTALE (errno 116) from stat or readdir calls.
The helpers here retry those calls with exponential backoff and fall straight through
for every other error.

# Usage

	info, err := filesystem.StatWithRetry("/media/Movies", filesystem.DefaultRetryConfig())

	entries, err := filesystem.ReadDirWithRetry("/media/Movies", filesystem.DefaultRetryConfig())

	data, err := filesystem.ReadFileWithRetry("/cache/analysis_cache.json", filesystem.DefaultRetryConfig())

# Retry Behavior

Defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Only ESTALE triggers retries. Retry attempts, successes after retry, failures after
exhausting retries and total operation duration are exported through the metrics
package with an "operation" label (stat, readdir, read).
*/
package filesystem
