// Package database provides SQLite storage for the media inspector.
//
// It holds:
//   - metadata: key/value settings, including the codec configuration
//   - analysis_cache: the last completed analysis result (single row)
//   - analysis_runs: a bounded history of finished analysis runs
//
// The database uses WAL mode for concurrent readers and applies schema
// migrations on startup.
package database
