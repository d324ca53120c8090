// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [Load] (quiet,
// used by the CLI) or [LoadConfig] (banner, configuration dump and directory
// checks, used by the server). The following environment variables are
// supported:
//
//   - MEDIA_DIR: Media library root (default: /media)
//   - DATABASE_DIR: SQLite directory (default: /database)
//   - CACHE_DIR: Analysis cache file directory (default: /cache)
//   - STATIC_DIR: Presentation files served at / (default: ./static)
//   - PORT / METRICS_PORT / METRICS_ENABLED: Listeners (default: 8080 / 9090 / true)
//   - FFPROBE_PATH: Probe binary (default: ffprobe)
//   - PROBE_TIMEOUT: Per-file probe timeout (default: 30s)
//   - PROBE_WORKERS: Parallel probes, a number or "auto" (default: 1)
//   - SCAN_MAX_DEPTH: Recursion limit for discovery (default: 10)
//   - CACHE_BACKEND: file, sqlite or redis (default: file)
//   - CACHE_VALIDATE_FINGERPRINT: Treat records for a changed library as misses (default: false)
//   - REDIS_ADDR / REDIS_PASSWORD / REDIS_DB: Redis cache backend
//   - NATS_URL / NATS_SUBJECT: Optional run notifications
//   - CODEC_CONFIG_FILE: YAML or JSON codec lists imported when none are stored
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: Logging toggles
//
// Invalid numbers and durations fall back to their defaults with a warning.
// An unknown CACHE_BACKEND is an error.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogDatabaseInit]: Database initialization timing
//   - [LogProbeInit]: ffprobe availability and probe settings
//   - [LogCacheInit]: Selected cache backend
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownStep], [LogShutdownComplete]: Graceful shutdown
package startup
