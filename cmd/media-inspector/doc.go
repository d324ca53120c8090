// Package main provides the entry point for Media Inspector.
//
// Media Inspector scans a media library with ffprobe and reports which files
// a streaming client cannot direct-play because of their audio or video
// codecs. The library-wide result is cached so that reopening the report does
// not re-probe thousands of files.
//
// # Commands
//
//   - serve (default): HTTP API, progress streams and the static UI
//   - analyze: one full analysis in the terminal, with a progress bar
//   - probe <file>: stream details and compatibility of a single file
//   - config show|set|import: manage the problematic codec lists
//   - version: build information
//
// # Application Lifecycle
//
// The server follows the same sequence on every start:
//
//  1. Configuration Loading: reads environment variables, prepares directories
//  2. Database Initialization: opens SQLite, runs schema migrations
//  3. Codec Configuration: loads the stored lists, saving defaults on first run
//     and importing CODEC_CONFIG_FILE when nothing is stored yet
//  4. Component Initialization:
//     - Library walker rooted at MEDIA_DIR
//     - ffprobe runner with a per-file timeout
//     - Analysis cache (file, sqlite or redis)
//     - NATS publisher for finished runs (when NATS_URL is set)
//     - Analysis orchestrator and its probe worker pool
//     - Metrics collector
//  5. HTTP Server Setup: routes, middleware, metrics server
//  6. Graceful Shutdown: cancels the running analysis, kills ffprobe
//     processes, drains HTTP connections
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - Static file serving
//     - Directory browsing and per-file video information
//     - Codec configuration
//     - Bulk analysis over SSE and WebSocket, cache and run history
//     - Health, readiness and version endpoints
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Environment Variables
//
//   - MEDIA_DIR: Root directory of the media library (default: /media)
//   - CACHE_DIR: Directory for the file analysis cache (default: /cache)
//   - DATABASE_DIR: Directory for the SQLite database (default: /database)
//   - STATIC_DIR: Directory served at / (default: ./static)
//   - PORT: Main HTTP server port (default: 8080)
//   - METRICS_PORT: Metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable metrics server (default: true)
//   - FFPROBE_PATH: ffprobe binary (default: ffprobe)
//   - PROBE_TIMEOUT: Per-file probe timeout (default: 30s)
//   - PROBE_WORKERS: Concurrent probes, a number or "auto" (default: 1)
//   - SCAN_MAX_DEPTH: Maximum directory depth (default: 10)
//   - CACHE_BACKEND: file, sqlite or redis (default: file)
//   - CACHE_VALIDATE_FINGERPRINT: Treat a changed library as a cache miss
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB: Redis cache connection
//   - NATS_URL, NATS_SUBJECT: Run notifications
//   - CODEC_CONFIG_FILE: YAML or JSON codec lists imported on first start
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the server cancels the in-flight analysis (which is
// recorded as failed and not cached), kills outstanding ffprobe processes,
// stops the metrics collector and shuts both HTTP servers down within 30
// seconds.
package main
