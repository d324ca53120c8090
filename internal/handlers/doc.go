// Package handlers provides the HTTP surface of media-inspector.
//
// It includes handlers for:
//   - Directory browsing and single-file metadata
//   - Codec configuration and codec suggestions
//   - Bulk analysis: cached result, SSE and WebSocket progress streams,
//     sampled blocking runs, run status and history
//   - Health checks, version and Prometheus metrics
//
// Errors are returned as {"error": "..."} with a 4xx or 5xx status.
package handlers
