package middleware

import (
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzhttp"

	"media-inspector/internal/logging"
)

// StreamingPaths are the progress stream routes. Their responses must reach
// the client event by event and are never compressed.
var StreamingPaths = []string{
	"/api/bulk-analysis-progress",
	"/api/bulk-analysis/ws",
}

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the minimum response size in bytes before compression is applied
	MinSize int
	// CompressibleTypes is a list of content types that should be compressed
	CompressibleTypes []string
	// SkipPaths are path prefixes served without compression
	SkipPaths []string
}

// DefaultCompressionConfig returns the defaults used by the server. Analysis
// results with long problematic file lists are the main beneficiary.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		CompressibleTypes: []string{
			"text/html",
			"text/css",
			"text/plain",
			"text/javascript",
			"application/json",
			"application/javascript",
			"image/svg+xml",
		},
		SkipPaths: StreamingPaths,
	}
}

// isStreamingRequest reports whether r expects an incrementally delivered
// response: a WebSocket upgrade, an event stream or a configured skip path.
func isStreamingRequest(r *http.Request, skipPaths []string) bool {
	if r.Header.Get("Upgrade") != "" {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return true
	}
	for _, p := range skipPaths {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

// Compression returns a middleware that gzips responses of the configured
// content types once they reach MinSize. Streaming requests bypass it.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(config.MinSize),
		gzhttp.ContentTypes(config.CompressibleTypes),
	)
	if err != nil {
		logging.Error("Compression disabled: %v", err)
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		compressed := wrap(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isStreamingRequest(r, config.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}
			compressed.ServeHTTP(w, r)
		})
	}
}
