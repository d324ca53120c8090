package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"media-inspector/internal/logging"
)

// RunIDHeader carries the analysis run a progress stream is attached to.
// The access log records it in the x(run-id) field.
const RunIDHeader = "X-Analysis-Run-Id"

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths       []string
	SkipExtensions  []string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// DefaultLoggingConfig returns a sensible default configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipExtensions:  []string{".css", ".js", ".ico", ".png", ".svg", ".woff", ".woff2"},
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// sanitizeLogField strips control characters from user-controlled values.
// Line breaks become spaces so a value cannot forge a second log line.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// accessEntry is one line of the W3C Extended Log Format access log:
//
//	date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken cs(Content-Encoding) cs(User-Agent) cs(Referer) x(run-id)
type accessEntry struct {
	when      time.Time
	clientIP  string
	method    string
	stem      string
	query     string
	status    int
	bytes     int64
	taken     time.Duration
	encoding  string
	userAgent string
	referer   string
	runID     string
}

func newAccessEntry(r *http.Request, rw *responseWriter, taken time.Duration) accessEntry {
	return accessEntry{
		when:      time.Now().UTC(),
		clientIP:  sanitizeLogField(getClientIP(r)),
		method:    sanitizeLogField(r.Method),
		stem:      sanitizeLogField(r.URL.Path),
		query:     sanitizeLogField(r.URL.RawQuery),
		status:    rw.statusCode,
		bytes:     rw.bytesWritten,
		taken:     taken,
		encoding:  rw.Header().Get("Content-Encoding"),
		userAgent: escapeW3CField(sanitizeLogField(r.Header.Get("User-Agent"))),
		referer:   sanitizeLogField(r.Header.Get("Referer")),
		runID:     sanitizeLogField(rw.Header().Get(RunIDHeader)),
	}
}

func (e accessEntry) String() string {
	return fmt.Sprintf("%s %s %s %s %s %s %d %d %d %s %s %s %s",
		e.when.Format("2006-01-02"),
		e.when.Format("15:04:05"),
		e.clientIP,
		e.method,
		e.stem,
		orDash(e.query),
		e.status,
		e.bytes,
		e.taken.Milliseconds(),
		orDash(e.encoding),
		orDash(e.userAgent),
		orDash(e.referer),
		orDash(e.runID),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Logger returns HTTP logging middleware using W3C Extended Log Format.
// Progress streams are logged when they end, so time-taken covers the whole
// stream; their start is logged at debug level.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			if isStreamingRequest(r, StreamingPaths) {
				logging.Debug("Progress stream opened: %s %s", sanitizeLogField(getClientIP(r)), sanitizeLogField(r.URL.Path))
			}

			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			logging.Info("%s", newAccessEntry(r, wrapped, time.Since(start)))
		})
	}
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}

	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}

	if !config.LogStaticFiles {
		lower := strings.ToLower(path)
		for _, ext := range config.SkipExtensions {
			if strings.HasSuffix(lower, ext) {
				return true
			}
		}
	}

	return false
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// escapeW3CField quotes values containing whitespace or quotes, doubling
// embedded quotes.
func escapeW3CField(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
