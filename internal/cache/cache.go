package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"media-inspector/internal/analysis"
	"media-inspector/internal/logging"
	"media-inspector/internal/metrics"
)

// Backend names accepted by CACHE_BACKEND.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Store is the contract shared by every backend.
type Store interface {
	analysis.CacheStore
	Backend() string
	Clear(ctx context.Context) error
}

func encode(record analysis.CacheRecord) ([]byte, error) {
	record.Normalize()
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis cache: %w", err)
	}
	return data, nil
}

// decode parses a stored record. Malformed data is treated as a miss.
func decode(backend string, data []byte) *analysis.CacheRecord {
	var record analysis.CacheRecord
	if err := json.Unmarshal(data, &record); err != nil {
		logging.Warn("Ignoring corrupt %s analysis cache: %v", backend, err)
		observe(backend, "get", "corrupt")
		return nil
	}
	if record.CacheTimestamp <= 0 {
		logging.Warn("Ignoring %s analysis cache without a timestamp", backend)
		observe(backend, "get", "corrupt")
		return nil
	}
	record.Normalize()
	observe(backend, "get", "hit")
	return &record
}

func observe(backend, operation, result string) {
	metrics.CacheOperationsTotal.WithLabelValues(backend, operation, result).Inc()
}

// putResult maps a write error to its metric label.
func putResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
