package cache

import (
	"context"
	"errors"
	"time"

	"media-inspector/internal/analysis"
	"media-inspector/internal/database"
)

// SQLiteStore keeps the cached record in the analysis_cache table. The row
// is replaced by a single upsert.
type SQLiteStore struct {
	db *database.Database
}

// NewSQLiteStore creates a store backed by db.
func NewSQLiteStore(db *database.Database) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Backend implements Store.
func (s *SQLiteStore) Backend() string {
	return BackendSQLite
}

// Get implements analysis.CacheStore.
func (s *SQLiteStore) Get(ctx context.Context) (*analysis.CacheRecord, error) {
	row, err := s.db.GetAnalysisCache(ctx)
	if errors.Is(err, database.ErrNotFound) {
		observe(BackendSQLite, "get", "miss")
		return nil, nil
	}
	if err != nil {
		observe(BackendSQLite, "get", "error")
		return nil, err
	}
	return decode(BackendSQLite, row.Payload), nil
}

// Put implements analysis.CacheStore.
func (s *SQLiteStore) Put(ctx context.Context, record analysis.CacheRecord) (err error) {
	defer func() { observe(BackendSQLite, "put", putResult(err)) }()

	data, err := encode(record)
	if err != nil {
		return err
	}
	return s.db.PutAnalysisCache(ctx, database.CacheRow{
		Payload:     data,
		MediaRoot:   record.MediaRoot,
		Fingerprint: record.Fingerprint,
		CachedAt:    time.Unix(record.CacheTimestamp, 0),
	})
}

// Clear removes the cached row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.db.ClearAnalysisCache(ctx)
}
