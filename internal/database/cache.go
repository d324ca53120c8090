package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetAnalysisCache returns the cached analysis row, or ErrNotFound.
func (d *Database) GetAnalysisCache(ctx context.Context) (*CacheRow, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_cache", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var row CacheRow
	var payload string
	var cachedAt int64
	err = d.db.QueryRowContext(ctx, `
		SELECT payload, media_root, fingerprint, cached_at
		FROM analysis_cache WHERE id = 1
	`).Scan(&payload, &row.MediaRoot, &row.Fingerprint, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	row.Payload = []byte(payload)
	row.CachedAt = time.Unix(cachedAt, 0)
	return &row, nil
}

// PutAnalysisCache replaces the cached analysis row.
func (d *Database) PutAnalysisCache(ctx context.Context, row CacheRow) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("put_cache", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO analysis_cache (id, payload, media_root, fingerprint, cached_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			media_root = excluded.media_root,
			fingerprint = excluded.fingerprint,
			cached_at = excluded.cached_at
	`, string(row.Payload), row.MediaRoot, row.Fingerprint, row.CachedAt.Unix())
	return err
}

// ClearAnalysisCache removes the cached analysis row, if any.
func (d *Database) ClearAnalysisCache(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("clear_cache", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM analysis_cache")
	return err
}
