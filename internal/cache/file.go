package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"media-inspector/internal/analysis"
	"media-inspector/internal/filesystem"
)

// FileName is the cache file created inside the cache directory.
const FileName = "analysis_cache.json"

// FileStore keeps the cached record as a JSON file. Writes go to a
// temporary file that is synced and renamed over the old one, so readers
// see either the previous or the new record.
type FileStore struct {
	path  string
	retry filesystem.RetryConfig
	mu    sync.Mutex
}

// NewFileStore creates a FileStore in dir, creating dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileStore{
		path:  filepath.Join(dir, FileName),
		retry: filesystem.DefaultRetryConfig(),
	}, nil
}

// Path returns the cache file path.
func (s *FileStore) Path() string {
	return s.path
}

// Backend implements Store.
func (s *FileStore) Backend() string {
	return BackendFile
}

// Get implements analysis.CacheStore.
func (s *FileStore) Get(_ context.Context) (*analysis.CacheRecord, error) {
	data, err := filesystem.ReadFileWithRetry(s.path, s.retry)
	if errors.Is(err, fs.ErrNotExist) {
		observe(BackendFile, "get", "miss")
		return nil, nil
	}
	if err != nil {
		observe(BackendFile, "get", "error")
		return nil, fmt.Errorf("failed to read analysis cache: %w", err)
	}
	return decode(BackendFile, data), nil
}

// Put implements analysis.CacheStore.
func (s *FileStore) Put(_ context.Context, record analysis.CacheRecord) (err error) {
	defer func() { observe(BackendFile, "put", putResult(err)) }()

	data, err := encode(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync cache file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set cache file permissions: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Clear removes the cache file.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
