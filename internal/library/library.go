package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"media-inspector/internal/filesystem"
	"media-inspector/internal/logging"
	"media-inspector/internal/mediatypes"
)

// DefaultMaxDepth limits how many directory levels below the root are visited.
const DefaultMaxDepth = 10

// Errors returned when resolving client supplied paths.
var (
	ErrOutsideRoot  = errors.New("path is outside the media root")
	ErrNotFound     = errors.New("path not found")
	ErrNotDirectory = errors.New("path is not a directory")
)

// Walker enumerates video files under a media root.
type Walker struct {
	root     string
	maxDepth int
	retry    filesystem.RetryConfig
}

// File is one discovered video file.
type File struct {
	Path    string `json:"-"`
	RelPath string `json:"path"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
}

// New creates a Walker rooted at root. maxDepth <= 0 uses DefaultMaxDepth.
func New(root string, maxDepth int) *Walker {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Walker{
		root:     filepath.Clean(root),
		maxDepth: maxDepth,
		retry:    filesystem.DefaultRetryConfig(),
	}
}

// Root returns the absolute media root.
func (w *Walker) Root() string {
	return w.root
}

// Resolve maps a client supplied path, relative to the media root, to an
// absolute path. Leading slashes are ignored. Paths that would escape the
// root return ErrOutsideRoot.
func (w *Walker) Resolve(rel string) (string, error) {
	rel = strings.TrimLeft(filepath.FromSlash(rel), string(filepath.Separator))
	full := filepath.Join(w.root, rel)
	if !w.contains(full) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

// ResolveAny accepts either an absolute path inside the media root or a path
// relative to it.
func (w *Walker) ResolveAny(path string) (string, error) {
	if filepath.IsAbs(path) {
		full := filepath.Clean(path)
		if !w.contains(full) {
			return "", ErrOutsideRoot
		}
		return full, nil
	}
	return w.Resolve(path)
}

// Rel returns the slash-separated path of abs relative to the media root.
func (w *Walker) Rel(abs string) (string, error) {
	if !w.contains(abs) {
		return "", ErrOutsideRoot
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOutsideRoot, err)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

func (w *Walker) contains(path string) bool {
	path = filepath.Clean(path)
	if path == w.root {
		return true
	}
	prefix := w.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// skip reports whether an entry is hidden or a system folder.
func skip(name string) bool {
	return strings.HasPrefix(name, ".") || mediatypes.IsSkippedFolder(name)
}

// entryKind resolves whether an entry is a directory or regular file,
// following symlinks the way a stat would.
func (w *Walker) entryKind(dir string, entry fs.DirEntry) (isDir bool, info fs.FileInfo, err error) {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err = filesystem.StatWithRetry(filepath.Join(dir, entry.Name()), w.retry)
		if err != nil {
			return false, nil, err
		}
		return info.IsDir(), info, nil
	}
	if entry.IsDir() {
		return true, nil, nil
	}
	info, err = entry.Info()
	return false, info, err
}

// Discover returns every video file under the root in enumeration order:
// entries sorted by name within each directory, depth first. limit > 0 stops
// after that many files. Unreadable subdirectories are skipped; an
// unreadable root is an error.
func (w *Walker) Discover(ctx context.Context, limit int) ([]File, error) {
	info, err := filesystem.StatWithRetry(w.root, w.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("media directory %s: %w", w.root, ErrNotFound)
		}
		return nil, fmt.Errorf("media directory %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("media directory %s: %w", w.root, ErrNotDirectory)
	}

	entries, err := filesystem.ReadDirWithRetry(w.root, w.retry)
	if err != nil {
		return nil, fmt.Errorf("read media directory: %w", err)
	}

	files := []File{}
	if err := w.discover(ctx, w.root, entries, w.maxDepth, limit, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (w *Walker) discover(ctx context.Context, dir string, entries []fs.DirEntry, depth, limit int, files *[]File) error {
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && len(*files) >= limit {
			return nil
		}

		name := entry.Name()
		if skip(name) {
			continue
		}

		isDir, info, err := w.entryKind(dir, entry)
		if err != nil {
			logging.Debug("Skipping unreadable entry %s: %v", filepath.Join(dir, name), err)
			continue
		}
		path := filepath.Join(dir, name)

		if isDir {
			if depth <= 1 {
				continue
			}
			children, err := filesystem.ReadDirWithRetry(path, w.retry)
			if err != nil {
				logging.Debug("Skipping unreadable directory %s: %v", path, err)
				continue
			}
			if err := w.discover(ctx, path, children, depth-1, limit, files); err != nil {
				return err
			}
			continue
		}

		if !info.Mode().IsRegular() || !mediatypes.IsVideoFile(name) {
			continue
		}

		rel, err := w.Rel(path)
		if err != nil {
			continue
		}
		*files = append(*files, File{
			Path:    path,
			RelPath: rel,
			Name:    name,
			Size:    info.Size(),
		})
	}
	return nil
}

// CountVideos counts video files under dir, descending at most depth levels.
func (w *Walker) CountVideos(ctx context.Context, dir string, depth int) int {
	if depth <= 0 || ctx.Err() != nil {
		return 0
	}

	entries, err := filesystem.ReadDirWithRetry(dir, w.retry)
	if err != nil {
		return 0
	}

	count := 0
	for _, entry := range entries {
		name := entry.Name()
		if skip(name) {
			continue
		}
		isDir, info, err := w.entryKind(dir, entry)
		if err != nil {
			continue
		}
		if isDir {
			count += w.CountVideos(ctx, filepath.Join(dir, name), depth-1)
		} else if info.Mode().IsRegular() && mediatypes.IsVideoFile(name) {
			count++
		}
	}
	return count
}
