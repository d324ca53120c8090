package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"media-inspector/internal/filesystem"
	"media-inspector/internal/mediatypes"
	"media-inspector/internal/probe"
)

// Entry is one item in a directory listing.
type Entry struct {
	Type       mediatypes.EntryType `json:"type"`
	Name       string               `json:"name"`
	Path       string               `json:"path"`
	Size       string               `json:"size,omitempty"`
	SizeBytes  int64                `json:"size_bytes,omitempty"`
	VideoCount int                  `json:"video_count,omitempty"`
}

// Crumb is one breadcrumb segment.
type Crumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing is the content of one directory below the media root.
type Listing struct {
	Path       string  `json:"path"`
	Breadcrumb []Crumb `json:"breadcrumb"`
	Items      []Entry `json:"items"`
}

// List returns folders and video files directly inside rel. Folders carry a
// recursive video count.
func (w *Walker) List(ctx context.Context, rel string) (*Listing, error) {
	dir, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}

	info, err := filesystem.StatWithRetry(dir, w.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	entries, err := filesystem.ReadDirWithRetry(dir, w.retry)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	relDir, _ := w.Rel(dir)
	listing := &Listing{
		Path:       relDir,
		Breadcrumb: Breadcrumb(relDir),
		Items:      []Entry{},
	}

	for _, entry := range entries {
		name := entry.Name()
		if skip(name) {
			continue
		}
		isDir, fi, err := w.entryKind(dir, entry)
		if err != nil {
			continue
		}

		path := filepath.Join(dir, name)
		relPath, err := w.Rel(path)
		if err != nil {
			continue
		}

		switch {
		case isDir:
			listing.Items = append(listing.Items, Entry{
				Type:       mediatypes.EntryTypeFolder,
				Name:       name,
				Path:       relPath,
				VideoCount: w.CountVideos(ctx, path, w.maxDepth),
			})
		case mediatypes.IsVideoFile(name):
			listing.Items = append(listing.Items, Entry{
				Type:      mediatypes.EntryTypeFile,
				Name:      name,
				Path:      relPath,
				Size:      probe.HumanSize(fi.Size()),
				SizeBytes: fi.Size(),
			})
		}
	}

	return listing, nil
}

// Breadcrumb splits a relative path into cumulative segments, e.g.
// "Movies/2024" -> [{Movies /Movies} {2024 /Movies/2024}].
func Breadcrumb(rel string) []Crumb {
	crumbs := []Crumb{}
	current := ""
	for _, part := range strings.Split(strings.Trim(filepath.ToSlash(rel), "/"), "/") {
		if part == "" {
			continue
		}
		current += "/" + part
		crumbs = append(crumbs, Crumb{Name: part, Path: current})
	}
	return crumbs
}
