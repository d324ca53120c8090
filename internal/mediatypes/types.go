package mediatypes

import (
	"path/filepath"
	"strings"
)

// EntryType represents the kind of a browsable library entry.
type EntryType string

const (
	// EntryTypeFolder represents a directory.
	EntryTypeFolder EntryType = "folder"
	// EntryTypeFile represents a supported video file.
	EntryTypeFile EntryType = "file"
)

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
	".3gp":  true,
}

// SubtitleExtensions lists sidecar subtitle formats looked up next to a video.
var SubtitleExtensions = map[string]bool{
	".srt": true,
	".ass": true,
	".ssa": true,
	".sub": true,
	".idx": true,
	".vtt": true,
}

// MimeTypes maps video extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
}

// systemFolders are skipped in addition to hidden (dot) entries.
var systemFolders = map[string]bool{
	"System Volume Information": true,
	"$RECYCLE.BIN":              true,
	"lost+found":                true,
}

// IsVideoFile reports whether name has a supported video extension (case-insensitive).
func IsVideoFile(name string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsSubtitleFile reports whether name has a sidecar subtitle extension.
func IsSubtitleFile(name string) bool {
	return SubtitleExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsSkippedFolder reports whether a directory should be excluded from browsing and analysis.
func IsSkippedFolder(name string) bool {
	return strings.HasPrefix(name, ".") || systemFolders[name]
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mkv").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
