package handlers

import (
	"errors"
	"io/fs"
	"net/http"

	"media-inspector/internal/analysis"
	"media-inspector/internal/filesystem"
	"media-inspector/internal/library"
	"media-inspector/internal/logging"
	"media-inspector/internal/probe"
)

// Browse lists the folders and video files of one directory below the media
// root.
func (h *Handlers) Browse(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")

	listing, err := h.walker.List(r.Context(), rel)
	switch {
	case errors.Is(err, library.ErrOutsideRoot):
		writeJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	case errors.Is(err, library.ErrNotFound):
		writeJSONError(w, "Path not found", http.StatusNotFound)
		return
	case errors.Is(err, library.ErrNotDirectory):
		writeJSONError(w, "Path is not a directory", http.StatusBadRequest)
		return
	case err != nil:
		logging.Error("Failed to list %q: %v", rel, err)
		writeJSONError(w, "Failed to list directory", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, listing)
}

// VideoInfo probes a single file and returns its formatted metadata with a
// compatibility verdict against the current codec configuration. The path
// may be relative to the media root or absolute inside it.
func (h *Handlers) VideoInfo(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "No file path provided", http.StatusBadRequest)
		return
	}

	full, err := h.walker.ResolveAny(path)
	if err != nil {
		writeJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	info, err := filesystem.StatWithRetry(full, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeJSONError(w, "File not found", http.StatusNotFound)
			return
		}
		logging.Error("Failed to stat %s: %v", full, err)
		writeJSONError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	if info.IsDir() {
		writeJSONError(w, "Path is a directory", http.StatusBadRequest)
		return
	}

	cfg, err := h.codecs.Current()
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	result, err := h.prober.Probe(r.Context(), full)
	if err != nil {
		logging.Warn("Could not probe %s: %v", full, err)
		writeJSONError(w, "Could not extract video information", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, analysis.Describe(result, cfg, probe.FindSidecarSubtitles(full)))
}
