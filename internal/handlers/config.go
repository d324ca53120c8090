package handlers

import (
	"errors"
	"io"
	"net/http"
	"sort"

	"media-inspector/internal/codecs"
	"media-inspector/internal/logging"
)

// maxConfigBody bounds POST /api/config request bodies.
const maxConfigBody = 1 << 20

// GetConfig returns the current codec configuration.
func (h *Handlers) GetConfig(w http.ResponseWriter, _ *http.Request) {
	cfg, err := h.codecs.Current()
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, cfg)
}

// UpdateConfig validates and stores a new codec configuration. The cached
// analysis is left alone; clients force a refresh to apply it.
func (h *Handlers) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConfigBody))
	if err != nil {
		writeJSONError(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := codecs.ParseConfig(body)
	if err != nil {
		writeJSONError(w, configErrorMessage(err), http.StatusBadRequest)
		return
	}

	if err := h.codecs.Update(r.Context(), cfg); err != nil {
		logging.Error("Failed to save codec configuration: %v", err)
		writeJSONError(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	logging.Info("Codec configuration updated: %d audio, %d video codecs",
		len(cfg.ProblematicCodecs.Audio), len(cfg.ProblematicCodecs.Video))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Configuration updated successfully",
	})
}

func configErrorMessage(err error) string {
	switch {
	case errors.Is(err, codecs.ErrMissingSection):
		return "Missing problematic_codecs section"
	case errors.Is(err, codecs.ErrInvalidAudioFormat):
		return "Invalid audio codecs format"
	case errors.Is(err, codecs.ErrInvalidVideoFormat):
		return "Invalid video codecs format"
	}
	return "Invalid config format"
}

// AvailableCodecs returns codec name suggestions: the common names followed
// by any other codec seen in the cached analysis.
func (h *Handlers) AvailableCodecs(w http.ResponseWriter, r *http.Request) {
	audio := append([]string(nil), codecs.CommonAudio...)
	video := append([]string(nil), codecs.CommonVideo...)

	record, err := h.cache.Get(r.Context())
	if err != nil {
		logging.Warn("Failed to read cached analysis for codec suggestions: %v", err)
	}
	if record != nil {
		audio = mergeCodecs(audio, record.CodecBreakdown.Audio)
		video = mergeCodecs(video, record.CodecBreakdown.Video)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string][]string{
		"audio": audio,
		"video": video,
	})
}

func mergeCodecs(common []string, seen map[string]int) []string {
	known := make(map[string]bool, len(common))
	for _, c := range common {
		known[c] = true
	}

	var extra []string
	for c := range seen {
		if !known[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(common, extra...)
}
