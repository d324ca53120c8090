package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"media-inspector/internal/analysis"
	"media-inspector/internal/codecs"
	"media-inspector/internal/logging"
	"media-inspector/internal/middleware"
	"media-inspector/internal/streaming"
)

const (
	// sampleSize is the number of files analyzed for ?sample=true.
	sampleSize = 50

	defaultHistoryLimit = 20
	wsWriteTimeout      = 10 * time.Second
)

// cachedAnalysisResponse flattens the cached record next to has_cache.
type cachedAnalysisResponse struct {
	HasCache bool `json:"has_cache"`
	Stale    bool `json:"stale,omitempty"`
	*analysis.CacheRecord
}

// CachedAnalysis returns the cached analysis without starting a run.
func (h *Handlers) CachedAnalysis(w http.ResponseWriter, r *http.Request) {
	// An unreadable cache is reported as absent, the same way a run request
	// treats it as a miss.
	record, err := h.analyzer.Cached(r.Context())
	if err != nil {
		logging.Warn("Failed to read cached analysis, reporting no cache: %v", err)
		record = nil
	}

	response := cachedAnalysisResponse{HasCache: record != nil, CacheRecord: record}
	if record != nil {
		stale, err := h.analyzer.Stale(record)
		if err != nil {
			logging.Warn("Failed to fingerprint media root: %v", err)
		}
		response.Stale = stale
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}

// ClearAnalysisCache removes the cached analysis. The next request starts a
// fresh run.
func (h *Handlers) ClearAnalysisCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		logging.Error("Failed to clear analysis cache: %v", err)
		writeJSONError(w, "Failed to clear cache", http.StatusInternalServerError)
		return
	}
	logging.Info("Analysis cache cleared")

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Cache cleared",
	})
}

// AnalysisStatus reports whether a run is in flight and its progress.
func (h *Handlers) AnalysisStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, h.analyzer.State())
}

// AnalysisHistory lists finished runs, newest first.
func (h *Handlers) AnalysisHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit")
	if !ok {
		writeJSONError(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	if limit == 0 {
		limit = defaultHistoryLimit
	}

	runs, err := h.db.ListRuns(r.Context(), limit)
	if err != nil {
		logging.Error("Failed to list analysis runs: %v", err)
		writeJSONError(w, "Failed to list analysis history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"runs": runs,
	})
}

// SampleAnalysis runs a blocking, uncached analysis. max_files limits the
// number of files; sample=true without max_files analyzes the first 50.
func (h *Handlers) SampleAnalysis(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "max_files")
	if !ok {
		writeJSONError(w, "Invalid max_files", http.StatusBadRequest)
		return
	}
	if limit == 0 && queryBool(r, "sample") {
		limit = sampleSize
	}

	result, err := h.analyzer.Sample(r.Context(), limit)
	switch {
	case errors.Is(err, codecs.ErrUnavailable):
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		logging.Error("Sampled analysis failed: %v", err)
		writeJSONError(w, "Bulk analysis failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// StreamAnalysis streams analysis events as Server-Sent Events. With
// force=true the cache is bypassed. Disconnecting does not stop the run.
func (h *Handlers) StreamAnalysis(w http.ResponseWriter, r *http.Request) {
	sub, err := h.analyzer.Request(r.Context(), queryBool(r, "force"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	if id := sub.RunID(); id != "" {
		w.Header().Set(middleware.RunIDHeader, id)
	}
	stream := streaming.NewEventStream(r.Context(), w, streaming.DefaultTimeoutWriterConfig())
	defer stream.Close()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := stream.Send(event); err != nil {
				logging.Debug("Progress stream for run %s ended: %v", sub.RunID(), err)
				return
			}
		case <-heartbeat.C:
			if err := stream.Heartbeat(); err != nil {
				return
			}
		case <-stream.Done():
			logging.Debug("Progress client for run %s disconnected", sub.RunID())
			return
		}
	}
}

// StreamAnalysisWS sends the same events as StreamAnalysis, one JSON text
// message each, and closes normally after the terminal event.
func (h *Handlers) StreamAnalysisWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket accept failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server error")

	// Incoming messages are ignored; ctx ends when the client goes away.
	ctx := conn.CloseRead(r.Context())

	sub, err := h.analyzer.Request(ctx, queryBool(r, "force"))
	if err != nil {
		conn.Close(websocket.StatusTryAgainLater, err.Error())
		return
	}
	defer sub.Close()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := writeWS(ctx, conn, event); err != nil {
				logging.Debug("WebSocket stream for run %s ended: %v", sub.RunID(), err)
				return
			}
		case <-heartbeat.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			logging.Debug("WebSocket client for run %s disconnected", sub.RunID())
			return
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
