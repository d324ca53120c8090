package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-inspector/internal/startup"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// healthCheckTimeout bounds the dependency checks of one health request.
const healthCheckTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Ready        bool   `json:"ready"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	DatabaseOK   bool   `json:"databaseOk"`
	CodecsOK     bool   `json:"codecsOk"`
	CacheBackend string `json:"cacheBackend"`

	// Analysis state
	Analyzing    bool   `json:"analyzing"`
	RunID        string `json:"runId,omitempty"`
	CurrentFile  int    `json:"currentFile,omitempty"`
	TotalFiles   int    `json:"totalFiles,omitempty"`
	LastAnalysis string `json:"lastAnalysis,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. A missing codec
// configuration degrades the service; an unreachable database makes it
// unhealthy.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	state := h.analyzer.State()
	response := HealthResponse{
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		DatabaseOK:   h.db.Ping(ctx) == nil,
		CacheBackend: h.cache.Backend(),
		Analyzing:    state.Running,
		RunID:        state.RunID,
		CurrentFile:  state.CurrentFile,
		TotalFiles:   state.TotalFiles,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	_, codecErr := h.codecs.Current()
	response.CodecsOK = codecErr == nil

	if last, err := h.db.GetLastAnalysisRun(ctx); err == nil && !last.IsZero() {
		response.LastAnalysis = last.Format(time.RFC3339)
	}

	switch {
	case !response.DatabaseOK:
		response.Status = statusUnhealthy
	case !response.CodecsOK:
		response.Status = statusDegraded
		response.Ready = true
	default:
		response.Status = statusHealthy
		response.Ready = true
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the database answers.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeJSONStatus(w, "not_ready", http.StatusServiceUnavailable)
		return
	}
	writeJSONStatus(w, "ready", http.StatusOK)
}
