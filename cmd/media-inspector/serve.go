package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-inspector/internal/analysis"
	"media-inspector/internal/handlers"
	"media-inspector/internal/logging"
	"media-inspector/internal/metrics"
	"media-inspector/internal/middleware"
	"media-inspector/internal/startup"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	startup.LogProbeInit(config)

	a, err := newApp(context.Background(), config)
	if err != nil {
		startup.LogFatal("%v", err)
	}
	defer a.Close()

	build := startup.GetBuildInfo()
	metrics.SetAppInfo(build.Version, build.Commit, build.GoVersion)
	metrics.InitializeMetrics(a.cache.Backend())

	collector := metrics.NewCollector(&statsAdapter{cache: a.cache, db: a.db}, time.Minute)
	collector.Start()

	h := handlers.New(handlers.Deps{
		DB:       a.db,
		Walker:   a.walker,
		Prober:   a.prober,
		Codecs:   a.codecs,
		Analyzer: a.analyzer,
		Cache:    a.cache,
	})

	router := setupRouter(h, config.StaticDir)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // progress streams stay open for the whole run
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		handleShutdown(srv, metricsSrv, a, collector)
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}

	<-done
	return nil
}

func setupRouter(h *handlers.Handlers, staticDir string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/browse", h.Browse).Methods("GET")
	api.HandleFunc("/video-info", h.VideoInfo).Methods("GET")

	// Codec configuration
	api.HandleFunc("/config", h.GetConfig).Methods("GET")
	api.HandleFunc("/config", h.UpdateConfig).Methods("POST")
	api.HandleFunc("/available-codecs", h.AvailableCodecs).Methods("GET")

	// Bulk analysis
	api.HandleFunc("/bulk-analysis", h.SampleAnalysis).Methods("GET")
	api.HandleFunc("/bulk-analysis-progress", h.StreamAnalysis).Methods("GET")
	api.HandleFunc("/bulk-analysis/ws", h.StreamAnalysisWS).Methods("GET")
	api.HandleFunc("/bulk-analysis/cache", h.CachedAnalysis).Methods("GET")
	api.HandleFunc("/bulk-analysis/cache", h.ClearAnalysisCache).Methods("DELETE")
	api.HandleFunc("/bulk-analysis/status", h.AnalysisStatus).Methods("GET")
	api.HandleFunc("/bulk-analysis/history", h.AnalysisHistory).Methods("GET")

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, a *app, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Cancelling analysis")
	if err := a.analyzer.Shutdown(ctx); err != nil {
		logging.Warn("Analysis shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Analysis stopped")
	}

	startup.LogShutdownStep("Stopping ffprobe processes")
	a.prober.Cleanup()
	startup.LogShutdownStepComplete("Probe cleanup complete")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownComplete()
}

// statsAdapter feeds the metrics collector from the cache and database.
type statsAdapter struct {
	cache interface {
		Get(ctx context.Context) (*analysis.CacheRecord, error)
	}
	db interface{ OpenConnections() int }
}

func (s *statsAdapter) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats := metrics.Stats{OpenConnections: s.db.OpenConnections()}
	record, err := s.cache.Get(ctx)
	if err != nil {
		logging.Debug("Metrics: cache read failed: %v", err)
		return stats
	}
	if record != nil {
		stats.HasCache = true
		stats.CacheTimestamp = record.CachedAt()
		stats.CompatibilityPercentage = record.CompatibilityPercentage
	}
	return stats
}
