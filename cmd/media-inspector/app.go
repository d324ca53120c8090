package main

import (
	"context"
	"fmt"
	"time"

	"media-inspector/internal/analysis"
	"media-inspector/internal/cache"
	"media-inspector/internal/codecs"
	"media-inspector/internal/database"
	"media-inspector/internal/library"
	"media-inspector/internal/logging"
	"media-inspector/internal/notify"
	"media-inspector/internal/probe"
	"media-inspector/internal/startup"
)

// app holds the components shared by the serve and analyze commands.
type app struct {
	config   *startup.Config
	db       *database.Database
	codecs   *codecs.Store
	walker   *library.Walker
	prober   *probe.FFprobe
	cache    cache.Store
	notifier *notify.NATSPublisher
	analyzer *analysis.Orchestrator

	closers []func()
}

// newApp opens the database and builds the analysis pipeline for config.
// Callers must call Close.
func newApp(ctx context.Context, config *startup.Config) (*app, error) {
	a := &app{config: config}

	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func() {
		if err := db.Close(); err != nil {
			logging.Warn("Failed to close database: %v", err)
		}
	})
	startup.LogDatabaseInit(time.Since(dbStart))

	a.codecs = codecs.NewStore(db)
	if err := a.codecs.Load(ctx); err != nil {
		// The store stays unavailable until a successful update; the server
		// still starts so the configuration can be fixed over the API.
		logging.Error("Codec configuration unavailable: %v", err)
	}
	if config.CodecConfigFile != "" {
		if err := a.codecs.Import(ctx, config.CodecConfigFile, false); err != nil {
			logging.Warn("Failed to import codec configuration from %s: %v", config.CodecConfigFile, err)
		}
	}

	a.walker = library.New(config.MediaDir, config.ScanMaxDepth)
	a.prober = probe.New(config.FFprobePath, config.ProbeTimeout)

	if a.cache, err = openCache(ctx, config, db); err != nil {
		a.Close()
		return nil, err
	}
	if closer, ok := a.cache.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func() {
			if err := closer.Close(); err != nil {
				logging.Warn("Failed to close %s cache: %v", a.cache.Backend(), err)
			}
		})
	}

	opts := analysis.Options{
		ValidateFingerprint: config.ValidateFingerprint,
		History:             db,
	}
	if config.NATSURL != "" {
		publisher, err := notify.NewNATSPublisher(notify.Config{
			URL:     config.NATSURL,
			Subject: config.NATSSubject,
		})
		if err != nil {
			// Notifications are optional; analysis works without them.
			logging.Warn("NATS notifications disabled: %v", err)
		} else {
			a.notifier = publisher
			opts.Notifier = publisher
			a.closers = append(a.closers, publisher.Close)
		}
	}

	aggregator := analysis.NewAggregator(a.walker, a.prober, config.ProbeWorkers)
	a.analyzer = analysis.NewOrchestrator(aggregator, a.codecs, a.cache, opts)

	return a, nil
}

// openCache returns the cache store for the configured backend.
func openCache(ctx context.Context, config *startup.Config, db *database.Database) (cache.Store, error) {
	switch config.CacheBackend {
	case cache.BackendSQLite:
		startup.LogCacheInit(cache.BackendSQLite, config.DatabasePath)
		return cache.NewSQLiteStore(db), nil
	case cache.BackendRedis:
		store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		startup.LogCacheInit(cache.BackendRedis, config.RedisAddr)
		return store, nil
	default:
		store, err := cache.NewFileStore(config.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		startup.LogCacheInit(cache.BackendFile, store.Path())
		return store, nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
