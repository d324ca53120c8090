package handlers

import (
	"context"
	"time"

	"media-inspector/internal/analysis"
	"media-inspector/internal/cache"
	"media-inspector/internal/codecs"
	"media-inspector/internal/database"
	"media-inspector/internal/library"
	"media-inspector/internal/probe"
)

// defaultHeartbeat is the interval between keep-alive frames on progress
// streams.
const defaultHeartbeat = 15 * time.Second

// Database is the part of the SQLite store the handlers read.
type Database interface {
	Ping(ctx context.Context) error
	ListRuns(ctx context.Context, limit int) ([]database.RunRecord, error)
	GetLastAnalysisRun(ctx context.Context) (time.Time, error)
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	DB       Database
	Walker   *library.Walker
	Prober   probe.Prober
	Codecs   *codecs.Store
	Analyzer *analysis.Orchestrator
	Cache    cache.Store
}

type Handlers struct {
	db        Database
	walker    *library.Walker
	prober    probe.Prober
	codecs    *codecs.Store
	analyzer  *analysis.Orchestrator
	cache     cache.Store
	startTime time.Time
	heartbeat time.Duration
}

func New(deps Deps) *Handlers {
	return &Handlers{
		db:        deps.DB,
		walker:    deps.Walker,
		prober:    deps.Prober,
		codecs:    deps.Codecs,
		analyzer:  deps.Analyzer,
		cache:     deps.Cache,
		startTime: time.Now(),
		heartbeat: defaultHeartbeat,
	}
}
