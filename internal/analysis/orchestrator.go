package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-inspector/internal/codecs"
	"media-inspector/internal/database"
	"media-inspector/internal/logging"
	"media-inspector/internal/metrics"
)

var (
	// ErrRunCancelled is reported when a run is stopped by Shutdown.
	ErrRunCancelled = errors.New("analysis run cancelled")

	// ErrClosed is returned for requests made after Shutdown.
	ErrClosed = errors.New("analysis orchestrator is shut down")
)

// postRunTimeout bounds history and notification writes after a run.
const postRunTimeout = 10 * time.Second

// ConfigSource returns the codec configuration in effect right now.
type ConfigSource interface {
	Current() (codecs.Config, error)
}

// CacheStore holds the single cached result. Get returns (nil, nil) when no
// usable record exists, including when the stored record is corrupt.
type CacheStore interface {
	Get(ctx context.Context) (*CacheRecord, error)
	Put(ctx context.Context, record CacheRecord) error
}

// Notifier is told about every finished run.
type Notifier interface {
	Notify(ctx context.Context, summary Summary) error
}

// RunRecorder keeps the history of finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run database.RunRecord) error
}

// Options tune an Orchestrator. Zero values use defaults.
type Options struct {
	// ValidateFingerprint treats a cached record whose media root
	// fingerprint differs from the current one as a miss.
	ValidateFingerprint bool
	// BufferSize is how many events a subscriber may lag behind before it
	// is detached.
	BufferSize int
	Notifier   Notifier
	History             RunRecorder
}

// RunState is a point-in-time view of the orchestrator.
type RunState struct {
	Running     bool   `json:"running"`
	RunID       string `json:"run_id,omitempty"`
	StartedAt   int64  `json:"started_at,omitempty"`
	CurrentFile int    `json:"current_file"`
	TotalFiles  int    `json:"total_files"`
	Subscribers int    `json:"subscribers"`
}

type run struct {
	id      string
	started time.Time
	events  *broadcaster
}

// Orchestrator decides between serving the cached result and starting a
// run, and guarantees at most one run at a time. Requests made while a run
// is in flight attach to it.
type Orchestrator struct {
	aggregator *Aggregator
	discoverer Discoverer
	config     ConfigSource
	cache      CacheStore
	opts       Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	current *run
	closed  bool
}

// NewOrchestrator wires an Orchestrator. Runs execute on a background
// context that only Shutdown cancels.
func NewOrchestrator(aggregator *Aggregator, config ConfigSource, cache CacheStore, opts Options) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		aggregator: aggregator,
		discoverer: aggregator.discoverer,
		config:     config,
		cache:      cache,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Request returns a subscription to an analysis. Without force a present
// cache record is served as a single complete event. Otherwise a run is
// started, or the caller is attached to the run already in flight.
func (o *Orchestrator) Request(ctx context.Context, force bool) (*Subscription, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if r := o.current; r != nil {
		o.mu.Unlock()
		logging.Debug("Attaching to analysis run %s", r.id)
		metrics.AnalysisRunsTotal.WithLabelValues("attached").Inc()
		// A run finishing in between is fine: the subscription then
		// replays its terminal event.
		return r.events.subscribe(), nil
	}
	defer o.mu.Unlock()

	if !force {
		record, err := o.cache.Get(ctx)
		if err != nil {
			logging.Warn("Failed to read analysis cache, starting a new run: %v", err)
		}
		if record != nil && o.usable(record) {
			metrics.AnalysisRunsTotal.WithLabelValues("cached").Inc()
			return closedSubscription("", Event{
				Status:  StatusComplete,
				RunID:   record.RunID,
				Message: "Loaded cached analysis results",
				Record:  record,
				Cached:  true,
			}), nil
		}
	}

	// Every file of the run is classified against this copy; updates apply
	// from the next run.
	cfg, err := o.config.Current()
	if err != nil {
		logging.Error("Cannot start analysis: %v", err)
		metrics.AnalysisRunsTotal.WithLabelValues("failed").Inc()
		return closedSubscription("", Event{
			Status:  StatusError,
			Message: fmt.Sprintf("Codec configuration unavailable: %v", err),
		}), nil
	}

	r := &run{id: uuid.NewString(), started: time.Now()}
	r.events = newBroadcaster(Event{
		Status:  StatusStarting,
		RunID:   r.id,
		Message: "Scanning for video files...",
	}, o.opts.BufferSize)
	sub := r.events.subscribe()
	o.current = r

	o.wg.Add(1)
	go o.execute(r, cfg)
	return sub, nil
}

// usable applies the optional fingerprint check to a cached record.
func (o *Orchestrator) usable(record *CacheRecord) bool {
	if !o.opts.ValidateFingerprint {
		return true
	}
	stale, err := o.Stale(record)
	if err != nil {
		logging.Warn("Failed to fingerprint media root, using cached analysis: %v", err)
		return true
	}
	if stale {
		logging.Info("Cached analysis is stale, starting a new run")
	}
	return !stale
}

// Stale reports whether record was computed for a different state of the
// media root. Records without a fingerprint are never stale.
func (o *Orchestrator) Stale(record *CacheRecord) (bool, error) {
	if record == nil || record.Fingerprint == "" {
		return false, nil
	}
	fp, err := o.discoverer.Fingerprint()
	if err != nil {
		return false, err
	}
	return fp != record.Fingerprint, nil
}

// Cached returns the cached record, or nil when there is none.
func (o *Orchestrator) Cached(ctx context.Context) (*CacheRecord, error) {
	return o.cache.Get(ctx)
}

// Sample runs an uncached analysis of at most limit files on the caller's
// context. It does not take part in single-flight.
func (o *Orchestrator) Sample(ctx context.Context, limit int) (*Result, error) {
	cfg, err := o.config.Current()
	if err != nil {
		return nil, err
	}
	return o.aggregator.Run(ctx, cfg, limit, nil)
}

// State reports whether a run is in flight and how far it got.
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	r := o.current
	o.mu.Unlock()

	if r == nil {
		return RunState{}
	}
	st := RunState{
		Running:     true,
		RunID:       r.id,
		StartedAt:   r.started.Unix(),
		Subscribers: r.events.subscribers(),
	}
	if e, ok := r.events.snapshot(); ok {
		st.CurrentFile = e.CurrentFile
		st.TotalFiles = e.TotalFiles
	}
	return st
}

// IsRunning reports whether a run is in flight.
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current != nil
}

func (o *Orchestrator) execute(r *run, cfg codecs.Config) {
	defer o.wg.Done()

	metrics.AnalysisIsRunning.Set(1)
	defer metrics.AnalysisIsRunning.Set(0)

	logging.Info("Starting analysis run %s", r.id)

	result, err := o.aggregator.Run(o.ctx, cfg, 0, func(current, total int, filename string) {
		e := Event{
			Status:          StatusProgress,
			RunID:           r.id,
			CurrentFile:     current,
			TotalFiles:      total,
			CurrentFilename: filename,
		}
		if current == 0 {
			e.Message = fmt.Sprintf("Found %d video files. Starting analysis...", total)
		} else {
			e.Message = fmt.Sprintf("Analyzing %d/%d: %s", current, total, filename)
		}
		r.events.publish(e)
	})
	finished := time.Now()
	metrics.AnalysisRunDuration.Observe(finished.Sub(r.started).Seconds())

	if err != nil {
		if o.ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ErrRunCancelled, err)
		}
		logging.Error("Analysis run %s failed: %v", r.id, err)
		metrics.AnalysisRunsTotal.WithLabelValues("failed").Inc()
		o.finish(r, Event{Status: StatusError, RunID: r.id, Message: err.Error()})
		o.record(r, finished, nil, err)
		return
	}

	record := CacheRecord{
		Result:         *result,
		CacheTimestamp: finished.Unix(),
		MediaRoot:      o.discoverer.Root(),
		RunID:          r.id,
	}
	if fp, err := o.discoverer.Fingerprint(); err != nil {
		logging.Warn("Failed to fingerprint media root: %v", err)
	} else {
		record.Fingerprint = fp
	}

	putCtx, cancel := context.WithTimeout(context.Background(), postRunTimeout)
	if err := o.cache.Put(putCtx, record); err != nil {
		logging.Error("Failed to cache analysis results: %v", err)
	}
	cancel()

	logging.Info("Analysis run %s complete: %d files, %d compatible, %d problematic, %d skipped (%.1f%%) in %v",
		r.id, result.TotalFiles, result.CompatibleFiles, result.ProblematicFiles, result.SkippedFiles,
		result.CompatibilityPercentage, finished.Sub(r.started).Round(time.Millisecond))

	metrics.AnalysisRunsTotal.WithLabelValues("completed").Inc()
	metrics.RecordCompletedRun(finished, result.CompatibilityPercentage)

	o.finish(r, Event{
		Status:  StatusComplete,
		RunID:   r.id,
		Message: "Analysis complete!",
		Record:  &record,
	})
	o.record(r, finished, result, nil)
}

// finish releases the single-flight slot and then publishes the terminal
// event, so a request arriving afterwards reads the fresh cache.
func (o *Orchestrator) finish(r *run, terminal Event) {
	o.mu.Lock()
	if o.current == r {
		o.current = nil
	}
	o.mu.Unlock()

	r.events.publish(terminal)
}

// record writes history and sends the notification for a finished run.
func (o *Orchestrator) record(r *run, finished time.Time, result *Result, runErr error) {
	summary := Summary{
		RunID:           r.id,
		MediaRoot:       o.discoverer.Root(),
		StartedAt:       r.started,
		FinishedAt:      finished,
		DurationSeconds: finished.Sub(r.started).Seconds(),
		Succeeded:       runErr == nil,
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	if result != nil {
		summary.TotalFiles = result.TotalFiles
		summary.CompatibleFiles = result.CompatibleFiles
		summary.ProblematicFiles = result.ProblematicFiles
		summary.SkippedFiles = result.SkippedFiles
		summary.CompatibilityPercentage = result.CompatibilityPercentage
	}

	ctx, cancel := context.WithTimeout(context.Background(), postRunTimeout)
	defer cancel()

	if o.opts.History != nil {
		outcome := database.RunCompleted
		if runErr != nil {
			outcome = database.RunFailed
		}
		err := o.opts.History.RecordRun(ctx, database.RunRecord{
			RunID:                   summary.RunID,
			StartedAt:               summary.StartedAt,
			FinishedAt:              summary.FinishedAt,
			Outcome:                 outcome,
			TotalFiles:              summary.TotalFiles,
			CompatibleFiles:         summary.CompatibleFiles,
			ProblematicFiles:        summary.ProblematicFiles,
			SkippedFiles:            summary.SkippedFiles,
			CompatibilityPercentage: summary.CompatibilityPercentage,
			Error:                   summary.Error,
		})
		if err != nil {
			logging.Warn("Failed to record analysis run %s: %v", r.id, err)
		}
	}

	if o.opts.Notifier != nil {
		if err := o.opts.Notifier.Notify(ctx, summary); err != nil {
			logging.Warn("Failed to publish analysis notification for run %s: %v", r.id, err)
		}
	}
}

// Shutdown cancels an in-flight run and waits for it to finish or for ctx
// to expire. Later requests fail with ErrClosed.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
