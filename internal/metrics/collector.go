package metrics

import (
	"sync"
	"time"

	"media-inspector/internal/logging"
)

// StatsProvider supplies the point-in-time values the Collector exports.
type StatsProvider interface {
	GetStats() Stats
}

// Stats is a snapshot of the cached analysis and the database pool.
type Stats struct {
	HasCache                bool
	CacheTimestamp          time.Time
	CompatibilityPercentage float64
	OpenConnections         int
}

// Collector refreshes gauges that are not updated by request or run
// handling: the age of the cached result, and the last result's values after
// a restart, before any new run has completed.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewCollector creates a collector that polls provider every interval.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins collecting in the background. The first collection happens
// immediately.
func (c *Collector) Start() {
	go c.loop()
}

// Stop ends collection and waits for the loop to exit. It is safe to call
// more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Collector) loop() {
	defer close(c.done)
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stop:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}
	stats := c.provider.GetStats()

	DBConnectionsOpen.Set(float64(stats.OpenConnections))

	if !stats.HasCache || stats.CacheTimestamp.IsZero() {
		CacheAgeSeconds.Set(0)
		logging.Debug("Metrics collected: no cached analysis, dbConnections=%d", stats.OpenConnections)
		return
	}

	CacheAgeSeconds.Set(time.Since(stats.CacheTimestamp).Seconds())
	if !runRecorded.Load() {
		AnalysisLastCompletedTimestamp.Set(float64(stats.CacheTimestamp.Unix()))
		AnalysisCompatibilityPercentage.Set(stats.CompatibilityPercentage)
	}
	logging.Debug("Metrics collected: cache age %s, dbConnections=%d",
		time.Since(stats.CacheTimestamp).Round(time.Second), stats.OpenConnections)
}
