package metrics

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStatsProvider struct {
	calls atomic.Int32
	stats Stats
}

func (f *fakeStatsProvider) GetStats() Stats {
	f.calls.Add(1)
	return f.stats
}

func TestCollectorCollect(t *testing.T) {
	provider := &fakeStatsProvider{stats: Stats{
		HasCache:        true,
		CacheTimestamp:  time.Now().Add(-time.Minute),
		OpenConnections: 3,
	}}

	c := NewCollector(provider, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(DBConnectionsOpen); got != 3 {
		t.Errorf("DBConnectionsOpen = %v, want 3", got)
	}
	if got := testutil.ToFloat64(CacheAgeSeconds); got < 59 {
		t.Errorf("CacheAgeSeconds = %v, want >= 59", got)
	}
}

func TestCollectorSeedsLastRunFromCache(t *testing.T) {
	t.Cleanup(func() { runRecorded.Store(false) })
	runRecorded.Store(false)

	cachedAt := time.Unix(1700000000, 0)
	c := NewCollector(&fakeStatsProvider{stats: Stats{
		HasCache:                true,
		CacheTimestamp:          cachedAt,
		CompatibilityPercentage: 87.5,
	}}, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(AnalysisLastCompletedTimestamp); got != float64(cachedAt.Unix()) {
		t.Errorf("AnalysisLastCompletedTimestamp = %v, want %v", got, cachedAt.Unix())
	}
	if got := testutil.ToFloat64(AnalysisCompatibilityPercentage); got != 87.5 {
		t.Errorf("AnalysisCompatibilityPercentage = %v, want 87.5", got)
	}

	// A run finished in this process wins over the cached values.
	finished := time.Unix(1800000000, 0)
	RecordCompletedRun(finished, 40)
	c.collect()
	if got := testutil.ToFloat64(AnalysisCompatibilityPercentage); got != 40 {
		t.Errorf("AnalysisCompatibilityPercentage after run = %v, want 40", got)
	}
}

func TestCollectorNoCache(t *testing.T) {
	provider := &fakeStatsProvider{}
	c := NewCollector(provider, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(CacheAgeSeconds); got != 0 {
		t.Errorf("CacheAgeSeconds = %v, want 0", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	// Should not panic
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &fakeStatsProvider{}
	c := NewCollector(provider, 10*time.Millisecond)
	c.Start()

	deadline := time.Now().Add(time.Second)
	for provider.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()
	c.Stop()

	if provider.calls.Load() < 2 {
		t.Errorf("expected at least 2 collections, got %d", provider.calls.Load())
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics("file")

	if got := testutil.ToFloat64(CacheOperationsTotal.WithLabelValues("file", "get", "hit")); got < 0 {
		t.Errorf("unexpected negative counter %v", got)
	}
}
