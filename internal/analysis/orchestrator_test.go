package analysis

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"media-inspector/internal/database"
	"media-inspector/internal/probe"
)

type memCache struct {
	mu     sync.Mutex
	record *CacheRecord
	puts   int
	getErr error
}

func (c *memCache) Get(context.Context) (*CacheRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	if c.record == nil {
		return nil, nil
	}
	rec := *c.record
	return &rec, nil
}

func (c *memCache) Put(_ context.Context, record CacheRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.record = &record
	return nil
}

func (c *memCache) snapshot() (*CacheRecord, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record, c.puts
}

type recorder struct {
	mu        sync.Mutex
	runs      []database.RunRecord
	summaries []Summary
}

func (r *recorder) RecordRun(_ context.Context, run database.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *recorder) Notify(_ context.Context, summary Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
	return nil
}

func newTestOrchestrator(d *fakeDiscoverer, p *fakeProber, cache *memCache, opts Options) *Orchestrator {
	return NewOrchestrator(NewAggregator(d, p, 2), staticConfig{cfg: testConfig()}, cache, opts)
}

// collect drains sub until it is closed.
func collect(t *testing.T, sub *Subscription) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, e)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d so far", len(events))
			return events
		}
	}
}

// next reads one event from sub.
func next(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func shutdown(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func threeFiles() (*fakeDiscoverer, *fakeProber) {
	return newLibrary([]string{"a.mkv", "b.mkv", "c.mkv"}, map[string]*probe.Result{
		"a.mkv": media("aac", "h264"),
		"b.mkv": media("dts", "h264"),
		"c.mkv": media("aac", "hevc"),
	})
}

func TestRequestServesCache(t *testing.T) {
	d, p := threeFiles()
	cached := &CacheRecord{Result: *NewResult(), CacheTimestamp: 1000, RunID: "old-run"}
	cached.TotalFiles = 7
	cached.CompatibleFiles = 7
	cache := &memCache{record: cached}
	o := newTestOrchestrator(d, p, cache, Options{})
	defer shutdown(t, o)

	sub, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	events := collect(t, sub)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.Status != StatusComplete || !e.Cached {
		t.Errorf("event = %+v, want cached complete", e)
	}
	if e.Record == nil || e.Record.TotalFiles != 7 || e.Record.CacheTimestamp != 1000 {
		t.Errorf("record = %+v, want the cached record", e.Record)
	}
	if p.calls.Load() != 0 {
		t.Errorf("probe calls = %d, want 0", p.calls.Load())
	}
	if _, puts := cache.snapshot(); puts != 0 {
		t.Errorf("cache puts = %d, want 0", puts)
	}
}

func TestRequestRunsOnCacheMiss(t *testing.T) {
	d, p := threeFiles()
	cache := &memCache{}
	o := newTestOrchestrator(d, p, cache, Options{})
	defer shutdown(t, o)

	sub, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	events := collect(t, sub)

	if len(events) != 6 {
		t.Fatalf("got %d events, want starting + 4 progress + complete: %+v", len(events), events)
	}
	if events[0].Status != StatusStarting {
		t.Errorf("first event = %s, want starting", events[0].Status)
	}
	for i, e := range events[1:5] {
		if e.Status != StatusProgress || e.CurrentFile != i || e.TotalFiles != 3 {
			t.Errorf("progress[%d] = %+v", i, e)
		}
		if e.RunID != sub.RunID() {
			t.Errorf("progress[%d] run id = %q, want %q", i, e.RunID, sub.RunID())
		}
	}
	if !strings.HasPrefix(events[1].Message, "Found 3 video files") {
		t.Errorf("discovery message = %q", events[1].Message)
	}

	final := events[5]
	if final.Status != StatusComplete || final.Cached {
		t.Fatalf("final event = %+v, want fresh complete", final)
	}
	if final.Record.TotalFiles != 3 || final.Record.ProblematicFiles != 2 {
		t.Errorf("result = %+v", final.Record.Result)
	}
	if final.Record.MediaRoot != testRoot || final.Record.Fingerprint != "fp-1" {
		t.Errorf("record root/fingerprint = %q/%q", final.Record.MediaRoot, final.Record.Fingerprint)
	}

	stored, puts := cache.snapshot()
	if puts != 1 {
		t.Fatalf("cache puts = %d, want 1", puts)
	}
	if stored.RunID != sub.RunID() || stored.TotalFiles != 3 {
		t.Errorf("stored record = %+v", stored)
	}
	if o.IsRunning() {
		t.Error("IsRunning() = true after the terminal event")
	}
}

func TestRequestSingleFlight(t *testing.T) {
	d, p := threeFiles()
	gate := make(chan struct{})
	p.blocked[path.Join(testRoot, "a.mkv")] = gate
	cache := &memCache{}
	o := newTestOrchestrator(d, p, cache, Options{})
	defer shutdown(t, o)

	first, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	second, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	forced, err := o.Request(context.Background(), true)
	if err != nil {
		t.Fatalf("Request(force) error = %v", err)
	}

	if first.RunID() == "" || first.RunID() != second.RunID() || first.RunID() != forced.RunID() {
		t.Errorf("run ids = %q, %q, %q, want one shared run", first.RunID(), second.RunID(), forced.RunID())
	}
	if !o.IsRunning() {
		t.Error("IsRunning() = false while a probe is blocked")
	}

	close(gate)

	for _, sub := range []*Subscription{first, second, forced} {
		events := collect(t, sub)
		if len(events) == 0 || events[len(events)-1].Status != StatusComplete {
			t.Errorf("subscriber events = %+v, want terminal complete", events)
		}
	}
	if calls := p.calls.Load(); calls != 3 {
		t.Errorf("probe calls = %d, want 3 (one run)", calls)
	}
	if _, puts := cache.snapshot(); puts != 1 {
		t.Errorf("cache puts = %d, want 1", puts)
	}
}

func TestConcurrentRequestsStartOneRun(t *testing.T) {
	d, p := threeFiles()
	gate := make(chan struct{})
	p.blocked[path.Join(testRoot, "a.mkv")] = gate
	cache := &memCache{}
	o := newTestOrchestrator(d, p, cache, Options{})
	defer shutdown(t, o)

	const n = 8
	subs := make([]*Subscription, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := o.Request(context.Background(), false)
			if err != nil {
				t.Errorf("Request() error = %v", err)
				return
			}
			subs[i] = sub
		}()
	}
	wg.Wait()
	close(gate)

	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if sub.RunID() != subs[0].RunID() {
			t.Errorf("run id %q differs from %q", sub.RunID(), subs[0].RunID())
		}
		collect(t, sub)
	}
	if calls := p.calls.Load(); calls != 3 {
		t.Errorf("probe calls = %d, want 3", calls)
	}
}

func TestForceRefreshOverwritesCache(t *testing.T) {
	d, p := threeFiles()
	stale := &CacheRecord{Result: *NewResult(), CacheTimestamp: 1000, RunID: "old-run"}
	stale.TotalFiles = 99
	stale.CompatibleFiles = 99
	cache := &memCache{record: stale}
	o := newTestOrchestrator(d, p, cache, Options{})
	defer shutdown(t, o)

	sub, err := o.Request(context.Background(), true)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	events := collect(t, sub)
	if final := events[len(events)-1]; final.Status != StatusComplete || final.Cached {
		t.Fatalf("final event = %+v, want fresh complete", final)
	}

	stored, puts := cache.snapshot()
	if puts != 1 {
		t.Errorf("cache puts = %d, want 1", puts)
	}
	if stored.TotalFiles != 3 || stored.CacheTimestamp <= 1000 || stored.RunID == "old-run" {
		t.Errorf("stored record = %+v, want the new run", stored)
	}
	if p.calls.Load() != 3 {
		t.Errorf("probe calls = %d, want 3", p.calls.Load())
	}
}

func TestRequestConfigurationUnavailable(t *testing.T) {
	d, p := threeFiles()
	cache := &memCache{}
	o := NewOrchestrator(NewAggregator(d, p, 1), staticConfig{err: errors.New("corrupt settings")}, cache, Options{})
	defer shutdown(t, o)

	sub, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	events := collect(t, sub)

	if len(events) != 1 || events[0].Status != StatusError {
		t.Fatalf("events = %+v, want a single error", events)
	}
	if !strings.Contains(events[0].Message, "corrupt settings") {
		t.Errorf("message = %q", events[0].Message)
	}
	if p.calls.Load() != 0 {
		t.Errorf("probe calls = %d, want 0", p.calls.Load())
	}
	if _, puts := cache.snapshot(); puts != 0 {
		t.Errorf("cache puts = %d, want 0", puts)
	}
	if o.IsRunning() {
		t.Error("IsRunning() = true after configuration failure")
	}
}

func TestRequestDiscoveryFailureLeavesCache(t *testing.T) {
	d, p := threeFiles()
	d.err = errors.New("media root unreadable")
	cache := &memCache{}
	o := newTestOrchestrator(d, p, cache, Options{})
	defer shutdown(t, o)

	sub, err := o.Request(context.Background(), true)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	events := collect(t, sub)

	final := events[len(events)-1]
	if final.Status != StatusError || !strings.Contains(final.Message, "media root unreadable") {
		t.Errorf("final event = %+v, want error", final)
	}
	if _, puts := cache.snapshot(); puts != 0 {
		t.Errorf("cache puts = %d, want 0", puts)
	}
}

func TestSubscriberDisconnectDoesNotStopRun(t *testing.T) {
	d, p := threeFiles()
	gate := make(chan struct{})
	p.blocked[path.Join(testRoot, "b.mkv")] = gate
	cache := &memCache{}
	o := newTestOrchestrator(d, p, cache, Options{})

	sub, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	next(t, sub)
	sub.Close()
	close(gate)

	deadline := time.Now().Add(5 * time.Second)
	for o.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	shutdown(t, o)

	stored, puts := cache.snapshot()
	if puts != 1 || stored.TotalFiles != 3 {
		t.Errorf("cache = %+v (%d puts), want the completed run", stored, puts)
	}
}

func TestLateSubscriberGetsSnapshot(t *testing.T) {
	d, p := threeFiles()
	gate := make(chan struct{})
	p.blocked[path.Join(testRoot, "c.mkv")] = gate
	o := NewOrchestrator(NewAggregator(d, p, 1), staticConfig{cfg: testConfig()}, &memCache{}, Options{})
	defer shutdown(t, o)

	first, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	for {
		e := next(t, first)
		if e.Status == StatusProgress && e.CurrentFile == 2 {
			break
		}
	}

	late, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if e := next(t, late); e.Status != StatusStarting {
		t.Errorf("late first event = %+v, want starting", e)
	}
	if e := next(t, late); e.Status != StatusProgress || e.CurrentFile != 2 || e.CurrentFilename != "b.mkv" {
		t.Errorf("late second event = %+v, want progress snapshot of file 2", e)
	}

	st := o.State()
	if !st.Running || st.CurrentFile != 2 || st.TotalFiles != 3 || st.Subscribers != 2 {
		t.Errorf("State() = %+v", st)
	}

	close(gate)

	lateEvents := collect(t, late)
	if len(lateEvents) != 2 || lateEvents[0].CurrentFile != 3 || lateEvents[1].Status != StatusComplete {
		t.Errorf("late remaining events = %+v", lateEvents)
	}
	collect(t, first)
}

func TestStalledSubscriberDoesNotBlockRequests(t *testing.T) {
	d, p := threeFiles()
	gate := make(chan struct{})
	p.blocked[path.Join(testRoot, "c.mkv")] = gate
	o := NewOrchestrator(NewAggregator(d, p, 1), staticConfig{cfg: testConfig()}, &memCache{}, Options{BufferSize: 1})
	defer shutdown(t, o)

	stalled, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	// Starting plus three progress events fill the stalled buffer.
	deadline := time.Now().Add(5 * time.Second)
	for o.State().CurrentFile != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("run did not reach file 2, State() = %+v", o.State())
		}
		time.Sleep(5 * time.Millisecond)
	}

	start := time.Now()
	second, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Request() took %v while another subscriber was stalled", elapsed)
	}
	if !o.IsRunning() {
		t.Error("IsRunning() = false during the run")
	}

	close(gate)

	events := collect(t, second)
	if last := events[len(events)-1]; last.Status != StatusComplete {
		t.Errorf("second subscriber last event = %+v, want complete", last)
	}
	for _, e := range collect(t, stalled) {
		if e.Status.Terminal() {
			t.Errorf("stalled subscriber received terminal event %+v", e)
		}
	}
}

func TestShutdownCancelsRun(t *testing.T) {
	d, p := threeFiles()
	p.blocked[path.Join(testRoot, "a.mkv")] = make(chan struct{})
	cache := &memCache{}
	o := newTestOrchestrator(d, p, cache, Options{})

	sub, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	shutdown(t, o)

	events := collect(t, sub)
	final := events[len(events)-1]
	if final.Status != StatusError || !strings.Contains(final.Message, ErrRunCancelled.Error()) {
		t.Errorf("final event = %+v, want cancellation error", final)
	}
	if _, puts := cache.snapshot(); puts != 0 {
		t.Errorf("cache puts = %d, want 0", puts)
	}
	if _, err := o.Request(context.Background(), false); !errors.Is(err, ErrClosed) {
		t.Errorf("Request() after Shutdown error = %v, want ErrClosed", err)
	}
}

func TestFingerprintValidation(t *testing.T) {
	tests := []struct {
		name     string
		validate bool
		wantRun  bool
	}{
		{"validation disabled serves stale record", false, false},
		{"validation enabled reruns", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p := threeFiles()
			d.setFingerprint("fp-new")
			cached := &CacheRecord{Result: *NewResult(), CacheTimestamp: 1000, Fingerprint: "fp-old"}
			o := newTestOrchestrator(d, p, &memCache{record: cached}, Options{ValidateFingerprint: tt.validate})
			defer shutdown(t, o)

			stale, err := o.Stale(cached)
			if err != nil || !stale {
				t.Errorf("Stale() = %v, %v, want true", stale, err)
			}

			sub, err := o.Request(context.Background(), false)
			if err != nil {
				t.Fatalf("Request() error = %v", err)
			}
			events := collect(t, sub)
			final := events[len(events)-1]
			if ran := !final.Cached; ran != tt.wantRun {
				t.Errorf("ran = %v, want %v", ran, tt.wantRun)
			}
		})
	}
}

func TestHistoryAndNotification(t *testing.T) {
	d, p := threeFiles()
	rec := &recorder{}
	o := newTestOrchestrator(d, p, &memCache{}, Options{History: rec, Notifier: rec})

	sub, err := o.Request(context.Background(), false)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	collect(t, sub)
	shutdown(t, o)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.runs) != 1 || len(rec.summaries) != 1 {
		t.Fatalf("recorded %d runs and %d summaries, want 1 each", len(rec.runs), len(rec.summaries))
	}
	run := rec.runs[0]
	if run.RunID != sub.RunID() || run.Outcome != database.RunCompleted || run.TotalFiles != 3 {
		t.Errorf("run record = %+v", run)
	}
	summary := rec.summaries[0]
	if !summary.Succeeded || summary.ProblematicFiles != 2 || summary.MediaRoot != testRoot {
		t.Errorf("summary = %+v", summary)
	}
}

func TestSample(t *testing.T) {
	d, p := threeFiles()
	cache := &memCache{}
	o := newTestOrchestrator(d, p, cache, Options{})
	defer shutdown(t, o)

	result, err := o.Sample(context.Background(), 2)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if result.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", result.TotalFiles)
	}
	if _, puts := cache.snapshot(); puts != 0 {
		t.Errorf("cache puts = %d, want 0", puts)
	}
}
