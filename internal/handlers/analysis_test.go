package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"media-inspector/internal/analysis"
	"media-inspector/internal/cache"
	"media-inspector/internal/database"
)

// readSSE collects the data payloads of an event stream until it ends.
func readSSE(t *testing.T, url string) []map[string]interface{} {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var events []map[string]interface{}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e map[string]interface{}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		events = append(events, e)
	}
	return events
}

func TestStreamAnalysis(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(env.h.StreamAnalysis))
	defer srv.Close()

	events := readSSE(t, srv.URL)
	if len(events) < 3 {
		t.Fatalf("events = %v", events)
	}
	if events[0]["status"] != "starting" {
		t.Errorf("first event = %v", events[0])
	}

	last := events[len(events)-1]
	if last["status"] != "complete" {
		t.Fatalf("last event = %v", last)
	}
	if last["total_files"] != 2.0 || last["skipped_files"] != 1.0 {
		t.Errorf("complete totals = %v/%v, want 2 analyzed and 1 skipped", last["total_files"], last["skipped_files"])
	}
	if last["compatibility_percentage"] != 50.0 {
		t.Errorf("compatibility_percentage = %v", last["compatibility_percentage"])
	}
	if last["cached"] != false {
		t.Errorf("cached = %v, want false for a fresh run", last["cached"])
	}

	// Progress counts up to the discovered total, in order.
	current := 0.0
	for _, e := range events[1 : len(events)-1] {
		if e["status"] != "progress" {
			t.Fatalf("unexpected middle event %v", e)
		}
		if e["total_files"] != 3.0 {
			t.Errorf("progress total_files = %v, want 3", e["total_files"])
		}
		n := e["current_file"].(float64)
		if n < current {
			t.Errorf("current_file went from %v to %v", current, n)
		}
		current = n
	}
	if current != 3 {
		t.Errorf("last current_file = %v, want 3", current)
	}

	// A second stream is served from the cache.
	events = readSSE(t, srv.URL)
	if len(events) != 1 || events[0]["status"] != "complete" || events[0]["cached"] != true {
		t.Errorf("cached stream = %v", events)
	}

	// force=true runs again.
	events = readSSE(t, srv.URL+"?force=true")
	if len(events) < 3 || events[len(events)-1]["cached"] != false {
		t.Errorf("forced stream = %v", events)
	}
}

func TestCachedAnalysis(t *testing.T) {
	env := newTestEnv(t)

	get := func() map[string]interface{} {
		rec := httptest.NewRecorder()
		env.h.CachedAnalysis(rec, httptest.NewRequest(http.MethodGet, "/api/bulk-analysis/cache", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body map[string]interface{}
		decode(t, rec, &body)
		return body
	}

	body := get()
	if body["has_cache"] != false || len(body) != 1 {
		t.Errorf("empty cache response = %v, want only has_cache=false", body)
	}

	srv := httptest.NewServer(http.HandlerFunc(env.h.StreamAnalysis))
	defer srv.Close()
	readSSE(t, srv.URL)

	body = get()
	if body["has_cache"] != true {
		t.Fatalf("response = %v", body)
	}
	if body["total_files"] != 2.0 || body["problematic_files"] != 1.0 {
		t.Errorf("flattened result = %v", body)
	}
	if ts, ok := body["cache_timestamp"].(float64); !ok || ts <= 0 {
		t.Errorf("cache_timestamp = %v", body["cache_timestamp"])
	}
	if _, ok := body["stale"]; ok {
		t.Errorf("stale present for an unchanged library: %v", body)
	}
	list := body["problematic_files_list"].([]interface{})
	if len(list) != 1 || list[0].(map[string]interface{})["path"] != "Movies/a.mkv" {
		t.Errorf("problematic_files_list = %v", list)
	}
}

func TestCachedAnalysisUnreadable(t *testing.T) {
	env := newTestEnv(t)
	store, ok := env.cache.(*cache.FileStore)
	if !ok {
		t.Fatalf("cache is %T, want *cache.FileStore", env.cache)
	}
	// A directory in place of the cache file fails reads with EISDIR.
	if err := os.Mkdir(store.Path(), 0o755); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	env.h.CachedAnalysis(rec, httptest.NewRequest(http.MethodGet, "/api/bulk-analysis/cache", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	if body["has_cache"] != false || len(body) != 1 {
		t.Errorf("unreadable cache response = %v, want only has_cache=false", body)
	}
}

func TestClearAnalysisCache(t *testing.T) {
	env := newTestEnv(t)
	record := analysis.CacheRecord{Result: *analysis.NewResult(), CacheTimestamp: time.Now().Unix()}
	if err := env.cache.Put(context.Background(), record); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	rec := httptest.NewRecorder()
	env.h.ClearAnalysisCache(rec, httptest.NewRequest(http.MethodDelete, "/api/bulk-analysis/cache", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	got, err := env.cache.Get(context.Background())
	if err != nil || got != nil {
		t.Errorf("cache after clear = %v, %v", got, err)
	}
}

func TestSampleAnalysis(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		query string
		code  int
		total float64
	}{
		{"", http.StatusOK, 2},
		{"?max_files=1", http.StatusOK, 1},
		{"?sample=true", http.StatusOK, 2},
		{"?max_files=-1", http.StatusBadRequest, 0},
		{"?max_files=lots", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.h.SampleAnalysis(rec, httptest.NewRequest(http.MethodGet, "/api/bulk-analysis"+tt.query, nil))
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
			if tt.code != http.StatusOK {
				return
			}
			var body map[string]interface{}
			decode(t, rec, &body)
			if body["total_files"] != tt.total {
				t.Errorf("total_files = %v, want %v", body["total_files"], tt.total)
			}
		})
	}

	// Sampling never writes the cache.
	if got, _ := env.cache.Get(context.Background()); got != nil {
		t.Errorf("cache written by sampled analysis: %+v", got)
	}
}

func TestAnalysisHistory(t *testing.T) {
	env := newTestEnv(t)
	env.db.runs = []database.RunRecord{{RunID: "r1", Outcome: database.RunCompleted, TotalFiles: 4}}

	rec := httptest.NewRecorder()
	env.h.AnalysisHistory(rec, httptest.NewRequest(http.MethodGet, "/api/bulk-analysis/history", nil))
	var body struct {
		Runs []database.RunRecord `json:"runs"`
	}
	decode(t, rec, &body)
	if len(body.Runs) != 1 || body.Runs[0].RunID != "r1" {
		t.Errorf("runs = %+v", body.Runs)
	}
	if env.db.lastLimit != defaultHistoryLimit {
		t.Errorf("limit = %d, want default %d", env.db.lastLimit, defaultHistoryLimit)
	}

	rec = httptest.NewRecorder()
	env.h.AnalysisHistory(rec, httptest.NewRequest(http.MethodGet, "/api/bulk-analysis/history?limit=5", nil))
	if env.db.lastLimit != 5 {
		t.Errorf("limit = %d, want 5", env.db.lastLimit)
	}

	rec = httptest.NewRecorder()
	env.h.AnalysisHistory(rec, httptest.NewRequest(http.MethodGet, "/api/bulk-analysis/history?limit=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAnalysisStatusIdle(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.h.AnalysisStatus(rec, httptest.NewRequest(http.MethodGet, "/api/bulk-analysis/status", nil))
	var state analysis.RunState
	decode(t, rec, &state)
	if state.Running {
		t.Errorf("state = %+v, want idle", state)
	}
}

func TestStreamAnalysisWS(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(env.h.StreamAnalysisWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var statuses []string
	for {
		var e map[string]interface{}
		err := wsjson.Read(ctx, conn, &e)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				t.Fatalf("Read() error = %v, want normal closure", err)
			}
			break
		}
		statuses = append(statuses, e["status"].(string))
	}

	if len(statuses) < 3 || statuses[0] != "starting" || statuses[len(statuses)-1] != "complete" {
		t.Errorf("statuses = %v", statuses)
	}
}

func TestStreamAnalysisAfterShutdown(t *testing.T) {
	env := newTestEnv(t)
	if err := env.h.analyzer.Shutdown(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("Shutdown() error = %v", err)
	}

	rec := httptest.NewRecorder()
	env.h.StreamAnalysis(rec, httptest.NewRequest(http.MethodGet, "/api/bulk-analysis-progress", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
