package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-inspector/internal/analysis"
	"media-inspector/internal/cache"
	"media-inspector/internal/codecs"
	"media-inspector/internal/database"
	"media-inspector/internal/library"
	"media-inspector/internal/probe"
)

// stubProber answers by file name; unknown names fail like a corrupt file.
type stubProber struct {
	results map[string]*probe.Result
}

func (p *stubProber) Probe(_ context.Context, path string) (*probe.Result, error) {
	r, ok := p.results[filepath.Base(path)]
	if !ok {
		return nil, &probe.ProbeError{Path: path, Err: probe.ErrMalformed}
	}
	return r, nil
}

type stubDB struct {
	pingErr   error
	runs      []database.RunRecord
	lastLimit int
	last      time.Time
}

func (d *stubDB) Ping(context.Context) error { return d.pingErr }

func (d *stubDB) ListRuns(_ context.Context, limit int) ([]database.RunRecord, error) {
	d.lastLimit = limit
	return d.runs, nil
}

func (d *stubDB) GetLastAnalysisRun(context.Context) (time.Time, error) { return d.last, nil }

// unloadedPersister is never consulted because the store is never loaded.
type unloadedPersister struct{}

func (unloadedPersister) GetMetadata(context.Context, string) (string, error) {
	return "", errors.New("unavailable")
}

func (unloadedPersister) SetMetadata(context.Context, string, string) error {
	return errors.New("unavailable")
}

type testEnv struct {
	h     *Handlers
	root  string
	db    *stubDB
	cache cache.Store
}

// newTestEnv builds handlers over a temp library:
//
//	Movies/a.mkv       h264 + dts (problematic with the default lists)
//	Movies/b.mp4       h264 + aac
//	Movies/broken.mkv  probe fails
//	notes.txt          not a video
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	for name, size := range map[string]int{
		"Movies/a.mkv":      2048,
		"Movies/b.mp4":      1024,
		"Movies/broken.mkv": 10,
		"notes.txt":         5,
	} {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	prober := &stubProber{results: map[string]*probe.Result{
		"a.mkv": {
			Size:      2048,
			Container: "matroska,webm",
			Video:     &probe.VideoStream{Codec: "h264", Width: 1920, Height: 1080},
			Audio:     []probe.AudioTrack{{Codec: "dts", Channels: 6}},
		},
		"b.mp4": {
			Size:      1024,
			Container: "mov,mp4,m4a,3gp,3g2,mj2",
			Video:     &probe.VideoStream{Codec: "h264", Width: 1280, Height: 720},
			Audio:     []probe.AudioTrack{{Codec: "aac", Channels: 2}},
		},
	}}

	store, err := cache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	walker := library.New(root, 10)
	codecStore := codecs.NewStore(nil)
	orch := analysis.NewOrchestrator(analysis.NewAggregator(walker, prober, 1), codecStore, store, analysis.Options{})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})

	db := &stubDB{}
	h := New(Deps{
		DB:       db,
		Walker:   walker,
		Prober:   prober,
		Codecs:   codecStore,
		Analyzer: orch,
		Cache:    store,
	})
	return &testEnv{h: h, root: root, db: db, cache: store}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestBrowse(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.h.Browse(rec, httptest.NewRequest(http.MethodGet, "/api/browse", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var listing library.Listing
	decode(t, rec, &listing)
	if len(listing.Items) != 1 {
		t.Fatalf("items = %+v, want only the Movies folder", listing.Items)
	}
	if item := listing.Items[0]; item.Name != "Movies" || item.VideoCount != 3 {
		t.Errorf("item = %+v, want Movies with 3 videos", item)
	}

	rec = httptest.NewRecorder()
	env.h.Browse(rec, httptest.NewRequest(http.MethodGet, "/api/browse?path=Movies", nil))
	decode(t, rec, &listing)
	if len(listing.Items) != 3 || len(listing.Breadcrumb) != 1 {
		t.Errorf("Movies listing = %+v", listing)
	}
}

func TestBrowseErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"escape", "../..", http.StatusBadRequest},
		{"missing", "Nope", http.StatusNotFound},
		{"file", "notes.txt", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.h.Browse(rec, httptest.NewRequest(http.MethodGet, "/api/browse?path="+tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var body map[string]string
			decode(t, rec, &body)
			if body["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestVideoInfo(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.h.VideoInfo(rec, httptest.NewRequest(http.MethodGet, "/api/video-info?path=Movies/a.mkv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var info analysis.FileInfo
	decode(t, rec, &info)
	if info.Video.Resolution != "1920×1080 (1080p)" {
		t.Errorf("Resolution = %q", info.Video.Resolution)
	}
	if !info.Compatibility.NeedsRemux || info.Compatibility.AudioCodec != "dts" {
		t.Errorf("Compatibility = %+v", info.Compatibility)
	}

	// Absolute paths inside the root are accepted too.
	rec = httptest.NewRecorder()
	abs := filepath.Join(env.root, "Movies", "b.mp4")
	env.h.VideoInfo(rec, httptest.NewRequest(http.MethodGet, "/api/video-info?path="+abs, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("absolute path status = %d", rec.Code)
	}
}

func TestVideoInfoErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		query   string
		want    int
		message string
	}{
		{"no path", "", http.StatusBadRequest, "No file path provided"},
		{"escape", "?path=../../etc/passwd", http.StatusBadRequest, "Invalid path"},
		{"missing", "?path=Movies/missing.mkv", http.StatusNotFound, "File not found"},
		{"probe failure", "?path=Movies/broken.mkv", http.StatusInternalServerError, "Could not extract video information"},
		{"directory", "?path=Movies", http.StatusBadRequest, "Path is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.h.VideoInfo(rec, httptest.NewRequest(http.MethodGet, "/api/video-info"+tt.query, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var body map[string]string
			decode(t, rec, &body)
			if body["error"] != tt.message {
				t.Errorf("error = %q, want %q", body["error"], tt.message)
			}
		})
	}
}

func TestConfigRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	body := `{"problematic_codecs": {"audio": ["truehd", " dts "], "video": ["hevc"]}}`
	rec := httptest.NewRecorder()
	env.h.UpdateConfig(rec, httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	decode(t, rec, &resp)
	if resp["success"] != true || resp["message"] != "Configuration updated successfully" {
		t.Errorf("POST response = %v", resp)
	}

	rec = httptest.NewRecorder()
	env.h.GetConfig(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	var cfg codecs.Config
	decode(t, rec, &cfg)
	if got := strings.Join(cfg.ProblematicCodecs.Audio, ","); got != "truehd,dts" {
		t.Errorf("audio = %q, want trimmed list", got)
	}
	if got := strings.Join(cfg.ProblematicCodecs.Video, ","); got != "hevc" {
		t.Errorf("video = %q", got)
	}
}

func TestUpdateConfigValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		body string
		want string
	}{
		{`not json`, "Invalid config format"},
		{`[]`, "Invalid config format"},
		{`{}`, "Missing problematic_codecs section"},
		{`{"problematic_codecs": {"audio": "dts"}}`, "Invalid audio codecs format"},
		{`{"problematic_codecs": {"video": [1, 2]}}`, "Invalid video codecs format"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.h.UpdateConfig(rec, httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var body map[string]string
			decode(t, rec, &body)
			if body["error"] != tt.want {
				t.Errorf("error = %q, want %q", body["error"], tt.want)
			}
		})
	}

	// The rejected documents left the defaults in place.
	cfg, _ := env.h.codecs.Current()
	if len(cfg.ProblematicCodecs.Audio) != len(codecs.Defaults().ProblematicCodecs.Audio) {
		t.Errorf("config changed after rejected updates: %+v", cfg)
	}
}

func TestConfigUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.h.codecs = codecs.NewStore(unloadedPersister{})

	rec := httptest.NewRecorder()
	env.h.GetConfig(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestAvailableCodecs(t *testing.T) {
	env := newTestEnv(t)

	get := func() map[string][]string {
		rec := httptest.NewRecorder()
		env.h.AvailableCodecs(rec, httptest.NewRequest(http.MethodGet, "/api/available-codecs", nil))
		var body map[string][]string
		decode(t, rec, &body)
		return body
	}

	body := get()
	if len(body["audio"]) != len(codecs.CommonAudio) || len(body["video"]) != len(codecs.CommonVideo) {
		t.Errorf("without cache = %v", body)
	}

	record := analysis.CacheRecord{Result: *analysis.NewResult(), CacheTimestamp: time.Now().Unix()}
	record.CodecBreakdown.Audio["mp2"] = 1
	record.CodecBreakdown.Audio["aac"] = 4
	record.CodecBreakdown.Video["mpeg1video"] = 1
	if err := env.cache.Put(context.Background(), record); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	body = get()
	audio := body["audio"]
	if len(audio) != len(codecs.CommonAudio)+1 || audio[len(audio)-1] != "mp2" {
		t.Errorf("audio = %v, want common names plus mp2", audio)
	}
	video := body["video"]
	if video[len(video)-1] != "mpeg1video" {
		t.Errorf("video = %v, want mpeg1video appended", video)
	}
}

func TestGetVersion(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.h.GetVersion(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var body map[string]string
	decode(t, rec, &body)
	if body["version"] == "" || body["goVersion"] == "" {
		t.Errorf("version response = %v", body)
	}
	if rec.Header().Get("Cache-Control") != "no-cache" {
		t.Error("expected Cache-Control: no-cache")
	}
}
