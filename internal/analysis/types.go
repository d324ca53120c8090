package analysis

import (
	"encoding/json"
	"math"
	"time"
)

// Status names an event in a run's progress stream.
type Status string

const (
	StatusStarting Status = "starting"
	StatusProgress Status = "progress"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Terminal reports whether no further events follow s.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// CodecBreakdown counts files per lower-cased codec name.
type CodecBreakdown struct {
	Audio map[string]int `json:"audio"`
	Video map[string]int `json:"video"`
}

// ProblematicFile is one file that needs remuxing.
type ProblematicFile struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	AudioCodec string   `json:"audio_codec"`
	VideoCodec string   `json:"video_codec"`
	Issues     []string `json:"issues"`
	Size       string   `json:"size"`
	SizeBytes  int64    `json:"size_bytes"`
}

// Result is the aggregate of one analysis run.
//
// CompatibleFiles + ProblematicFiles == TotalFiles and
// AudioIssues + VideoIssues - BothIssues == ProblematicFiles always hold.
// Files whose probe failed are only counted in SkippedFiles.
type Result struct {
	TotalFiles              int               `json:"total_files"`
	CompatibleFiles         int               `json:"compatible_files"`
	ProblematicFiles        int               `json:"problematic_files"`
	CompatibilityPercentage float64           `json:"compatibility_percentage"`
	AudioIssues             int               `json:"audio_issues"`
	VideoIssues             int               `json:"video_issues"`
	BothIssues              int               `json:"both_issues"`
	SkippedFiles            int               `json:"skipped_files"`
	CodecBreakdown          CodecBreakdown    `json:"codec_breakdown"`
	ProblematicFilesList    []ProblematicFile `json:"problematic_files_list"`
}

// NewResult returns an empty result with non-nil collections.
func NewResult() *Result {
	r := &Result{}
	r.Normalize()
	r.CompatibilityPercentage = 100
	return r
}

// Normalize replaces nil collections so the JSON form always carries
// objects and arrays instead of null.
func (r *Result) Normalize() {
	if r.CodecBreakdown.Audio == nil {
		r.CodecBreakdown.Audio = map[string]int{}
	}
	if r.CodecBreakdown.Video == nil {
		r.CodecBreakdown.Video = map[string]int{}
	}
	if r.ProblematicFilesList == nil {
		r.ProblematicFilesList = []ProblematicFile{}
	}
}

// CompatibilityPercentage is compatible/total as a percentage rounded to one
// decimal place. An empty library is fully compatible.
func CompatibilityPercentage(compatible, total int) float64 {
	if total <= 0 {
		return 100
	}
	return math.Round(float64(compatible)/float64(total)*1000) / 10
}

// CacheRecord is the persisted form of a completed run. The result fields
// are flattened next to the cache metadata in JSON.
type CacheRecord struct {
	Result
	CacheTimestamp int64  `json:"cache_timestamp"`
	MediaRoot      string `json:"media_root,omitempty"`
	Fingerprint    string `json:"fingerprint,omitempty"`
	RunID          string `json:"run_id,omitempty"`
}

// CachedAt returns the cache timestamp as a time.
func (c *CacheRecord) CachedAt() time.Time {
	return time.Unix(c.CacheTimestamp, 0)
}

// Event is one message in a progress stream.
type Event struct {
	Status          Status
	RunID           string
	Message         string
	CurrentFile     int
	TotalFiles      int
	CurrentFilename string
	// Record is set on complete events.
	Record *CacheRecord
	// Cached marks a complete event served from the cache without a run.
	Cached bool
}

type baseEvent struct {
	Status  Status `json:"status"`
	RunID   string `json:"run_id,omitempty"`
	Message string `json:"message,omitempty"`
}

type progressEvent struct {
	baseEvent
	CurrentFile     int    `json:"current_file"`
	TotalFiles      int    `json:"total_files"`
	CurrentFilename string `json:"current_filename,omitempty"`
}

// completeEvent takes run_id from the embedded record.
type completeEvent struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Cached  bool   `json:"cached"`
	CacheRecord
}

// MarshalJSON writes the fields that belong to the event's status: progress
// counters for progress events and the flattened result for complete events.
func (e Event) MarshalJSON() ([]byte, error) {
	base := baseEvent{Status: e.Status, RunID: e.RunID, Message: e.Message}
	switch e.Status {
	case StatusProgress:
		return json.Marshal(progressEvent{
			baseEvent:       base,
			CurrentFile:     e.CurrentFile,
			TotalFiles:      e.TotalFiles,
			CurrentFilename: e.CurrentFilename,
		})
	case StatusComplete:
		ev := completeEvent{Status: e.Status, Message: e.Message, Cached: e.Cached}
		if e.Record != nil {
			ev.CacheRecord = *e.Record
		}
		if ev.RunID == "" {
			ev.RunID = e.RunID
		}
		ev.Normalize()
		return json.Marshal(ev)
	default:
		return json.Marshal(base)
	}
}

// Summary describes a finished run for history and notifications.
type Summary struct {
	RunID                   string    `json:"run_id"`
	MediaRoot               string    `json:"media_root"`
	StartedAt               time.Time `json:"started_at"`
	FinishedAt              time.Time `json:"finished_at"`
	DurationSeconds         float64   `json:"duration_seconds"`
	Succeeded               bool      `json:"succeeded"`
	Error                   string    `json:"error,omitempty"`
	TotalFiles              int       `json:"total_files"`
	CompatibleFiles         int       `json:"compatible_files"`
	ProblematicFiles        int       `json:"problematic_files"`
	SkippedFiles            int       `json:"skipped_files"`
	CompatibilityPercentage float64   `json:"compatibility_percentage"`
}
