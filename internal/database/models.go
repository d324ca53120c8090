package database

import "time"

// CacheRow is the stored form of the cached analysis result. Payload is the
// JSON document returned to clients; the other columns allow lookups without
// decoding it.
type CacheRow struct {
	Payload     []byte
	MediaRoot   string
	Fingerprint string
	CachedAt    time.Time
}

// RunOutcome describes how an analysis run ended.
type RunOutcome string

const (
	RunCompleted RunOutcome = "completed"
	RunFailed    RunOutcome = "failed"
)

// RunRecord is one entry in the analysis history.
type RunRecord struct {
	RunID                   string     `json:"run_id"`
	StartedAt               time.Time  `json:"started_at"`
	FinishedAt              time.Time  `json:"finished_at"`
	Outcome                 RunOutcome `json:"outcome"`
	TotalFiles              int        `json:"total_files"`
	CompatibleFiles         int        `json:"compatible_files"`
	ProblematicFiles        int        `json:"problematic_files"`
	SkippedFiles            int        `json:"skipped_files"`
	CompatibilityPercentage float64    `json:"compatibility_percentage"`
	Error                   string     `json:"error,omitempty"`
}
