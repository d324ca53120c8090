package database

import (
	"context"
	"database/sql"
	"time"
)

// maxHistory bounds the analysis_runs table.
const maxHistory = 200

// RecordRun stores a finished analysis run and trims old entries.
func (d *Database) RecordRun(ctx context.Context, run RunRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("record_run", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO analysis_runs (
			run_id, started_at, finished_at, outcome,
			total_files, compatible_files, problematic_files, skipped_files,
			compatibility_percentage, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID, run.StartedAt.Unix(), run.FinishedAt.Unix(), string(run.Outcome),
		run.TotalFiles, run.CompatibleFiles, run.ProblematicFiles, run.SkippedFiles,
		run.CompatibilityPercentage, nullString(run.Error),
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM analysis_runs WHERE run_id NOT IN (
			SELECT run_id FROM analysis_runs ORDER BY finished_at DESC LIMIT ?
		)
	`, maxHistory)
	if err != nil {
		return err
	}

	if run.Outcome == RunCompleted {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, MetadataLastAnalysisRun, run.FinishedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

// ListRuns returns the most recent analysis runs, newest first.
func (d *Database) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_runs", start, err) }()

	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, outcome,
			total_files, compatible_files, problematic_files, skipped_files,
			compatibility_percentage, error
		FROM analysis_runs
		ORDER BY finished_at DESC, started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var run RunRecord
		var startedAt, finishedAt int64
		var outcome string
		var runErr sql.NullString
		if err = rows.Scan(
			&run.RunID, &startedAt, &finishedAt, &outcome,
			&run.TotalFiles, &run.CompatibleFiles, &run.ProblematicFiles, &run.SkippedFiles,
			&run.CompatibilityPercentage, &runErr,
		); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(startedAt, 0)
		run.FinishedAt = time.Unix(finishedAt, 0)
		run.Outcome = RunOutcome(outcome)
		run.Error = runErr.String
		runs = append(runs, run)
	}
	err = rows.Err()
	return runs, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
