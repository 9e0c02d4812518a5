package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status describes the lifecycle of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Counts holds the item totals a stage reports when it finishes.
type Counts struct {
	Scanned int
	Written int
	Skipped int
	Failed  int
}

// Run is one recorded stage invocation.
type Run struct {
	ID         int64
	RunID      string
	Stage      string
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     Counts
	Error      string
}

// Failure is one recorded per-item failure within a run.
type Failure struct {
	ID        int64
	RunID     string
	Item      string
	Detail    string
	CreatedAt time.Time
}

const runColumns = "id, run_id, stage, status, started_at, finished_at, scanned, written, skipped, failed, error_message"

// BeginRun records the start of a stage invocation.
func (s *Store) BeginRun(ctx context.Context, runID, stage string) error {
	runID = strings.TrimSpace(runID)
	stage = strings.TrimSpace(stage)
	if runID == "" || stage == "" {
		return errors.New("begin run: run id and stage are required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (run_id, stage, status, started_at) VALUES (?, ?, ?, ?)`,
		runID,
		stage,
		StatusRunning,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the end of a run with its counts. A non-nil runErr marks
// the run failed and stores the error text.
func (s *Store) FinishRun(ctx context.Context, runID string, counts Counts, runErr error) error {
	status := StatusCompleted
	var message sql.NullString
	if runErr != nil {
		status = StatusFailed
		message = sql.NullString{String: runErr.Error(), Valid: true}
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.execWithRetry(
		ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, scanned = ?, written = ?, skipped = ?, failed = ?, error_message = ?
         WHERE run_id = ?`,
		status,
		now,
		counts.Scanned,
		counts.Written,
		counts.Skipped,
		counts.Failed,
		message,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordFailure stores one per-item failure for a run.
func (s *Store) RecordFailure(ctx context.Context, runID, item, detail string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.execWithRetry(
		ctx,
		`INSERT INTO run_failures (run_id, item, detail, created_at) VALUES (?, ?, ?, ?)`,
		runID,
		item,
		detail,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert run failure: %w", err)
	}
	return nil
}

// RecentRuns returns the most recently started runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a run by its identifier, or nil when absent.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Failures returns the recorded per-item failures for a run, oldest first.
func (s *Store) Failures(ctx context.Context, runID string) ([]Failure, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, item, detail, created_at FROM run_failures WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var (
			f          Failure
			createdRaw string
		)
		if err := rows.Scan(&f.ID, &f.RunID, &f.Item, &f.Detail, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan run failure: %w", err)
		}
		f.CreatedAt = parseTimestamp(createdRaw)
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run failures: %w", err)
	}
	return failures, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		statusStr   string
		startedRaw  string
		finishedRaw sql.NullString
		message     sql.NullString
	)
	err := scanner.Scan(
		&run.ID,
		&run.RunID,
		&run.Stage,
		&statusStr,
		&startedRaw,
		&finishedRaw,
		&run.Counts.Scanned,
		&run.Counts.Written,
		&run.Counts.Skipped,
		&run.Counts.Failed,
		&message,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(statusStr)
	run.StartedAt = parseTimestamp(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTimestamp(finishedRaw.String)
	}
	if message.Valid {
		run.Error = message.String
	}
	return run, nil
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
