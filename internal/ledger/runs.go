package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timestampLayout is fixed width so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const runColumns = "id, command, input_dir, output_dir, status, started_at, finished_at, succeeded, failed, skipped, error_message"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timestampLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		errorMsg    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Command,
		&run.InputDir,
		&run.OutputDir,
		&status,
		&startedRaw,
		&finishedRaw,
		&run.Succeeded,
		&run.Failed,
		&run.Skipped,
		&errorMsg,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.Error = errorMsg.String
	started, err := parseTime(startedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse started_at for run %s: %w", run.ID, err)
	}
	run.StartedAt = started
	if finishedRaw.Valid && finishedRaw.String != "" {
		finished, err := parseTime(finishedRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at for run %s: %w", run.ID, err)
		}
		run.FinishedAt = finished
	}
	return &run, nil
}

// BeginRun records the start of a batch command and returns it with a fresh id.
func (s *Store) BeginRun(ctx context.Context, command, inputDir, outputDir string) (*Run, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("run command required")
	}
	run := &Run{
		ID:        uuid.NewString(),
		Command:   command,
		InputDir:  inputDir,
		OutputDir: outputDir,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, command, input_dir, output_dir, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.InputDir, run.OutputDir, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun closes a run, storing artifact counts aggregated from the ledger.
// A nil runErr yields RunSucceeded, or RunPartial when any artifact failed.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) (*Run, error) {
	var errorMessage any
	if runErr != nil {
		errorMessage = runErr.Error()
	}
	res, err := s.exec(ctx, `
UPDATE runs SET
    finished_at = ?,
    succeeded = (SELECT COUNT(1) FROM artifacts WHERE run_id = runs.id AND status = 'succeeded'),
    failed = (SELECT COUNT(1) FROM artifacts WHERE run_id = runs.id AND status = 'failed'),
    skipped = (SELECT COUNT(1) FROM artifacts WHERE run_id = runs.id AND status = 'skipped'),
    error_message = ?
WHERE id = ?`,
		formatTime(time.Now()), errorMessage, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	status := RunSucceeded
	switch {
	case runErr != nil:
		status = RunFailed
	default:
		run, err := s.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if run.Failed > 0 {
			status = RunPartial
		}
	}
	if _, err := s.exec(ctx, `UPDATE runs SET status = ? WHERE id = ?`, string(status), runID); err != nil {
		return nil, fmt.Errorf("update run status: %w", err)
	}
	return s.GetRun(ctx, runID)
}

// GetRun fetches a run by its full id.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindRun resolves a full id or a unique id prefix, as printed by the history table.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	ctx = ensureContext(ctx)
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, errors.New("run id required")
	}
	pattern := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(idOrPrefix) + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY started_at DESC LIMIT 2`, pattern)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, idOrPrefix)
	}
}

// RecentRuns returns up to limit runs, newest first. A non-positive limit returns all runs.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}
