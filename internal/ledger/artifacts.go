package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const artifactColumns = "id, run_id, input_path, output_path, status, detail, input_size, input_mtime, recorded_at"

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		artifact    Artifact
		status      string
		detail      sql.NullString
		inputSize   sql.NullInt64
		inputMTime  sql.NullString
		recordedRaw string
	)
	if err := scanner.Scan(
		&artifact.ID,
		&artifact.RunID,
		&artifact.Input,
		&artifact.Output,
		&status,
		&detail,
		&inputSize,
		&inputMTime,
		&recordedRaw,
	); err != nil {
		return nil, err
	}
	artifact.Status = ArtifactStatus(status)
	artifact.Detail = detail.String
	artifact.InputSize = inputSize.Int64
	if inputMTime.Valid {
		mtime, err := parseTime(inputMTime.String)
		if err != nil {
			return nil, fmt.Errorf("parse input_mtime for artifact %d: %w", artifact.ID, err)
		}
		artifact.InputModTime = mtime
	}
	recorded, err := parseTime(recordedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse recorded_at for artifact %d: %w", artifact.ID, err)
	}
	artifact.RecordedAt = recorded
	return &artifact, nil
}

// RecordArtifact stores the outcome for one input of a run.
func (s *Store) RecordArtifact(ctx context.Context, artifact Artifact) error {
	if strings.TrimSpace(artifact.RunID) == "" {
		return errors.New("artifact run id required")
	}
	if !artifact.Status.Valid() {
		return fmt.Errorf("invalid artifact status %q", artifact.Status)
	}
	if artifact.RecordedAt.IsZero() {
		artifact.RecordedAt = time.Now()
	}
	var detail any
	if artifact.Detail != "" {
		detail = artifact.Detail
	}
	var inputSize, inputMTime any
	if !artifact.InputModTime.IsZero() {
		inputSize = artifact.InputSize
		inputMTime = formatTime(artifact.InputModTime)
	}
	_, err := s.exec(ctx,
		`INSERT INTO artifacts (run_id, input_path, output_path, status, detail, input_size, input_mtime, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.RunID, artifact.Input, artifact.Output, string(artifact.Status), detail, inputSize, inputMTime, formatTime(artifact.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// Artifacts lists the artifacts of a run in the order they were recorded.
func (s *Store) Artifacts(ctx context.Context, runID string) ([]Artifact, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+artifactColumns+" FROM artifacts WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, rows.Err()
}

// LastSuccess returns the most recent succeeded artifact for the input/output
// pair, or nil when there is none.
func (s *Store) LastSuccess(ctx context.Context, input, output string) (*Artifact, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+artifactColumns+" FROM artifacts WHERE input_path = ? AND output_path = ? AND status = ? ORDER BY id DESC LIMIT 1",
		input, output, string(ArtifactSucceeded))
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last success: %w", err)
	}
	return artifact, nil
}
