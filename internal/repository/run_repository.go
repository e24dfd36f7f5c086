package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cityzn/cityzn-backend-go/internal/models"
)

// RunRepository handles database operations for pipeline runs
type RunRepository struct {
	db DBTX
}

// NewRunRepository creates a new run repository
func NewRunRepository(db DBTX) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a pending run with a fresh id
func (r *RunRepository) Create(ctx context.Context) (*models.PipelineRun, error) {
	run := &models.PipelineRun{
		ID:        uuid.NewString(),
		Status:    models.RunStatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, status, created_at) VALUES (?, ?, ?)`,
		run.ID, run.Status, run.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}
	return run, nil
}

const runColumns = `id, status, summary_json, error_message, created_at, started_at, completed_at`

// GetByID retrieves a run by id
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.PipelineRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM pipeline_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pipeline run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	return run, nil
}

// LatestCompleted returns the most recent successful run
func (r *RunRepository) LatestCompleted(ctx context.Context) (*models.PipelineRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM pipeline_runs
		WHERE status = ?
		ORDER BY completed_at DESC, created_at DESC
		LIMIT 1`, models.RunStatusCompleted)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("completed pipeline run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest pipeline run: %w", err)
	}
	return run, nil
}

// List retrieves runs, newest first
func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]*models.PipelineRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM pipeline_runs
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkAsRunning marks a run as started
func (r *RunRepository) MarkAsRunning(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET status = ?, started_at = ? WHERE id = ?`,
		models.RunStatusRunning, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark run as running: %w", err)
	}
	return nil
}

// MarkAsCompleted stores the summary of a successful run
func (r *RunRepository) MarkAsCompleted(ctx context.Context, id string, summary *models.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET status = ?, completed_at = ?, summary_json = ? WHERE id = ?`,
		models.RunStatusCompleted, time.Now().Unix(), string(data), id)
	if err != nil {
		return fmt.Errorf("failed to mark run as completed: %w", err)
	}
	return nil
}

// MarkAsFailed records the error of a failed run
func (r *RunRepository) MarkAsFailed(ctx context.Context, id string, errorMessage string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET status = ?, completed_at = ?, error_message = ? WHERE id = ?`,
		models.RunStatusFailed, time.Now().Unix(), errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to mark run as failed: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*models.PipelineRun, error) {
	var (
		run                  models.PipelineRun
		summary, errMsg      sql.NullString
		createdAt            int64
		startedAt, completed sql.NullInt64
	)
	if err := s.Scan(&run.ID, &run.Status, &summary, &errMsg, &createdAt, &startedAt, &completed); err != nil {
		return nil, err
	}
	run.ErrorMessage = errMsg.String
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	run.StartedAt = timeFromUnix(startedAt)
	run.CompletedAt = timeFromUnix(completed)
	if summary.Valid && summary.String != "" {
		run.Summary = &models.RunSummary{}
		if err := json.Unmarshal([]byte(summary.String), run.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode run summary: %w", err)
		}
	}
	return &run, nil
}
