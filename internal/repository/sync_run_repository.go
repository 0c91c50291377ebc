package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

// SyncRunRepository persists batch runs and their per-enrollment results.
type SyncRunRepository struct {
	db *sqlx.DB
}

// NewSyncRunRepository constructs the repository.
func NewSyncRunRepository(db *sqlx.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new run row with generated defaults.
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.SyncRunQueued
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sync_runs (id, trigger, status, course_class_id, total, succeeded, failed, skipped, created_by, error_message, created_at, finished_at)
VALUES (:id, :trigger, :status, :course_class_id, :total, :succeeded, :failed, :skipped, :created_by, :error_message, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create sync run: %w", err)
	}
	return nil
}

// GetByID returns a run by its identifier.
func (r *SyncRunRepository) GetByID(ctx context.Context, id string) (*models.SyncRun, error) {
	const query = `SELECT id, trigger, status, course_class_id, total, succeeded, failed, skipped, created_by, error_message, created_at, finished_at
FROM sync_runs WHERE id = $1`
	var run models.SyncRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get sync run: %w", err)
	}
	return &run, nil
}

// UpdateSyncRunParams defines the mutable fields of a run.
type UpdateSyncRunParams struct {
	Status       *models.SyncRunStatus
	Total        *int
	Succeeded    *int
	Failed       *int
	Skipped      *int
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a run row.
func (r *SyncRunRepository) Update(ctx context.Context, id string, params UpdateSyncRunParams) error {
	set := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Total != nil {
		add("total", *params.Total)
	}
	if params.Succeeded != nil {
		add("succeeded", *params.Succeeded)
	}
	if params.Failed != nil {
		add("failed", *params.Failed)
	}
	if params.Skipped != nil {
		add("skipped", *params.Skipped)
	}
	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE sync_runs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update sync run: %w", err)
	}
	return nil
}

// FailUnfinished marks runs interrupted by a restart as failed and returns how many were touched.
func (r *SyncRunRepository) FailUnfinished(ctx context.Context, reason string, at time.Time) (int64, error) {
	const query = `UPDATE sync_runs SET status = $1, error_message = $2, finished_at = $3 WHERE status IN ($4, $5)`
	res, err := r.db.ExecContext(ctx, query, models.SyncRunFailed, reason, at, models.SyncRunQueued, models.SyncRunProcessing)
	if err != nil {
		return 0, fmt.Errorf("fail unfinished sync runs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count failed sync runs: %w", err)
	}
	return affected, nil
}

// AddResult stores the outcome of one enrollment inside a run.
func (r *SyncRunRepository) AddResult(ctx context.Context, result *models.SyncRunResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sync_run_results (id, run_id, enrollment_id, student_cpf, status_code, messages, last_access, progress, created_at)
VALUES (:id, :run_id, :enrollment_id, :student_cpf, :status_code, :messages, :last_access, :progress, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("add sync run result: %w", err)
	}
	return nil
}

// ListResults returns the results of a run in processing order.
func (r *SyncRunRepository) ListResults(ctx context.Context, runID string) ([]models.SyncRunResult, error) {
	const query = `SELECT id, run_id, enrollment_id, student_cpf, status_code, messages, last_access, progress, created_at
FROM sync_run_results WHERE run_id = $1 ORDER BY created_at ASC`
	var results []models.SyncRunResult
	if err := r.db.SelectContext(ctx, &results, query, runID); err != nil {
		return nil, fmt.Errorf("list sync run results: %w", err)
	}
	return results, nil
}
