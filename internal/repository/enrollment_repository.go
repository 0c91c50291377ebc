package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

const syncInputSelect = `SELECT e.id AS enrollment_id, e.course_class_id, cc.course_id, c.moodle_id AS course_moodle_id,
        e.confirmed_at, ls.enrollment_status_type AS last_status_type, ls.created_at AS last_status_created_at,
        s.id AS student_id, s.cpf AS student_cpf, s.email AS student_email, s.name AS student_name, s.last_name AS student_last_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN course_classes cc ON cc.id = e.course_class_id
        JOIN courses c ON c.id = cc.course_id
        JOIN LATERAL (
            SELECT enrollment_status_type, created_at FROM enrollment_statuses
            WHERE enrollment_id = e.id ORDER BY created_at DESC, seq DESC LIMIT 1
        ) ls ON TRUE`

// EnrollmentRepository handles persistence of enrollments and their status history.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// GetEnrollment returns an enrollment with its history ordered by creation time, then
// insertion order for records sharing a timestamp.
func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT e.id, e.student_id, e.course_class_id, cc.course_id, c.moodle_id AS course_moodle_id,
        e.confirmed_at, e.last_access_at, e.progress, e.created_at
        FROM enrollments e
        JOIN course_classes cc ON cc.id = e.course_class_id
        JOIN courses c ON c.id = cc.course_id
        WHERE e.id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}

	const historyQuery = `SELECT id, enrollment_id, enrollment_status_type, created_at FROM enrollment_statuses WHERE enrollment_id = $1 ORDER BY created_at ASC, seq ASC`
	if err := r.db.SelectContext(ctx, &enrollment.StatusHistory, historyQuery, id); err != nil {
		return nil, fmt.Errorf("list enrollment statuses: %w", err)
	}
	return &enrollment, nil
}

// GetSyncInput returns the reconciliation input of one enrollment.
func (r *EnrollmentRepository) GetSyncInput(ctx context.Context, enrollmentID string) (*models.SyncInput, error) {
	query := syncInputSelect + ` WHERE e.id = $1`
	var input models.SyncInput
	if err := r.db.GetContext(ctx, &input, query, enrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get sync input: %w", err)
	}
	return &input, nil
}

// GetSyncInputByStudent resolves the enrollment of a student, by CPF, in a course class.
func (r *EnrollmentRepository) GetSyncInputByStudent(ctx context.Context, cpf, courseClassID string) (*models.SyncInput, error) {
	query := syncInputSelect + ` WHERE s.cpf = $1 AND e.course_class_id = $2 LIMIT 1`
	var input models.SyncInput
	if err := r.db.GetContext(ctx, &input, query, cpf, courseClassID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get sync input by student: %w", err)
	}
	return &input, nil
}

// ListSyncInputs returns reconciliation inputs for every enrollment matching filter.
func (r *EnrollmentRepository) ListSyncInputs(ctx context.Context, filter models.EnrollmentFilter) ([]models.SyncInput, error) {
	query := syncInputSelect
	var args []interface{}
	if filter.CourseClassID != "" {
		query += " WHERE e.course_class_id = $1"
		args = append(args, filter.CourseClassID)
	}
	query += " ORDER BY e.created_at ASC, e.id ASC"

	var inputs []models.SyncInput
	if err := r.db.SelectContext(ctx, &inputs, query, args...); err != nil {
		return nil, fmt.Errorf("list sync inputs: %w", err)
	}
	return inputs, nil
}

// UpdateEnrollmentAccess stores the latest access timestamp and progress together.
func (r *EnrollmentRepository) UpdateEnrollmentAccess(ctx context.Context, id string, lastAccess time.Time, progress float64) error {
	const query = `UPDATE enrollments SET last_access_at = $2, progress = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, lastAccess, progress); err != nil {
		return fmt.Errorf("update enrollment access: %w", err)
	}
	return nil
}

// AppendStatus adds a status record to the enrollment history.
func (r *EnrollmentRepository) AppendStatus(ctx context.Context, id string, status models.StatusType, at time.Time) error {
	const query = `INSERT INTO enrollment_statuses (id, enrollment_id, enrollment_status_type, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), id, status, at); err != nil {
		return fmt.Errorf("append enrollment status: %w", err)
	}
	return nil
}

// RetractStatus removes every record of the given type. Sent records are kept.
func (r *EnrollmentRepository) RetractStatus(ctx context.Context, id string, status models.StatusType) error {
	if status == models.StatusSent {
		return nil
	}
	const query = `DELETE FROM enrollment_statuses WHERE enrollment_id = $1 AND enrollment_status_type = $2`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("retract enrollment status: %w", err)
	}
	return nil
}

// ResetToSent drops every non-Sent record and clears access data in one transaction.
// A Sent record is created when none remains.
func (r *EnrollmentRepository) ResetToSent(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset enrollment tx: %w", err)
	}

	const retract = `DELETE FROM enrollment_statuses WHERE enrollment_id = $1 AND enrollment_status_type <> $2`
	if _, err := tx.ExecContext(ctx, retract, id, models.StatusSent); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("retract enrollment statuses: %w", err)
	}

	const ensureSent = `INSERT INTO enrollment_statuses (id, enrollment_id, enrollment_status_type, created_at)
        SELECT $1, $2, $3, $4
        WHERE NOT EXISTS (SELECT 1 FROM enrollment_statuses WHERE enrollment_id = $2 AND enrollment_status_type = $3)`
	if _, err := tx.ExecContext(ctx, ensureSent, uuid.NewString(), id, models.StatusSent, time.Now().UTC()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("ensure sent status: %w", err)
	}

	const clearAccess = `UPDATE enrollments SET last_access_at = NULL, progress = 0 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, clearAccess, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear enrollment access: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset enrollment tx: %w", err)
	}
	return nil
}
