package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByCPF returns the student registered under the given CPF.
func (r *StudentRepository) FindByCPF(ctx context.Context, cpf string) (*models.Student, error) {
	const query = `SELECT id, cpf, email, name, last_name, created_at, updated_at FROM students WHERE cpf = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, cpf); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by cpf: %w", err)
	}
	return &student, nil
}

// UpdateStudentProfile overwrites e-mail, name and last name in one statement.
func (r *StudentRepository) UpdateStudentProfile(ctx context.Context, studentID string, fields models.ProfileFields) error {
	const query = `UPDATE students SET email = $2, name = $3, last_name = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, fields.Email, fields.Name, fields.LastName, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}
