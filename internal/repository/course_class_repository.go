package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

// CourseClassRepository reads course offerings and the people who administer them.
type CourseClassRepository struct {
	db *sqlx.DB
}

// NewCourseClassRepository constructs a CourseClassRepository.
func NewCourseClassRepository(db *sqlx.DB) *CourseClassRepository {
	return &CourseClassRepository{db: db}
}

// FindByID returns a course class with its course and administrator e-mails.
func (r *CourseClassRepository) FindByID(ctx context.Context, id string) (*models.CourseClass, error) {
	const query = `SELECT cc.id, cc.name, cc.course_id, c.name AS course_name, c.moodle_id AS course_moodle_id
        FROM course_classes cc
        JOIN courses c ON c.id = cc.course_id
        WHERE cc.id = $1`
	var class models.CourseClass
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course class: %w", err)
	}

	const adminsQuery = `SELECT email FROM course_class_administrators WHERE course_class_id = $1 ORDER BY email`
	if err := r.db.SelectContext(ctx, &class.Administrators, adminsQuery, id); err != nil {
		return nil, fmt.Errorf("list course class administrators: %w", err)
	}
	return &class, nil
}
