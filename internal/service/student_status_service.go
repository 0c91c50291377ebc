package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
)

type courseClassFinder interface {
	FindByID(ctx context.Context, id string) (*models.CourseClass, error)
}

type studentEnrollmentFinder interface {
	GetSyncInputByStudent(ctx context.Context, cpf, courseClassID string) (*models.SyncInput, error)
}

// StudentStatusService resolves which enrollment a status lookup by CPF refers to and
// whether the caller may reconcile it.
type StudentStatusService struct {
	classes     courseClassFinder
	enrollments studentEnrollmentFinder
	logger      *zap.Logger
}

// NewStudentStatusService constructs StudentStatusService.
func NewStudentStatusService(classes courseClassFinder, enrollments studentEnrollmentFinder, logger *zap.Logger) *StudentStatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentStatusService{classes: classes, enrollments: enrollments, logger: logger}
}

// Resolve returns the reconciliation input for the student's enrollment in the course
// class. Global admins and the class administrators are allowed.
func (s *StudentStatusService) Resolve(ctx context.Context, cpf, courseClassID string, caller *models.JWTClaims) (*models.SyncInput, error) {
	if caller == nil {
		return nil, appErrors.ErrUnauthorized
	}
	courseClassID = strings.TrimSpace(courseClassID)
	if courseClassID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course_id is required")
	}

	class, err := s.classes.FindByID(ctx, courseClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid course class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course class")
	}

	cpf = strings.TrimSpace(cpf)
	if cpf == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cpf is required")
	}

	if caller.Role != models.RoleAdmin && !class.IsAdministrator(caller.Email) {
		s.logger.Warn("status lookup denied",
			zap.String("user_id", caller.UserID),
			zap.String("course_class_id", class.ID))
		return nil, appErrors.ErrForbidden
	}

	input, err := s.enrollments.GetSyncInputByStudent(ctx, cpf, class.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found for student in course class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return input, nil
}
