package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
)

type stubClassFinder struct {
	class *models.CourseClass
	err   error
}

func (s stubClassFinder) FindByID(ctx context.Context, id string) (*models.CourseClass, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.class == nil || s.class.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.class, nil
}

type stubStudentEnrollments struct {
	inputs map[string]models.SyncInput
	err    error
}

func (s stubStudentEnrollments) GetSyncInputByStudent(ctx context.Context, cpf, courseClassID string) (*models.SyncInput, error) {
	if s.err != nil {
		return nil, s.err
	}
	in, ok := s.inputs[cpf+"/"+courseClassID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &in, nil
}

func newStudentStatusFixture() *StudentStatusService {
	class := &models.CourseClass{ID: "cc1", CourseMoodleID: "7", Administrators: []string{"coord@example.com"}}
	enrollments := stubStudentEnrollments{inputs: map[string]models.SyncInput{"12345678900/cc1": syncInput(models.StatusSent)}}
	return NewStudentStatusService(stubClassFinder{class: class}, enrollments, nil)
}

func TestStudentStatusResolve(t *testing.T) {
	admin := &models.JWTClaims{UserID: "u1", Email: "admin@example.com", Role: models.RoleAdmin}
	coordinator := &models.JWTClaims{UserID: "u2", Email: "coord@example.com", Role: models.RoleCoordinator}
	outsider := &models.JWTClaims{UserID: "u3", Email: "Coord@example.com", Role: models.RoleCoordinator}

	cases := []struct {
		name     string
		cpf      string
		class    string
		caller   *models.JWTClaims
		wantCode string
	}{
		{"anonymous", "12345678900", "cc1", nil, appErrors.ErrUnauthorized.Code},
		{"missing class id", "12345678900", " ", admin, appErrors.ErrValidation.Code},
		{"unknown class", "12345678900", "cc9", admin, appErrors.ErrValidation.Code},
		{"missing cpf", "", "cc1", admin, appErrors.ErrValidation.Code},
		{"not an administrator", "12345678900", "cc1", outsider, appErrors.ErrForbidden.Code},
		{"no enrollment", "00000000000", "cc1", admin, appErrors.ErrNotFound.Code},
		{"global admin", "12345678900", "cc1", admin, ""},
		{"class administrator", "12345678900", "cc1", coordinator, ""},
	}
	svc := newStudentStatusFixture()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input, err := svc.Resolve(context.Background(), tc.cpf, tc.class, tc.caller)
			if tc.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, "e1", input.EnrollmentID)
				return
			}
			assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
		})
	}
}

func TestStudentStatusResolveStorageFailure(t *testing.T) {
	svc := NewStudentStatusService(stubClassFinder{err: errors.New("db down")}, stubStudentEnrollments{}, nil)
	_, err := svc.Resolve(context.Background(), "12345678900", "cc1", &models.JWTClaims{Role: models.RoleAdmin})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
