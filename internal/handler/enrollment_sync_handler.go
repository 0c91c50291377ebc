package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-sync-api/internal/dto"
	"github.com/noah-isme/enrollment-sync-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
	"github.com/noah-isme/enrollment-sync-api/pkg/response"
)

type enrollmentInputLoader interface {
	LoadInput(ctx context.Context, enrollmentID string) (*models.SyncInput, error)
}

type studentEnrollmentResolver interface {
	Resolve(ctx context.Context, cpf, courseClassID string, caller *models.JWTClaims) (*models.SyncInput, error)
}

type enrollmentReconciler interface {
	Reconcile(ctx context.Context, in models.SyncInput) (models.Outcome, error)
}

// EnrollmentSyncHandler reconciles single enrollments on demand.
type EnrollmentSyncHandler struct {
	inputs     enrollmentInputLoader
	students   studentEnrollmentResolver
	reconciler enrollmentReconciler
}

// NewEnrollmentSyncHandler constructs the handler. reconciler should hold the enrollment lock.
func NewEnrollmentSyncHandler(inputs enrollmentInputLoader, students studentEnrollmentResolver, reconciler enrollmentReconciler) *EnrollmentSyncHandler {
	return &EnrollmentSyncHandler{inputs: inputs, students: students, reconciler: reconciler}
}

// Sync godoc
// @Summary Reconcile an enrollment with Moodle
// @Description Pulls the student's Moodle state, updates the enrollment status trail and returns the audit messages.
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /enrollments/{id}/sync [post]
func (h *EnrollmentSyncHandler) Sync(c *gin.Context) {
	input, err := h.inputs.LoadInput(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.reconcile(c, *input)
}

// StudentStatus godoc
// @Summary Reconcile a student's enrollment in a course class
// @Description Allowed for global administrators and administrators of the course class.
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param cpf path string true "Student CPF"
// @Param course_id query string true "Course class ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /students/{cpf}/enrollment-status [get]
func (h *EnrollmentSyncHandler) StudentStatus(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var query dto.StudentStatusQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	input, err := h.students.Resolve(c.Request.Context(), c.Param("cpf"), query.CourseID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.reconcile(c, *input)
}

func (h *EnrollmentSyncHandler) reconcile(c *gin.Context, input models.SyncInput) {
	outcome, err := h.reconciler.Reconcile(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, outcome.Code.HTTPStatus(), outcome, nil, map[string]interface{}{
		"enrollment_id": input.EnrollmentID,
	})
}
