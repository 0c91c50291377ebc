package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
	"github.com/noah-isme/enrollment-sync-api/pkg/moodle"
)

// Orchestrator messages.
const (
	MessageIdentifierRequired  = "Student identifier (CPF) is required"
	MessageUserLookupFailed    = "Failed to look up the student in Moodle"
	MessageUserLookupMalformed = "Unexpected Moodle response, expected a collection of users"
	MessageStudentUnknown      = "Student unknown to Moodle"
	MessageStudentAmbiguous    = "Moodle returned more than one user for the given CPF"
	MessageCoursesFailed       = "Failed to fetch the student's Moodle enrollments"
	MessageCoursesMalformed    = "Unexpected Moodle response, expected a collection of courses"
	MessageNotEnrolled         = "Student not enrolled in the Moodle course"
	MessageEnrolled            = "Student enrolled in the Moodle course"
)

type remoteLookup interface {
	FindUsersByIdentifier(ctx context.Context, identifier string) ([]models.RemoteProfile, error)
	FindCoursesForUser(ctx context.Context, userID int64) ([]models.RemoteCourseEnrollment, error)
}

type enrollmentSyncStore interface {
	enrollmentStatusStore
	studentProfileStore
	GetSyncInput(ctx context.Context, enrollmentID string) (*models.SyncInput, error)
}

type outcomeObserver interface {
	ObserveSyncOutcome(code models.OutcomeCode)
}

// EnrollmentSyncService reconciles one stored enrollment against Moodle.
type EnrollmentSyncService struct {
	remote    remoteLookup
	store     enrollmentSyncStore
	applier   *TransitionApplier
	profiles  *ProfileReconciler
	formatter *MessageFormatter
	observer  outcomeObserver
	logger    *zap.Logger
}

// NewEnrollmentSyncService constructs EnrollmentSyncService. observer may be nil.
func NewEnrollmentSyncService(remote remoteLookup, store enrollmentSyncStore, formatter *MessageFormatter, observer outcomeObserver, logger *zap.Logger) *EnrollmentSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if formatter == nil {
		formatter = NewMessageFormatter(nil, "")
	}
	return &EnrollmentSyncService{
		remote:    remote,
		store:     store,
		applier:   NewTransitionApplier(store, logger),
		profiles:  NewProfileReconciler(store),
		formatter: formatter,
		observer:  observer,
		logger:    logger,
	}
}

// LoadInput fetches the reconciliation input of a stored enrollment.
func (s *EnrollmentSyncService) LoadInput(ctx context.Context, enrollmentID string) (*models.SyncInput, error) {
	input, err := s.store.GetSyncInput(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return input, nil
}

// Reconcile runs the full pipeline for one enrollment. Every remote condition ends in
// an Outcome; a non-nil error means the storage collaborator failed.
func (s *EnrollmentSyncService) Reconcile(ctx context.Context, in models.SyncInput) (models.Outcome, error) {
	outcome, err := s.reconcile(ctx, in)
	if err != nil {
		s.logger.Error("enrollment reconciliation aborted",
			zap.String("enrollment_id", in.EnrollmentID),
			zap.Error(err))
		return models.Outcome{}, err
	}
	if s.observer != nil {
		s.observer.ObserveSyncOutcome(outcome.Code)
	}
	s.logger.Info("enrollment reconciled",
		zap.String("enrollment_id", in.EnrollmentID),
		zap.String("code", string(outcome.Code)),
		zap.Strings("messages", outcome.Messages))
	return outcome, nil
}

func (s *EnrollmentSyncService) reconcile(ctx context.Context, in models.SyncInput) (models.Outcome, error) {
	identifier := strings.TrimSpace(in.StudentCPF)
	if identifier == "" {
		return terminal(models.OutcomeBadRequest, MessageIdentifierRequired), nil
	}

	users, err := s.remote.FindUsersByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, moodle.ErrMalformed) {
			return terminal(models.OutcomeUpstreamMalformed, MessageUserLookupMalformed), nil
		}
		return terminal(models.OutcomeUpstreamUnavailable, MessageUserLookupFailed), nil
	}
	switch {
	case len(users) == 0:
		return terminal(models.OutcomeNotFoundRemote, MessageStudentUnknown), nil
	case len(users) > 1:
		return terminal(models.OutcomeAmbiguousRemote, MessageStudentAmbiguous), nil
	}
	user := users[0]

	profile, err := s.profiles.Reconcile(ctx, in.StudentID, in.Profile(), user.Fields())
	if err != nil {
		return models.Outcome{}, err
	}
	trail := []string{profile.Message}

	courses, err := s.remote.FindCoursesForUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, moodle.ErrMalformed) {
			return terminal(models.OutcomeUpstreamMalformed, MessageCoursesMalformed, trail...), nil
		}
		return terminal(models.OutcomeUpstreamUnavailable, MessageCoursesFailed, trail...), nil
	}

	course, found := findCourse(courses, in.CourseMoodleID)
	if !found {
		if err := s.store.ResetToSent(ctx, in.EnrollmentID); err != nil {
			return models.Outcome{}, fmt.Errorf("reset enrollment %s: %w", in.EnrollmentID, err)
		}
		return terminal(models.OutcomeNotEnrolled, MessageNotEnrolled, append([]string{notEnrolledTransition(in.LastStatusType)}, trail...)...), nil
	}

	access := course.Access()
	next := ClassifyStatus(in.ConfirmedAt, access)
	transition, err := s.applier.Apply(ctx, in.EnrollmentID, in.LastStatusType, next, access)
	if err != nil {
		return models.Outcome{}, err
	}
	trail = append(trail, transition...)
	if access != nil {
		trail = append(trail, fmt.Sprintf("Last access at %s, progress %s",
			s.formatter.Time(access.LastAccess), s.formatter.Percent(access.Progress)))
	}

	outcome := terminal(models.OutcomeSuccess, MessageEnrolled, trail...)
	outcome.LastAccess = course.LastAccess
	outcome.Progress = course.Progress
	return outcome, nil
}

func terminal(code models.OutcomeCode, headline string, trail ...string) models.Outcome {
	messages := make([]string, 0, len(trail)+1)
	messages = append(messages, headline)
	messages = append(messages, trail...)
	return models.Outcome{Code: code, Messages: messages}
}

func notEnrolledTransition(previous models.StatusType) string {
	if previous == models.StatusSent {
		return fmt.Sprintf("Status remains %s", models.StatusSent)
	}
	return fmt.Sprintf("Status changed from %s to %s", previous, models.StatusSent)
}

func findCourse(courses []models.RemoteCourseEnrollment, moodleID string) (models.RemoteCourseEnrollment, bool) {
	moodleID = strings.TrimSpace(moodleID)
	if moodleID == "" {
		return models.RemoteCourseEnrollment{}, false
	}
	for _, course := range courses {
		if course.CourseExternalID == moodleID {
			return course, true
		}
	}
	return models.RemoteCourseEnrollment{}, false
}
