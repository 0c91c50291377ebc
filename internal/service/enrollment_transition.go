package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

type enrollmentStatusStore interface {
	GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateEnrollmentAccess(ctx context.Context, id string, lastAccess time.Time, progress float64) error
	AppendStatus(ctx context.Context, id string, status models.StatusType, at time.Time) error
	RetractStatus(ctx context.Context, id string, status models.StatusType) error
	ResetToSent(ctx context.Context, id string) error
}

// TransitionApplier turns a (previous, next) status pair into storage instructions
// and the audit messages describing them.
type TransitionApplier struct {
	store  enrollmentStatusStore
	logger *zap.Logger
	now    func() time.Time
}

// NewTransitionApplier constructs TransitionApplier.
func NewTransitionApplier(store enrollmentStatusStore, logger *zap.Logger) *TransitionApplier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransitionApplier{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// NoChangeMessage reports an unchanged status; both names are kept for diagnostics.
func NoChangeMessage(previous, next models.StatusType) string {
	return fmt.Sprintf("No status change (%s -> %s)", previous, next)
}

// ResetWarningMessage is recorded when an enrollment falls back to Sent.
func ResetWarningMessage(previous models.StatusType) string {
	return fmt.Sprintf("Warning: enrollment reset from %s to %s, Moodle reports neither access nor confirmation", previous, models.StatusSent)
}

// Apply records the transition from previous to next. Access/progress are refreshed
// whenever Moodle supplied them, regardless of a status change.
func (a *TransitionApplier) Apply(ctx context.Context, enrollmentID string, previous, next models.StatusType, access *models.AccessSignal) ([]string, error) {
	if next == previous {
		if err := a.refreshAccess(ctx, enrollmentID, access); err != nil {
			return nil, err
		}
		return []string{NoChangeMessage(previous, next)}, nil
	}

	// Sent is only ever classified without access and without confirmation.
	if next == models.StatusSent {
		if err := a.store.ResetToSent(ctx, enrollmentID); err != nil {
			return nil, fmt.Errorf("reset enrollment %s: %w", enrollmentID, err)
		}
		a.logger.Warn("enrollment reset to sent",
			zap.String("enrollment_id", enrollmentID),
			zap.String("previous", previous.String()))
		return []string{previous.String(), next.String(), ResetWarningMessage(previous)}, nil
	}

	if err := a.refreshAccess(ctx, enrollmentID, access); err != nil {
		return nil, err
	}

	if next.Rank() > previous.Rank() {
		if err := a.store.AppendStatus(ctx, enrollmentID, next, a.now()); err != nil {
			return nil, fmt.Errorf("append status %s to enrollment %s: %w", next, enrollmentID, err)
		}
	} else if err := a.regress(ctx, enrollmentID, next); err != nil {
		return nil, err
	}

	return []string{previous.String(), next.String()}, nil
}

// regress retracts every record ranked above next, then makes sure next itself
// is the current status. Sent is never retracted.
func (a *TransitionApplier) regress(ctx context.Context, enrollmentID string, next models.StatusType) error {
	for i := len(models.StatusTypes) - 1; i > next.Rank(); i-- {
		status := models.StatusTypes[i]
		if status == models.StatusSent {
			continue
		}
		if err := a.store.RetractStatus(ctx, enrollmentID, status); err != nil {
			return fmt.Errorf("retract status %s from enrollment %s: %w", status, enrollmentID, err)
		}
	}

	enrollment, err := a.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return fmt.Errorf("reload enrollment %s: %w", enrollmentID, err)
	}
	if !enrollment.HasStatus(next) {
		if err := a.store.AppendStatus(ctx, enrollmentID, next, a.now()); err != nil {
			return fmt.Errorf("append status %s to enrollment %s: %w", next, enrollmentID, err)
		}
	}
	return nil
}

func (a *TransitionApplier) refreshAccess(ctx context.Context, enrollmentID string, access *models.AccessSignal) error {
	if access == nil {
		return nil
	}
	if err := a.store.UpdateEnrollmentAccess(ctx, enrollmentID, access.LastAccess, access.Progress); err != nil {
		return fmt.Errorf("update access of enrollment %s: %w", enrollmentID, err)
	}
	return nil
}
