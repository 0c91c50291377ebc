package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
	"github.com/noah-isme/enrollment-sync-api/internal/repository"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
)

type enrollmentLocker interface {
	Acquire(ctx context.Context, enrollmentID string, ttl time.Duration) (*repository.Lock, bool, error)
	Release(ctx context.Context, lock *repository.Lock) error
}

type enrollmentReconciler interface {
	Reconcile(ctx context.Context, in models.SyncInput) (models.Outcome, error)
}

type lockedReconciler interface {
	enrollmentReconciler
	LoadInput(ctx context.Context, enrollmentID string) (*models.SyncInput, error)
}

type contentionObserver interface {
	ObserveLockContention()
}

// ExclusiveReconciler holds the enrollment lock for the duration of a reconciliation,
// so two callers never interleave writes to the same history. The input is reloaded
// once the lock is held; only the enrollment id of the caller's input is trusted.
type ExclusiveReconciler struct {
	inner    lockedReconciler
	locker   enrollmentLocker
	ttl      time.Duration
	observer contentionObserver
	logger   *zap.Logger
}

// NewExclusiveReconciler constructs an ExclusiveReconciler. observer may be nil.
func NewExclusiveReconciler(inner lockedReconciler, locker enrollmentLocker, ttl time.Duration, observer contentionObserver, logger *zap.Logger) *ExclusiveReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &ExclusiveReconciler{inner: inner, locker: locker, ttl: ttl, observer: observer, logger: logger}
}

// Reconcile returns ErrEnrollmentLocked when another reconciliation owns the enrollment.
func (r *ExclusiveReconciler) Reconcile(ctx context.Context, in models.SyncInput) (models.Outcome, error) {
	lock, acquired, err := r.locker.Acquire(ctx, in.EnrollmentID, r.ttl)
	if err != nil {
		return models.Outcome{}, appErrors.Wrap(err, appErrors.ErrLockUnavailable.Code, appErrors.ErrLockUnavailable.Status, appErrors.ErrLockUnavailable.Message)
	}
	if !acquired {
		if r.observer != nil {
			r.observer.ObserveLockContention()
		}
		return models.Outcome{}, appErrors.ErrEnrollmentLocked
	}
	defer func() {
		// release must not depend on the caller's context, which may already be canceled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.locker.Release(releaseCtx, lock); err != nil {
			r.logger.Warn("failed to release enrollment lock",
				zap.String("enrollment_id", in.EnrollmentID),
				zap.Error(err))
		}
	}()

	current, err := r.inner.LoadInput(ctx, in.EnrollmentID)
	if err != nil {
		return models.Outcome{}, err
	}
	if current.LastStatusType != in.LastStatusType {
		r.logger.Debug("enrollment status moved before lock",
			zap.String("enrollment_id", in.EnrollmentID),
			zap.String("listed", in.LastStatusType.String()),
			zap.String("current", current.LastStatusType.String()))
	}
	return r.inner.Reconcile(ctx, *current)
}
