package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
	"github.com/noah-isme/enrollment-sync-api/internal/repository"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
)

type contentionCounter struct{ count int }

func (c *contentionCounter) ObserveLockContention() { c.count++ }

func TestExclusiveReconcilerReleasesLock(t *testing.T) {
	locker := &fakeLocker{}
	inner := &scriptedReconciler{}
	reconciler := NewExclusiveReconciler(inner, locker, 0, nil, nil)

	outcome, err := reconciler.Reconcile(context.Background(), models.SyncInput{EnrollmentID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, outcome.Code)
	assert.Equal(t, []string{"enrollment-sync:lock:e1"}, locker.released)
}

func TestExclusiveReconcilerRefusesHeldLock(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{"e1": true}}
	inner := &scriptedReconciler{}
	counter := &contentionCounter{}
	reconciler := NewExclusiveReconciler(inner, locker, 0, counter, nil)

	_, err := reconciler.Reconcile(context.Background(), models.SyncInput{EnrollmentID: "e1"})
	assert.ErrorIs(t, err, appErrors.ErrEnrollmentLocked)
	assert.Empty(t, inner.calls)
	assert.Equal(t, 1, counter.count)
}

func TestExclusiveReconcilerLockFailure(t *testing.T) {
	locker := &fakeLocker{acquireErr: errors.New("connection refused")}
	reconciler := NewExclusiveReconciler(&scriptedReconciler{}, locker, 0, nil, nil)

	_, err := reconciler.Reconcile(context.Background(), models.SyncInput{EnrollmentID: "e1"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)
}

func TestExclusiveReconcilerPropagatesStorageError(t *testing.T) {
	locker := &fakeLocker{}
	inner := &scriptedReconciler{errs: map[string]error{"e1": errStorage}}
	reconciler := NewExclusiveReconciler(inner, locker, 0, nil, nil)

	_, err := reconciler.Reconcile(context.Background(), models.SyncInput{EnrollmentID: "e1"})
	assert.ErrorIs(t, err, errStorage)
	assert.Len(t, locker.released, 1)
}

func TestExclusiveReconcilerReloadsInputUnderLock(t *testing.T) {
	store := newMemoryStore()
	store.seed("e1", models.StatusSent, models.StatusConfirmed, models.StatusActive, models.StatusCompleted)
	store.inputs["e1"] = syncInput(models.StatusCompleted)
	remote := &stubRemote{
		users:   []models.RemoteProfile{remoteAna},
		courses: []models.RemoteCourseEnrollment{{CourseExternalID: "7", LastAccess: int64Ptr(1700000000), Progress: float64Ptr(50)}},
	}
	reconciler := NewExclusiveReconciler(newTestSyncService(remote, store, nil), repository.NewLockRepository(nil, nil), time.Minute, nil, nil)

	// listed before another reconciliation completed the enrollment
	listed := syncInput(models.StatusActive)
	outcome, err := reconciler.Reconcile(context.Background(), listed)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, outcome.Code)
	assert.Equal(t, []string{"Completed", "Active"}, outcome.Messages[2:4])
	assert.Equal(t, []models.StatusType{models.StatusCompleted}, store.retracted)
	assert.Equal(t, []models.StatusType{models.StatusSent, models.StatusConfirmed, models.StatusActive}, store.history("e1"))
}

func TestExclusiveReconcilerReloadFailureReleasesLock(t *testing.T) {
	locker := &fakeLocker{}
	inner := &scriptedReconciler{loadErrs: map[string]error{"e1": appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")}}
	reconciler := NewExclusiveReconciler(inner, locker, 0, nil, nil)

	_, err := reconciler.Reconcile(context.Background(), models.SyncInput{EnrollmentID: "e1"})
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
	assert.Empty(t, inner.calls)
	assert.Len(t, locker.released, 1)
}
