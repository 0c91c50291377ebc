package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

// Profile reconciliation messages.
const (
	MessageProfileUpdated   = "Student profile updated from Moodle"
	MessageProfileUnchanged = "Student profile already up to date"
)

type studentProfileStore interface {
	UpdateStudentProfile(ctx context.Context, studentID string, fields models.ProfileFields) error
}

// ProfileResult reports what the reconciler did.
type ProfileResult struct {
	Changed bool
	Message string
}

// ProfileReconciler keeps the locally cached profile aligned with Moodle.
type ProfileReconciler struct {
	store studentProfileStore
}

// NewProfileReconciler constructs ProfileReconciler.
func NewProfileReconciler(store studentProfileStore) *ProfileReconciler {
	return &ProfileReconciler{store: store}
}

// Reconcile overwrites every local field with the remote values when any of them
// differs. Comparison is exact and case-sensitive.
func (r *ProfileReconciler) Reconcile(ctx context.Context, studentID string, actual, remote models.ProfileFields) (ProfileResult, error) {
	if actual == remote {
		return ProfileResult{Changed: false, Message: MessageProfileUnchanged}, nil
	}
	if err := r.store.UpdateStudentProfile(ctx, studentID, remote); err != nil {
		return ProfileResult{}, fmt.Errorf("update student %s profile: %w", studentID, err)
	}
	return ProfileResult{Changed: true, Message: MessageProfileUpdated}, nil
}
