package service

import (
	"time"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

// completionThreshold is the progress at which a course counts as completed.
// Moodle may round above 100; anything at or past the threshold is completion.
const completionThreshold = 100.0

// ClassifyStatus derives the canonical status from raw signals. The first matching
// rule wins: completed access, any access, confirmation, otherwise sent.
func ClassifyStatus(confirmedAt *time.Time, access *models.AccessSignal) models.StatusType {
	switch {
	case access != nil && access.Progress >= completionThreshold:
		return models.StatusCompleted
	case access != nil:
		return models.StatusActive
	case confirmedAt != nil:
		return models.StatusConfirmed
	default:
		return models.StatusSent
	}
}
