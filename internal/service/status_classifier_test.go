package service

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

func TestClassifyStatusTable(t *testing.T) {
	confirmed := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	seen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		confirmedAt *time.Time
		access      *models.AccessSignal
		want        models.StatusType
	}{
		{"nothing", nil, nil, models.StatusSent},
		{"confirmed only", &confirmed, nil, models.StatusConfirmed},
		{"access in progress", &confirmed, &models.AccessSignal{LastAccess: seen, Progress: 40}, models.StatusActive},
		{"access without confirmation", nil, &models.AccessSignal{LastAccess: seen, Progress: 0}, models.StatusActive},
		{"exactly complete", nil, &models.AccessSignal{LastAccess: seen, Progress: 100}, models.StatusCompleted},
		{"rounded past complete", &confirmed, &models.AccessSignal{LastAccess: seen, Progress: 100.4}, models.StatusCompleted},
		{"just below complete", nil, &models.AccessSignal{LastAccess: seen, Progress: 99.99}, models.StatusActive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyStatus(tc.confirmedAt, tc.access))
		})
	}
}

func TestClassifyStatusIgnoresHalfAccess(t *testing.T) {
	// lastaccess without progress is missing data, not activity
	course := models.RemoteCourseEnrollment{CourseExternalID: "7", LastAccess: int64Ptr(1700000000)}
	assert.Equal(t, models.StatusSent, ClassifyStatus(nil, course.Access()))

	course = models.RemoteCourseEnrollment{CourseExternalID: "7", Progress: float64Ptr(100)}
	assert.Equal(t, models.StatusSent, ClassifyStatus(nil, course.Access()))
}

func TestClassifyStatusProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	at := func(sec int64) time.Time { return time.Unix(sec, 0).UTC() }
	confirmation := func(present bool, sec int64) *time.Time {
		if !present {
			return nil
		}
		ts := at(sec)
		return &ts
	}

	properties.Property("completed when accessed at or beyond 100%", prop.ForAll(
		func(progress float64, sec int64, confirmed bool) bool {
			access := &models.AccessSignal{LastAccess: at(sec), Progress: progress}
			return ClassifyStatus(confirmation(confirmed, sec), access) == models.StatusCompleted
		},
		gen.Float64Range(100, 1000),
		gen.Int64Range(1, 2000000000),
		gen.Bool(),
	))

	properties.Property("active when accessed below 100%", prop.ForAll(
		func(progress float64, sec int64, confirmed bool) bool {
			if progress >= 100 {
				return true
			}
			access := &models.AccessSignal{LastAccess: at(sec), Progress: progress}
			return ClassifyStatus(confirmation(confirmed, sec), access) == models.StatusActive
		},
		gen.Float64Range(0, 99.999),
		gen.Int64Range(1, 2000000000),
		gen.Bool(),
	))

	properties.Property("confirmed without access", prop.ForAll(
		func(sec int64) bool {
			return ClassifyStatus(confirmation(true, sec), nil) == models.StatusConfirmed
		},
		gen.Int64Range(0, 2000000000),
	))

	properties.Property("classification is deterministic", prop.ForAll(
		func(progress float64, sec int64, confirmed, accessed bool) bool {
			var access *models.AccessSignal
			if accessed {
				access = &models.AccessSignal{LastAccess: at(sec), Progress: progress}
			}
			first := ClassifyStatus(confirmation(confirmed, sec), access)
			second := ClassifyStatus(confirmation(confirmed, sec), access)
			return first == second && first.Rank() >= 0
		},
		gen.Float64Range(0, 150),
		gen.Int64Range(1, 2000000000),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)

	assert.Equal(t, models.StatusSent, ClassifyStatus(nil, nil))
}
