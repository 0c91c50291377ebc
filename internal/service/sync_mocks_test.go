package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

type accessUpdate struct {
	LastAccess time.Time
	Progress   float64
}

// memoryEnrollmentStore is an in-memory stand-in for the enrollment repository.
type memoryEnrollmentStore struct {
	mu          sync.Mutex
	enrollments map[string]*models.Enrollment
	inputs      map[string]models.SyncInput
	profiles    map[string]models.ProfileFields

	accessUpdates []accessUpdate
	appended      []models.StatusType
	retracted     []models.StatusType
	resets        []string
	writes        int
	failWith      error
}

func newMemoryStore() *memoryEnrollmentStore {
	return &memoryEnrollmentStore{
		enrollments: map[string]*models.Enrollment{},
		inputs:      map[string]models.SyncInput{},
		profiles:    map[string]models.ProfileFields{},
	}
}

func (m *memoryEnrollmentStore) seed(id string, history ...models.StatusType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	enrollment := &models.Enrollment{ID: id, CreatedAt: base}
	for i, status := range history {
		enrollment.StatusHistory = append(enrollment.StatusHistory, models.StatusRecord{
			EnrollmentID: id,
			Type:         status,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		})
	}
	m.enrollments[id] = enrollment
}

func (m *memoryEnrollmentStore) history(id string) []models.StatusType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []models.StatusType
	if e, ok := m.enrollments[id]; ok {
		for _, r := range e.StatusHistory {
			types = append(types, r.Type)
		}
	}
	return types
}

func (m *memoryEnrollmentStore) GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *e
	clone.StatusHistory = append([]models.StatusRecord(nil), e.StatusHistory...)
	return &clone, nil
}

func (m *memoryEnrollmentStore) GetSyncInput(ctx context.Context, enrollmentID string) (*models.SyncInput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.inputs[enrollmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &in, nil
}

func (m *memoryEnrollmentStore) UpdateEnrollmentAccess(ctx context.Context, id string, lastAccess time.Time, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.writes++
	m.accessUpdates = append(m.accessUpdates, accessUpdate{LastAccess: lastAccess, Progress: progress})
	if e, ok := m.enrollments[id]; ok {
		ts := lastAccess
		e.LastAccessAt = &ts
		e.Progress = progress
	}
	return nil
}

func (m *memoryEnrollmentStore) AppendStatus(ctx context.Context, id string, status models.StatusType, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.writes++
	m.appended = append(m.appended, status)
	if e, ok := m.enrollments[id]; ok {
		e.StatusHistory = append(e.StatusHistory, models.StatusRecord{EnrollmentID: id, Type: status, CreatedAt: at})
		sort.SliceStable(e.StatusHistory, func(i, j int) bool {
			return e.StatusHistory[i].CreatedAt.Before(e.StatusHistory[j].CreatedAt)
		})
	}
	return nil
}

func (m *memoryEnrollmentStore) RetractStatus(ctx context.Context, id string, status models.StatusType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.writes++
	m.retracted = append(m.retracted, status)
	if e, ok := m.enrollments[id]; ok {
		kept := e.StatusHistory[:0]
		for _, r := range e.StatusHistory {
			if r.Type != status {
				kept = append(kept, r)
			}
		}
		e.StatusHistory = kept
	}
	return nil
}

func (m *memoryEnrollmentStore) ResetToSent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.writes++
	m.resets = append(m.resets, id)
	if e, ok := m.enrollments[id]; ok {
		kept := e.StatusHistory[:0]
		for _, r := range e.StatusHistory {
			if r.Type == models.StatusSent {
				kept = append(kept, r)
			}
		}
		e.StatusHistory = kept
		e.LastAccessAt = nil
		e.Progress = 0
	}
	return nil
}

func (m *memoryEnrollmentStore) UpdateStudentProfile(ctx context.Context, studentID string, fields models.ProfileFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.writes++
	m.profiles[studentID] = fields
	return nil
}

// stubRemote is a scripted Moodle lookup.
type stubRemote struct {
	users      []models.RemoteProfile
	usersErr   error
	courses    []models.RemoteCourseEnrollment
	coursesErr error

	userCalls   int
	courseCalls int
}

func (s *stubRemote) FindUsersByIdentifier(ctx context.Context, identifier string) ([]models.RemoteProfile, error) {
	s.userCalls++
	return s.users, s.usersErr
}

func (s *stubRemote) FindCoursesForUser(ctx context.Context, userID int64) ([]models.RemoteCourseEnrollment, error) {
	s.courseCalls++
	return s.courses, s.coursesErr
}

type countingObserver struct {
	codes []models.OutcomeCode
}

func (c *countingObserver) ObserveSyncOutcome(code models.OutcomeCode) {
	c.codes = append(c.codes, code)
}

func int64Ptr(v int64) *int64 { return &v }

func float64Ptr(v float64) *float64 { return &v }
