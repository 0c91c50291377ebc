package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
	"github.com/noah-isme/enrollment-sync-api/internal/repository"
	"github.com/noah-isme/enrollment-sync-api/pkg/jobs"
)

type memoryRunStore struct {
	mu      sync.Mutex
	runs    map[string]*models.SyncRun
	results map[string][]models.SyncRunResult
	failed  int64
}

func newMemoryRunStore() *memoryRunStore {
	return &memoryRunStore{runs: map[string]*models.SyncRun{}, results: map[string][]models.SyncRunResult{}}
}

func (m *memoryRunStore) Create(ctx context.Context, run *models.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	clone := *run
	m.runs[run.ID] = &clone
	return nil
}

func (m *memoryRunStore) GetByID(ctx context.Context, id string) (*models.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *run
	return &clone, nil
}

func (m *memoryRunStore) Update(ctx context.Context, id string, params repository.UpdateSyncRunParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		run.Status = *params.Status
	}
	if params.Total != nil {
		run.Total = *params.Total
	}
	if params.Succeeded != nil {
		run.Succeeded = *params.Succeeded
	}
	if params.Failed != nil {
		run.Failed = *params.Failed
	}
	if params.Skipped != nil {
		run.Skipped = *params.Skipped
	}
	if params.ErrorMessage != nil {
		msg := *params.ErrorMessage
		run.ErrorMessage = &msg
	}
	if params.FinishedAt != nil {
		ts := *params.FinishedAt
		run.FinishedAt = &ts
	}
	return nil
}

func (m *memoryRunStore) FailUnfinished(ctx context.Context, reason string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected int64
	for _, run := range m.runs {
		if run.Status == models.SyncRunQueued || run.Status == models.SyncRunProcessing {
			run.Status = models.SyncRunFailed
			msg := reason
			run.ErrorMessage = &msg
			affected++
		}
	}
	m.failed += affected
	return affected, nil
}

func (m *memoryRunStore) AddResult(ctx context.Context, result *models.SyncRunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.RunID] = append(m.results[result.RunID], *result)
	return nil
}

func (m *memoryRunStore) ListResults(ctx context.Context, runID string) ([]models.SyncRunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SyncRunResult(nil), m.results[runID]...), nil
}

type staticLister struct {
	inputs []models.SyncInput
	err    error
	filter models.EnrollmentFilter
}

func (s *staticLister) ListSyncInputs(ctx context.Context, filter models.EnrollmentFilter) ([]models.SyncInput, error) {
	s.filter = filter
	return s.inputs, s.err
}

// scriptedReconciler returns a fixed outcome or error per enrollment id.
type scriptedReconciler struct {
	mu       sync.Mutex
	outcomes map[string]models.Outcome
	errs     map[string]error
	loadErrs map[string]error
	calls    []string
}

func (s *scriptedReconciler) Reconcile(ctx context.Context, in models.SyncInput) (models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, in.EnrollmentID)
	if err, ok := s.errs[in.EnrollmentID]; ok {
		return models.Outcome{}, err
	}
	if outcome, ok := s.outcomes[in.EnrollmentID]; ok {
		return outcome, nil
	}
	return models.Outcome{Code: models.OutcomeSuccess, Messages: []string{MessageEnrolled}}, nil
}

func (s *scriptedReconciler) LoadInput(ctx context.Context, enrollmentID string) (*models.SyncInput, error) {
	if err, ok := s.loadErrs[enrollmentID]; ok {
		return nil, err
	}
	return &models.SyncInput{EnrollmentID: enrollmentID}, nil
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type fakeLocker struct {
	held       map[string]bool
	acquireErr error
	released   []string
}

func (f *fakeLocker) Acquire(ctx context.Context, enrollmentID string, ttl time.Duration) (*repository.Lock, bool, error) {
	if f.acquireErr != nil {
		return nil, false, f.acquireErr
	}
	if f.held[enrollmentID] {
		return nil, false, nil
	}
	return &repository.Lock{Key: repository.LockKey(enrollmentID), Token: "t"}, true, nil
}

func (f *fakeLocker) Release(ctx context.Context, lock *repository.Lock) error {
	f.released = append(f.released, lock.Key)
	return nil
}

var errStorage = errors.New("db down")
