package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
	"github.com/noah-isme/enrollment-sync-api/pkg/jobs"
)

func batchInputs(ids ...string) []models.SyncInput {
	inputs := make([]models.SyncInput, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, models.SyncInput{EnrollmentID: id, StudentCPF: "cpf-" + id})
	}
	return inputs
}

func TestRunNowTalliesResults(t *testing.T) {
	runs := newMemoryRunStore()
	lister := &staticLister{inputs: batchInputs("e1", "e2", "e3", "e4")}
	lastAccess := int64(1700000000)
	progress := 40.0
	reconciler := &scriptedReconciler{
		outcomes: map[string]models.Outcome{
			"e1": {Code: models.OutcomeSuccess, Messages: []string{MessageEnrolled, "Confirmed", "Active"}, LastAccess: &lastAccess, Progress: &progress},
			"e2": {Code: models.OutcomeNotEnrolled, Messages: []string{MessageNotEnrolled}},
		},
		errs: map[string]error{
			"e3": appErrors.ErrEnrollmentLocked,
			"e4": errStorage,
		},
	}
	svc := NewSyncBatchService(lister, runs, reconciler, nil, nil, nil, SyncBatchServiceConfig{Workers: 2})

	var mu sync.Mutex
	var sunk []string
	run, err := svc.RunNow(context.Background(), StartRunRequest{Trigger: models.SyncTriggerCLI, CourseClassID: "cc1"}, 3, func(r models.SyncRunResult) {
		mu.Lock()
		sunk = append(sunk, r.EnrollmentID)
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, models.SyncRunFinished, run.Status)
	assert.Equal(t, 4, run.Total)
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 2, run.Failed)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, "cc1", lister.filter.CourseClassID)

	sort.Strings(sunk)
	assert.Equal(t, []string{"e1", "e2", "e3", "e4"}, sunk)

	stored, err := runs.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunFinished, stored.Status)
	assert.Equal(t, 1, stored.Skipped)

	results, err := svc.ListResults(context.Background(), run.ID)
	require.NoError(t, err)
	byID := map[string]models.SyncRunResult{}
	for _, r := range results {
		byID[r.EnrollmentID] = r
	}
	assert.Equal(t, "SUCCESS", byID["e1"].Code)
	assert.Equal(t, &lastAccess, byID["e1"].LastAccess)
	assert.Equal(t, models.ResultCodeSkipped, byID["e3"].Code)
	assert.Equal(t, models.ResultCodeFailed, byID["e4"].Code)
	assert.Equal(t, []string{"db down"}, []string(byID["e4"].Messages))
}

func TestRunNowListingFailure(t *testing.T) {
	runs := newMemoryRunStore()
	svc := NewSyncBatchService(&staticLister{err: errors.New("timeout")}, runs, &scriptedReconciler{}, nil, nil, nil, SyncBatchServiceConfig{})

	_, err := svc.RunNow(context.Background(), StartRunRequest{}, 1, nil)
	require.Error(t, err)
	for _, run := range runs.runs {
		assert.Equal(t, models.SyncRunFailed, run.Status)
		assert.Equal(t, models.SyncTriggerManual, run.Trigger)
	}
}

func TestStartRunEnqueuesAndHandleExecutes(t *testing.T) {
	runs := newMemoryRunStore()
	queue := &recordingQueue{}
	reconciler := &scriptedReconciler{}
	svc := NewSyncBatchService(&staticLister{inputs: batchInputs("e1", "e2")}, runs, reconciler, queue, nil, nil, SyncBatchServiceConfig{Workers: 2})

	run, err := svc.StartRun(context.Background(), StartRunRequest{Trigger: models.SyncTriggerManual, CreatedBy: "u1"})
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, jobs.Job{ID: run.ID, Type: JobTypeSyncRun}, queue.jobs[0])
	assert.Equal(t, "u1", *run.CreatedBy)

	require.NoError(t, svc.Handle(context.Background(), queue.jobs[0]))
	stored, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunFinished, stored.Status)
	assert.Equal(t, 2, stored.Succeeded)

	// a replayed job must not run the batch twice
	require.NoError(t, svc.Handle(context.Background(), queue.jobs[0]))
	assert.Len(t, reconciler.calls, 2)
}

func TestStartRunEnqueueFailureMarksRunFailed(t *testing.T) {
	runs := newMemoryRunStore()
	svc := NewSyncBatchService(&staticLister{}, runs, &scriptedReconciler{}, &recordingQueue{err: errors.New("queue stopped")}, nil, nil, SyncBatchServiceConfig{})

	_, err := svc.StartRun(context.Background(), StartRunRequest{})
	require.Error(t, err)
	require.Len(t, runs.runs, 1)
	for _, run := range runs.runs {
		assert.Equal(t, models.SyncRunFailed, run.Status)
	}
}

func TestGetRunNotFound(t *testing.T) {
	svc := NewSyncBatchService(&staticLister{}, newMemoryRunStore(), &scriptedReconciler{}, nil, nil, nil, SyncBatchServiceConfig{})
	_, err := svc.GetRun(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecoverInterruptedFailsUnfinishedRuns(t *testing.T) {
	runs := newMemoryRunStore()
	require.NoError(t, runs.Create(context.Background(), &models.SyncRun{ID: "r1", Status: models.SyncRunProcessing}))
	require.NoError(t, runs.Create(context.Background(), &models.SyncRun{ID: "r2", Status: models.SyncRunFinished}))
	svc := NewSyncBatchService(&staticLister{}, runs, &scriptedReconciler{}, nil, nil, nil, SyncBatchServiceConfig{})

	svc.RecoverInterrupted(context.Background())
	assert.Equal(t, int64(1), runs.failed)
	assert.Equal(t, models.SyncRunFinished, runs.runs["r2"].Status)
}

func TestRunNowCanceledContext(t *testing.T) {
	runs := newMemoryRunStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewSyncBatchService(&staticLister{inputs: batchInputs("e1", "e2", "e3")}, runs, &scriptedReconciler{}, nil, nil, nil, SyncBatchServiceConfig{})

	run, err := svc.RunNow(ctx, StartRunRequest{}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunFailed, run.Status)
	require.NotNil(t, run.ErrorMessage)
}

func TestHandleMissingRunIsPermanent(t *testing.T) {
	svc := NewSyncBatchService(&staticLister{}, newMemoryRunStore(), &scriptedReconciler{}, nil, nil, nil, SyncBatchServiceConfig{})
	err := svc.Handle(context.Background(), jobs.Job{ID: "missing", Type: JobTypeSyncRun})
	assert.True(t, jobs.IsPermanent(err))
}
