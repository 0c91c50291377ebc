package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
	"github.com/noah-isme/enrollment-sync-api/internal/repository"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
	"github.com/noah-isme/enrollment-sync-api/pkg/jobs"
)

// JobTypeSyncRun tags queue jobs that execute a batch run.
const JobTypeSyncRun = "enrollment-sync-run"

const interruptedRunMessage = "run interrupted by service restart"

type syncInputLister interface {
	ListSyncInputs(ctx context.Context, filter models.EnrollmentFilter) ([]models.SyncInput, error)
}

type syncRunStore interface {
	Create(ctx context.Context, run *models.SyncRun) error
	GetByID(ctx context.Context, id string) (*models.SyncRun, error)
	Update(ctx context.Context, id string, params repository.UpdateSyncRunParams) error
	FailUnfinished(ctx context.Context, reason string, at time.Time) (int64, error)
	AddResult(ctx context.Context, result *models.SyncRunResult) error
	ListResults(ctx context.Context, runID string) ([]models.SyncRunResult, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type runObserver interface {
	ObserveSyncRun(trigger models.SyncTrigger, status models.SyncRunStatus, duration time.Duration)
}

// ResultSink receives every result as soon as it is recorded.
type ResultSink func(result models.SyncRunResult)

// StartRunRequest describes a batch run to create.
type StartRunRequest struct {
	Trigger       models.SyncTrigger
	CourseClassID string
	CreatedBy     string
}

// SyncBatchServiceConfig tunes batch execution.
type SyncBatchServiceConfig struct {
	Workers int
}

// SyncBatchService reconciles many enrollments as one tracked run.
type SyncBatchService struct {
	inputs     syncInputLister
	runs       syncRunStore
	reconciler enrollmentReconciler
	queue      jobDispatcher
	observer   runObserver
	logger     *zap.Logger
	workers    int
	now        func() time.Time
}

// NewSyncBatchService constructs the batch service. queue and observer may be nil.
func NewSyncBatchService(inputs syncInputLister, runs syncRunStore, reconciler enrollmentReconciler, queue jobDispatcher, observer runObserver, logger *zap.Logger, cfg SyncBatchServiceConfig) *SyncBatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &SyncBatchService{
		inputs:     inputs,
		runs:       runs,
		reconciler: reconciler,
		queue:      queue,
		observer:   observer,
		logger:     logger,
		workers:    cfg.Workers,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetQueue attaches the dispatcher once the queue has been built around Handle.
func (s *SyncBatchService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// StartRun persists a queued run and hands it to the background queue.
func (s *SyncBatchService) StartRun(ctx context.Context, req StartRunRequest) (*models.SyncRun, error) {
	if s.queue == nil {
		return nil, appErrors.Wrap(errors.New("queue not configured"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "batch queue unavailable")
	}
	run, err := s.createRun(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: JobTypeSyncRun}); err != nil {
		s.markFailed(ctx, run.ID, "failed to enqueue run")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue sync run")
	}
	s.logger.Info("sync run queued",
		zap.String("run_id", run.ID),
		zap.String("trigger", string(run.Trigger)))
	return run, nil
}

// RunNow creates a run and executes it in the calling goroutine.
func (s *SyncBatchService) RunNow(ctx context.Context, req StartRunRequest, workers int, sink ResultSink) (*models.SyncRun, error) {
	run, err := s.createRun(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, run, workers, sink)
}

// Handle is the queue handler for JobTypeSyncRun jobs.
func (s *SyncBatchService) Handle(ctx context.Context, job jobs.Job) error {
	run, err := s.runs.GetByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jobs.Permanent(err)
		}
		return err
	}
	if run.Status != models.SyncRunQueued {
		s.logger.Warn("skipping sync run not in queued state",
			zap.String("run_id", run.ID),
			zap.String("status", string(run.Status)))
		return nil
	}
	_, err = s.execute(ctx, run, s.workers, nil)
	return err
}

// GetRun returns a run summary.
func (s *SyncBatchService) GetRun(ctx context.Context, id string) (*models.SyncRun, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sync run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sync run")
	}
	return run, nil
}

// ListResults returns the per-enrollment results of an existing run.
func (s *SyncBatchService) ListResults(ctx context.Context, runID string) ([]models.SyncRunResult, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	results, err := s.runs.ListResults(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sync run results")
	}
	return results, nil
}

// RecoverInterrupted fails runs left queued or processing by a previous process.
func (s *SyncBatchService) RecoverInterrupted(ctx context.Context) {
	affected, err := s.runs.FailUnfinished(ctx, interruptedRunMessage, s.now())
	if err != nil {
		s.logger.Warn("failed to recover interrupted sync runs", zap.Error(err))
		return
	}
	if affected > 0 {
		s.logger.Info("marked interrupted sync runs as failed", zap.Int64("runs", affected))
	}
}

func (s *SyncBatchService) createRun(ctx context.Context, req StartRunRequest) (*models.SyncRun, error) {
	if req.Trigger == "" {
		req.Trigger = models.SyncTriggerManual
	}
	run := &models.SyncRun{Trigger: req.Trigger, Status: models.SyncRunQueued}
	if req.CourseClassID != "" {
		courseClassID := req.CourseClassID
		run.CourseClassID = &courseClassID
	}
	if req.CreatedBy != "" {
		createdBy := req.CreatedBy
		run.CreatedBy = &createdBy
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sync run")
	}
	return run, nil
}

type runTally struct {
	mu        sync.Mutex
	succeeded int
	failed    int
	skipped   int
}

func (t *runTally) add(result models.SyncRunResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch result.Code {
	case string(models.OutcomeSuccess):
		t.succeeded++
	case models.ResultCodeSkipped:
		t.skipped++
	default:
		t.failed++
	}
}

func (s *SyncBatchService) execute(ctx context.Context, run *models.SyncRun, workers int, sink ResultSink) (*models.SyncRun, error) {
	started := time.Now()
	filter := models.EnrollmentFilter{}
	if run.CourseClassID != nil {
		filter.CourseClassID = *run.CourseClassID
	}

	inputs, err := s.inputs.ListSyncInputs(ctx, filter)
	if err != nil {
		s.markFailed(ctx, run.ID, "failed to list enrollments")
		s.observe(run.Trigger, models.SyncRunFailed, started)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	processing := models.SyncRunProcessing
	total := len(inputs)
	if err := s.runs.Update(ctx, run.ID, repository.UpdateSyncRunParams{Status: &processing, Total: &total}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start sync run")
	}
	s.logger.Info("sync run started",
		zap.String("run_id", run.ID),
		zap.Int("enrollments", total),
		zap.Int("workers", workers))

	if workers <= 0 {
		workers = 1
	}
	tally := &runTally{}
	var sinkMu sync.Mutex
	feed := make(chan models.SyncInput)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range feed {
				result := s.reconcileOne(ctx, run.ID, in)
				if err := s.runs.AddResult(ctx, &result); err != nil {
					s.logger.Error("failed to record sync result",
						zap.String("run_id", run.ID),
						zap.String("enrollment_id", in.EnrollmentID),
						zap.Error(err))
				}
				tally.add(result)
				if sink != nil {
					sinkMu.Lock()
					sink(result)
					sinkMu.Unlock()
				}
			}
		}()
	}

dispatch:
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			break dispatch
		case feed <- in:
		}
	}
	close(feed)
	wg.Wait()

	status := models.SyncRunFinished
	var errorMessage *string
	if ctx.Err() != nil {
		status = models.SyncRunFailed
		msg := "run canceled before all enrollments were processed"
		errorMessage = &msg
	}
	finishedAt := s.now()
	// a canceled ctx must not prevent the final bookkeeping
	finalizeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.runs.Update(finalizeCtx, run.ID, repository.UpdateSyncRunParams{
		Status:       &status,
		Succeeded:    &tally.succeeded,
		Failed:       &tally.failed,
		Skipped:      &tally.skipped,
		ErrorMessage: errorMessage,
		FinishedAt:   &finishedAt,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize sync run")
	}
	s.observe(run.Trigger, status, started)
	s.logger.Info("sync run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(status)),
		zap.Int("succeeded", tally.succeeded),
		zap.Int("failed", tally.failed),
		zap.Int("skipped", tally.skipped),
		zap.Duration("elapsed", time.Since(started)))

	finished := *run
	finished.Status = status
	finished.Total = total
	finished.Succeeded = tally.succeeded
	finished.Failed = tally.failed
	finished.Skipped = tally.skipped
	finished.ErrorMessage = errorMessage
	finished.FinishedAt = &finishedAt
	return &finished, nil
}

func (s *SyncBatchService) reconcileOne(ctx context.Context, runID string, in models.SyncInput) models.SyncRunResult {
	result := models.SyncRunResult{RunID: runID, EnrollmentID: in.EnrollmentID, StudentCPF: in.StudentCPF, Messages: pq.StringArray{}}
	outcome, err := s.reconciler.Reconcile(ctx, in)
	if err != nil {
		if errors.Is(err, appErrors.ErrEnrollmentLocked) {
			result.Code = models.ResultCodeSkipped
			result.Messages = pq.StringArray{appErrors.ErrEnrollmentLocked.Message}
			return result
		}
		result.Code = models.ResultCodeFailed
		result.Messages = pq.StringArray{err.Error()}
		return result
	}
	result.Code = string(outcome.Code)
	result.Messages = pq.StringArray(outcome.Messages)
	result.LastAccess = outcome.LastAccess
	result.Progress = outcome.Progress
	return result
}

func (s *SyncBatchService) markFailed(ctx context.Context, runID, message string) {
	failed := models.SyncRunFailed
	now := s.now()
	if err := s.runs.Update(ctx, runID, repository.UpdateSyncRunParams{Status: &failed, ErrorMessage: &message, FinishedAt: &now}); err != nil {
		s.logger.Warn("failed to mark sync run failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (s *SyncBatchService) observe(trigger models.SyncTrigger, status models.SyncRunStatus, started time.Time) {
	if s.observer != nil {
		s.observer.ObserveSyncRun(trigger, status, time.Since(started))
	}
}
