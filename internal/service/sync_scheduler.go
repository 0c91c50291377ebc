package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

type runStarter interface {
	StartRun(ctx context.Context, req StartRunRequest) (*models.SyncRun, error)
}

// SyncScheduler queues a full batch run on a cron schedule.
type SyncScheduler struct {
	cron    *cron.Cron
	starter runStarter
	spec    string
	logger  *zap.Logger
}

// NewSyncScheduler builds a scheduler evaluating spec in loc.
func NewSyncScheduler(starter runStarter, spec string, loc *time.Location, logger *zap.Logger) (*SyncScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &SyncScheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		starter: starter,
		spec:    spec,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins evaluating the schedule in the background.
func (s *SyncScheduler) Start() {
	s.cron.Start()
	s.logger.Info("sync scheduler started", zap.String("schedule", s.spec))
}

// Stop halts the schedule and waits for a running trigger to return.
func (s *SyncScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sync scheduler stopped")
}

// Next reports when the schedule fires next.
func (s *SyncScheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now())
}

func (s *SyncScheduler) trigger() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	run, err := s.starter.StartRun(ctx, StartRunRequest{Trigger: models.SyncTriggerSchedule})
	if err != nil {
		s.logger.Error("scheduled sync run failed to start", zap.Error(err))
		return
	}
	s.logger.Info("scheduled sync run queued", zap.String("run_id", run.ID))
}
