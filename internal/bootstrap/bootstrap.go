package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-sync-api/internal/repository"
	"github.com/noah-isme/enrollment-sync-api/internal/service"
	"github.com/noah-isme/enrollment-sync-api/pkg/cache"
	"github.com/noah-isme/enrollment-sync-api/pkg/config"
	"github.com/noah-isme/enrollment-sync-api/pkg/database"
	"github.com/noah-isme/enrollment-sync-api/pkg/moodle"
)

// Services holds the reconciliation stack shared by the API server and the CLI.
type Services struct {
	DB      *sqlx.DB
	Redis   *redis.Client
	Metrics *service.MetricsService

	Users        *repository.UserRepository
	CourseClass  *repository.CourseClassRepository
	SyncStore    *repository.SyncStore
	Runs         *repository.SyncRunRepository
	Formatter    *service.MessageFormatter
	Sync         *service.EnrollmentSyncService
	Exclusive    *service.ExclusiveReconciler
	Batch        *service.SyncBatchService
	Reports      *service.ReportService
	StudentState *service.StudentStatusService
}

// Build connects to Postgres and, when reachable, Redis, then wires every service.
// Without Redis the enrollment lock only serializes reconciliations inside this process.
func Build(cfg *config.Config, logger *zap.Logger) (*Services, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-process enrollment locks", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	remote := moodle.NewClient(moodle.Config{
		BaseURL:   cfg.Moodle.BaseURL,
		Token:     cfg.Moodle.Token,
		Timeout:   cfg.Moodle.Timeout,
		RateLimit: cfg.Moodle.RateLimit,
		RateBurst: cfg.Moodle.RateBurst,
		Logger:    logger.Named("moodle"),
		Observer:  metrics,
	})

	s := &Services{
		DB:          db,
		Redis:       redisClient,
		Metrics:     metrics,
		Users:       repository.NewUserRepository(db),
		CourseClass: repository.NewCourseClassRepository(db),
		SyncStore:   repository.NewSyncStore(db),
		Runs:        repository.NewSyncRunRepository(db),
		Formatter:   service.NewMessageFormatter(cfg.Sync.Location(), cfg.Sync.DateLayout),
	}

	s.Sync = service.NewEnrollmentSyncService(remote, s.SyncStore, s.Formatter, metrics, logger.Named("sync"))
	s.Exclusive = service.NewExclusiveReconciler(s.Sync, repository.NewLockRepository(redisClient, logger.Named("lock")), cfg.Sync.LockTTL, metrics, logger.Named("sync"))
	s.Batch = service.NewSyncBatchService(s.SyncStore, s.Runs, s.Exclusive, nil, metrics, logger.Named("batch"), service.SyncBatchServiceConfig{Workers: cfg.Sync.Workers})
	s.Reports = service.NewReportService(s.Batch, s.Formatter, nil, nil)
	s.StudentState = service.NewStudentStatusService(s.CourseClass, s.SyncStore, logger.Named("status"))
	return s, nil
}

// PingRedis checks the Redis connection when one is configured.
func (s *Services) PingRedis(ctx context.Context) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Ping(ctx).Err()
}

// Close releases the database and Redis connections.
func (s *Services) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
}
