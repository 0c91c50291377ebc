package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/enrollment-sync-api/api/swagger"
	"github.com/noah-isme/enrollment-sync-api/internal/bootstrap"
	"github.com/noah-isme/enrollment-sync-api/internal/handler"
	"github.com/noah-isme/enrollment-sync-api/internal/middleware"
	"github.com/noah-isme/enrollment-sync-api/internal/models"
	"github.com/noah-isme/enrollment-sync-api/internal/service"
	"github.com/noah-isme/enrollment-sync-api/pkg/config"
	"github.com/noah-isme/enrollment-sync-api/pkg/jobs"
	"github.com/noah-isme/enrollment-sync-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/enrollment-sync-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/enrollment-sync-api/pkg/middleware/requestid"
)

// @title Enrollment Sync API
// @version 1.0.0
// @description Reconciles enrollment status trails with Moodle activity
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	svc, err := bootstrap.Build(cfg, logr)
	if err != nil {
		logr.Fatal("failed to build services", zap.Error(err))
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runQueue := jobs.NewQueue("sync-runs", svc.Batch.Handle, jobs.QueueConfig{
		Workers: 1,
		Logger:  logr,
		Observer: func(job jobs.Job, err error, elapsed time.Duration) {
			logr.Debug("sync run job finished", zap.String("job_id", job.ID), zap.Duration("elapsed", elapsed), zap.Error(err))
		},
	})
	svc.Batch.SetQueue(runQueue)
	svc.Batch.RecoverInterrupted(ctx)
	runQueue.Start(ctx)
	defer runQueue.Stop()

	if cfg.Sync.SchedulerEnabled {
		scheduler, err := service.NewSyncScheduler(svc.Batch, cfg.Sync.Schedule, cfg.Sync.Location(), logr.Named("scheduler"))
		if err != nil {
			logr.Fatal("invalid sync schedule", zap.String("schedule", cfg.Sync.Schedule), zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
		logr.Info("sync scheduler enabled", zap.Time("next_run", scheduler.Next()))
	}

	authService := service.NewAuthService(svc.Users, validator.New(), logr.Named("auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.Metrics))

	metricsHandler := handler.NewMetricsHandler(svc.Metrics, map[string]handler.ReadinessCheck{
		"postgres": svc.DB.PingContext,
		"redis":    svc.PingRedis,
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		auth:        handler.NewAuthHandler(authService),
		enrollments: handler.NewEnrollmentSyncHandler(svc.Sync, svc.StudentState, svc.Exclusive),
		runs:        handler.NewSyncRunHandler(svc.Batch, svc.Reports),
		metrics:     metricsHandler,
		jwt:         middleware.JWT(authService),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type routeDeps struct {
	auth        *handler.AuthHandler
	enrollments *handler.EnrollmentSyncHandler
	runs        *handler.SyncRunHandler
	metrics     *handler.MetricsHandler
	jwt         gin.HandlerFunc
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	admin := middleware.RequireRoles(models.RoleAdmin)

	api.POST("/auth/login", deps.auth.Login)
	api.GET("/auth/me", deps.jwt, deps.auth.Me)

	api.POST("/enrollments/:id/sync", deps.jwt, admin, deps.enrollments.Sync)
	api.GET("/students/:cpf/enrollment-status", deps.jwt, deps.enrollments.StudentStatus)

	sync := api.Group("/sync", deps.jwt)
	sync.GET("/metrics", admin, deps.metrics.Snapshot)
	sync.POST("/runs", admin, deps.runs.Start)
	sync.GET("/runs/:id", deps.runs.Get)
	sync.GET("/runs/:id/results", deps.runs.Results)
	sync.GET("/runs/:id/report", deps.runs.Report)
}
