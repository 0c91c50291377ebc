package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-sync-api/internal/bootstrap"
	"github.com/noah-isme/enrollment-sync-api/internal/models"
	"github.com/noah-isme/enrollment-sync-api/internal/service"
	"github.com/noah-isme/enrollment-sync-api/pkg/config"
	"github.com/noah-isme/enrollment-sync-api/pkg/export"
	"github.com/noah-isme/enrollment-sync-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var (
		workers       int
		courseClassID string
		outPath       string
		hashPassword  string
	)
	flag.IntVar(&workers, "workers", cfg.Sync.Workers, "Enrollments reconciled concurrently")
	flag.StringVar(&courseClassID, "course-class", "", "Only reconcile enrollments of this course class")
	flag.StringVar(&outPath, "out", "", "Also write the run report to this .csv or .pdf file")
	flag.StringVar(&hashPassword, "hash-password", "", "Print the bcrypt hash of an operator password and exit")
	flag.Parse()

	if hashPassword != "" {
		hash, err := service.HashPassword(hashPassword)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(hash)
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	format, err := reportFormat(outPath)
	if err != nil {
		log.Fatal(err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	svc, err := bootstrap.Build(cfg, logr)
	if err != nil {
		logr.Fatal("failed to build services", zap.Error(err))
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := export.NewLineWriter(os.Stdout)
	sink := func(result models.SyncRunResult) {
		if err := lines.WriteLine(service.ResultLine(result)); err != nil {
			logr.Warn("failed to print result", zap.String("enrollment_id", result.EnrollmentID), zap.Error(err))
		}
	}

	run, err := svc.Batch.RunNow(ctx, service.StartRunRequest{
		Trigger:       models.SyncTriggerCLI,
		CourseClassID: courseClassID,
	}, workers, sink)
	if err != nil {
		logr.Fatal("sync run failed", zap.Error(err))
	}
	logr.Info("sync run complete",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("total", run.Total),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("failed", run.Failed),
		zap.Int("skipped", run.Skipped))

	if outPath != "" {
		report, err := svc.Reports.Render(context.WithoutCancel(ctx), run.ID, format)
		if err != nil {
			logr.Fatal("failed to render report", zap.Error(err))
		}
		if err := os.WriteFile(outPath, report.Data, 0o644); err != nil {
			logr.Fatal("failed to write report", zap.String("path", outPath), zap.Error(err))
		}
		logr.Info("report written", zap.String("path", outPath))
	}

	if run.Status != models.SyncRunFinished {
		os.Exit(1)
	}
}

func reportFormat(path string) (models.ReportFormat, error) {
	if path == "" {
		return "", nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return models.ReportFormatCSV, nil
	case ".pdf":
		return models.ReportFormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported report extension for %s, use .csv or .pdf", path)
	}
}
