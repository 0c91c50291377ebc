package models

import (
	"time"

	"github.com/lib/pq"
)

// SyncRunStatus captures batch run lifecycle states.
type SyncRunStatus string

const (
	SyncRunQueued     SyncRunStatus = "QUEUED"
	SyncRunProcessing SyncRunStatus = "PROCESSING"
	SyncRunFinished   SyncRunStatus = "FINISHED"
	SyncRunFailed     SyncRunStatus = "FAILED"
)

// SyncTrigger records what started a batch run.
type SyncTrigger string

const (
	SyncTriggerManual   SyncTrigger = "manual"
	SyncTriggerSchedule SyncTrigger = "schedule"
	SyncTriggerCLI      SyncTrigger = "cli"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ResultCodeSkipped marks an enrollment left untouched because another
// reconciliation held its lock.
const ResultCodeSkipped = "SKIPPED"

// ResultCodeFailed marks an enrollment whose storage collaborator failed.
const ResultCodeFailed = "FAILED"

// SyncRun is one batch reconciliation over many enrollments.
type SyncRun struct {
	ID            string        `db:"id" json:"id"`
	Trigger       SyncTrigger   `db:"trigger" json:"trigger"`
	Status        SyncRunStatus `db:"status" json:"status"`
	CourseClassID *string       `db:"course_class_id" json:"course_class_id,omitempty"`
	Total         int           `db:"total" json:"total"`
	Succeeded     int           `db:"succeeded" json:"succeeded"`
	Failed        int           `db:"failed" json:"failed"`
	Skipped       int           `db:"skipped" json:"skipped"`
	CreatedBy     *string       `db:"created_by" json:"created_by,omitempty"`
	ErrorMessage  *string       `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	FinishedAt    *time.Time    `db:"finished_at" json:"finished_at,omitempty"`
}

// SyncRunResult stores the outcome of one enrollment inside a run.
type SyncRunResult struct {
	ID           string         `db:"id" json:"id"`
	RunID        string         `db:"run_id" json:"run_id"`
	EnrollmentID string         `db:"enrollment_id" json:"enrollment_id"`
	StudentCPF   string         `db:"student_cpf" json:"student_cpf"`
	Code         string         `db:"status_code" json:"status_code"`
	Messages     pq.StringArray `db:"messages" json:"messages"`
	LastAccess   *int64         `db:"last_access" json:"last_access,omitempty"`
	Progress     *float64       `db:"progress" json:"progress,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
