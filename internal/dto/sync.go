package dto

import "github.com/noah-isme/enrollment-sync-api/internal/models"

// StartSyncRunRequest is the payload of POST /sync/runs.
type StartSyncRunRequest struct {
	CourseClassID string `json:"course_class_id" binding:"omitempty,uuid"`
}

// SyncRunResultsQuery pages through the results of a run.
type SyncRunResultsQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// StudentStatusQuery selects the course class of a status lookup.
type StudentStatusQuery struct {
	CourseID string `form:"course_id"`
}

// ReportQuery selects the format of a run report.
type ReportQuery struct {
	Format models.ReportFormat `form:"format"`
}
