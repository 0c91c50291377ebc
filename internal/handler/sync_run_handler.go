package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-sync-api/internal/dto"
	"github.com/noah-isme/enrollment-sync-api/internal/models"
	"github.com/noah-isme/enrollment-sync-api/internal/service"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
	"github.com/noah-isme/enrollment-sync-api/pkg/response"
)

type syncRunManager interface {
	StartRun(ctx context.Context, req service.StartRunRequest) (*models.SyncRun, error)
	GetRun(ctx context.Context, id string) (*models.SyncRun, error)
	ListResults(ctx context.Context, runID string) ([]models.SyncRunResult, error)
}

type runReportRenderer interface {
	Render(ctx context.Context, runID string, format models.ReportFormat) (*service.RunReport, error)
}

// SyncRunHandler exposes batch reconciliation runs.
type SyncRunHandler struct {
	runs    syncRunManager
	reports runReportRenderer
}

// NewSyncRunHandler constructs SyncRunHandler.
func NewSyncRunHandler(runs syncRunManager, reports runReportRenderer) *SyncRunHandler {
	return &SyncRunHandler{runs: runs, reports: reports}
}

// Start godoc
// @Summary Queue a batch reconciliation run
// @Tags Sync Runs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StartSyncRunRequest false "Optional course class filter"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sync/runs [post]
func (h *SyncRunHandler) Start(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.StartSyncRunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sync run payload"))
			return
		}
	}
	run, err := h.runs.StartRun(c.Request.Context(), service.StartRunRequest{
		Trigger:       models.SyncTriggerManual,
		CourseClassID: req.CourseClassID,
		CreatedBy:     claims.UserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, run, nil)
}

// Get godoc
// @Summary Batch run summary
// @Tags Sync Runs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sync/runs/{id} [get]
func (h *SyncRunHandler) Get(c *gin.Context) {
	run, err := h.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Results godoc
// @Summary Per-enrollment results of a batch run
// @Tags Sync Runs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sync/runs/{id}/results [get]
func (h *SyncRunHandler) Results(c *gin.Context) {
	var query dto.SyncRunResultsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pagination"))
		return
	}
	results, err := h.runs.ListResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	page, meta := paginate(results, query.Page, query.PageSize)
	response.JSON(c, http.StatusOK, page, meta)
}

// Report godoc
// @Summary Download a batch run report
// @Tags Sync Runs
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sync/runs/{id}/report [get]
func (h *SyncRunHandler) Report(c *gin.Context) {
	var query dto.ReportQuery
	_ = c.ShouldBindQuery(&query)
	if query.Format == "" {
		query.Format = models.ReportFormatCSV
	}
	report, err := h.reports.Render(c.Request.Context(), c.Param("id"), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, report.Filename, report.ContentType, report.Data)
}
