package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
	"github.com/noah-isme/enrollment-sync-api/pkg/export"
)

var reportHeaders = []string{"enrollment_id", "cpf", "status_code", "messages", "last_access", "progress"}

type runResultReader interface {
	GetRun(ctx context.Context, id string) (*models.SyncRun, error)
	ListResults(ctx context.Context, runID string) ([]models.SyncRunResult, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// RunReport is a rendered batch report ready to be served.
type RunReport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService renders batch run results as CSV or PDF.
type ReportService struct {
	runs      runResultReader
	csv       csvRenderer
	pdf       pdfRenderer
	formatter *MessageFormatter
}

// NewReportService constructs the report service. Nil renderers fall back to the defaults.
func NewReportService(runs runResultReader, formatter *MessageFormatter, csv csvRenderer, pdf pdfRenderer) *ReportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(map[string]float64{"enrollment_id": 1.6, "cpf": 1.1, "status_code": 1.3, "messages": 4.5, "last_access": 1.3, "progress": 0.8})
	}
	if formatter == nil {
		formatter = NewMessageFormatter(nil, "")
	}
	return &ReportService{runs: runs, csv: csv, pdf: pdf, formatter: formatter}
}

// Render builds the report of a run in the requested format.
func (s *ReportService) Render(ctx context.Context, runID string, format models.ReportFormat) (*RunReport, error) {
	if format == "" {
		format = models.ReportFormatCSV
	}
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}

	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	results, err := s.runs.ListResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	dataset := s.Dataset(results)

	filename := fmt.Sprintf("sync-run-%s.%s", run.ID, format)
	switch format {
	case models.ReportFormatPDF:
		title := fmt.Sprintf("Enrollment sync %s", s.formatter.Time(run.CreatedAt))
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &RunReport{Filename: filename, ContentType: "application/pdf", Data: data}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &RunReport{Filename: filename, ContentType: "text/csv", Data: data}, nil
	}
}

// Dataset converts results into export rows.
func (s *ReportService) Dataset(results []models.SyncRunResult) export.Dataset {
	rows := make([]map[string]string, 0, len(results))
	for _, result := range results {
		row := map[string]string{
			"enrollment_id": result.EnrollmentID,
			"cpf":           result.StudentCPF,
			"status_code":   result.Code,
			"messages":      strings.Join(result.Messages, " | "),
		}
		if result.LastAccess != nil {
			row["last_access"] = s.formatter.Time(time.Unix(*result.LastAccess, 0))
		}
		if result.Progress != nil {
			row["progress"] = s.formatter.Percent(*result.Progress)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: reportHeaders, Rows: rows}
}

// ResultLine flattens a result into the batch driver's line layout:
// enrollment id, cpf, every message, then raw last access and progress when known.
func ResultLine(result models.SyncRunResult) []string {
	line := make([]string, 0, len(result.Messages)+4)
	line = append(line, result.EnrollmentID, result.StudentCPF)
	line = append(line, result.Messages...)
	if result.LastAccess != nil {
		line = append(line, strconv.FormatInt(*result.LastAccess, 10))
	}
	if result.Progress != nil {
		line = append(line, strconv.FormatFloat(*result.Progress, 'f', -1, 64))
	}
	return line
}
