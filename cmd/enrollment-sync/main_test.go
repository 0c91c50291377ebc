package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

func TestReportFormat(t *testing.T) {
	format, err := reportFormat("")
	require.NoError(t, err)
	assert.Empty(t, format)

	format, err = reportFormat("out/run.CSV")
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatCSV, format)

	format, err = reportFormat("run.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, format)

	_, err = reportFormat("run.xlsx")
	assert.Error(t, err)
}
