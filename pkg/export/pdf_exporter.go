package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 277.0
	lineHeight = 5.0
)

// PDFExporter renders datasets into a landscape table. Long cells wrap.
type PDFExporter struct {
	weights map[string]float64
}

// NewPDFExporter constructs a PDF exporter. weights scales column widths by header;
// missing headers weigh 1.
func NewPDFExporter(weights ...map[string]float64) *PDFExporter {
	e := &PDFExporter{weights: map[string]float64{}}
	for _, w := range weights {
		for header, weight := range w {
			e.weights[header] = weight
		}
	}
	return e
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	widths := e.columnWidths(data.Headers)

	pdf.SetFont("Arial", "B", 9)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	for _, row := range data.Rows {
		cells := make([][][]byte, len(data.Headers))
		lines := 1
		for i, header := range data.Headers {
			cells[i] = pdf.SplitLines([]byte(translate(row[header])), widths[i]-2)
			if len(cells[i]) > lines {
				lines = len(cells[i])
			}
		}
		height := float64(lines) * lineHeight
		if pdf.GetY()+height > 198 {
			pdf.AddPage()
		}
		x, y := pdf.GetXY()
		for i := range data.Headers {
			pdf.Rect(x, y, widths[i], height, "D")
			for j, line := range cells[i] {
				pdf.SetXY(x+1, y+float64(j)*lineHeight)
				pdf.CellFormat(widths[i]-2, lineHeight, string(line), "", 0, "", false, 0, "")
			}
			x += widths[i]
		}
		pdf.SetXY(10, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(headers []string) []float64 {
	total := 0.0
	weights := make([]float64, len(headers))
	for i, header := range headers {
		weight, ok := e.weights[header]
		if !ok || weight <= 0 {
			weight = 1
		}
		weights[i] = weight
		total += weight
	}
	for i := range weights {
		weights[i] = pageWidth * weights[i] / total
	}
	return weights
}
