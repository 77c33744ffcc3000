package export

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BerylCAtieno/finreport/internal/models"
	"github.com/BerylCAtieno/finreport/internal/utils"

	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SheetName       = "Report"
)

// TruncationMarker ends a cell whose text exceeded the XLSX cell limit.
const TruncationMarker = "\n[truncated]"

var Headers = []string{"filename", "extracted_data", "status", "text_source"}

type Exporter struct {
	logger *utils.Logger
}

func NewExporter(logger *utils.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// XLSX renders the report as a workbook with one row per document in report order.
func (e *Exporter) XLSX(report *models.Report) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	_ = f.SetCellStyle(SheetName, "A1", "D1", headerStyle)

	for i, res := range report.Results {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		write(1, res.Filename)
		data, cut := fitCell(Render(res.ExtractedData))
		if cut {
			e.logger.Warn("export.xlsx.truncated",
				"run_id", report.ID,
				"filename", res.Filename,
				"limit", excelize.TotalCellChars,
			)
		}
		write(2, data)
		write(3, res.Status)
		write(4, res.TextSource)
	}

	if n := len(report.Results); n > 0 {
		last, _ := excelize.CoordinatesToCellName(2, n+1)
		_ = f.SetCellStyle(SheetName, "B2", last, wrapStyle)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 32)
	_ = f.SetColWidth(SheetName, "B", "B", 80)
	_ = f.SetColWidth(SheetName, "C", "D", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"run_id", report.ID,
		"rows", len(report.Results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// fitCell cuts s to the XLSX cell limit, ending it with TruncationMarker.
func fitCell(s string) (string, bool) {
	if utf8.RuneCountInString(s) <= excelize.TotalCellChars {
		return s, false
	}
	keep := excelize.TotalCellChars - utf8.RuneCountInString(TruncationMarker)
	return string([]rune(s)[:keep]) + TruncationMarker, true
}

// Render turns extracted data into a single spreadsheet cell.
func Render(d models.ExtractedData) string {
	switch {
	case d.Failed():
		return "FAILED: " + d.Failure
	case d.Matches != nil:
		lines := make([]string, len(d.Matches))
		for i, m := range d.Matches {
			lines[i] = m.Keyword + ": " + m.Value
		}
		return strings.Join(lines, "\n")
	default:
		return d.Text
	}
}

// Response builds the JSON body returned when the deployment serves JSON.
func Response(report *models.Report) models.ExtractResponse {
	status := "success"
	if report.Count(models.StatusFailed) > 0 {
		status = "partial_failure"
	}
	return models.ExtractResponse{
		Status:              status,
		TotalFilesProcessed: len(report.Results),
		Results:             report.Results,
	}
}
