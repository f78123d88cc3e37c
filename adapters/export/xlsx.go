package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"simplesurvey/domain/report"
)

const (
	resultsSheet  = "Results"
	failuresSheet = "Failures"
	summarySheet  = "Summary"
)

// XLSXWriter writes a workbook with Results, Failures and Summary sheets
type XLSXWriter struct{}

// NewXLSXWriter creates an Excel report writer
func NewXLSXWriter() *XLSXWriter { return &XLSXWriter{} }

func (w *XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (w *XLSXWriter) Extension() string { return ".xlsx" }

// Write renders the report
func (w *XLSXWriter) Write(out io.Writer, rep *report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(failuresSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := writeRows(f, resultsSheet, rep.Results); err != nil {
		return err
	}
	if err := writeRows(f, failuresSheet, rep.Failures); err != nil {
		return err
	}

	s := rep.Summary()
	summary := [][]interface{}{
		{"source", rep.Source},
		{"alpha", rep.Alpha},
		{"beta", rep.Beta},
		{"total_rows", rep.TotalRows},
		{"filtered_rows", rep.FilteredRows},
		{"questions", s.Questions},
		{"evaluated", s.Evaluated},
		{"passed", s.Passed},
		{"not_significant", s.NotSignificant},
		{"errors", s.Errors},
		{"fingerprint", rep.Fingerprint.String()},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows []report.TestResult) error {
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for i, r := range rows {
		cells := make([]interface{}, len(Columns))
		for j, v := range record(r) {
			cells[j] = v
		}
		if r.Status != report.StatusError {
			cells[4], cells[5], cells[6], cells[7] = r.Statistic, r.PValue, r.EffectSize, r.N()
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
