// Package export renders analysis reports as CSV, Excel workbooks and HTML.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"simplesurvey/domain/report"
)

// Columns is the CSV header row
var Columns = []string{
	"question_id", "prompt", "group", "test",
	"statistic", "p_value", "effect_size", "n", "status", "reason",
}

// CSVWriter writes one row per result, passing rows before failures
type CSVWriter struct{}

// NewCSVWriter creates a CSV report writer
func NewCSVWriter() *CSVWriter { return &CSVWriter{} }

func (w *CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }
func (w *CSVWriter) Extension() string   { return ".csv" }

// Write renders the report
func (w *CSVWriter) Write(out io.Writer, rep *report.Report) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, row := range rep.Rows() {
		if err := cw.Write(record(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// record formats one row; numeric cells stay empty for error rows
func record(r report.TestResult) []string {
	rec := []string{r.QuestionID, r.Prompt, r.GroupKey, r.TestName, "", "", "", "", string(r.Status), r.Reason}
	if r.Status != report.StatusError {
		rec[4] = formatNumber(r.Statistic)
		rec[5] = formatNumber(r.PValue)
		rec[6] = formatNumber(r.EffectSize)
		rec[7] = strconv.Itoa(r.N())
	}
	return rec
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
