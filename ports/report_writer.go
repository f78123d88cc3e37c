package ports

import (
	"io"

	"simplesurvey/domain/report"
)

// ReportWriter renders a report in one output format
type ReportWriter interface {
	Write(w io.Writer, rep *report.Report) error
	ContentType() string
	Extension() string
}
