package ports

import (
	"context"
	"errors"

	"simplesurvey/domain/core"
	"simplesurvey/domain/report"
)

// ErrReportNotFound is returned by repositories for unknown report ids
var ErrReportNotFound = errors.New("report not found")

// ReportRepository persists analysis reports. The repository assigns the
// id and creation time.
type ReportRepository interface {
	Save(ctx context.Context, rep *report.Report) (*report.Stored, error)
	Get(ctx context.Context, id core.ReportID) (*report.Stored, error)
	List(ctx context.Context, limit int) ([]*report.Stored, error)
}
