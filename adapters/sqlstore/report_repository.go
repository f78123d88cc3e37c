// Package sqlstore keeps reports in Postgres or SQLite through sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"simplesurvey/domain/core"
	"simplesurvey/domain/question"
	"simplesurvey/domain/report"
	"simplesurvey/ports"
)

// reportRecord is one row of survey_reports
type reportRecord struct {
	ID           string    `db:"id"`
	Source       string    `db:"source"`
	Fingerprint  string    `db:"fingerprint"`
	Alpha        float64   `db:"alpha"`
	Beta         float64   `db:"beta"`
	Filters      string    `db:"filters"`
	Questions    string    `db:"questions"`
	TotalRows    int       `db:"total_rows"`
	FilteredRows int       `db:"filtered_rows"`
	Evaluated    int       `db:"evaluated"`
	CreatedAt    time.Time `db:"created_at"`
}

// resultRecord is one row of survey_report_rows
type resultRecord struct {
	ReportID   string  `db:"report_id"`
	Position   int     `db:"position"`
	Status     string  `db:"status"`
	QuestionID string  `db:"question_id"`
	Prompt     string  `db:"prompt"`
	GroupKey   string  `db:"group_key"`
	Labels     string  `db:"labels"`
	TestName   string  `db:"test_name"`
	Statistic  float64 `db:"statistic"`
	PValue     float64 `db:"p_value"`
	EffectSize float64 `db:"effect_size"`
	EffectUnit string  `db:"effect_unit"`
	GroupN     int     `db:"group_n"`
	ReferenceN int     `db:"reference_n"`
	Reason     string  `db:"reason"`
}

// ReportRepository stores reports in a SQL database. Queries are written
// with ? placeholders and rebound for the driver.
type ReportRepository struct {
	db *sqlx.DB
}

var _ ports.ReportRepository = (*ReportRepository)(nil)

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// rowBatchSize keeps one multi-row insert (15 binds per row) under the
// bind-variable limits of SQLite (32766) and Postgres (65535)
const rowBatchSize = 500

const insertRowsSQL = `
	INSERT INTO survey_report_rows (
		report_id, position, status, question_id, prompt, group_key, labels,
		test_name, statistic, p_value, effect_size, effect_unit,
		group_n, reference_n, reason
	) VALUES (
		:report_id, :position, :status, :question_id, :prompt, :group_key, :labels,
		:test_name, :statistic, :p_value, :effect_size, :effect_unit,
		:group_n, :reference_n, :reason
	)`

// Save inserts a report and its rows in one transaction
func (r *ReportRepository) Save(ctx context.Context, rep *report.Report) (*report.Stored, error) {
	stored := &report.Stored{ID: core.NewReportID(), CreatedAt: time.Now().UTC(), Report: rep}
	head, rows, err := toRecords(stored)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO survey_reports (
			id, source, fingerprint, alpha, beta, filters, questions,
			total_rows, filtered_rows, evaluated, created_at
		) VALUES (
			:id, :source, :fingerprint, :alpha, :beta, :filters, :questions,
			:total_rows, :filtered_rows, :evaluated, :created_at
		)`, head)
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	for start := 0; start < len(rows); start += rowBatchSize {
		end := min(start+rowBatchSize, len(rows))
		if _, err := tx.NamedExecContext(ctx, insertRowsSQL, rows[start:end]); err != nil {
			return nil, fmt.Errorf("failed to insert report rows %d-%d: %w", start, end-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit report: %w", err)
	}
	return stored, nil
}

// Get loads a report by id
func (r *ReportRepository) Get(ctx context.Context, id core.ReportID) (*report.Stored, error) {
	var head reportRecord
	err := r.db.GetContext(ctx, &head, r.db.Rebind(`
		SELECT id, source, fingerprint, alpha, beta, filters, questions,
		       total_rows, filtered_rows, evaluated, created_at
		FROM survey_reports WHERE id = ?`), id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ports.ErrReportNotFound, id)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var rows []resultRecord
	err = r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT report_id, position, status, question_id, prompt, group_key, labels,
		       test_name, statistic, p_value, effect_size, effect_unit,
		       group_n, reference_n, reason
		FROM survey_report_rows WHERE report_id = ? ORDER BY position`), id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get report rows: %w", err)
	}
	return fromRecords(head, rows)
}

// List returns the most recent reports, newest first
func (r *ReportRepository) List(ctx context.Context, limit int) ([]*report.Stored, error) {
	if limit <= 0 {
		limit = 20
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids,
		r.db.Rebind(`SELECT id FROM survey_reports ORDER BY created_at DESC, id DESC LIMIT ?`), limit); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	out := make([]*report.Stored, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, core.ReportID(id))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func toRecords(s *report.Stored) (reportRecord, []resultRecord, error) {
	rep := s.Report
	filters, err := json.Marshal(nonNil(rep.Filters))
	if err != nil {
		return reportRecord{}, nil, fmt.Errorf("failed to marshal filters: %w", err)
	}
	questions, err := json.Marshal(nonNil(rep.Questions))
	if err != nil {
		return reportRecord{}, nil, fmt.Errorf("failed to marshal questions: %w", err)
	}
	head := reportRecord{
		ID:           s.ID.String(),
		Source:       rep.Source,
		Fingerprint:  rep.Fingerprint.String(),
		Alpha:        rep.Alpha,
		Beta:         rep.Beta,
		Filters:      string(filters),
		Questions:    string(questions),
		TotalRows:    rep.TotalRows,
		FilteredRows: rep.FilteredRows,
		Evaluated:    rep.Evaluated,
		CreatedAt:    s.CreatedAt,
	}

	all := rep.Rows()
	rows := make([]resultRecord, len(all))
	for i, res := range all {
		labels, err := json.Marshal(res.Labels)
		if err != nil {
			return reportRecord{}, nil, fmt.Errorf("failed to marshal labels: %w", err)
		}
		rows[i] = resultRecord{
			ReportID:   head.ID,
			Position:   i,
			Status:     string(res.Status),
			QuestionID: res.QuestionID,
			Prompt:     res.Prompt,
			GroupKey:   res.GroupKey,
			Labels:     string(labels),
			TestName:   res.TestName,
			Statistic:  res.Statistic,
			PValue:     res.PValue,
			EffectSize: res.EffectSize,
			EffectUnit: res.EffectUnit,
			GroupN:     res.GroupN,
			ReferenceN: res.ReferenceN,
			Reason:     res.Reason,
		}
	}
	return head, rows, nil
}

func fromRecords(head reportRecord, rows []resultRecord) (*report.Stored, error) {
	rep := &report.Report{
		Source:       head.Source,
		Alpha:        head.Alpha,
		Beta:         head.Beta,
		TotalRows:    head.TotalRows,
		FilteredRows: head.FilteredRows,
		Evaluated:    head.Evaluated,
		Results:      []report.TestResult{},
		Failures:     []report.TestResult{},
		Fingerprint:  core.Hash(head.Fingerprint),
	}
	if err := json.Unmarshal([]byte(head.Filters), &rep.Filters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filters: %w", err)
	}
	if err := json.Unmarshal([]byte(head.Questions), &rep.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}

	for _, row := range rows {
		res := report.TestResult{
			QuestionID: row.QuestionID,
			Prompt:     row.Prompt,
			GroupKey:   row.GroupKey,
			TestName:   row.TestName,
			Statistic:  row.Statistic,
			PValue:     row.PValue,
			EffectSize: row.EffectSize,
			EffectUnit: row.EffectUnit,
			GroupN:     row.GroupN,
			ReferenceN: row.ReferenceN,
			Status:     report.Status(row.Status),
			Reason:     row.Reason,
		}
		var labels []question.Label
		if err := json.Unmarshal([]byte(row.Labels), &labels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
		res.Labels = labels
		if res.Status == report.StatusError {
			rep.Failures = append(rep.Failures, res)
		} else {
			rep.Results = append(rep.Results, res)
		}
	}

	return &report.Stored{ID: core.ReportID(head.ID), CreatedAt: head.CreatedAt, Report: rep}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
