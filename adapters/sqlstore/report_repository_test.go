package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplesurvey/domain/core"
	"simplesurvey/domain/question"
	"simplesurvey/domain/report"
	"simplesurvey/internal/migration"
	"simplesurvey/ports"
)

func sampleReport() *report.Report {
	rep := &report.Report{
		Source:       "responses.csv",
		Alpha:        0.05,
		Beta:         0.1,
		Filters:      []string{"exclude_incomplete"},
		Questions:    []string{"q1"},
		TotalRows:    10,
		FilteredRows: 7,
		Evaluated:    2,
		Results: []report.TestResult{{
			QuestionID: "q1", Prompt: "Happy?", GroupKey: "region=A",
			Labels:   []question.Label{{Field: "region", Value: "A"}},
			TestName: "chi_square", Statistic: 4, PValue: 0.04, EffectSize: 0.7, EffectUnit: "V",
			GroupN: 3, ReferenceN: 4, Status: report.StatusPass,
		}},
		Failures: []report.TestResult{{
			QuestionID: "q1", Prompt: "Happy?", GroupKey: "region=B",
			Labels:   []question.Label{{Field: "region", Value: "B"}},
			TestName: "chi_square", Status: report.StatusError, Reason: "insufficient data",
		}},
	}
	rep.Seal()
	return rep
}

func TestRecordsRoundTrip(t *testing.T) {
	stored := &report.Stored{ID: core.NewReportID(), CreatedAt: time.Unix(1700000000, 0).UTC(), Report: sampleReport()}

	head, rows, err := toRecords(stored)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].Position)
	assert.Equal(t, "error", rows[1].Status)
	assert.JSONEq(t, `["exclude_incomplete"]`, string(head.Filters))

	back, err := fromRecords(head, rows)
	require.NoError(t, err)
	assert.Equal(t, stored, back)
}

func TestRecordsRoundTrip_EmptyReport(t *testing.T) {
	rep := &report.Report{Alpha: 0.05, Results: []report.TestResult{}, Failures: []report.TestResult{}}
	head, rows, err := toRecords(&report.Stored{ID: core.NewReportID(), Report: rep})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, "[]", string(head.Questions))

	back, err := fromRecords(head, rows)
	require.NoError(t, err)
	assert.Equal(t, []string{}, back.Report.Filters)
}

func exerciseRepository(t *testing.T, url string) {
	t.Helper()
	ctx := context.Background()
	db, err := Connect(ctx, url)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migration.NewRunner().Run(ctx, db))
	require.NoError(t, migration.NewRunner().Run(ctx, db), "migrations are idempotent")

	repo := NewReportRepository(db)
	saved, err := repo.Save(ctx, sampleReport())
	require.NoError(t, err)

	got, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, saved.Report.Fingerprint, got.Report.Fingerprint)
	assert.Equal(t, saved.Report.Rows(), got.Report.Rows())
	assert.Equal(t, saved.Report.Filters, got.Report.Filters)

	newer, err := repo.Save(ctx, &report.Report{Source: "later.csv", Alpha: 0.05})
	require.NoError(t, err)

	list, err := repo.List(ctx, 5)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(list), 2)
	assert.Equal(t, newer.ID, list[0].ID, "newest first")

	_, err = repo.Get(ctx, core.NewReportID())
	assert.ErrorIs(t, err, ports.ErrReportNotFound)
}

func TestReportRepository_SQLite(t *testing.T) {
	exerciseRepository(t, "sqlite:"+filepath.Join(t.TempDir(), "reports.db"))
}

// Runs against a real database when TEST_DATABASE_URL is set
func TestReportRepository_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	exerciseRepository(t, url)
}

func TestReportRepository_SavesReportsLargerThanOneBatch(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, "sqlite:"+filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migration.NewRunner().Run(ctx, db))

	rep := &report.Report{Source: "big.csv", Alpha: 0.05, Failures: []report.TestResult{}}
	for i := 0; i < 5*rowBatchSize+7; i++ {
		rep.Results = append(rep.Results, report.TestResult{
			QuestionID: fmt.Sprintf("q%d", i), Prompt: "Happy?", GroupKey: "all",
			Labels:   []question.Label{},
			TestName: "chi_square", PValue: 0.01, EffectSize: 0.5, EffectUnit: "V",
			GroupN: 5, ReferenceN: 5, Status: report.StatusPass,
		})
	}
	rep.Evaluated = len(rep.Results)
	rep.Seal()

	repo := NewReportRepository(db)
	saved, err := repo.Save(ctx, rep)
	require.NoError(t, err)

	got, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, got.Report.Results, len(rep.Results))
	assert.Equal(t, "q0", got.Report.Results[0].QuestionID)
	assert.Equal(t, rep.Results[len(rep.Results)-1].QuestionID, got.Report.Results[len(rep.Results)-1].QuestionID)
	assert.Equal(t, rep.Fingerprint, got.Report.Fingerprint)
}

func TestConnect_SQLiteNeedsPath(t *testing.T) {
	_, err := Connect(context.Background(), "sqlite:")
	assert.ErrorContains(t, err, "no path")
}
