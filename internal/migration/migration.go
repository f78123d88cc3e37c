package migration

import (
	"context"
	"strings"

	"simplesurvey/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the report storage schema
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all migrations in order, in the dialect of db's driver.
// Every statement is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, step := range r.Steps(db.DriverName()) {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.Wrapf(errors.DatabaseError("migration failed", err), "failed to %s", step.Name)
		}
	}
	return nil
}

// Step is one named migration statement
type Step struct {
	Name string
	SQL  string
}

// column types that differ between Postgres and SQLite
type dialect struct {
	uuid, json, timestamp string
}

var (
	postgresDialect = dialect{uuid: "UUID", json: "JSONB", timestamp: "TIMESTAMP WITH TIME ZONE"}
	sqliteDialect   = dialect{uuid: "TEXT", json: "TEXT", timestamp: "TIMESTAMP"}
)

// Steps lists the migration statements in execution order. driver is a
// database/sql driver name; anything but sqlite3 gets Postgres DDL.
func (r *MigrationRunner) Steps(driver string) []Step {
	d := postgresDialect
	if driver == "sqlite3" {
		d = sqliteDialect
	}
	replacer := strings.NewReplacer("{uuid}", d.uuid, "{json}", d.json, "{timestamp}", d.timestamp)

	steps := []Step{
		{Name: "create survey_reports table", SQL: `
		CREATE TABLE IF NOT EXISTS survey_reports (
			id {uuid} PRIMARY KEY,
			source TEXT NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			alpha DOUBLE PRECISION NOT NULL,
			beta DOUBLE PRECISION NOT NULL DEFAULT 0,
			filters {json} NOT NULL DEFAULT '[]',
			questions {json} NOT NULL DEFAULT '[]',
			total_rows INTEGER NOT NULL,
			filtered_rows INTEGER NOT NULL,
			evaluated INTEGER NOT NULL,
			created_at {timestamp} DEFAULT CURRENT_TIMESTAMP
		)`},
		{Name: "create survey_report_rows table", SQL: `
		CREATE TABLE IF NOT EXISTS survey_report_rows (
			report_id {uuid} NOT NULL REFERENCES survey_reports(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			status VARCHAR(10) NOT NULL,
			question_id TEXT NOT NULL,
			prompt TEXT NOT NULL,
			group_key TEXT NOT NULL,
			labels {json} NOT NULL DEFAULT '[]',
			test_name TEXT NOT NULL,
			statistic DOUBLE PRECISION NOT NULL DEFAULT 0,
			p_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			effect_size DOUBLE PRECISION NOT NULL DEFAULT 0,
			effect_unit VARCHAR(16) NOT NULL DEFAULT '',
			group_n INTEGER NOT NULL DEFAULT 0,
			reference_n INTEGER NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (report_id, position)
		)`},
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_reports_created_at ON survey_reports(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_reports_fingerprint ON survey_reports(fingerprint)",
		"CREATE INDEX IF NOT EXISTS idx_report_rows_question ON survey_report_rows(report_id, question_id)",
	}
	for _, idx := range indexes {
		steps = append(steps, Step{Name: "create index", SQL: idx})
	}
	for i := range steps {
		steps[i].SQL = replacer.Replace(steps[i].SQL)
	}
	return steps
}
