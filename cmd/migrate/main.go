package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"simplesurvey/adapters/sqlstore"
	"simplesurvey/domain/report"
	"simplesurvey/internal/migration"
)

// Applies the report schema, then imports report JSON files (as served by
// GET /api/reports/{id}) from an optional directory.
func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	args := os.Args[1:]
	if len(args) > 0 && strings.Contains(args[0], "://") {
		databaseURL, args = args[0], args[1:]
	}
	if databaseURL == "" {
		log.Fatal("Usage: migrate [database_url] [report_json_dir]  (or set DATABASE_URL)")
	}

	ctx := context.Background()
	db, err := sqlstore.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema at version %s", runner.Version())

	if len(args) == 0 {
		return
	}

	files, err := findReportFiles(args[0])
	if err != nil {
		log.Fatalf("Failed to find report files: %v", err)
	}
	log.Printf("Found %d report files to import", len(files))

	repo := sqlstore.NewReportRepository(db)
	imported, skipped := 0, 0
	for _, file := range files {
		rep, err := loadReportFromFile(file)
		if err != nil {
			log.Printf("Skipping %s: %v", filepath.Base(file), err)
			skipped++
			continue
		}
		stored, err := repo.Save(ctx, rep)
		if err != nil {
			log.Printf("Failed to save report from %s: %v", filepath.Base(file), err)
			skipped++
			continue
		}
		imported++
		log.Printf("Imported %s as %s", filepath.Base(file), stored.ID)
	}

	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
}

func findReportFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// loadReportFromFile accepts a stored report envelope or a bare report.
// Files whose content no longer matches their fingerprint are rejected.
func loadReportFromFile(path string) (*report.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var stored report.Stored
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	rep := stored.Report
	if rep == nil {
		rep = &report.Report{}
		if err := json.Unmarshal(data, rep); err != nil {
			return nil, err
		}
	}
	if rep.Fingerprint.IsEmpty() {
		return nil, fmt.Errorf("no fingerprint")
	}

	want := rep.Fingerprint
	rep.Seal()
	if rep.Fingerprint != want {
		return nil, fmt.Errorf("fingerprint mismatch: file says %s, content hashes to %s", want.Short(), rep.Fingerprint.Short())
	}
	return rep, nil
}
