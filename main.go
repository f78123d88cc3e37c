package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"simplesurvey/adapters/api"
	"simplesurvey/adapters/excel"
	"simplesurvey/adapters/memory"
	"simplesurvey/adapters/sqlstore"
	"simplesurvey/adapters/stats/methods"
	"simplesurvey/app"
	"simplesurvey/internal"
	"simplesurvey/internal/config"
	apperrors "simplesurvey/internal/errors"
	"simplesurvey/internal/migration"
	"simplesurvey/ports"
)

// initDatabase connects to the report database and migrates its schema
func initDatabase(ctx context.Context, appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlstore.Connect(ctx, appConfig.Database.URL)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to connect to database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.DatabaseError("failed to ping database", err)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.LogLevel))

	if appConfig.Paths.Definition == "" {
		log.Fatal("SURVEY_DEFINITION is required")
	}
	def, err := app.LoadDefinition(appConfig.Paths.Definition)
	if err != nil {
		log.Fatalf("Failed to load survey definition: %v", err)
	}
	if def.Alpha == 0 {
		def.Alpha = appConfig.Analysis.Alpha
	}
	if def.Beta == 0 {
		def.Beta = appConfig.Analysis.Beta
	}
	survey, err := def.Build()
	if err != nil {
		log.Fatalf("Failed to compile survey definition: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo ports.ReportRepository
	if appConfig.Database.Enabled() {
		db, err := initDatabase(ctx, appConfig)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		repo = sqlstore.NewReportRepository(db)
		logger.Info("Reports stored in %s database", db.DriverName())
	} else {
		repo = memory.NewReportRepository()
		logger.Warn("DATABASE_URL not set, reports are kept in memory only")
	}

	opts := app.Options{Workers: appConfig.Analysis.Workers, TestTimeout: appConfig.Analysis.TestTimeout}
	var options []app.ServiceOption
	if survey.Dimensions != nil {
		options = append(options, app.WithDimensionSource(excel.NewDataReader(survey.Dimensions.Path, logger)))
		logger.Info("Joining dimensions from %s on %s", survey.Dimensions.Path, survey.Dimensions.LeftOn)
	}
	service := app.NewAnalysisService(survey, methods.NewRegistry(), repo, logger, opts, options...)
	server := api.NewServer(service, logger)

	logger.Info("Starting survey server for %q on port %s", survey.Name, appConfig.Server.Port)
	if err := server.ListenAndServe(ctx, ":"+appConfig.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
