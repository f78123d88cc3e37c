package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"simplesurvey/adapters/excel"
	"simplesurvey/adapters/export"
	"simplesurvey/adapters/sqlstore"
	"simplesurvey/adapters/stats/methods"
	"simplesurvey/adapters/workday"
	"simplesurvey/app"
	"simplesurvey/domain/dataset"
	"simplesurvey/domain/report"
	"simplesurvey/internal"
	"simplesurvey/internal/config"
	"simplesurvey/internal/migration"
	"simplesurvey/ports"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "survey",
		Short:         "Survey response analysis: filter, break down, test",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newSummaryCmd(),
		newValidateCmd(),
	)
	return rootCmd
}

// inputFlags select a survey definition and where its responses come from
type inputFlags struct {
	definition string
	input      string
	workdayURL string
	filters    []string
	questions  []string
	alpha      float64
	beta       float64
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.definition, "definition", "d", "", "Survey definition YAML (default $SURVEY_DEFINITION)")
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Response file (.csv or .xlsx)")
	cmd.Flags().StringVar(&f.workdayURL, "workday-url", "", "Workday custom report URL (JSON format) instead of --input")
	cmd.Flags().StringSliceVarP(&f.filters, "filter", "f", nil, "Filters to apply, all must hold")
	cmd.Flags().StringSliceVarP(&f.questions, "question", "q", nil, "Questions to analyze (default all)")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0, "Significance level (default from definition or $ALPHA)")
	cmd.Flags().Float64Var(&f.beta, "beta", 0, "Minimum effect size (default from definition or $BETA)")
}

func (f *inputFlags) request() app.AnalysisRequest {
	return app.AnalysisRequest{Filters: f.filters, Questions: f.questions, Alpha: f.alpha, Beta: f.beta}
}

func setup() (*config.Config, *internal.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)), nil
}

// loadSurvey compiles the definition; environment thresholds fill in what
// the definition leaves unset
func loadSurvey(path string, cfg *config.Config) (*app.Survey, error) {
	if path == "" {
		path = cfg.Paths.Definition
	}
	if path == "" {
		return nil, fmt.Errorf("no survey definition: pass --definition or set SURVEY_DEFINITION")
	}
	def, err := app.LoadDefinition(path)
	if err != nil {
		return nil, err
	}
	if def.Alpha == 0 {
		def.Alpha = cfg.Analysis.Alpha
	}
	if def.Beta == 0 {
		def.Beta = cfg.Analysis.Beta
	}
	return def.Build()
}

func responseSource(f *inputFlags, cfg *config.Config, logger *internal.Logger) (ports.ResponseSource, error) {
	switch {
	case f.input != "" && f.workdayURL != "":
		return nil, fmt.Errorf("--input and --workday-url are mutually exclusive")
	case f.workdayURL != "":
		return workday.NewReader(workday.Config{
			URL:      f.workdayURL,
			Username: cfg.Workday.User,
			Password: cfg.Workday.Password,
			MaxBytes: cfg.Workday.MaxBytes,
		}, logger), nil
	case f.input != "":
		return excel.NewDataReader(f.input, logger), nil
	default:
		return nil, fmt.Errorf("no responses: pass --input or --workday-url")
	}
}

// analyze compiles the survey, loads responses and runs the engine.
// With save set and a database configured the report is persisted. A non-nil
// loaded receives the summary of the responses as loaded.
func analyze(ctx context.Context, f *inputFlags, save bool, loaded *dataset.Summary) (*report.Stored, *config.Config, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	survey, err := loadSurvey(f.definition, cfg)
	if err != nil {
		return nil, nil, err
	}
	src, err := responseSource(f, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if loaded != nil {
		src = &summarizingSource{ResponseSource: src, summary: loaded}
	}

	var repo ports.ReportRepository
	if save {
		if !cfg.Database.Enabled() {
			return nil, nil, fmt.Errorf("--save needs DATABASE_URL")
		}
		db, err := sqlstore.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		defer db.Close()
		if err := migration.NewRunner().Run(ctx, db); err != nil {
			return nil, nil, err
		}
		repo = sqlstore.NewReportRepository(db)
	}

	opts := app.Options{Workers: cfg.Analysis.Workers, TestTimeout: cfg.Analysis.TestTimeout}
	var options []app.ServiceOption
	if survey.Dimensions != nil {
		options = append(options, app.WithDimensionSource(excel.NewDataReader(survey.Dimensions.Path, logger)))
	}
	svc := app.NewAnalysisService(survey, methods.NewRegistry(), repo, logger, opts, options...)
	stored, err := svc.Analyze(ctx, src, f.request())
	if err != nil {
		return nil, nil, err
	}
	return stored, cfg, nil
}

// summarizingSource records the summary of what its source loaded
type summarizingSource struct {
	ports.ResponseSource
	summary *dataset.Summary
}

func (s *summarizingSource) Load(ctx context.Context, schema dataset.Schema, columns map[string]string) (*dataset.Dataset, error) {
	ds, err := s.ResponseSource.Load(ctx, schema, columns)
	if err != nil {
		return nil, err
	}
	*s.summary = ds.Summarize()
	return ds, nil
}

func newAnalyzeCmd() *cobra.Command {
	var flags inputFlags
	var format, out string
	var save bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run an analysis and write the report",
		Long: `Run every configured test for every breakdown group of the selected
questions and write the report.

Example: survey analyze -d engagement.yaml -i responses.xlsx -f exclude_incomplete --format xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writer, err := reportWriter(format)
			if err != nil {
				return err
			}
			stored, cfg, err := analyze(cmd.Context(), &flags, save, nil)
			if err != nil {
				return err
			}

			if out == "-" {
				return writer.Write(cmd.OutOrStdout(), stored.Report)
			}
			if out == "" {
				out = filepath.Join(cfg.Paths.ReportDir, "report-"+stored.Report.Fingerprint.Short()+writer.Extension())
			}
			if err := writeFile(out, writer, stored.Report); err != nil {
				return err
			}

			s := stored.Report.Summary()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d evaluated, %d passed, %d errors\n", out, s.Evaluated, s.Passed, s.Errors)
			if stored.ID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "saved as %s\n", stored.ID)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "Report format: csv, xlsx or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path, - for stdout (default $REPORT_DIR/report-<fingerprint>.<ext>)")
	cmd.Flags().BoolVar(&save, "save", false, "Also store the report in the database")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var flags inputFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Run an analysis and print the counts and passing rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var loaded dataset.Summary
			stored, _, err := analyze(cmd.Context(), &flags, false, &loaded)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), loaded)
			fmt.Fprintln(cmd.OutOrStdout())
			printSummary(cmd.OutOrStdout(), stored.Report)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newValidateCmd() *cobra.Command {
	var definition, input string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a survey definition, and optionally a response file against it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			survey, err := loadSurvey(definition, cfg)
			if err != nil {
				return err
			}
			if err := survey.CheckTests(methods.NewRegistry()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "definition %q ok: %d questions, filters %v\n", survey.Name, survey.Questions.Len(), survey.Filters.Names())
			if input == "" {
				return nil
			}

			table, err := excel.NewDataReader(input, logger).ReadTable()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tKIND\tDISTINCT\tMISSING")
			for _, p := range table.Profile() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", p.Header, p.Kind, p.Distinct, p.Missing)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			ds, err := table.Dataset(input, survey.Schema, survey.Columns)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "responses ok\n%s\n", ds.Summarize())
			return nil
		},
	}

	cmd.Flags().StringVarP(&definition, "definition", "d", "", "Survey definition YAML (default $SURVEY_DEFINITION)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Response file to check against the schema")
	return cmd
}

func reportWriter(format string) (ports.ReportWriter, error) {
	switch format {
	case "csv":
		return export.NewCSVWriter(), nil
	case "xlsx":
		return export.NewXLSXWriter(), nil
	case "html":
		return export.NewHTMLWriter(""), nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want csv, xlsx or html)", format)
	}
}

func writeFile(path string, writer ports.ReportWriter, rep *report.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := writer.Write(f, rep); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

func printSummary(out io.Writer, rep *report.Report) {
	s := rep.Summary()
	fmt.Fprintf(out, "source:      %s\n", rep.Source)
	fmt.Fprintf(out, "rows:        %d of %d after filters %v\n", rep.FilteredRows, rep.TotalRows, rep.Filters)
	fmt.Fprintf(out, "evaluated:   %d (%d passed, %d not significant, %d errors)\n", s.Evaluated, s.Passed, s.NotSignificant, s.Errors)
	fmt.Fprintf(out, "fingerprint: %s\n", rep.Fingerprint.Short())
	if len(rep.Results) == 0 {
		return
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUESTION\tGROUP\tTEST\tP\tEFFECT\tN")
	for _, r := range rep.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4g\t%.3f %s\t%d\n", r.QuestionID, r.GroupKey, r.TestName, r.PValue, r.EffectSize, r.EffectUnit, r.N())
	}
	tw.Flush()
}
