package app

import (
	"context"
	"fmt"
	"time"

	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
	"simplesurvey/domain/report"
	"simplesurvey/domain/stats"
	"simplesurvey/internal"
	"simplesurvey/ports"
)

// AnalysisService loads responses, runs the engine over a compiled survey
// and stores the report
type AnalysisService struct {
	survey     *Survey
	engine     *Engine
	repo       ports.ReportRepository
	dimensions ports.ResponseSource
	logger     *internal.Logger
}

// ServiceOption configures an AnalysisService
type ServiceOption func(*AnalysisService)

// WithDimensionSource sets where the survey's dimensions table is read from
func WithDimensionSource(src ports.ResponseSource) ServiceOption {
	return func(s *AnalysisService) { s.dimensions = src }
}

// AnalysisRequest is a RunRequest whose zero thresholds fall back to the
// survey defaults
type AnalysisRequest struct {
	Filters   []string
	Questions []string
	Alpha     float64
	Beta      float64
}

// NewAnalysisService creates a service. repo may be nil, in which case
// reports are returned without an id.
func NewAnalysisService(survey *Survey, tests *stats.Registry, repo ports.ReportRepository, logger *internal.Logger, opts Options, options ...ServiceOption) *AnalysisService {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	s := &AnalysisService{
		survey: survey,
		engine: NewEngine(survey.Filters, survey.Questions, tests, logger, opts),
		repo:   repo,
		logger: logger,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Survey returns the compiled survey the service analyzes
func (s *AnalysisService) Survey() *Survey { return s.survey }

// Analyze loads src and runs one analysis
func (s *AnalysisService) Analyze(ctx context.Context, src ports.ResponseSource, req AnalysisRequest) (*report.Stored, error) {
	start := time.Now()
	ds, err := src.Load(ctx, s.survey.Schema, s.survey.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	if ds, err = s.prepare(ctx, ds); err != nil {
		return nil, err
	}

	run := RunRequest{Filters: req.Filters, Questions: req.Questions, Alpha: req.Alpha, Beta: req.Beta}
	if run.Alpha == 0 {
		run.Alpha = s.survey.Alpha
	}
	if run.Beta == 0 {
		run.Beta = s.survey.Beta
	}

	rep, err := s.engine.Run(ctx, ds, run)
	if err != nil {
		return nil, err
	}

	if s.repo == nil {
		return &report.Stored{CreatedAt: time.Now().UTC(), Report: rep}, nil
	}
	stored, err := s.repo.Save(ctx, rep)
	if err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	s.logger.Info("[AnalysisService] report %s stored (%d rows, %dms)", stored.ID, len(rep.Rows()), time.Since(start).Milliseconds())
	return stored, nil
}

func (s *AnalysisService) prepare(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	var dims *dataset.Dataset
	if d := s.survey.Dimensions; d != nil && s.dimensions != nil {
		var err error
		if dims, err = s.dimensions.Load(ctx, d.Schema, d.Columns); err != nil {
			return nil, fmt.Errorf("failed to load dimensions: %w", err)
		}
		s.logger.Debug("[AnalysisService] joined %d dimension rows from %s", dims.Len(), d.Path)
	}
	return s.survey.Prepare(ds, dims)
}

// Report fetches a stored report
func (s *AnalysisService) Report(ctx context.Context, id core.ReportID) (*report.Stored, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrReportNotFound, id)
	}
	return s.repo.Get(ctx, id)
}

// Recent lists stored reports, newest first
func (s *AnalysisService) Recent(ctx context.Context, limit int) ([]*report.Stored, error) {
	if s.repo == nil {
		return []*report.Stored{}, nil
	}
	return s.repo.List(ctx, limit)
}
