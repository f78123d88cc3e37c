// Package api serves survey analyses over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"simplesurvey/adapters/excel"
	"simplesurvey/adapters/export"
	"simplesurvey/app"
	"simplesurvey/domain/core"
	"simplesurvey/domain/report"
	"simplesurvey/internal"
	"simplesurvey/internal/errors"
	"simplesurvey/ports"
)

// DefaultMaxUpload caps a CSV upload body
const DefaultMaxUpload = 32 << 20

// Server routes HTTP requests to the analysis service
type Server struct {
	service   *app.AnalysisService
	writers   map[string]ports.ReportWriter
	logger    *internal.Logger
	router    *gin.Engine
	maxUpload int64
}

// NewServer creates a server with all routes mounted
func NewServer(service *app.AnalysisService, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	s := &Server{
		service: service,
		writers: map[string]ports.ReportWriter{
			"csv":  export.NewCSVWriter(),
			"xlsx": export.NewXLSXWriter(),
			"html": export.NewHTMLWriter(service.Survey().Name),
		},
		logger:    logger,
		router:    gin.New(),
		maxUpload: DefaultMaxUpload,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(requestID(), s.requestLogger(), gin.Recovery())

	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/analyses", s.handleAnalyze)
		api.GET("/reports", s.handleListReports)
		api.GET("/reports/:id", s.handleGetReport)
		api.GET("/reports/:id/:format", s.handleExportReport)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("[API] listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger.Info("[API] shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

const requestIDHeader = "X-Request-ID"

// requestID keeps a caller supplied id or mints one
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("[API] %s %s -> %d in %v (%s)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start), c.GetString(requestIDHeader))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "survey": s.service.Survey().Name})
}

// handleAnalyze runs an analysis over a CSV request body
func (s *Server) handleAnalyze(c *gin.Context) {
	req, err := parseAnalysisRequest(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	name := c.DefaultQuery("source", "upload.csv")
	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	stored, err := s.service.Analyze(c.Request.Context(), excel.NewCSVSource(name, body, s.logger), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (s *Server) handleListReports(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(c, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}
	reports, err := s.service.Recent(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) handleGetReport(c *gin.Context) {
	stored, err := s.lookup(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (s *Server) handleExportReport(c *gin.Context) {
	format := c.Param("format")
	writer, ok := s.writers[format]
	if !ok {
		s.writeError(c, errors.NotFound("export format "+strconv.Quote(format)))
		return
	}
	stored, err := s.lookup(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Content-Type", writer.ContentType())
	c.Header("Content-Disposition", `attachment; filename="report-`+stored.ID.String()+writer.Extension()+`"`)
	c.Status(http.StatusOK)
	if err := writer.Write(c.Writer, stored.Report); err != nil {
		s.logger.Error("[API] failed to write %s export for %s: %v", format, stored.ID, err)
	}
}

func (s *Server) lookup(c *gin.Context) (*report.Stored, error) {
	id, err := core.ParseReportID(c.Param("id"))
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	stored, err := s.service.Report(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// parseAnalysisRequest reads alpha, beta, filter and question from the
// query string. filter and question may repeat or hold comma lists.
func parseAnalysisRequest(c *gin.Context) (app.AnalysisRequest, error) {
	req := app.AnalysisRequest{
		Filters:   splitList(c.QueryArray("filter")),
		Questions: splitList(c.QueryArray("question")),
	}
	var err error
	if req.Alpha, err = parseFloat(c.Query("alpha"), "alpha"); err != nil {
		return req, err
	}
	if req.Beta, err = parseFloat(c.Query("beta"), "beta"); err != nil {
		return req, err
	}
	return req, nil
}

func parseFloat(v, name string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.InvalidInput(name + " must be a number")
	}
	return f, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) writeError(c *gin.Context, err error) {
	appErr := errors.FromDomain(err)
	status := errors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[API] %s: %v", appErr.Code, err)
	} else {
		s.logger.Debug("[API] %s: %v", appErr.Code, err)
	}

	var body errorBody
	body.Error.Code = appErr.Code
	body.Error.Message = appErr.Error()
	c.AbortWithStatusJSON(status, body)
}
