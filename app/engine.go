package app

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
	"simplesurvey/domain/filter"
	"simplesurvey/domain/question"
	"simplesurvey/domain/report"
	"simplesurvey/domain/stats"
	"simplesurvey/internal"
)

// Options tunes the engine's fan-out
type Options struct {
	Workers     int
	TestTimeout time.Duration
}

// DefaultOptions uses one worker per CPU and a 30 second test timeout
func DefaultOptions() Options {
	return Options{Workers: runtime.NumCPU(), TestTimeout: 30 * time.Second}
}

// Engine runs filter → group → test → threshold over a dataset
type Engine struct {
	filters   *filter.Registry
	questions *question.Registry
	tests     *stats.Registry
	logger    *internal.Logger
	opts      Options
}

// RunRequest selects what one analysis run covers. Empty Questions means
// every defined question, in definition order.
type RunRequest struct {
	Filters   []string
	Questions []string
	Alpha     float64
	Beta      float64
}

// NewEngine creates an analysis engine over explicit registries
func NewEngine(filters *filter.Registry, questions *question.Registry, tests *stats.Registry, logger *internal.Logger, opts Options) *Engine {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.TestTimeout <= 0 {
		opts.TestTimeout = DefaultOptions().TestTimeout
	}
	return &Engine{
		filters:   filters,
		questions: questions,
		tests:     tests,
		logger:    logger,
		opts:      opts,
	}
}

// job is one (question, group, test) computation with its output slot
type job struct {
	slot     int
	question *question.Question
	group    question.Group
	test     stats.Test
	sample   stats.Sample
}

// Run executes an analysis. Configuration problems fail before any test
// runs; per-test problems are recorded in the report's failures.
func (e *Engine) Run(ctx context.Context, ds *dataset.Dataset, req RunRequest) (*report.Report, error) {
	start := time.Now()

	selected, err := e.validate(ds, req)
	if err != nil {
		return nil, err
	}
	filters := dedupe(req.Filters)

	filtered, err := e.filters.Apply(ds, filters)
	if err != nil {
		return nil, err
	}
	e.logger.Info("[Engine] %d of %d rows kept after filters %v", filtered.Len(), ds.Len(), filters)

	jobs, err := e.plan(filtered, selected)
	if err != nil {
		return nil, err
	}

	results := make([]report.TestResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[j.slot] = e.execute(gctx, j, req.Alpha, req.Beta)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	rep := &report.Report{
		Source:       ds.Source(),
		Alpha:        req.Alpha,
		Beta:         req.Beta,
		Filters:      filters,
		TotalRows:    ds.Len(),
		FilteredRows: filtered.Len(),
		Evaluated:    len(results),
		Results:      []report.TestResult{},
		Failures:     []report.TestResult{},
	}
	for _, q := range selected {
		rep.Questions = append(rep.Questions, q.ID)
	}
	for _, r := range results {
		switch r.Status {
		case report.StatusPass:
			rep.Results = append(rep.Results, r)
		case report.StatusError:
			rep.Failures = append(rep.Failures, r)
		}
	}
	rep.Seal()

	e.logger.Info("[Engine] evaluated %d computations in %v: %d passed, %d errors",
		rep.Evaluated, time.Since(start), len(rep.Results), len(rep.Failures))
	return rep, nil
}

// validate checks thresholds and resolves the requested questions
func (e *Engine) validate(ds *dataset.Dataset, req RunRequest) ([]*question.Question, error) {
	if !(req.Alpha > 0 && req.Alpha <= 1) {
		return nil, core.NewConfigurationError("alpha", "must be in (0, 1], got %v", req.Alpha)
	}
	if !(req.Beta >= 0) {
		return nil, core.NewConfigurationError("beta", "must be >= 0, got %v", req.Beta)
	}

	var selected []*question.Question
	if len(req.Questions) == 0 {
		selected = e.questions.All()
	} else {
		for _, id := range dedupe(req.Questions) {
			q, ok := e.questions.Get(id)
			if !ok {
				return nil, core.NewConfigurationError(id, "question is not defined")
			}
			selected = append(selected, q)
		}
	}

	schema := ds.Schema()
	for _, q := range selected {
		if !schema.HasQuestion(q.ID) {
			return nil, core.NewConfigurationError(q.ID, "question is not a column of dataset %q", ds.Source())
		}
		if err := q.Validate(schema); err != nil {
			return nil, err
		}
		for _, name := range q.Tests {
			if _, ok := e.tests.Get(name); !ok {
				return nil, core.NewConfigurationError(q.ID, "test %q is not registered", name)
			}
		}
	}
	return selected, nil
}

// plan lays out every computation in report order
func (e *Engine) plan(filtered *dataset.Dataset, selected []*question.Question) ([]job, error) {
	var jobs []job
	for _, q := range selected {
		groups, err := q.Group(filtered)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("[Engine] question %s: %d groups", q.ID, len(groups))

		for _, grp := range groups {
			sample := stats.Sample{
				QuestionID: q.ID,
				GroupKey:   grp.Key,
				Group:      grp.View.Column(q.ID),
				Scale:      q.Scale,
			}
			if len(groups) > 1 {
				sample.Reference = filtered.Exclude(grp.Members).Column(q.ID)
			}
			for _, name := range q.Tests {
				t, _ := e.tests.Get(name)
				jobs = append(jobs, job{slot: len(jobs), question: q, group: grp, test: t, sample: sample})
			}
		}
	}
	return jobs, nil
}

type computed struct {
	outcome stats.Outcome
	err     error
}

// execute runs one test under the per-test timeout, turning panics and
// timeouts into error results
func (e *Engine) execute(ctx context.Context, j job, alpha, beta float64) report.TestResult {
	res := report.TestResult{
		QuestionID: j.question.ID,
		Prompt:     j.question.Prompt,
		GroupKey:   j.group.Key,
		Labels:     j.group.Labels,
		TestName:   j.test.Name(),
	}

	tctx, cancel := context.WithTimeout(ctx, e.opts.TestTimeout)
	defer cancel()

	done := make(chan computed, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- computed{err: fmt.Errorf("%w: %v", core.ErrTestPanicked, r)}
			}
		}()
		o, err := j.test.Compute(tctx, j.sample)
		done <- computed{outcome: o, err: err}
	}()

	var c computed
	select {
	case c = <-done:
	case <-tctx.Done():
		c = computed{err: fmt.Errorf("%w after %v", core.ErrTestTimeout, e.opts.TestTimeout)}
	}

	if c.err == nil && !c.outcome.Valid() {
		c.err = fmt.Errorf("%w: non-finite statistic or p-value", core.ErrDegenerateVariance)
	}
	if c.err != nil {
		e.logger.Warn("[Engine] %s/%s/%s failed: %v", res.QuestionID, res.GroupKey, res.TestName, c.err)
		res.Status = report.StatusError
		res.Reason = c.err.Error()
		return res
	}

	o := c.outcome
	res.Statistic = o.Statistic
	res.PValue = o.PValue
	res.EffectSize = o.EffectSize
	res.EffectUnit = o.EffectUnit
	res.GroupN = o.GroupN
	res.ReferenceN = o.ReferenceN
	if o.PValue < alpha && stats.MeetsBeta(j.test, o, beta) {
		res.Status = report.StatusPass
	} else {
		res.Status = report.StatusFail
	}
	e.logger.Trace("[Engine] %s/%s/%s p=%.4g effect=%.4g %s",
		res.QuestionID, res.GroupKey, res.TestName, o.PValue, o.EffectSize, res.Status)
	return res
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
