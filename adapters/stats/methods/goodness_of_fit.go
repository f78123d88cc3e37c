package methods

import (
	"context"
	"fmt"
	"math"

	"simplesurvey/domain/core"
	"simplesurvey/domain/stats"
)

// GoodnessOfFitTest checks a group's answers against a uniform spread over
// the answer categories. It only looks at the group itself.
type GoodnessOfFitTest struct{}

// NewGoodnessOfFitTest creates a new chi-square goodness-of-fit test
func NewGoodnessOfFitTest() *GoodnessOfFitTest {
	return &GoodnessOfFitTest{}
}

// Name returns the test name
func (t *GoodnessOfFitTest) Name() string {
	return "goodness_of_fit"
}

// Description returns a human-readable description
func (t *GoodnessOfFitTest) Description() string {
	return "Chi-square goodness of fit of a group's answers against a uniform distribution"
}

// Compute returns χ², its p-value and Cohen's w. With a scale every label is
// a category, observed or not; answers outside the scale are ignored.
func (t *GoodnessOfFitTest) Compute(ctx context.Context, s stats.Sample) (stats.Outcome, error) {
	if err := checkContext(ctx); err != nil {
		return stats.Outcome{}, err
	}

	answers := present(s.Group)
	var cats []string
	if s.Scale != nil {
		cats = s.Scale.SortedLabels()
	} else {
		cats = categoryOrder(answers, nil)
	}
	observed := counts(answers, cats)

	n := 0.0
	for _, c := range observed {
		n += c
	}
	if n < MinSampleSize {
		return stats.Outcome{}, insufficient(t.Name(), "the group", int(n))
	}
	if len(cats) < 2 {
		return stats.Outcome{}, fmt.Errorf("%w: a single answer category", core.ErrDegenerateVariance)
	}

	expected := n / float64(len(cats))
	chiSq := 0.0
	for _, o := range observed {
		d := o - expected
		chiSq += d * d / expected
	}
	df := float64(len(cats) - 1)

	return stats.Outcome{
		Statistic:        chiSq,
		PValue:           chiSquareSurvival(chiSq, df),
		EffectSize:       math.Sqrt(chiSq / n),
		EffectUnit:       "w",
		DegreesOfFreedom: df,
		GroupN:           int(n),
	}, nil
}
