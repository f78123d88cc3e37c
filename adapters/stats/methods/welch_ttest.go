package methods

import (
	"context"
	"fmt"
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"simplesurvey/domain/core"
	"simplesurvey/domain/stats"
)

// WelchTTest detects a difference between the group's mean answer and the
// reference mean without assuming equal variances
type WelchTTest struct{}

// NewWelchTTest creates a new Welch's t-test
func NewWelchTTest() *WelchTTest {
	return &WelchTTest{}
}

// Name returns the test name
func (t *WelchTTest) Name() string {
	return "welch_ttest"
}

// Description returns a human-readable description
func (t *WelchTTest) Description() string {
	return "Welch's t-test on numeric or scaled answers, group versus reference"
}

// Compute returns t, the two-sided p-value and Cohen's d
func (t *WelchTTest) Compute(ctx context.Context, s stats.Sample) (stats.Outcome, error) {
	if err := checkContext(ctx); err != nil {
		return stats.Outcome{}, err
	}
	group := numeric(s.Group, s.Scale)
	ref := numeric(s.Reference, s.Scale)
	if len(group) < MinSampleSize {
		return stats.Outcome{}, insufficient(t.Name(), "the group", len(group))
	}
	if len(ref) < MinSampleSize {
		return stats.Outcome{}, insufficient(t.Name(), "the reference", len(ref))
	}

	m1, _ := mstats.Mean(group)
	m2, _ := mstats.Mean(ref)
	v1, _ := mstats.SampleVariance(group)
	v2, _ := mstats.SampleVariance(ref)
	n1, n2 := float64(len(group)), float64(len(ref))

	se2 := v1/n1 + v2/n2
	if se2 == 0 {
		return stats.Outcome{}, fmt.Errorf("%w: both samples are constant", core.ErrDegenerateVariance)
	}

	tStat := (m1 - m2) / math.Sqrt(se2)
	a, b := v1/n1, v2/n2
	df := se2 * se2 / (a*a/(n1-1) + b*b/(n2-1))

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pValue := 2 * tDist.Survival(math.Abs(tStat))
	if pValue > 1 {
		pValue = 1
	}

	pooled := math.Sqrt(((n1-1)*v1 + (n2-1)*v2) / (n1 + n2 - 2))
	cohensD := 0.0
	if pooled > 0 {
		cohensD = (m1 - m2) / pooled
	}

	return stats.Outcome{
		Statistic:        tStat,
		PValue:           pValue,
		EffectSize:       cohensD,
		EffectUnit:       "d",
		DegreesOfFreedom: df,
		GroupN:           len(group),
		ReferenceN:       len(ref),
	}, nil
}
