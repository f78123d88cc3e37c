package methods

import (
	"context"
	"fmt"

	"simplesurvey/domain/core"
	"simplesurvey/domain/stats"
)

// KruskalWallisTest compares the rank distribution of a group's ordinal
// answers with the rest of the respondents
type KruskalWallisTest struct{}

// NewKruskalWallisTest creates a new Kruskal-Wallis H test
func NewKruskalWallisTest() *KruskalWallisTest {
	return &KruskalWallisTest{}
}

// Name returns the test name
func (t *KruskalWallisTest) Name() string {
	return "kruskal_wallis"
}

// Description returns a human-readable description
func (t *KruskalWallisTest) Description() string {
	return "Kruskal-Wallis H test on ranked ordinal answers, group versus reference"
}

// Compute returns the tie-corrected H statistic, its χ²(1) p-value and ε²
func (t *KruskalWallisTest) Compute(ctx context.Context, s stats.Sample) (stats.Outcome, error) {
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

	h, err := kruskalWallisH(group, ref)
	if err != nil {
		return stats.Outcome{}, err
	}
	n := float64(len(group) + len(ref))

	return stats.Outcome{
		Statistic:        h,
		PValue:           chiSquareSurvival(h, 1),
		EffectSize:       h / (n - 1),
		EffectUnit:       "epsilon2",
		DegreesOfFreedom: 1,
		GroupN:           len(group),
		ReferenceN:       len(ref),
	}, nil
}

// kruskalWallisH computes H over any number of samples
func kruskalWallisH(samples ...[]float64) (float64, error) {
	var all []float64
	for _, s := range samples {
		all = append(all, s...)
	}
	n := float64(len(all))
	ranks, ties := averageRanks(all)

	correction := 1 - ties/(n*n*n-n)
	if correction <= 0 {
		return 0, fmt.Errorf("%w: every answer has the same rank", core.ErrDegenerateVariance)
	}

	sum := 0.0
	offset := 0
	for _, s := range samples {
		rankSum := 0.0
		for i := range s {
			rankSum += ranks[offset+i]
		}
		offset += len(s)
		sum += rankSum * rankSum / float64(len(s))
	}

	h := 12/(n*(n+1))*sum - 3*(n+1)
	return h / correction, nil
}
