package methods

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"simplesurvey/domain/core"
	"simplesurvey/domain/stats"
)

// ChiSquareTest tests whether a group answers a question with the same
// distribution as the rest of the respondents
type ChiSquareTest struct{}

// NewChiSquareTest creates a new chi-square independence test
func NewChiSquareTest() *ChiSquareTest {
	return &ChiSquareTest{}
}

// Name returns the test name
func (t *ChiSquareTest) Name() string {
	return "chi_square"
}

// Description returns a human-readable description
func (t *ChiSquareTest) Description() string {
	return "Chi-square test of independence between group membership and answer category"
}

// Compute builds the 2×k contingency table (group, reference) × answer and
// returns χ², its p-value and Cramér's V
func (t *ChiSquareTest) Compute(ctx context.Context, s stats.Sample) (stats.Outcome, error) {
	if err := checkContext(ctx); err != nil {
		return stats.Outcome{}, err
	}
	group := present(s.Group)
	ref := present(s.Reference)
	if len(group) < MinSampleSize {
		return stats.Outcome{}, insufficient(t.Name(), "the group", len(group))
	}
	if len(ref) < MinSampleSize {
		return stats.Outcome{}, insufficient(t.Name(), "the reference", len(ref))
	}

	cats := categoryOrder(append(append([]string(nil), group...), ref...), s.Scale)
	if len(cats) < 2 {
		return stats.Outcome{}, fmt.Errorf("%w: every answer is %q", core.ErrDegenerateVariance, cats[0])
	}

	table := [][]float64{counts(group, cats), counts(ref, cats)}
	chiSq, df := chiSquareFromContingency(table)
	n := float64(len(group) + len(ref))

	// Cramér's V for a 2×k table: min(r-1, c-1) = 1
	cramersV := math.Sqrt(chiSq / n)

	return stats.Outcome{
		Statistic:        chiSq,
		PValue:           chiSquareSurvival(chiSq, df),
		EffectSize:       cramersV,
		EffectUnit:       "V",
		DegreesOfFreedom: df,
		GroupN:           len(group),
		ReferenceN:       len(ref),
	}, nil
}

// chiSquareFromContingency returns Pearson's χ² and its degrees of freedom.
// Cells with zero expected count are skipped.
func chiSquareFromContingency(table [][]float64) (float64, float64) {
	rows := len(table)
	cols := len(table[0])

	rowTotals := make([]float64, rows)
	colTotals := make([]float64, cols)
	total := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			rowTotals[i] += table[i][j]
			colTotals[j] += table[i][j]
			total += table[i][j]
		}
	}

	chiSq := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			expected := rowTotals[i] * colTotals[j] / total
			if expected > 0 {
				d := table[i][j] - expected
				chiSq += d * d / expected
			}
		}
	}
	return chiSq, float64((rows - 1) * (cols - 1))
}

func chiSquareSurvival(x, df float64) float64 {
	if x <= 0 {
		return 1
	}
	return distuv.ChiSquared{K: df}.Survival(x)
}
