// Package methods implements the statistical tests the analysis engine can
// run per question and breakdown group.
package methods

import (
	"context"
	"fmt"
	"sort"

	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
	"simplesurvey/domain/stats"
)

// MinSampleSize is the fewest usable answers a side of a comparison needs
const MinSampleSize = 2

// NewRegistry returns a registry with every built-in test, in a stable order
func NewRegistry() *stats.Registry {
	reg, err := stats.NewRegistry(
		NewChiSquareTest(),
		NewKruskalWallisTest(),
		NewWelchTTest(),
		NewGoodnessOfFitTest(),
	)
	if err != nil {
		// built-in names are distinct constants
		panic(err)
	}
	return reg
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrTestTimeout, err)
	}
	return nil
}

func insufficient(name string, side string, have int) error {
	return fmt.Errorf("%w: %s needs %d usable answers in %s, got %d",
		core.ErrInsufficientData, name, MinSampleSize, side, have)
}

// present drops missing answers
func present(values []dataset.Value) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !v.Missing {
			out = append(out, v.Text)
		}
	}
	return out
}

// numeric converts answers through the scale (or as numbers) and drops what
// cannot be converted
func numeric(values []dataset.Value, scale *dataset.OrdinalScale) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := dataset.Numeric(v, scale); ok {
			out = append(out, f)
		}
	}
	return out
}

// categoryOrder orders distinct answers: scale order when the scale knows
// every answer, lexicographic otherwise
func categoryOrder(answers []string, scale *dataset.OrdinalScale) []string {
	seen := make(map[string]bool)
	var cats []string
	for _, a := range answers {
		if !seen[a] {
			seen[a] = true
			cats = append(cats, a)
		}
	}
	if scale != nil {
		var ordered []string
		for _, l := range scale.SortedLabels() {
			if seen[l] {
				ordered = append(ordered, l)
			}
		}
		if len(ordered) == len(cats) {
			return ordered
		}
	}
	sort.Strings(cats)
	return cats
}

// counts tallies answers per category
func counts(answers []string, cats []string) []float64 {
	pos := make(map[string]int, len(cats))
	for i, c := range cats {
		pos[c] = i
	}
	out := make([]float64, len(cats))
	for _, a := range answers {
		if i, ok := pos[a]; ok {
			out[i]++
		}
	}
	return out
}

// averageRanks ranks values from 1, giving ties their mean rank. It returns
// the ranks in input order and the tie correction sum Σ(t³ - t).
func averageRanks(values []float64) ([]float64, float64) {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, n)
	ties := 0.0
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		t := float64(j - i + 1)
		ties += t*t*t - t
		i = j + 1
	}
	return ranks, ties
}
