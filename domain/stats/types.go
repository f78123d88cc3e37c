// Package stats defines the capability every statistical test plugged into
// the analysis engine implements, plus the registry that names them.
package stats

import (
	"context"
	"math"

	"simplesurvey/domain/dataset"
)

// Sample is the input of one test computation: the answers of a breakdown
// group and, for two-sample tests, the answers of everyone else in the
// filtered dataset. Reference is nil when the question has a single group.
type Sample struct {
	QuestionID string
	GroupKey   string
	Group      []dataset.Value
	Reference  []dataset.Value
	Scale      *dataset.OrdinalScale
}

// Outcome is what a test computes
type Outcome struct {
	Statistic        float64 `json:"statistic"`
	PValue           float64 `json:"p_value"`
	EffectSize       float64 `json:"effect_size"`
	EffectUnit       string  `json:"effect_unit,omitempty"` // "V", "epsilon2", "d", "w"
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`
	GroupN           int     `json:"group_n"`
	ReferenceN       int     `json:"reference_n"`
}

// N is the total number of answers the test used
func (o Outcome) N() int { return o.GroupN + o.ReferenceN }

// Valid reports whether statistic and p-value are finite and p is a probability
func (o Outcome) Valid() bool {
	return !math.IsNaN(o.Statistic) && !math.IsInf(o.Statistic, 0) &&
		!math.IsNaN(o.PValue) && o.PValue >= 0 && o.PValue <= 1
}

// Test is a pluggable statistical test. Compute returns an error wrapping
// core.ErrInsufficientData or core.ErrDegenerateVariance when the sample
// cannot support the test; the engine records such errors instead of
// aborting the run.
type Test interface {
	Name() string
	Description() string
	Compute(ctx context.Context, s Sample) (Outcome, error)
}

// BetaCriterion is implemented by tests that define their own meaning for
// the secondary (beta) threshold. Tests without it are judged by
// |EffectSize| >= beta.
type BetaCriterion interface {
	MeetsBeta(o Outcome, beta float64) bool
}

// MeetsBeta applies the test's beta criterion, or the effect size default
func MeetsBeta(t Test, o Outcome, beta float64) bool {
	if beta <= 0 {
		return true
	}
	if bc, ok := t.(BetaCriterion); ok {
		return bc.MeetsBeta(o, beta)
	}
	return math.Abs(o.EffectSize) >= beta
}
