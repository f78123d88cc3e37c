package dataset

import (
	"sort"

	"simplesurvey/domain/core"
)

// OrdinalScale maps ordered answer labels to numeric ratings,
// e.g. "Disagree" -> 1 ... "Agree" -> 5.
type OrdinalScale struct {
	name    string
	labels  []string
	ratings []float64
	lookup  map[string]float64
}

// NewOrdinalScale pairs every label with a rating
func NewOrdinalScale(name string, labels []string, ratings []float64) (*OrdinalScale, error) {
	if len(labels) != len(ratings) {
		return nil, core.NewConfigurationError(name, "scale has %d labels but %d ratings", len(labels), len(ratings))
	}
	if len(labels) < 2 {
		return nil, core.NewConfigurationError(name, "scale needs at least two labels")
	}
	lookup := make(map[string]float64, len(labels))
	for i, l := range labels {
		if _, dup := lookup[l]; dup {
			return nil, core.NewConfigurationError(name, "scale label %q repeated", l)
		}
		lookup[l] = ratings[i]
	}
	return &OrdinalScale{
		name:    name,
		labels:  append([]string(nil), labels...),
		ratings: append([]float64(nil), ratings...),
		lookup:  lookup,
	}, nil
}

// Name returns the scale name
func (s *OrdinalScale) Name() string { return s.name }

// Labels returns the labels in declaration order
func (s *OrdinalScale) Labels() []string { return append([]string(nil), s.labels...) }

// Rating returns the rating of a label
func (s *OrdinalScale) Rating(label string) (float64, bool) {
	r, ok := s.lookup[label]
	return r, ok
}

// Scoring returns the label -> rating mapping
func (s *OrdinalScale) Scoring() map[string]float64 {
	out := make(map[string]float64, len(s.lookup))
	for k, v := range s.lookup {
		out[k] = v
	}
	return out
}

// SortedLabels returns labels ordered by ascending rating, ties in declaration order
func (s *OrdinalScale) SortedLabels() []string {
	idx := make([]int, len(s.labels))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return s.ratings[idx[a]] < s.ratings[idx[b]] })
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = s.labels[j]
	}
	return out
}

// Numeric converts a value to a number, through the scale when one is given
func Numeric(v Value, scale *OrdinalScale) (float64, bool) {
	if v.Missing {
		return 0, false
	}
	if scale != nil {
		return scale.Rating(v.Text)
	}
	return v.Float()
}
