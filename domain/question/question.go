// Package question models survey questions declaratively: what was asked,
// which metadata fields break the answers down into comparison groups, and
// which statistical tests run against each group.
package question

import (
	"strings"

	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
)

// Question is a declared survey question
type Question struct {
	ID        string                `json:"id"`
	Prompt    string                `json:"prompt"`
	Breakdown []string              `json:"breakdown,omitempty"`
	Tests     []string              `json:"tests"`
	Scale     *dataset.OrdinalScale `json:"-"`
}

// Option customises a question at definition time
type Option func(*Question)

// WithScale attaches an ordinal scale used by rank and mean based tests
func WithScale(s *dataset.OrdinalScale) Option {
	return func(q *Question) { q.Scale = s }
}

// Validate checks the breakdown against a dataset schema
func (q *Question) Validate(schema dataset.Schema) error {
	seen := make(map[string]bool, len(q.Breakdown))
	for _, f := range q.Breakdown {
		if !schema.HasField(f) {
			return &core.InvalidBreakdownError{Question: q.ID, Field: f}
		}
		if seen[f] {
			return core.NewConfigurationError(q.ID, "breakdown field %q listed twice", f)
		}
		seen[f] = true
	}
	return nil
}

// Registry holds the questions of one survey in definition order
type Registry struct {
	schema dataset.Schema
	order  []*Question
	byID   map[string]*Question
}

// NewRegistry creates an empty registry bound to a dataset schema
func NewRegistry(schema dataset.Schema) *Registry {
	return &Registry{schema: schema, byID: make(map[string]*Question)}
}

// Define registers a question. The prompt defaults to the identifier.
func (r *Registry) Define(id, prompt string, breakdown, tests []string, opts ...Option) (*Question, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, core.NewConfigurationError("question", "identifier cannot be empty")
	}
	if _, exists := r.byID[id]; exists {
		return nil, &core.DuplicateQuestionError{ID: id}
	}
	if !r.schema.HasQuestion(id) {
		return nil, core.NewConfigurationError(id, "question is not a column of the response schema")
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = id
	}

	q := &Question{
		ID:        id,
		Prompt:    prompt,
		Breakdown: append([]string(nil), breakdown...),
		Tests:     append([]string(nil), tests...),
	}
	for _, opt := range opts {
		opt(q)
	}
	if err := q.Validate(r.schema); err != nil {
		return nil, err
	}

	r.byID[id] = q
	r.order = append(r.order, q)
	return q, nil
}

// Get returns a question by identifier
func (r *Registry) Get(id string) (*Question, bool) {
	q, ok := r.byID[id]
	return q, ok
}

// All returns questions in definition order
func (r *Registry) All() []*Question {
	return append([]*Question(nil), r.order...)
}

// Len returns the number of questions
func (r *Registry) Len() int { return len(r.order) }

// Schema returns the schema questions were validated against
func (r *Registry) Schema() dataset.Schema { return r.schema }

// Dimensions returns every metadata field used as a breakdown, first use first
func (r *Registry) Dimensions() []string {
	var out []string
	seen := make(map[string]bool)
	for _, q := range r.order {
		for _, f := range q.Breakdown {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}
