package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"simplesurvey/domain/question"
)

func sample() *Report {
	return &Report{
		Source:       "responses.csv",
		Alpha:        0.05,
		Filters:      []string{"exclude_incomplete"},
		Questions:    []string{"q1"},
		TotalRows:    10,
		FilteredRows: 7,
		Evaluated:    3,
		Results: []TestResult{
			{QuestionID: "q1", GroupKey: "region=A", Labels: []question.Label{{Field: "region", Value: "A"}},
				TestName: "chi_square", PValue: 0.01, GroupN: 4, ReferenceN: 3, Status: StatusPass},
		},
		Failures: []TestResult{
			{QuestionID: "q1", GroupKey: "region=C", TestName: "chi_square", Status: StatusError, Reason: "insufficient data"},
		},
	}
}

func TestSummary(t *testing.T) {
	s := sample().Summary()
	assert.Equal(t, Summary{Questions: 1, Evaluated: 3, Passed: 1, NotSignificant: 1, Errors: 1}, s)
}

func TestRows_PassingFirst(t *testing.T) {
	rows := sample().Rows()
	assert.Len(t, rows, 2)
	assert.Equal(t, StatusPass, rows[0].Status)
	assert.Equal(t, StatusError, rows[1].Status)
	assert.Equal(t, 7, rows[0].N())
}

func TestSeal_DeterministicAndSensitive(t *testing.T) {
	a, b := sample(), sample()
	a.Seal()
	b.Seal()
	assert.False(t, a.Fingerprint.IsEmpty())
	assert.Equal(t, a.Fingerprint, b.Fingerprint)

	b.Results[0].PValue = 0.02
	b.Seal()
	assert.NotEqual(t, a.Fingerprint, b.Fingerprint)
}

func TestSeal_CoversPromptsAndLabels(t *testing.T) {
	base := sample()
	base.Seal()

	edits := map[string]func(r *Report){
		"prompt":      func(r *Report) { r.Results[0].Prompt = "Are you happy?" },
		"label value": func(r *Report) { r.Results[0].Labels[0].Value = "B" },
		"label field": func(r *Report) { r.Results[0].Labels[0].Field = "team" },
		"extra label": func(r *Report) { r.Results[0].Labels = append(r.Results[0].Labels, question.Label{Field: "tenure", Value: "1"}) },
		"effect unit": func(r *Report) { r.Results[0].EffectUnit = "d" },
	}
	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			r := sample()
			edit(r)
			r.Seal()
			assert.NotEqual(t, base.Fingerprint, r.Fingerprint)
		})
	}
}
