package report

import (
	"strconv"
	"time"

	"simplesurvey/domain/core"
	"simplesurvey/domain/question"
)

// Status is the outcome class of one test computation
type Status string

const (
	StatusPass  Status = "pass"  // p < alpha and the beta criterion holds
	StatusFail  Status = "fail"  // computed, not significant
	StatusError Status = "error" // could not be computed
)

// TestResult is one (question, group, test) row of a report
type TestResult struct {
	QuestionID string           `json:"question_id"`
	Prompt     string           `json:"prompt"`
	GroupKey   string           `json:"group"`
	Labels     []question.Label `json:"labels,omitempty"`
	TestName   string           `json:"test"`
	Statistic  float64          `json:"statistic"`
	PValue     float64          `json:"p_value"`
	EffectSize float64          `json:"effect_size"`
	EffectUnit string           `json:"effect_unit,omitempty"`
	GroupN     int              `json:"group_n"`
	ReferenceN int              `json:"reference_n"`
	Status     Status           `json:"status"`
	Reason     string           `json:"reason,omitempty"`
}

// N is the number of answers the test used
func (r TestResult) N() int { return r.GroupN + r.ReferenceN }

// Report is the product of one analysis run. It carries no wall-clock time
// and no random identifier: identical inputs give equal reports.
type Report struct {
	Source       string       `json:"source"`
	Alpha        float64      `json:"alpha"`
	Beta         float64      `json:"beta"`
	Filters      []string     `json:"filters"`
	Questions    []string     `json:"questions"`
	TotalRows    int          `json:"total_rows"`
	FilteredRows int          `json:"filtered_rows"`
	Evaluated    int          `json:"evaluated"`
	Results      []TestResult `json:"results"`
	Failures     []TestResult `json:"failures"`
	Fingerprint  core.Hash    `json:"fingerprint"`
}

// Summary counts report rows by status
type Summary struct {
	Questions      int `json:"questions"`
	Evaluated      int `json:"evaluated"`
	Passed         int `json:"passed"`
	NotSignificant int `json:"not_significant"`
	Errors         int `json:"errors"`
}

// Summary returns row counts
func (r *Report) Summary() Summary {
	return Summary{
		Questions:      len(r.Questions),
		Evaluated:      r.Evaluated,
		Passed:         len(r.Results),
		NotSignificant: r.Evaluated - len(r.Results) - len(r.Failures),
		Errors:         len(r.Failures),
	}
}

// Rows returns passing results followed by failures
func (r *Report) Rows() []TestResult {
	rows := make([]TestResult, 0, len(r.Results)+len(r.Failures))
	rows = append(rows, r.Results...)
	return append(rows, r.Failures...)
}

// Seal computes the fingerprint over everything that defines the report
func (r *Report) Seal() {
	h := &core.Hasher{}
	h.Add(r.Source, formatFloat(r.Alpha), formatFloat(r.Beta))
	h.Add(strconv.Itoa(len(r.Filters)))
	h.Add(r.Filters...)
	h.Add(strconv.Itoa(len(r.Questions)))
	h.Add(r.Questions...)
	h.Add(strconv.Itoa(r.TotalRows), strconv.Itoa(r.FilteredRows), strconv.Itoa(r.Evaluated))
	for _, row := range r.Rows() {
		h.Add(row.QuestionID, row.Prompt, row.GroupKey, row.TestName, string(row.Status),
			formatFloat(row.Statistic), formatFloat(row.PValue), formatFloat(row.EffectSize), row.EffectUnit,
			strconv.Itoa(row.GroupN), strconv.Itoa(row.ReferenceN), row.Reason)
		h.Add(strconv.Itoa(len(row.Labels)))
		for _, l := range row.Labels {
			h.Add(l.Field, l.Value)
		}
	}
	r.Fingerprint = h.Sum()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Stored is a report as kept by a repository
type Stored struct {
	ID        core.ReportID `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Report    *Report       `json:"report"`
}
