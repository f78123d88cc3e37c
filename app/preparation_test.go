package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplesurvey/adapters/excel"
	"simplesurvey/adapters/memory"
	"simplesurvey/adapters/stats/methods"
	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
)

const hrResponses = "happy,employee,tenure\nyes,e1,1\nno,e2,5\nyes,e3,3\nno,e4,\n"

func buildHR(t *testing.T) *Survey {
	t.Helper()
	def, err := LoadDefinition("testdata/hr.yaml")
	require.NoError(t, err)
	s, err := def.Build()
	require.NoError(t, err)
	return s
}

func TestBuild_DimensionsAndCalculated(t *testing.T) {
	s := buildHR(t)

	require.NotNil(t, s.Dimensions)
	assert.Equal(t, filepath.Join("testdata", "teams.csv"), s.Dimensions.Path, "relative to the definition file")
	assert.Equal(t, []string{"employee", "tenure"}, s.Schema.Metadata, "response schema is unchanged")
	assert.Equal(t, []string{"employee", "tenure", "department", "tenure_band"}, s.Questions.Schema().Metadata)
}

func TestSurvey_Prepare(t *testing.T) {
	s := buildHR(t)

	responses, err := dataset.FromTable("r", s.Schema, []string{"happy", "employee", "tenure"}, [][]string{
		{"yes", "e1", "1"},
		{"no", "e4", ""},
		{"yes", "e3", "3"},
	})
	require.NoError(t, err)
	dims, err := dataset.FromTable("d", s.Dimensions.Schema, []string{"id", "department"}, [][]string{
		{"e1", "Engineering"},
		{"e3", "Sales"},
	})
	require.NoError(t, err)

	ds, err := s.Prepare(responses, dims)
	require.NoError(t, err)
	assert.Equal(t, "Engineering", ds.At(0).Field("department").Text)
	assert.Equal(t, "new", ds.At(0).Field("tenure_band").Text)
	assert.True(t, ds.At(1).Field("department").Missing, "unmatched employee")
	assert.True(t, ds.At(1).Field("tenure_band").Missing, "blank tenure")
	assert.Equal(t, "established", ds.At(2).Field("tenure_band").Text)

	_, err = s.Prepare(responses, nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestAnalysisService_JoinsDimensions(t *testing.T) {
	s := buildHR(t)
	svc := NewAnalysisService(s, methods.NewRegistry(), memory.NewReportRepository(), nil, DefaultOptions(),
		WithDimensionSource(excel.NewDataReader(s.Dimensions.Path, nil)))

	stored, err := svc.Analyze(context.Background(), excel.NewCSVSource("hr.csv", strings.NewReader(hrResponses), nil),
		AnalysisRequest{Filters: []string{"engineering"}})
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Report.TotalRows)
	assert.Equal(t, 2, stored.Report.FilteredRows)
	assert.Equal(t, 2, stored.Report.Evaluated, "department=Engineering by new and established")
}

func TestDefinition_PreparationErrors(t *testing.T) {
	base := `
name: broken
schema:
  questions: [happy]
  metadata: [employee, tenure]
questions:
  - id: happy
    tests: [chi_square]
`
	tests := []struct {
		name  string
		extra string
	}{
		{"dimension field collides", `
dimensions: {path: d.csv, fields: [id, tenure], left_on: employee, right_on: id}`},
		{"left_on unknown", `
dimensions: {path: d.csv, fields: [id, team], left_on: badge, right_on: id}`},
		{"right_on not a field", `
dimensions: {path: d.csv, fields: [id, team], left_on: employee, right_on: key}`},
		{"calculated collides", `
calculated: [{name: tenure, from: tenure, bands: [{label: all}]}]`},
		{"calculated source unknown", `
calculated: [{name: band, from: age, bands: [{label: all}]}]`},
		{"calculated scale unknown", `
calculated: [{name: band, from: tenure, scale: agree, bands: [{label: all}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := ParseDefinition(strings.NewReader(base + tt.extra))
			require.NoError(t, err)
			_, err = def.Build()
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}
