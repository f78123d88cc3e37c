package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplesurvey/adapters/memory"
	"simplesurvey/adapters/stats/methods"
	"simplesurvey/app"
	"simplesurvey/domain/core"
	"simplesurvey/domain/report"
	"simplesurvey/internal/errors"
)

// Platform answers yes, infrastructure answers no: a clean split
var pulseCSV = "Are you happy at work?,Team\n" +
	strings.Repeat("yes,platform\n", 10) +
	strings.Repeat("no,infrastructure\n", 10)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	def, err := app.LoadDefinition("testdata/survey.yaml")
	require.NoError(t, err)
	survey, err := def.Build()
	require.NoError(t, err)
	svc := app.NewAnalysisService(survey, methods.NewRegistry(), memory.NewReportRepository(), nil, app.DefaultOptions())
	ts := httptest.NewServer(NewServer(svc, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postCSV(t *testing.T, ts *httptest.Server, query, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/analyses"+query, "text/csv", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "trace-42", resp.Header.Get("X-Request-ID"))
}

func TestAnalyzeThenExport(t *testing.T) {
	ts := newTestServer(t)

	resp := postCSV(t, ts, "", pulseCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var stored report.Stored
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	require.NotEmpty(t, stored.ID)
	assert.Equal(t, 2, stored.Report.Evaluated)
	require.Len(t, stored.Report.Results, 2)
	assert.Equal(t, "team=platform", stored.Report.Results[0].GroupKey)
	assert.Equal(t, report.StatusPass, stored.Report.Results[0].Status)

	get, err := http.Get(ts.URL + "/api/reports/" + stored.ID.String())
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)

	csvResp, err := http.Get(ts.URL + "/api/reports/" + stored.ID.String() + "/csv")
	require.NoError(t, err)
	defer csvResp.Body.Close()
	assert.Equal(t, http.StatusOK, csvResp.StatusCode)
	assert.Contains(t, csvResp.Header.Get("Content-Type"), "text/csv")

	htmlResp, err := http.Get(ts.URL + "/api/reports/" + stored.ID.String() + "/html")
	require.NoError(t, err)
	defer htmlResp.Body.Close()
	assert.Equal(t, http.StatusOK, htmlResp.StatusCode)

	list, err := http.Get(ts.URL + "/api/reports?limit=5")
	require.NoError(t, err)
	defer list.Body.Close()
	var reports []report.Stored
	require.NoError(t, json.NewDecoder(list.Body).Decode(&reports))
	assert.Len(t, reports, 1)
}

func TestAnalyze_FilterAndQuestionQuery(t *testing.T) {
	ts := newTestServer(t)

	resp := postCSV(t, ts, "?filter=platform_only&question=happy&alpha=0.1", pulseCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var stored report.Stored
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.Equal(t, 0.1, stored.Report.Alpha)
	assert.Equal(t, []string{"platform_only"}, stored.Report.Filters)
	assert.Equal(t, 10, stored.Report.FilteredRows)
}

func TestAnalyze_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		query  string
		body   string
		status int
		code   string
	}{
		{"unknown filter", "?filter=bots", pulseCSV, http.StatusBadRequest, errors.CodeUnknownFilter},
		{"alpha out of range", "?alpha=2", pulseCSV, http.StatusBadRequest, errors.CodeConfigInvalid},
		{"alpha not a number", "?alpha=low", pulseCSV, http.StatusBadRequest, errors.CodeInvalidInput},
		{"missing column", "", "Team\nplatform\n", http.StatusUnprocessableEntity, errors.CodeLoadFailed},
		{"empty body", "", "", http.StatusUnprocessableEntity, errors.CodeLoadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postCSV(t, ts, tt.query, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decodeError(t, resp).Error.Code)
		})
	}
}

func TestReportLookupErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/reports/not-a-uuid", http.StatusBadRequest},
		{"/api/reports/" + core.NewReportID().String(), http.StatusNotFound},
		{"/api/reports/" + core.NewReportID().String() + "/pdf", http.StatusNotFound},
		{"/api/reports?limit=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
