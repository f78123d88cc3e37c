package workday

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
)

func reportServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test" || pass != "test2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchTable(t *testing.T) {
	srv := reportServer(t, http.StatusOK, `{"Report_Entry": [
		{"field1": "2013-11-28", "field2": "type", "field3": "name"},
		{"field2": "other", "field4": 7, "field1": null}
	]}`)

	table, err := NewReader(Config{URL: srv.URL, Username: "test", Password: "test2"}, nil).FetchTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"field1", "field2", "field3", "field4"}, table.Headers)
	assert.Equal(t, [][]string{
		{"2013-11-28", "type", "name", ""},
		{"", "other", "", "7"},
	}, table.Rows)
}

func TestLoad_Dataset(t *testing.T) {
	srv := reportServer(t, http.StatusOK, `{"Report_Entry": [
		{"Happy": "yes", "Region": "A"},
		{"Happy": "no", "Region": "B"}
	]}`)
	schema := dataset.Schema{Questions: []string{"q1"}, Metadata: []string{"region"}}

	ds, err := NewReader(Config{URL: srv.URL, Username: "test", Password: "test2"}, nil).
		Load(context.Background(), schema, map[string]string{"Happy": "q1", "Region": "region"})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, "no", ds.At(1).Answer("q1").Text)
}

func TestFetchTable_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		pass   string
	}{
		{"bad credentials", http.StatusOK, `{"Report_Entry": []}`, "wrong"},
		{"server error", http.StatusInternalServerError, `{}`, "test2"},
		{"unexpected shape", http.StatusOK, `{"entries": []}`, "test2"},
		{"not json", http.StatusOK, `<html>`, "test2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := reportServer(t, tt.status, tt.body)
			_, err := NewReader(Config{URL: srv.URL, Username: "test", Password: tt.pass}, nil).FetchTable(context.Background())
			assert.ErrorIs(t, err, core.ErrLoad)
		})
	}
}

func TestFetchTable_BodyLimit(t *testing.T) {
	body := `{"Report_Entry": [{"Team": "` + strings.Repeat("x", 100) + `"}]}`
	srv := reportServer(t, http.StatusOK, body)

	_, err := NewReader(Config{URL: srv.URL, Username: "test", Password: "test2", MaxBytes: 64}, nil).FetchTable(context.Background())
	require.ErrorIs(t, err, core.ErrLoad)
	assert.Contains(t, err.Error(), "exceeds 64 bytes")

	table, err := NewReader(Config{URL: srv.URL, Username: "test", Password: "test2", MaxBytes: int64(len(body))}, nil).FetchTable(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}
