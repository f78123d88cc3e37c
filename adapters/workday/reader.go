// Package workday fetches survey responses published as Workday custom
// reports in JSON format.
package workday

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"simplesurvey/adapters/excel"
	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
	"simplesurvey/internal"
)

// DefaultDataPath is where Workday puts report rows
const DefaultDataPath = "Report_Entry"

// DefaultMaxBytes caps a report body
const DefaultMaxBytes = 64 << 20

// Config describes one report endpoint
type Config struct {
	URL      string
	Username string
	Password string
	DataPath string
	Timeout  time.Duration
	MaxBytes int64 // 0 means DefaultMaxBytes
}

// Reader downloads a report and turns it into a response table
type Reader struct {
	config     Config
	httpClient *http.Client
	logger     *internal.Logger
}

// NewReader creates a report reader
func NewReader(config Config, logger *internal.Logger) *Reader {
	if config.DataPath == "" {
		config.DataPath = DefaultDataPath
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultMaxBytes
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Reader{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// Load fetches the report into a dataset
func (r *Reader) Load(ctx context.Context, schema dataset.Schema, columns map[string]string) (*dataset.Dataset, error) {
	table, err := r.FetchTable(ctx)
	if err != nil {
		return nil, err
	}
	return table.Dataset(r.config.URL, schema, columns)
}

// FetchTable downloads the report. Headers are the union of entry keys in
// first-seen order.
func (r *Reader) FetchTable(ctx context.Context) (*excel.RawTable, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.URL, nil)
	if err != nil {
		return nil, core.NewLoadError(r.config.URL, "failed to build request", err)
	}
	req.SetBasicAuth(r.config.Username, r.config.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, core.NewLoadError(r.config.URL, "report request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.config.MaxBytes+1))
	if err != nil {
		return nil, core.NewLoadError(r.config.URL, "failed to read response", err)
	}
	if int64(len(body)) > r.config.MaxBytes {
		return nil, core.NewLoadError(r.config.URL, fmt.Sprintf("report exceeds %d bytes", r.config.MaxBytes), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.NewLoadError(r.config.URL, fmt.Sprintf("report returned %s", resp.Status), nil)
	}

	table, err := r.parseResponse(body)
	if err != nil {
		return nil, err
	}
	r.logger.Info("[WorkdayReader] fetched %d entries (%d columns) in %v", len(table.Rows), len(table.Headers), time.Since(start))
	return table, nil
}

func (r *Reader) parseResponse(body []byte) (*excel.RawTable, error) {
	if !gjson.ValidBytes(body) {
		return nil, core.NewLoadError(r.config.URL, "response is not JSON", nil)
	}
	entries := gjson.GetBytes(body, r.config.DataPath)
	if !entries.Exists() || !entries.IsArray() {
		return nil, core.NewLoadError(r.config.URL, fmt.Sprintf("JSON has no %q array", r.config.DataPath), nil)
	}

	position := make(map[string]int)
	var headers []string
	var rows []map[string]string
	entries.ForEach(func(_, entry gjson.Result) bool {
		row := make(map[string]string)
		entry.ForEach(func(key, value gjson.Result) bool {
			k := strings.TrimSpace(key.String())
			if _, ok := position[k]; !ok {
				position[k] = len(headers)
				headers = append(headers, k)
			}
			row[k] = cellText(value)
			return true
		})
		rows = append(rows, row)
		return true
	})

	table := &excel.RawTable{Headers: headers, Rows: make([][]string, len(rows))}
	for i, row := range rows {
		cells := make([]string, len(headers))
		for k, v := range row {
			cells[position[k]] = v
		}
		table.Rows[i] = cells
	}
	return table, nil
}

// cellText flattens a JSON value; nested values keep their raw JSON
func cellText(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.JSON:
		return v.Raw
	default:
		return strings.TrimSpace(v.String())
	}
}
