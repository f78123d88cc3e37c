package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
	"simplesurvey/internal"
)

// categoricalLimit is the most distinct values a column can hold and still
// be profiled as categorical
const categoricalLimit = 20

// DataReader reads survey responses from CSV and Excel files
type DataReader struct {
	filePath string
	fileType string // "xlsx", "csv" or the unrecognised extension
	logger   *internal.Logger
}

// NewDataReader creates a reader; the format follows the file extension
func NewDataReader(filePath string, logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
	return &DataReader{filePath: filePath, fileType: fileType, logger: logger}
}

// Load reads the file into a dataset after renaming headers through columns
func (r *DataReader) Load(ctx context.Context, schema dataset.Schema, columns map[string]string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := r.ReadTable()
	if err != nil {
		return nil, err
	}
	return table.Dataset(r.filePath, schema, columns)
}

// ReadTable reads the raw header row and cells
func (r *DataReader) ReadTable() (*RawTable, error) {
	r.logger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	switch r.fileType {
	case "csv", "xlsx":
	default:
		return nil, core.NewLoadError(r.filePath, fmt.Sprintf("unknown response format %q", r.fileType), nil)
	}
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, core.NewLoadError(r.filePath, "file not readable", err)
	}

	if r.fileType == "csv" {
		file, err := os.Open(r.filePath)
		if err != nil {
			return nil, core.NewLoadError(r.filePath, "failed to open CSV file", err)
		}
		defer file.Close()
		return ReadCSVTable(r.filePath, file, r.logger)
	}
	return r.readExcel()
}

// readExcel reads the first sheet of the workbook
func (r *DataReader) readExcel() (*RawTable, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, core.NewLoadError(r.filePath, "failed to open Excel file", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewLoadError(r.filePath, "workbook has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, core.NewLoadError(r.filePath, fmt.Sprintf("failed to read sheet %q", sheets[0]), err)
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d rows)", sheets[0], float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	return processRows(r.filePath, rows, r.logger)
}

// ReadCSVTable reads CSV from any reader, e.g. an upload body
func ReadCSVTable(source string, in io.Reader, logger *internal.Logger) (*RawTable, error) {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	start := time.Now()
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, core.NewLoadError(source, "malformed CSV", err)
	}
	logger.Debug("[DataReader] CSV read in %.2fms (%d rows)", float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return processRows(source, rows, logger)
}

// CSVSource adapts an in-memory CSV stream, such as an upload body, to a
// response source
type CSVSource struct {
	name   string
	in     io.Reader
	logger *internal.Logger
}

// NewCSVSource wraps in; name is reported as the dataset source
func NewCSVSource(name string, in io.Reader, logger *internal.Logger) *CSVSource {
	return &CSVSource{name: name, in: in, logger: logger}
}

// Load reads the stream once
func (s *CSVSource) Load(ctx context.Context, schema dataset.Schema, columns map[string]string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := ReadCSVTable(s.name, s.in, s.logger)
	if err != nil {
		return nil, err
	}
	return table.Dataset(s.name, schema, columns)
}

// processRows splits off the header and trims cells. Trailing empty cells
// beyond the header are dropped; other overlong rows are left for the
// dataset to reject.
func processRows(source string, rows [][]string, logger *internal.Logger) (*RawTable, error) {
	if len(rows) == 0 {
		return nil, core.NewLoadError(source, "no header row", nil)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = strings.TrimSpace(c)
		}
		for len(cells) > len(headers) && cells[len(cells)-1] == "" {
			cells = cells[:len(cells)-1]
		}
		data = append(data, cells)
	}

	logger.Info("[DataReader] %s processed (%d columns, %d rows)", source, len(headers), len(data))
	return &RawTable{Headers: headers, Rows: data}, nil
}

// Dataset renames headers and builds a dataset over the schema
func (t *RawTable) Dataset(source string, schema dataset.Schema, columns map[string]string) (*dataset.Dataset, error) {
	headers := dataset.RenameHeaders(t.Headers, columns)
	return dataset.FromTable(source, schema, headers, t.Rows)
}

// Profile infers a kind per column, in header order
func (t *RawTable) Profile() []ColumnProfile {
	out := make([]ColumnProfile, len(t.Headers))
	for i, h := range t.Headers {
		distinct := make(map[string]bool)
		missing, numeric := 0, 0
		for _, row := range t.Rows {
			if i >= len(row) || row[i] == "" {
				missing++
				continue
			}
			distinct[row[i]] = true
			if _, ok := dataset.Text(row[i]).Float(); ok {
				numeric++
			}
		}

		p := ColumnProfile{Header: h, Distinct: len(distinct), Missing: missing}
		present := len(t.Rows) - missing
		switch {
		case present == 0:
			p.Kind = KindEmpty
		case numeric == present && len(distinct) > categoricalLimit:
			p.Kind = KindNumeric
		case len(distinct) <= categoricalLimit:
			p.Kind = KindCategorical
		default:
			p.Kind = KindText
		}
		out[i] = p
	}
	return out
}

// DistinctValues returns the sorted distinct non-empty values of a column
func (t *RawTable) DistinctValues(header string) []string {
	idx := -1
	for i, h := range t.Headers {
		if h == header {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.Rows {
		if idx < len(row) && row[idx] != "" && !seen[row[idx]] {
			seen[row[idx]] = true
			out = append(out, row[idx])
		}
	}
	sort.Strings(out)
	return out
}
