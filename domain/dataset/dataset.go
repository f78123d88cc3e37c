package dataset

import (
	"fmt"
	"iter"
	"strings"

	"simplesurvey/domain/core"
)

// Dataset is an ordered, read-only collection of survey responses.
//
// Filtering and grouping never copy records: a derived Dataset shares the
// parent's storage and carries an index of the rows it exposes.
type Dataset struct {
	source string
	schema Schema
	rows   []Record
	index  []int // nil exposes every row
}

// New builds a dataset, filling absent question and metadata keys with the missing marker
func New(source string, schema Schema, records []Record) (*Dataset, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	rows := make([]Record, len(records))
	for i, r := range records {
		rows[i] = normalize(schema, r)
	}
	return &Dataset{source: source, schema: schema, rows: rows}, nil
}

func normalize(schema Schema, r Record) Record {
	out := Record{
		Answers: make(map[string]Value, len(schema.Questions)),
		Meta:    make(map[string]Value, len(schema.Metadata)),
	}
	for _, q := range schema.Questions {
		out.Answers[q] = r.Answer(q)
	}
	for _, f := range schema.Metadata {
		out.Meta[f] = r.Field(f)
	}
	return out
}

// FromTable builds a dataset from a header row and string cells.
// Columns outside the schema are ignored. Short rows are padded with
// missing values; rows wider than the header are rejected.
func FromTable(source string, schema Schema, headers []string, cells [][]string) (*Dataset, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, core.NewLoadError(source, "no header row", nil)
	}

	position := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if _, dup := position[h]; dup && h != "" {
			return nil, core.NewLoadError(source, fmt.Sprintf("duplicate column %q", h), nil)
		}
		position[h] = i
	}

	var missing []string
	for _, c := range schema.Columns() {
		if _, ok := position[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, core.NewMissingColumnsError(source, missing)
	}

	rows := make([]Record, 0, len(cells))
	for n, row := range cells {
		if len(row) > len(headers) {
			return nil, core.NewLoadError(source,
				fmt.Sprintf("row %d has %d cells but the header has %d", n+1, len(row), len(headers)), nil)
		}
		cell := func(col string) Value {
			i := position[col]
			if i >= len(row) {
				return MissingValue
			}
			return Text(row[i])
		}
		rec := Record{
			Answers: make(map[string]Value, len(schema.Questions)),
			Meta:    make(map[string]Value, len(schema.Metadata)),
		}
		for _, q := range schema.Questions {
			rec.Answers[q] = cell(q)
		}
		for _, f := range schema.Metadata {
			rec.Meta[f] = cell(f)
		}
		rows = append(rows, rec)
	}

	return &Dataset{source: source, schema: schema, rows: rows}, nil
}

// Source names where the data came from
func (d *Dataset) Source() string { return d.source }

// Schema returns the declared columns
func (d *Dataset) Schema() Schema { return d.schema }

// Len returns the number of visible records
func (d *Dataset) Len() int {
	if d.index == nil {
		return len(d.rows)
	}
	return len(d.index)
}

// At returns the i-th visible record
func (d *Dataset) At(i int) Record {
	return d.rows[d.rowID(i)]
}

func (d *Dataset) rowID(i int) int {
	if d.index == nil {
		return i
	}
	return d.index[i]
}

// All yields visible records in order. Each range over the sequence starts
// from the first record again.
func (d *Dataset) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i := 0; i < d.Len(); i++ {
			if !yield(i, d.At(i)) {
				return
			}
		}
	}
}

// Column returns the values of a question or metadata column across visible records
func (d *Dataset) Column(name string) []Value {
	out := make([]Value, d.Len())
	for i, r := range d.All() {
		out[i] = r.Lookup(name)
	}
	return out
}

// Subset returns a view of the records at the given positions (relative to d)
func (d *Dataset) Subset(positions []int) *Dataset {
	index := make([]int, len(positions))
	for i, p := range positions {
		index[i] = d.rowID(p)
	}
	return &Dataset{source: d.source, schema: d.schema, rows: d.rows, index: index}
}

// Exclude returns a view of every record not at the given positions
func (d *Dataset) Exclude(positions []int) *Dataset {
	drop := make(map[int]bool, len(positions))
	for _, p := range positions {
		drop[p] = true
	}
	keep := make([]int, 0, d.Len()-len(drop))
	for i := 0; i < d.Len(); i++ {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	return d.Subset(keep)
}

// Where returns a view of the records for which keep returns true
func (d *Dataset) Where(keep func(Record) bool) *Dataset {
	positions := make([]int, 0, d.Len())
	for i, r := range d.All() {
		if keep(r) {
			positions = append(positions, i)
		}
	}
	return d.Subset(positions)
}

// RowIDs returns the storage row of each visible record. Two views of the
// same parent expose the same record when they share a row id.
func (d *Dataset) RowIDs() []int {
	ids := make([]int, d.Len())
	for i := range ids {
		ids[i] = d.rowID(i)
	}
	return ids
}

// Summary describes the shape of a dataset
type Summary struct {
	Source    string `json:"source"`
	Rows      int    `json:"rows"`
	Complete  int    `json:"complete"`
	Questions int    `json:"questions"`
	Metadata  int    `json:"metadata"`
}

// Summarize counts rows, complete rows and declared columns
func (d *Dataset) Summarize() Summary {
	complete := 0
	for _, r := range d.All() {
		if r.Complete() {
			complete++
		}
	}
	return Summary{
		Source:    d.source,
		Rows:      d.Len(),
		Complete:  complete,
		Questions: len(d.schema.Questions),
		Metadata:  len(d.schema.Metadata),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("Number of Rows: %d\nComplete Rows: %d\nNumber of Questions: %d\nNumber of Dimensions: %d",
		s.Rows, s.Complete, s.Questions, s.Metadata)
}
