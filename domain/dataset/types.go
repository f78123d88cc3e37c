package dataset

import (
	"strconv"
	"strings"

	"simplesurvey/domain/core"
)

// MissingLabel is how a missing value renders in group keys and reports
const MissingLabel = "<missing>"

// Value is a single answer or metadata cell. The zero value is not missing;
// use MissingValue or Text to construct values.
type Value struct {
	Text    string `json:"text,omitempty"`
	Missing bool   `json:"missing,omitempty"`
}

// MissingValue is the explicit missing marker
var MissingValue = Value{Missing: true}

// Text builds a value from raw cell text; blank text is missing
func Text(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return MissingValue
	}
	return Value{Text: s}
}

// String returns the cell text or MissingLabel
func (v Value) String() string {
	if v.Missing {
		return MissingLabel
	}
	return v.Text
}

// Float parses the text as a number
func (v Value) Float() (float64, bool) {
	if v.Missing {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Record is one respondent: answers keyed by question identifier and
// metadata keyed by field name.
type Record struct {
	Answers map[string]Value `json:"answers"`
	Meta    map[string]Value `json:"meta"`
}

// Answer returns the answer to a question, missing if absent
func (r Record) Answer(id string) Value {
	if v, ok := r.Answers[id]; ok {
		return v
	}
	return MissingValue
}

// Field returns a metadata value, missing if absent
func (r Record) Field(name string) Value {
	if v, ok := r.Meta[name]; ok {
		return v
	}
	return MissingValue
}

// Lookup resolves a name against answers first, then metadata
func (r Record) Lookup(name string) Value {
	if v, ok := r.Answers[name]; ok {
		return v
	}
	return r.Field(name)
}

// Complete reports whether every question has a non-missing answer
func (r Record) Complete() bool {
	for _, v := range r.Answers {
		if v.Missing {
			return false
		}
	}
	return true
}

func (r Record) clone() Record {
	out := Record{
		Answers: make(map[string]Value, len(r.Answers)),
		Meta:    make(map[string]Value, len(r.Meta)+1),
	}
	for k, v := range r.Answers {
		out.Answers[k] = v
	}
	for k, v := range r.Meta {
		out.Meta[k] = v
	}
	return out
}

// Schema declares the question columns and metadata fields of a dataset, in order
type Schema struct {
	Questions []string `json:"questions" yaml:"questions" validate:"dive,required"`
	Metadata  []string `json:"metadata" yaml:"metadata" validate:"dive,required"`
}

// HasQuestion reports whether id is a declared question column
func (s Schema) HasQuestion(id string) bool {
	return indexOf(s.Questions, id) >= 0
}

// HasField reports whether name is a declared metadata field
func (s Schema) HasField(name string) bool {
	return indexOf(s.Metadata, name) >= 0
}

// Columns returns questions followed by metadata fields
func (s Schema) Columns() []string {
	cols := make([]string, 0, len(s.Questions)+len(s.Metadata))
	cols = append(cols, s.Questions...)
	return append(cols, s.Metadata...)
}

// Validate rejects empty and repeated column names
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s.Questions)+len(s.Metadata))
	for _, c := range s.Columns() {
		if strings.TrimSpace(c) == "" {
			return core.NewConfigurationError("schema", "empty column name")
		}
		if seen[c] {
			return core.NewConfigurationError(c, "column declared more than once")
		}
		seen[c] = true
	}
	return nil
}

// WithField returns a copy of the schema with an extra metadata field
func (s Schema) WithField(name string) Schema {
	out := Schema{
		Questions: append([]string(nil), s.Questions...),
		Metadata:  append([]string(nil), s.Metadata...),
	}
	out.Metadata = append(out.Metadata, name)
	return out
}

func indexOf(items []string, item string) int {
	for i, it := range items {
		if it == item {
			return i
		}
	}
	return -1
}
