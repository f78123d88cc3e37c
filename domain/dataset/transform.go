package dataset

import (
	"strings"

	"simplesurvey/domain/core"
)

// RenameHeaders maps raw header text (usually the question prompt) to column
// identifiers. Headers without a mapping are kept as they are.
func RenameHeaders(headers []string, mapping map[string]string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if id, ok := mapping[h]; ok {
			out[i] = id
			continue
		}
		out[i] = h
	}
	return out
}

// Derive adds a calculated metadata field computed from each record.
// The result owns new record storage; d is left untouched.
func (d *Dataset) Derive(field string, fn func(Record) Value) (*Dataset, error) {
	if d.schema.HasField(field) || d.schema.HasQuestion(field) {
		return nil, core.NewConfigurationError(field, "calculated column collides with an existing column")
	}
	schema := d.schema.WithField(field)
	rows := make([]Record, 0, d.Len())
	for _, r := range d.All() {
		out := r.clone()
		out.Meta[field] = fn(r)
		rows = append(rows, out)
	}
	return &Dataset{source: d.source, schema: schema, rows: rows}, nil
}

// Join left-joins the metadata of dimensions onto responses, matching
// responses' leftOn field with dimensions' rightOn field. Unmatched responses
// get missing values for every joined field.
func Join(responses, dimensions *Dataset, leftOn, rightOn string) (*Dataset, error) {
	if !responses.schema.HasField(leftOn) {
		return nil, core.NewConfigurationError(leftOn, "join key is not a response metadata field")
	}
	if !dimensions.schema.HasField(rightOn) {
		return nil, core.NewConfigurationError(rightOn, "join key is not a dimension metadata field")
	}

	var joined []string
	for _, f := range dimensions.schema.Metadata {
		if f == rightOn {
			continue
		}
		if responses.schema.HasField(f) || responses.schema.HasQuestion(f) {
			return nil, core.NewConfigurationError(f, "dimension field collides with a response column")
		}
		joined = append(joined, f)
	}

	byKey := make(map[string]Record, dimensions.Len())
	for _, r := range dimensions.All() {
		key := r.Field(rightOn)
		if key.Missing {
			continue
		}
		if _, dup := byKey[key.Text]; dup {
			return nil, core.NewConfigurationError(rightOn, "join key %q appears more than once in %s", key.Text, dimensions.source)
		}
		byKey[key.Text] = r
	}

	schema := Schema{
		Questions: append([]string(nil), responses.schema.Questions...),
		Metadata:  append(append([]string(nil), responses.schema.Metadata...), joined...),
	}
	rows := make([]Record, 0, responses.Len())
	for _, r := range responses.All() {
		out := r.clone()
		match, ok := Record{}, false
		if key := r.Field(leftOn); !key.Missing {
			match, ok = byKey[key.Text]
		}
		for _, f := range joined {
			if ok {
				out.Meta[f] = match.Field(f)
			} else {
				out.Meta[f] = MissingValue
			}
		}
		rows = append(rows, out)
	}
	return &Dataset{source: responses.source, schema: schema, rows: rows}, nil
}
