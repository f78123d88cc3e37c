package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplesurvey/domain/core"
)

func TestRenameHeaders(t *testing.T) {
	got := RenameHeaders(
		[]string{"How happy are you? ", "region"},
		map[string]string{"How happy are you?": "q1"},
	)
	assert.Equal(t, []string{"q1", "region"}, got)
}

func TestDerive_AddsCalculatedField(t *testing.T) {
	ds := mustTable(t, [][]string{{"1", "2", "A"}, {"3", "4", "B"}})
	view := ds.Subset([]int{1})

	derived, err := view.Derive("bucket", func(r Record) Value {
		if r.Answer("q1").Text == "3" {
			return Text("high")
		}
		return Text("low")
	})
	require.NoError(t, err)

	assert.Equal(t, 1, derived.Len())
	assert.True(t, derived.Schema().HasField("bucket"))
	assert.Equal(t, Text("high"), derived.At(0).Field("bucket"))
	// original storage untouched
	_, ok := ds.At(1).Meta["bucket"]
	assert.False(t, ok)

	_, err = ds.Derive("region", func(Record) Value { return MissingValue })
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestJoin_LeftJoinsDimensions(t *testing.T) {
	responses, err := FromTable("responses", Schema{Questions: []string{"q1"}, Metadata: []string{"employee"}},
		[]string{"employee", "q1"},
		[][]string{{"e1", "yes"}, {"e2", "no"}, {"e9", "yes"}, {"", "no"}})
	require.NoError(t, err)

	dims, err := FromTable("hr", Schema{Metadata: []string{"id", "department"}},
		[]string{"id", "department"},
		[][]string{{"e1", "Sales"}, {"e2", "Ops"}})
	require.NoError(t, err)

	joined, err := Join(responses, dims, "employee", "id")
	require.NoError(t, err)

	assert.Equal(t, []string{"employee", "department"}, joined.Schema().Metadata)
	assert.Equal(t, []Value{Text("Sales"), Text("Ops"), MissingValue, MissingValue}, joined.Column("department"))
}

func TestJoin_Errors(t *testing.T) {
	responses, _ := FromTable("r", Schema{Questions: []string{"q1"}, Metadata: []string{"id"}},
		[]string{"id", "q1"}, [][]string{{"1", "a"}})
	dupDims, _ := FromTable("d", Schema{Metadata: []string{"id", "dept"}},
		[]string{"id", "dept"}, [][]string{{"1", "x"}, {"1", "y"}})
	clashDims, _ := FromTable("d", Schema{Metadata: []string{"id", "q1"}},
		[]string{"id", "q1"}, [][]string{{"1", "x"}})

	_, err := Join(responses, dupDims, "id", "id")
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = Join(responses, clashDims, "id", "id")
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = Join(responses, dupDims, "nope", "id")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestOrdinalScale(t *testing.T) {
	s, err := NewOrdinalScale("agree", []string{"Agree", "Neutral", "Disagree"}, []float64{3, 2, 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"Disagree", "Neutral", "Agree"}, s.SortedLabels())
	assert.Equal(t, map[string]float64{"Agree": 3, "Neutral": 2, "Disagree": 1}, s.Scoring())

	r, ok := Numeric(Text("Neutral"), s)
	assert.True(t, ok)
	assert.Equal(t, 2.0, r)

	_, ok = Numeric(Text("Maybe"), s)
	assert.False(t, ok)

	f, ok := Numeric(Text("4"), nil)
	assert.True(t, ok)
	assert.Equal(t, 4.0, f)

	_, err = NewOrdinalScale("bad", []string{"a", "b"}, []float64{1})
	assert.ErrorIs(t, err, core.ErrConfiguration)
	_, err = NewOrdinalScale("dup", []string{"a", "a"}, []float64{1, 2})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
