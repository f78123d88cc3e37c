package question

import (
	"strconv"
	"strings"

	"simplesurvey/domain/dataset"
)

// AllGroupKey names the single group of a question without breakdown fields
const AllGroupKey = "all"

// Label is one breakdown field value of a group
type Label struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Group is a named view over the records sharing one combination of
// breakdown values.
type Group struct {
	Key     string           `json:"key"`
	Labels  []Label          `json:"labels,omitempty"`
	Members []int            `json:"-"` // positions in the partitioned dataset
	View    *dataset.Dataset `json:"-"`
}

// Size returns the number of records in the group
func (g Group) Size() int { return len(g.Members) }

// Group partitions ds by the distinct combinations of the question's
// breakdown values actually present. Groups appear in the order their first
// record appears; every record lands in exactly one group.
func (q *Question) Group(ds *dataset.Dataset) ([]Group, error) {
	if err := q.Validate(ds.Schema()); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, nil
	}
	if len(q.Breakdown) == 0 {
		members := make([]int, ds.Len())
		for i := range members {
			members[i] = i
		}
		return []Group{{Key: AllGroupKey, Members: members, View: ds}}, nil
	}

	var groups []Group
	slot := make(map[string]int)
	for i, r := range ds.All() {
		labels := make([]Label, len(q.Breakdown))
		parts := make([]string, len(q.Breakdown))
		for j, f := range q.Breakdown {
			v := r.Field(f)
			labels[j] = Label{Field: f, Value: v.String()}
			parts[j] = tuplePart(v)
		}
		tuple := strings.Join(parts, "\x00")

		k, ok := slot[tuple]
		if !ok {
			k = len(groups)
			slot[tuple] = k
			groups = append(groups, Group{Key: formatKey(labels), Labels: labels})
		}
		groups[k].Members = append(groups[k].Members, i)
	}

	for k := range groups {
		groups[k].View = ds.Subset(groups[k].Members)
	}
	return groups, nil
}

// tuplePart keeps a missing value apart from an answer that reads like
// the missing label
func tuplePart(v dataset.Value) string {
	if v.Missing {
		return "\x01"
	}
	return strconv.Quote(v.Text)
}

func formatKey(labels []Label) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Field + "=" + l.Value
	}
	return strings.Join(parts, ", ")
}
