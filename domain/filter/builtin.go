package filter

import (
	"simplesurvey/domain/dataset"
)

// ExcludeIncompleteName is the conventional name for Complete()
const ExcludeIncompleteName = "exclude_incomplete"

// Complete keeps records that answered every question
func Complete() Predicate {
	return PredicateFunc(func(r dataset.Record) bool { return r.Complete() })
}

// Equals keeps records whose column (answer or metadata) has exactly value
func Equals(column, value string) Predicate {
	return PredicateFunc(func(r dataset.Record) bool {
		v := r.Lookup(column)
		return !v.Missing && v.Text == value
	})
}

// OneOf keeps records whose column matches any of values
func OneOf(column string, values ...string) Predicate {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return PredicateFunc(func(r dataset.Record) bool {
		v := r.Lookup(column)
		return !v.Missing && set[v.Text]
	})
}

// NotMissing keeps records with a value in column
func NotMissing(column string) Predicate {
	return PredicateFunc(func(r dataset.Record) bool { return !r.Lookup(column).Missing })
}

// Between keeps records whose numeric value in column lies in [min, max].
// With a scale, answers are converted through their rating.
func Between(column string, min, max float64, scale *dataset.OrdinalScale) Predicate {
	return PredicateFunc(func(r dataset.Record) bool {
		f, ok := dataset.Numeric(r.Lookup(column), scale)
		return ok && f >= min && f <= max
	})
}

// Not inverts a predicate
func Not(p Predicate) Predicate {
	return PredicateFunc(func(r dataset.Record) bool { return !p.Keep(r) })
}
