// Package filter holds named, pure predicates that decide which survey
// responses take part in an analysis.
package filter

import (
	"strings"
	"sync"

	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
)

// Predicate decides whether a record is kept. Implementations must not
// mutate the record or depend on anything but the record itself.
type Predicate interface {
	Keep(r dataset.Record) bool
}

// PredicateFunc adapts a plain function to Predicate
type PredicateFunc func(r dataset.Record) bool

// Keep calls f(r)
func (f PredicateFunc) Keep(r dataset.Record) bool { return f(r) }

// Registry maps filter names to predicates
type Registry struct {
	mu    sync.RWMutex
	order []string
	preds map[string]Predicate
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{preds: make(map[string]Predicate)}
}

// Register adds a named filter
func (r *Registry) Register(name string, p Predicate) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.NewConfigurationError("filter", "name cannot be empty")
	}
	if p == nil {
		return core.NewConfigurationError(name, "filter predicate cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.preds[name]; exists {
		return core.NewConfigurationError(name, "filter already registered")
	}
	r.preds[name] = p
	r.order = append(r.order, name)
	return nil
}

// Lookup returns a registered predicate
func (r *Registry) Lookup(name string) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.preds[name]
	return p, ok
}

// Names returns filter names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Resolve checks every name before anything is evaluated
func (r *Registry) Resolve(names []string) ([]Predicate, error) {
	seen := make(map[string]bool, len(names))
	preds := make([]Predicate, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		p, ok := r.Lookup(n)
		if !ok {
			return nil, &core.UnknownFilterError{Name: n}
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// Apply returns a view of ds holding the records every selected filter keeps.
// The selection is a set intersection, so the order of names has no effect.
func (r *Registry) Apply(ds *dataset.Dataset, names []string) (*dataset.Dataset, error) {
	preds, err := r.Resolve(names)
	if err != nil {
		return nil, err
	}
	return ds.Where(func(rec dataset.Record) bool {
		for _, p := range preds {
			if !p.Keep(rec) {
				return false
			}
		}
		return true
	}), nil
}
