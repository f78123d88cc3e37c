package stats

import (
	"strings"

	"simplesurvey/domain/core"
)

// Registry maps test names to implementations in registration order
type Registry struct {
	order []string
	tests map[string]Test
}

// NewRegistry creates a registry holding the given tests
func NewRegistry(tests ...Test) (*Registry, error) {
	r := &Registry{tests: make(map[string]Test, len(tests))}
	for _, t := range tests {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a test under its Name()
func (r *Registry) Register(t Test) error {
	if t == nil {
		return core.NewConfigurationError("test", "test cannot be nil")
	}
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return core.NewConfigurationError("test", "test name cannot be empty")
	}
	if _, exists := r.tests[name]; exists {
		return core.NewConfigurationError(name, "test already registered")
	}
	r.tests[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns a test by name
func (r *Registry) Get(name string) (Test, bool) {
	t, ok := r.tests[name]
	return t, ok
}

// Names returns test names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
