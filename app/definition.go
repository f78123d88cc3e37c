package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
	"simplesurvey/domain/filter"
	"simplesurvey/domain/question"
	"simplesurvey/domain/stats"
)

// Filter kinds understood by a survey definition
const (
	FilterComplete   = "complete"
	FilterEquals     = "equals"
	FilterOneOf      = "one_of"
	FilterNotMissing = "not_missing"
	FilterBetween    = "between"
	FilterNot        = "not"
)

// Definition is the declarative description of a survey: its columns,
// answer scales, cleaning filters and questions
type Definition struct {
	Name      string                     `yaml:"name" validate:"required"`
	Schema    dataset.Schema             `yaml:"schema"`
	Columns   map[string]string          `yaml:"columns,omitempty"` // header text -> column id
	Scales    map[string]ScaleDefinition `yaml:"scales,omitempty" validate:"dive"`
	Filters   []FilterDefinition         `yaml:"filters,omitempty" validate:"dive"`
	Questions []QuestionDefinition       `yaml:"questions" validate:"required,min=1,dive"`
	Alpha     float64                    `yaml:"alpha,omitempty" validate:"omitempty,gt=0,lte=1"`
	Beta      float64                    `yaml:"beta,omitempty" validate:"gte=0"`

	Dimensions *DimensionsDefinition  `yaml:"dimensions,omitempty"`
	Calculated []CalculatedDefinition `yaml:"calculated,omitempty" validate:"dive"`

	baseDir string // directory of the definition file, for relative paths
}

// ScaleDefinition maps answer labels to ratings, pairwise
type ScaleDefinition struct {
	Labels  []string  `yaml:"labels" validate:"required,min=2,dive,required"`
	Ratings []float64 `yaml:"ratings" validate:"required,min=2"`
}

// FilterDefinition declares one named filter
type FilterDefinition struct {
	Name   string   `yaml:"name" validate:"required"`
	Kind   string   `yaml:"kind" validate:"required,oneof=complete equals one_of not_missing between not"`
	Column string   `yaml:"column,omitempty"`
	Value  string   `yaml:"value,omitempty"`
	Values []string `yaml:"values,omitempty"`
	Min    *float64 `yaml:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty"`
	Scale  string   `yaml:"scale,omitempty"`
	Of     string   `yaml:"of,omitempty"`
}

// QuestionDefinition declares one question
type QuestionDefinition struct {
	ID        string   `yaml:"id" validate:"required"`
	Prompt    string   `yaml:"prompt,omitempty"`
	Breakdown []string `yaml:"breakdown,omitempty" validate:"dive,required"`
	Tests     []string `yaml:"tests" validate:"required,min=1,dive,required"`
	Scale     string   `yaml:"scale,omitempty"`
}

// Survey is a definition compiled into registries. Schema is what response
// files must provide; Questions is checked against Schema plus the joined
// and calculated fields added by Prepare.
type Survey struct {
	Name       string
	Schema     dataset.Schema
	Columns    map[string]string
	Scales     map[string]*dataset.OrdinalScale
	Filters    *filter.Registry
	Questions  *question.Registry
	Dimensions *Dimensions
	Alpha      float64
	Beta       float64

	calculated []calculatedColumn
}

// DefaultAlpha applies when a definition sets no significance level
const DefaultAlpha = 0.05

var definitionValidate = validator.New()

// LoadDefinition reads a YAML survey definition from disk
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read survey definition: %w", err)
	}
	def, err := ParseDefinition(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	def.baseDir = filepath.Dir(path)
	return def, nil
}

// ParseDefinition decodes and validates a YAML survey definition.
// Unknown keys are rejected.
func ParseDefinition(r io.Reader) (*Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, core.NewConfigurationError("definition", "failed to parse YAML: %v", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks field constraints and the schema
func (d *Definition) Validate() error {
	if err := definitionValidate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return core.NewConfigurationError(fe.Namespace(), "failed %q validation (value %v)", fe.Tag(), fe.Value())
		}
		return core.NewConfigurationError("definition", "%v", err)
	}
	return d.Schema.Validate()
}

// Build compiles the definition into a schema and registries. The
// exclude_incomplete filter is always available unless redefined.
func (d *Definition) Build() (*Survey, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	s := &Survey{
		Name:    d.Name,
		Schema:  d.Schema,
		Columns: d.Columns,
		Scales:  make(map[string]*dataset.OrdinalScale, len(d.Scales)),
		Filters: filter.NewRegistry(),
		Alpha:   d.Alpha,
		Beta:    d.Beta,
	}
	if s.Alpha == 0 {
		s.Alpha = DefaultAlpha
	}

	for name, sd := range d.Scales {
		scale, err := dataset.NewOrdinalScale(name, sd.Labels, sd.Ratings)
		if err != nil {
			return nil, err
		}
		s.Scales[name] = scale
	}

	full, dims, calculated, err := d.analysisSchema(d.baseDir, s.Scales)
	if err != nil {
		return nil, err
	}
	s.Questions = question.NewRegistry(full)
	s.Dimensions = dims
	s.calculated = calculated

	for _, fd := range d.Filters {
		p, err := d.predicate(fd, s)
		if err != nil {
			return nil, err
		}
		if err := s.Filters.Register(fd.Name, p); err != nil {
			return nil, err
		}
	}
	if _, ok := s.Filters.Lookup(filter.ExcludeIncompleteName); !ok {
		if err := s.Filters.Register(filter.ExcludeIncompleteName, filter.Complete()); err != nil {
			return nil, err
		}
	}

	for _, qd := range d.Questions {
		var opts []question.Option
		if qd.Scale != "" {
			scale, ok := s.Scales[qd.Scale]
			if !ok {
				return nil, core.NewConfigurationError(qd.ID, "unknown scale %q", qd.Scale)
			}
			opts = append(opts, question.WithScale(scale))
		}
		if _, err := s.Questions.Define(qd.ID, qd.Prompt, qd.Breakdown, qd.Tests, opts...); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (d *Definition) predicate(fd FilterDefinition, s *Survey) (filter.Predicate, error) {
	needColumn := func() error {
		if fd.Column == "" {
			return core.NewConfigurationError(fd.Name, "%s filter needs a column", fd.Kind)
		}
		if schema := s.Questions.Schema(); !schema.HasQuestion(fd.Column) && !schema.HasField(fd.Column) {
			return core.NewConfigurationError(fd.Name, "column %q is not in the schema", fd.Column)
		}
		return nil
	}

	switch fd.Kind {
	case FilterComplete:
		return filter.Complete(), nil
	case FilterEquals:
		if err := needColumn(); err != nil {
			return nil, err
		}
		return filter.Equals(fd.Column, fd.Value), nil
	case FilterOneOf:
		if err := needColumn(); err != nil {
			return nil, err
		}
		if len(fd.Values) == 0 {
			return nil, core.NewConfigurationError(fd.Name, "one_of filter needs values")
		}
		return filter.OneOf(fd.Column, fd.Values...), nil
	case FilterNotMissing:
		if err := needColumn(); err != nil {
			return nil, err
		}
		return filter.NotMissing(fd.Column), nil
	case FilterBetween:
		if err := needColumn(); err != nil {
			return nil, err
		}
		if fd.Min == nil || fd.Max == nil || *fd.Min > *fd.Max {
			return nil, core.NewConfigurationError(fd.Name, "between filter needs min <= max")
		}
		var scale *dataset.OrdinalScale
		if fd.Scale != "" {
			var ok bool
			if scale, ok = s.Scales[fd.Scale]; !ok {
				return nil, core.NewConfigurationError(fd.Name, "unknown scale %q", fd.Scale)
			}
		}
		return filter.Between(fd.Column, *fd.Min, *fd.Max, scale), nil
	case FilterNot:
		inner, ok := s.Filters.Lookup(fd.Of)
		if !ok {
			return nil, core.NewConfigurationError(fd.Name, "not filter must reference an earlier filter, got %q", fd.Of)
		}
		return filter.Not(inner), nil
	}
	return nil, core.NewConfigurationError(fd.Name, "unknown filter kind %q", fd.Kind)
}

// CheckTests reports the first question naming a test that tests does not
// provide. Build cannot check this because registries are supplied later.
func (s *Survey) CheckTests(tests *stats.Registry) error {
	for _, q := range s.Questions.All() {
		for _, name := range q.Tests {
			if _, ok := tests.Get(name); !ok {
				return core.NewConfigurationError(q.ID, "test %q is not registered (have %v)", name, tests.Names())
			}
		}
	}
	return nil
}
