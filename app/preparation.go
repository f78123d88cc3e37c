package app

import (
	"path/filepath"

	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
)

// DimensionsDefinition names a lookup table joined onto every response,
// e.g. an HR extract keyed by employee id
type DimensionsDefinition struct {
	Path    string            `yaml:"path" validate:"required"`
	Fields  []string          `yaml:"fields" validate:"required,min=2,dive,required"`
	Columns map[string]string `yaml:"columns,omitempty"`
	LeftOn  string            `yaml:"left_on" validate:"required"`
	RightOn string            `yaml:"right_on" validate:"required"`
}

// CalculatedDefinition derives a banded metadata field from a numeric column
type CalculatedDefinition struct {
	Name  string           `yaml:"name" validate:"required"`
	From  string           `yaml:"from" validate:"required"`
	Scale string           `yaml:"scale,omitempty"`
	Bands []BandDefinition `yaml:"bands" validate:"required,min=1,dive"`
}

// BandDefinition labels values below a bound; a band without a bound
// catches everything left
type BandDefinition struct {
	Below *float64 `yaml:"below,omitempty"`
	Label string   `yaml:"label" validate:"required"`
}

// Dimensions is a compiled dimensions table
type Dimensions struct {
	Path    string
	Schema  dataset.Schema
	Columns map[string]string
	LeftOn  string
	RightOn string
}

type calculatedColumn struct {
	name  string
	from  string
	scale *dataset.OrdinalScale
	bands []BandDefinition
}

func (c calculatedColumn) value(r dataset.Record) dataset.Value {
	f, ok := dataset.Numeric(r.Lookup(c.from), c.scale)
	if !ok {
		return dataset.MissingValue
	}
	for _, b := range c.bands {
		if b.Below == nil || f < *b.Below {
			return dataset.Text(b.Label)
		}
	}
	return dataset.MissingValue
}

// analysisSchema is the response schema extended with joined dimension
// fields and calculated fields; questions and filters are checked against it
func (d *Definition) analysisSchema(baseDir string, scales map[string]*dataset.OrdinalScale) (dataset.Schema, *Dimensions, []calculatedColumn, error) {
	schema := dataset.Schema{
		Questions: append([]string(nil), d.Schema.Questions...),
		Metadata:  append([]string(nil), d.Schema.Metadata...),
	}
	has := func(name string) bool { return schema.HasField(name) || schema.HasQuestion(name) }

	var dims *Dimensions
	if dd := d.Dimensions; dd != nil {
		dims = &Dimensions{
			Path:    dd.Path,
			Schema:  dataset.Schema{Metadata: append([]string(nil), dd.Fields...)},
			Columns: dd.Columns,
			LeftOn:  dd.LeftOn,
			RightOn: dd.RightOn,
		}
		if !filepath.IsAbs(dims.Path) && baseDir != "" {
			dims.Path = filepath.Join(baseDir, dims.Path)
		}
		if err := dims.Schema.Validate(); err != nil {
			return schema, nil, nil, err
		}
		if !d.Schema.HasField(dd.LeftOn) {
			return schema, nil, nil, core.NewConfigurationError(dd.LeftOn, "dimensions left_on is not a response metadata field")
		}
		if !dims.Schema.HasField(dd.RightOn) {
			return schema, nil, nil, core.NewConfigurationError(dd.RightOn, "dimensions right_on is not one of the dimension fields")
		}
		for _, f := range dd.Fields {
			if f == dd.RightOn {
				continue
			}
			if has(f) {
				return schema, nil, nil, core.NewConfigurationError(f, "dimension field collides with a response column")
			}
			schema = schema.WithField(f)
		}
	}

	calculated := make([]calculatedColumn, 0, len(d.Calculated))
	for _, cd := range d.Calculated {
		if has(cd.Name) {
			return schema, nil, nil, core.NewConfigurationError(cd.Name, "calculated column collides with an existing column")
		}
		if !has(cd.From) {
			return schema, nil, nil, core.NewConfigurationError(cd.Name, "calculated column source %q is not a column", cd.From)
		}
		col := calculatedColumn{name: cd.Name, from: cd.From, bands: cd.Bands}
		if cd.Scale != "" {
			scale, ok := scales[cd.Scale]
			if !ok {
				return schema, nil, nil, core.NewConfigurationError(cd.Name, "unknown scale %q", cd.Scale)
			}
			col.scale = scale
		}
		calculated = append(calculated, col)
		schema = schema.WithField(cd.Name)
	}
	return schema, dims, calculated, nil
}

// Prepare joins the dimensions table and adds calculated fields. dims may
// be nil only when the survey declares no dimensions.
func (s *Survey) Prepare(responses, dims *dataset.Dataset) (*dataset.Dataset, error) {
	ds := responses
	if s.Dimensions != nil {
		if dims == nil {
			return nil, core.NewConfigurationError("dimensions", "dimensions table %s was not loaded", s.Dimensions.Path)
		}
		var err error
		if ds, err = dataset.Join(ds, dims, s.Dimensions.LeftOn, s.Dimensions.RightOn); err != nil {
			return nil, err
		}
	}
	for _, c := range s.calculated {
		var err error
		if ds, err = ds.Derive(c.name, c.value); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
