package dataset

import (
	"github.com/strandml/strand/pkg/errors"
)

// Schema is the explicit declaration of the modelling relationship: the
// target field and the predictor fields. It replaces formula-style symbolic
// specifications with a plain, inspectable object.
type Schema struct {
	Target     string
	Predictors []string
}

// DefaultSchema builds a schema using every feature column of d as a
// predictor.
func DefaultSchema(d *Dataset) Schema {
	cols := d.Columns()
	predictors := make([]string, 0, len(cols))
	for _, c := range cols {
		predictors = append(predictors, c.Name)
	}
	return Schema{Target: d.Target().Name, Predictors: predictors}
}

// Validate checks the schema against a dataset, failing fast with a
// DataError naming the first absent column.
func (s Schema) Validate(d *Dataset) error {
	if s.Target != d.Target().Name {
		return errors.NewDataError("Schema.Validate", s.Target, "target column absent")
	}
	if len(s.Predictors) == 0 {
		return errors.NewDataError("Schema.Validate", "", "no predictor columns declared")
	}
	for _, name := range s.Predictors {
		if !d.HasColumn(name) {
			return errors.NewDataError("Schema.Validate", name, "predictor column absent")
		}
	}
	return nil
}
