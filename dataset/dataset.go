// Package dataset holds the labelled tabular data the pipeline operates on:
// an ordered sequence of records with named numeric, categorical and
// date-valued features and a binary target. Datasets are immutable once
// built; splits and folds derive new views instead of mutating.
package dataset

import (
	"time"

	"github.com/strandml/strand/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Kind is the type of a feature column.
type Kind int

const (
	// KindNumeric is a float-valued feature.
	KindNumeric Kind = iota
	// KindCategorical is a string-valued feature with a finite level set.
	KindCategorical
	// KindDate is a date-valued feature, decomposed by the recipe.
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindDate:
		return "date"
	}
	return "unknown"
}

// Column names a feature and its kind.
type Column struct {
	Name string
	Kind Kind
}

// Target describes the binary outcome column. Values are 0 (negative class)
// and 1 (positive class); the labels keep the original class names, e.g.
// "Not Stranded" / "Stranded".
type Target struct {
	Name     string
	Negative string
	Positive string
	Values   []float64
}

// ColumnData is a feature column together with its values. Exactly one of
// Numeric, Labels or Dates must be populated, matching the Kind.
type ColumnData struct {
	Column
	Numeric []float64
	Labels  []string
	Dates   []time.Time
}

// Dataset is an immutable labelled table.
type Dataset struct {
	columns []Column
	numeric map[string][]float64
	labels  map[string][]string
	dates   map[string][]time.Time

	target Target
	n      int
}

// New builds a Dataset from a target and feature columns. All columns must
// have the same length as the target and target values must be 0 or 1.
func New(target Target, cols ...ColumnData) (*Dataset, error) {
	n := len(target.Values)
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.New")
	}
	for _, v := range target.Values {
		if v != 0 && v != 1 {
			return nil, errors.NewDataError("dataset.New", target.Name, "target values must be 0 or 1")
		}
	}

	d := &Dataset{
		columns: make([]Column, 0, len(cols)),
		numeric: make(map[string][]float64),
		labels:  make(map[string][]string),
		dates:   make(map[string][]time.Time),
		target:  target,
		n:       n,
	}

	for _, c := range cols {
		var length int
		switch c.Kind {
		case KindNumeric:
			length = len(c.Numeric)
			d.numeric[c.Name] = c.Numeric
		case KindCategorical:
			length = len(c.Labels)
			d.labels[c.Name] = c.Labels
		case KindDate:
			length = len(c.Dates)
			d.dates[c.Name] = c.Dates
		default:
			return nil, errors.NewDataError("dataset.New", c.Name, "unknown column kind")
		}
		if length != n {
			return nil, errors.NewDimensionError("dataset.New "+c.Name, n, length, 0)
		}
		d.columns = append(d.columns, c.Column)
	}

	return d, nil
}

// Len returns the number of records.
func (d *Dataset) Len() int { return d.n }

// Columns returns the feature columns in declaration order.
func (d *Dataset) Columns() []Column {
	out := make([]Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// HasColumn reports whether a feature column with the given name exists.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Numeric returns the values of a numeric column.
func (d *Dataset) Numeric(name string) ([]float64, error) {
	v, ok := d.numeric[name]
	if !ok {
		return nil, errors.NewDataError("dataset.Numeric", name, "no such numeric column")
	}
	return v, nil
}

// Labels returns the values of a categorical column.
func (d *Dataset) Labels(name string) ([]string, error) {
	v, ok := d.labels[name]
	if !ok {
		return nil, errors.NewDataError("dataset.Labels", name, "no such categorical column")
	}
	return v, nil
}

// Dates returns the values of a date column.
func (d *Dataset) Dates(name string) ([]time.Time, error) {
	v, ok := d.dates[name]
	if !ok {
		return nil, errors.NewDataError("dataset.Dates", name, "no such date column")
	}
	return v, nil
}

// Target returns the target description including its 0/1 values.
func (d *Dataset) Target() Target { return d.target }

// ClassCounts returns the number of negative (0) and positive (1) records.
func (d *Dataset) ClassCounts() (neg, pos int) {
	for _, v := range d.target.Values {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	return neg, pos
}

// MinorityFraction returns the share of the rarer class, in [0, 0.5].
func (d *Dataset) MinorityFraction() float64 {
	neg, pos := d.ClassCounts()
	minority := neg
	if pos < neg {
		minority = pos
	}
	return float64(minority) / float64(d.n)
}

// Subset returns a new Dataset containing the records at the given indices,
// in the given order. Indices may repeat, which is how the recipe's
// upsampling step materialises oversampled training folds.
func (d *Dataset) Subset(indices []int) (*Dataset, error) {
	for _, idx := range indices {
		if idx < 0 || idx >= d.n {
			return nil, errors.NewValidationError("indices", "index out of range", idx)
		}
	}

	target := Target{
		Name:     d.target.Name,
		Negative: d.target.Negative,
		Positive: d.target.Positive,
		Values:   pick(d.target.Values, indices),
	}
	cols := make([]ColumnData, 0, len(d.columns))
	for _, c := range d.columns {
		cd := ColumnData{Column: c}
		switch c.Kind {
		case KindNumeric:
			cd.Numeric = pick(d.numeric[c.Name], indices)
		case KindCategorical:
			cd.Labels = pick(d.labels[c.Name], indices)
		case KindDate:
			cd.Dates = pick(d.dates[c.Name], indices)
		}
		cols = append(cols, cd)
	}
	return New(target, cols...)
}

func pick[T any](src []T, indices []int) []T {
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = src[idx]
	}
	return out
}

// Table is the fully numeric design matrix a fitted recipe produces:
// named predictor columns, one row per record, and the 0/1 target vector.
type Table struct {
	Names []string
	X     *mat.Dense
	Y     []float64
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t.X == nil {
		return 0
	}
	r, _ := t.X.Dims()
	return r
}

// NumFeatures returns the number of predictor columns.
func (t *Table) NumFeatures() int {
	if t.X == nil {
		return 0
	}
	_, c := t.X.Dims()
	return c
}
