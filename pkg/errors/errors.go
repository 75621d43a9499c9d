// Package errors provides the error taxonomy for the stranded-patient
// modelling pipeline. It wraps github.com/cockroachdb/errors so that every
// error carries a stack trace, and defines structured error types that
// marshal themselves into zerolog events.
//
// The taxonomy follows the pipeline's propagation policy: DataError and
// configuration errors are fatal and surfaced immediately; a SearchError is
// recorded against its (fold, candidate) pair and excluded from that
// candidate's aggregate; a SelectionError is raised only when no eligible
// candidate remains.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Pipeline error types
//
// ===========================================================================

// DataError reports a problem with the input dataset itself: a missing
// required column, an empty dataset, or a degenerate configuration value
// such as a split proportion outside (0,1). DataError is always fatal.
type DataError struct {
	Op     string
	Column string
	Reason string
}

func (e *DataError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("strand: %s: column %q: %s", e.Op, e.Column, e.Reason)
	}
	return fmt.Sprintf("strand: %s: %s", e.Op, e.Reason)
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *DataError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("operation", e.Op).
		Str("column", e.Column).
		Str("reason", e.Reason).
		Str("type", "DataError")
}

// NewDataError creates a DataError with a stack trace attached.
func NewDataError(op, column, reason string) error {
	return errors.WithStack(&DataError{Op: op, Column: column, Reason: reason})
}

// FitError reports that a model variant failed to fit: it did not converge,
// or it received an incompatible feature shape. Outside the hyperparameter
// search a FitError is fatal; inside the search it is wrapped in a
// SearchError and recorded instead.
type FitError struct {
	Model  string
	Reason string
	Err    error
}

func (e *FitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("strand: fit %s: %s: %v", e.Model, e.Reason, e.Err)
	}
	return fmt.Sprintf("strand: fit %s: %s", e.Model, e.Reason)
}

func (e *FitError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *FitError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("model", e.Model).
		Str("reason", e.Reason).
		Str("type", "FitError")
	if e.Err != nil {
		ev.AnErr("cause", e.Err)
	}
}

// NewFitError creates a FitError with a stack trace attached.
func NewFitError(model, reason string, err error) error {
	return errors.WithStack(&FitError{Model: model, Reason: reason, Err: err})
}

// SearchError records the failure of a single (fold, candidate) fit inside
// the hyperparameter search. It is never fatal to the search as a whole:
// the aggregation step excludes the pair and flags the candidate's
// aggregate as partial.
type SearchError struct {
	Fold      int
	Candidate int
	Err       error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("strand: search: candidate %d fold %d: %v", e.Candidate, e.Fold, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *SearchError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Int("fold", e.Fold).
		Int("candidate", e.Candidate).
		Str("type", "SearchError")
	if e.Err != nil {
		ev.AnErr("cause", e.Err)
	}
}

// NewSearchError wraps a fold-level fit failure with its pair coordinates.
func NewSearchError(candidate, fold int, err error) error {
	return errors.WithStack(&SearchError{Fold: fold, Candidate: candidate, Err: err})
}

// SelectionError is returned by the selector when every candidate has been
// ruled ineligible, typically because all of its folds failed.
type SelectionError struct {
	Metric     string
	Candidates int
	Eligible   int
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("strand: select by %s: no eligible candidate (%d of %d candidates failed eligibility)",
		e.Metric, e.Candidates-e.Eligible, e.Candidates)
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *SelectionError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("metric", e.Metric).
		Int("candidates", e.Candidates).
		Int("eligible", e.Eligible).
		Str("type", "SelectionError")
}

// NewSelectionError creates a SelectionError with a stack trace attached.
func NewSelectionError(metric string, candidates, eligible int) error {
	return errors.WithStack(&SelectionError{Metric: metric, Candidates: candidates, Eligible: eligible})
}

// ===========================================================================
//
//	Estimator error types
//
// ===========================================================================

// NotFittedError is returned when Predict, PredictProba or Apply is called
// on an estimator or recipe that has not been fitted.
type NotFittedError struct {
	Name   string
	Method string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("strand: %s: not fitted yet; call Fit() before %s()", e.Name, e.Method)
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("name", e.Name).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(name, method string) error {
	return errors.WithStack(&NotFittedError{Name: name, Method: method})
}

// DimensionError is returned when the shape of the input data does not match
// what the estimator learned at fit time.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns
}

func (e *DimensionError) Error() string {
	axis := "columns"
	if e.Axis == 0 {
		axis = "rows"
	}
	return fmt.Sprintf("strand: %s: dimension mismatch on %s: expected %d, got %d", e.Op, axis, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError reports an invalid parameter value.
type ValidationError struct {
	Param  string
	Reason string
	Value  interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("strand: invalid parameter %q: %s (got: %v)", e.Param, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("param", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{Param: param, Reason: reason, Value: value})
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Wrap annotates err with a message.
func Wrap(err error, message string) error { return errors.Wrap(err, message) }

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates an error with a stack trace.
func New(message string) error { return errors.New(message) }

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error { return errors.Newf(format, args...) }

// WithStack annotates err with a stack trace at the point of the call.
func WithStack(err error) error { return errors.WithStack(err) }

// ===========================================================================
//
//	Common error values
//
// ===========================================================================

// ErrEmptyData is returned when an operation receives an empty dataset.
var ErrEmptyData = New("empty dataset")
