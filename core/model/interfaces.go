package model

import (
	"gonum.org/v1/gonum/mat"
)

// Classifier is the contract every model family in the pipeline implements.
// The set of implementations is closed: logistic regression, decision tree,
// random forest and gradient boosting live in the classifier package.
//
// Labels are 0/1 with 1 the positive class; PredictProba returns the
// probability of the positive class per row.
type Classifier interface {
	// Fit trains the model on a design matrix and 0/1 labels.
	Fit(X mat.Matrix, y []float64) error

	// Predict returns deterministic point labels for each row of X.
	Predict(X mat.Matrix) ([]float64, error)

	// PredictProba returns the positive-class probability for each row of X.
	PredictProba(X mat.Matrix) ([]float64, error)

	// Name identifies the model family, e.g. "decision_tree".
	Name() string
}

// Tunable is implemented by classifiers with hyperparameters the search can
// vary. Params carries concrete values keyed by the names declared in
// ParamDefs.
type Tunable interface {
	// ParamDefs declares the tunable parameters and their valid ranges.
	ParamDefs() []ParamDef

	// SetParams applies a concrete assignment before Fit. Unknown names
	// are a ValidationError.
	SetParams(params map[string]float64) error
}

// ParamDef describes one tunable hyperparameter.
type ParamDef struct {
	Name    string
	Min     float64
	Max     float64
	Integer bool
	// Log marks parameters tuned on a log scale (e.g. cost-complexity,
	// learning rate), so grid levels are spaced geometrically.
	Log bool
}

// ComplexityReporter is implemented by fitted models that can report a
// structural complexity measure (tree depth, leaf count). The selector uses
// it to break metric ties in favour of the simpler model.
type ComplexityReporter interface {
	Complexity() float64
}

// Cloner produces a fresh, unfitted copy of a classifier carrying the same
// configuration. The search clones its prototype once per (fold, candidate)
// pair so fits never share mutable state.
type Cloner interface {
	Clone() Classifier
}
