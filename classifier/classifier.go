// Package classifier implements the model families the pipeline can train:
// logistic regression, decision tree, random forest and gradient boosting,
// plus a soft-voting ensemble over fitted members. The set is closed; each
// family implements model.Classifier and, when it has tunable
// hyperparameters, model.Tunable with its own parameter schema.
//
// All randomness is driven by explicit seeds so a fit is bit-reproducible.
package classifier

import (
	"math"

	"github.com/strandml/strand/core/model"
	"github.com/strandml/strand/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Family names accepted by New.
const (
	FamilyLogistic = "logistic_regression"
	FamilyTree     = "decision_tree"
	FamilyForest   = "random_forest"
	FamilyBoost    = "gradient_boosting"
)

// New builds an unfitted classifier of the named family with its default
// configuration and the given seed. The family set is closed; an unknown
// name is a ValidationError.
func New(family string, seed uint64) (model.Classifier, error) {
	switch family {
	case FamilyLogistic:
		return NewLogisticRegression(WithLogisticSeed(seed)), nil
	case FamilyTree:
		return NewDecisionTree(), nil
	case FamilyForest:
		return NewRandomForest(WithForestSeed(seed)), nil
	case FamilyBoost:
		return NewGradientBoosting(), nil
	default:
		return nil, errors.NewValidationError("family", "unknown model family", family)
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// matrixRows copies a matrix into row slices for cheap repeated access
// during tree construction.
func matrixRows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		rows[i] = row
	}
	return rows
}

// validateXY checks the design matrix against its label vector and that
// labels are binary 0/1.
func validateXY(op string, X mat.Matrix, y []float64) error {
	r, _ := X.Dims()
	if r == 0 {
		return errors.Wrap(errors.ErrEmptyData, op)
	}
	if r != len(y) {
		return errors.NewDimensionError(op, r, len(y), 0)
	}
	for _, v := range y {
		if v != 0 && v != 1 {
			return errors.NewFitError(op, "labels must be 0 or 1", nil)
		}
	}
	return nil
}

// labelsFromProba thresholds probabilities at 0.5 into point labels.
func labelsFromProba(proba []float64) []float64 {
	labels := make([]float64, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			labels[i] = 1
		}
	}
	return labels
}

// setKnownParams applies an assignment against a closed set of setters,
// rejecting unknown parameter names.
func setKnownParams(params map[string]float64, setters map[string]func(float64)) error {
	for name, value := range params {
		set, ok := setters[name]
		if !ok {
			return errors.NewValidationError(name, "unknown hyperparameter", value)
		}
		set(value)
	}
	return nil
}
