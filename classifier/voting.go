package classifier

import (
	"github.com/strandml/strand/core/model"
	"github.com/strandml/strand/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Voting is a soft-voting ensemble. Fit trains every member on the same
// data; PredictProba averages the member probabilities.
type Voting struct {
	model.Base

	members []model.Classifier
}

// NewVoting creates an ensemble over the given members. At least one
// member is required.
func NewVoting(members ...model.Classifier) (*Voting, error) {
	if len(members) == 0 {
		return nil, errors.NewValidationError("members", "voting ensemble needs at least one member", nil)
	}
	return &Voting{members: members}, nil
}

// Name implements model.Classifier.
func (v *Voting) Name() string { return "voting" }

// Members returns the ensemble members in order.
func (v *Voting) Members() []model.Classifier { return v.members }

// Clone returns a fresh unfitted ensemble cloning every member that
// supports cloning; members that do not are kept as is.
func (v *Voting) Clone() model.Classifier {
	members := make([]model.Classifier, len(v.members))
	for i, m := range v.members {
		if c, ok := m.(model.Cloner); ok {
			members[i] = c.Clone()
		} else {
			members[i] = m
		}
	}
	clone := &Voting{members: members}
	return clone
}

// Fit trains every member. A member failure aborts the fit.
func (v *Voting) Fit(X mat.Matrix, y []float64) error {
	for _, m := range v.members {
		if err := m.Fit(X, y); err != nil {
			return errors.NewFitError(v.Name(), "member "+m.Name()+" failed", err)
		}
	}
	v.SetFitted()
	return nil
}

// PredictProba averages the member probabilities per row.
func (v *Voting) PredictProba(X mat.Matrix) ([]float64, error) {
	if !v.IsFitted() {
		return nil, errors.NewNotFittedError("Voting", "PredictProba")
	}
	r, _ := X.Dims()
	sum := make([]float64, r)
	for _, m := range v.members {
		proba, err := m.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for i, p := range proba {
			sum[i] += p
		}
	}
	for i := range sum {
		sum[i] /= float64(len(v.members))
	}
	return sum, nil
}

// Predict returns point labels thresholded at 0.5.
func (v *Voting) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := v.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labelsFromProba(proba), nil
}

// Complexity sums the member complexities where reported.
func (v *Voting) Complexity() float64 {
	total := 0.0
	for _, m := range v.members {
		if c, ok := m.(model.ComplexityReporter); ok {
			total += c.Complexity()
		}
	}
	return total
}
