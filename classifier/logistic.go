package classifier

import (
	"math"
	"math/rand/v2"

	"github.com/strandml/strand/core/model"
	"github.com/strandml/strand/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LogisticRegression is a binary logistic classifier fitted by batch
// gradient descent with an adaptive learning rate and optional L2
// regularisation. It has no structural hyperparameters to tune.
type LogisticRegression struct {
	model.Base

	maxIter      int
	tol          float64
	c            float64 // inverse regularisation strength
	fitIntercept bool
	seed         uint64

	weights   []float64
	intercept float64
	nFeatures int
	nIter     int
}

// LogisticOption configures a LogisticRegression.
type LogisticOption func(*LogisticRegression)

// WithLogisticMaxIter sets the gradient-descent iteration budget.
func WithLogisticMaxIter(n int) LogisticOption {
	return func(lr *LogisticRegression) { lr.maxIter = n }
}

// WithLogisticTol sets the convergence tolerance on the gradient norm.
func WithLogisticTol(tol float64) LogisticOption {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// WithLogisticC sets the inverse L2 regularisation strength.
func WithLogisticC(c float64) LogisticOption {
	return func(lr *LogisticRegression) { lr.c = c }
}

// WithLogisticSeed seeds the weight initialisation.
func WithLogisticSeed(seed uint64) LogisticOption {
	return func(lr *LogisticRegression) { lr.seed = seed }
}

// NewLogisticRegression creates an unfitted logistic classifier.
func NewLogisticRegression(opts ...LogisticOption) *LogisticRegression {
	lr := &LogisticRegression{
		maxIter:      500,
		tol:          1e-4,
		c:            1.0,
		fitIntercept: true,
		seed:         1,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Name implements model.Classifier.
func (lr *LogisticRegression) Name() string { return FamilyLogistic }

// ParamDefs implements model.Tunable; logistic regression tunes nothing.
func (lr *LogisticRegression) ParamDefs() []model.ParamDef { return nil }

// SetParams implements model.Tunable. Only the empty assignment is valid.
func (lr *LogisticRegression) SetParams(params map[string]float64) error {
	return setKnownParams(params, nil)
}

// Clone returns a fresh unfitted copy with the same configuration.
func (lr *LogisticRegression) Clone() model.Classifier {
	clone := *lr
	clone.Reset()
	clone.weights = nil
	clone.intercept = 0
	clone.nIter = 0
	return &clone
}

// Fit trains the classifier with batch gradient descent.
func (lr *LogisticRegression) Fit(X mat.Matrix, y []float64) error {
	if err := validateXY("LogisticRegression.Fit", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	lr.nFeatures = nFeatures

	rng := rand.New(rand.NewPCG(lr.seed, lr.seed))
	lr.weights = make([]float64, nFeatures)
	for j := range lr.weights {
		lr.weights[j] = rng.NormFloat64() * 0.01
	}
	lr.intercept = 0

	lambda := 1.0 / lr.c
	baseLearningRate := 1.0

	for iter := 0; iter < lr.maxIter; iter++ {
		gradW := make([]float64, nFeatures)
		gradB := 0.0

		for i := 0; i < nSamples; i++ {
			z := lr.intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * lr.weights[j]
			}
			residual := sigmoid(z) - y[i]
			gradB += residual
			for j := 0; j < nFeatures; j++ {
				gradW[j] += residual * X.At(i, j)
			}
		}

		for j := range gradW {
			gradW[j] = gradW[j]/float64(nSamples) + lambda*lr.weights[j]
		}
		gradB /= float64(nSamples)

		learningRate := baseLearningRate / (1 + 0.1*float64(iter))
		for j := range lr.weights {
			lr.weights[j] -= learningRate * gradW[j]
		}
		if lr.fitIntercept {
			lr.intercept -= learningRate * gradB
		}
		lr.nIter = iter + 1

		maxGrad := math.Abs(gradB)
		for _, g := range gradW {
			if math.Abs(g) > maxGrad {
				maxGrad = math.Abs(g)
			}
		}
		if maxGrad < lr.tol {
			break
		}
	}

	for _, w := range lr.weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return errors.NewFitError(lr.Name(), "weights diverged", nil)
		}
	}

	lr.SetFitted()
	return nil
}

// PredictProba returns the positive-class probability per row.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) ([]float64, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "PredictProba")
	}
	r, c := X.Dims()
	if c != lr.nFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", lr.nFeatures, c, 1)
	}

	proba := make([]float64, r)
	for i := 0; i < r; i++ {
		z := lr.intercept
		for j := 0; j < c; j++ {
			z += X.At(i, j) * lr.weights[j]
		}
		proba[i] = sigmoid(z)
	}
	return proba, nil
}

// Predict returns point labels thresholded at 0.5.
func (lr *LogisticRegression) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labelsFromProba(proba), nil
}

// Iterations returns the number of gradient-descent iterations performed.
func (lr *LogisticRegression) Iterations() int { return lr.nIter }
