package classifier

import (
	"math"
	"math/rand/v2"

	"github.com/strandml/strand/core/model"
	"github.com/strandml/strand/core/parallel"
	"github.com/strandml/strand/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RandomForest bags CART trees grown on bootstrap samples with a random
// feature subset per split. The tree count is fixed configuration, not a
// tuned hyperparameter.
type RandomForest struct {
	model.Base

	numTrees int
	maxDepth int
	minLeaf  int
	mtry     int // 0 selects sqrt(nFeatures)
	seed     uint64

	trees     []*cartNode
	nFeatures int
}

// ForestOption configures a RandomForest.
type ForestOption func(*RandomForest)

// WithForestTrees sets the number of bagged trees.
func WithForestTrees(n int) ForestOption {
	return func(rf *RandomForest) { rf.numTrees = n }
}

// WithForestMaxDepth sets the per-tree depth limit.
func WithForestMaxDepth(depth int) ForestOption {
	return func(rf *RandomForest) { rf.maxDepth = depth }
}

// WithForestMtry sets the feature-subset size per split.
func WithForestMtry(m int) ForestOption {
	return func(rf *RandomForest) { rf.mtry = m }
}

// WithForestSeed seeds the bootstrap and feature sampling.
func WithForestSeed(seed uint64) ForestOption {
	return func(rf *RandomForest) { rf.seed = seed }
}

// NewRandomForest creates an unfitted random forest.
func NewRandomForest(opts ...ForestOption) *RandomForest {
	rf := &RandomForest{
		numTrees: 100,
		maxDepth: 12,
		minLeaf:  3,
		seed:     1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Name implements model.Classifier.
func (rf *RandomForest) Name() string { return FamilyForest }

// Clone returns a fresh unfitted copy with the same configuration.
func (rf *RandomForest) Clone() model.Classifier {
	clone := *rf
	clone.Reset()
	clone.trees = nil
	return &clone
}

// Fit grows the bagged trees.
func (rf *RandomForest) Fit(X mat.Matrix, y []float64) error {
	if err := validateXY("RandomForest.Fit", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	rf.nFeatures = nFeatures

	mtry := rf.mtry
	if mtry <= 0 {
		mtry = int(math.Sqrt(float64(nFeatures)))
		if mtry < 1 {
			mtry = 1
		}
	}

	rows := matrixRows(X)
	rng := rand.New(rand.NewPCG(rf.seed, rf.seed))

	rf.trees = make([]*cartNode, rf.numTrees)
	for t := 0; t < rf.numTrees; t++ {
		sample := make([]int, nSamples)
		for i := range sample {
			sample[i] = rng.IntN(nSamples)
		}

		g := &cartGrower{
			rows:    rows,
			y:       y,
			minLeaf: rf.minLeaf,
			cp:      0, // forests rely on averaging, not pruning
			rootN:   nSamples,
			rootImp: gini(posCount(y, sample), nSamples),
			mtry:    mtry,
			rng:     rng,
		}
		rf.trees[t] = g.grow(sample, rf.maxDepth)
	}

	rf.SetFitted()
	return nil
}

// PredictProba averages the leaf probabilities over all trees. Rows are
// independent, so the walk over the ensemble runs chunked across workers.
func (rf *RandomForest) PredictProba(X mat.Matrix) ([]float64, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForest", "PredictProba")
	}
	r, c := X.Dims()
	if c != rf.nFeatures {
		return nil, errors.NewDimensionError("RandomForest.PredictProba", rf.nFeatures, c, 1)
	}

	proba := make([]float64, r)
	parallel.NewPool(0).Chunked(r, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			sum := 0.0
			for _, tree := range rf.trees {
				sum += tree.predict(row)
			}
			proba[i] = sum / float64(len(rf.trees))
		}
	})
	return proba, nil
}

// Predict returns point labels thresholded at 0.5.
func (rf *RandomForest) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labelsFromProba(proba), nil
}
