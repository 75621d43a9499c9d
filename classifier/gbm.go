package classifier

import (
	"math"
	"sort"

	"github.com/strandml/strand/core/model"
	"github.com/strandml/strand/core/parallel"
	"github.com/strandml/strand/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GradientBoosting fits an additive ensemble of shallow regression trees
// on the logistic loss. Tunables follow the usual boosted-tree surface:
// minimum leaf size, tree depth, learning rate and the minimum loss
// reduction a split must achieve.
type GradientBoosting struct {
	model.Base

	numTrees      int
	learningRate  float64
	treeDepth     int
	minLeaf       int
	lossReduction float64

	baseScore float64
	trees     []*gbmNode
	nFeatures int
}

// BoostOption configures a GradientBoosting classifier.
type BoostOption func(*GradientBoosting)

// WithBoostTrees sets the boosting round count.
func WithBoostTrees(n int) BoostOption {
	return func(gb *GradientBoosting) { gb.numTrees = n }
}

// WithBoostLearningRate sets the shrinkage applied to each tree.
func WithBoostLearningRate(eta float64) BoostOption {
	return func(gb *GradientBoosting) { gb.learningRate = eta }
}

// WithBoostDepth sets the per-tree depth limit.
func WithBoostDepth(depth int) BoostOption {
	return func(gb *GradientBoosting) { gb.treeDepth = depth }
}

// WithBoostMinLeaf sets the minimum record count per leaf.
func WithBoostMinLeaf(n int) BoostOption {
	return func(gb *GradientBoosting) { gb.minLeaf = n }
}

// WithBoostLossReduction sets the minimum gain required to keep a split.
func WithBoostLossReduction(gamma float64) BoostOption {
	return func(gb *GradientBoosting) { gb.lossReduction = gamma }
}

// NewGradientBoosting creates an unfitted boosted-tree classifier.
func NewGradientBoosting(opts ...BoostOption) *GradientBoosting {
	gb := &GradientBoosting{
		numTrees:      100,
		learningRate:  0.1,
		treeDepth:     3,
		minLeaf:       5,
		lossReduction: 0,
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

// Name implements model.Classifier.
func (gb *GradientBoosting) Name() string { return FamilyBoost }

// ParamDefs declares the tunable hyperparameters.
func (gb *GradientBoosting) ParamDefs() []model.ParamDef {
	return []model.ParamDef{
		{Name: "min_n", Min: 2, Max: 40, Integer: true},
		{Name: "tree_depth", Min: 1, Max: 8, Integer: true},
		{Name: "learn_rate", Min: 0.005, Max: 0.3, Log: true},
		{Name: "loss_reduction", Min: 1e-6, Max: 1.0, Log: true},
	}
}

// SetParams implements model.Tunable.
func (gb *GradientBoosting) SetParams(params map[string]float64) error {
	return setKnownParams(params, map[string]func(float64){
		"min_n":          func(v float64) { gb.minLeaf = int(v) },
		"tree_depth":     func(v float64) { gb.treeDepth = int(v) },
		"learn_rate":     func(v float64) { gb.learningRate = v },
		"loss_reduction": func(v float64) { gb.lossReduction = v },
	})
}

// Clone returns a fresh unfitted copy with the same configuration.
func (gb *GradientBoosting) Clone() model.Classifier {
	clone := *gb
	clone.Reset()
	clone.trees = nil
	clone.baseScore = 0
	return &clone
}

// Fit runs the boosting rounds.
func (gb *GradientBoosting) Fit(X mat.Matrix, y []float64) error {
	if err := validateXY("GradientBoosting.Fit", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	gb.nFeatures = nFeatures

	pos := 0
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	if pos == 0 || pos == nSamples {
		return errors.NewFitError(gb.Name(), "training data contains a single class", nil)
	}
	p := float64(pos) / float64(nSamples)
	gb.baseScore = math.Log(p / (1 - p))

	rows := matrixRows(X)
	score := make([]float64, nSamples)
	for i := range score {
		score[i] = gb.baseScore
	}

	grad := make([]float64, nSamples)
	hess := make([]float64, nSamples)
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	gb.trees = make([]*gbmNode, 0, gb.numTrees)
	for t := 0; t < gb.numTrees; t++ {
		for i := 0; i < nSamples; i++ {
			pi := sigmoid(score[i])
			grad[i] = pi - y[i]
			hess[i] = pi * (1 - pi)
		}

		g := &gbmGrower{
			rows:    rows,
			grad:    grad,
			hess:    hess,
			minLeaf: gb.minLeaf,
			gamma:   gb.lossReduction,
		}
		tree := g.grow(indices, gb.treeDepth)
		gb.trees = append(gb.trees, tree)

		for i := 0; i < nSamples; i++ {
			score[i] += gb.learningRate * tree.predict(rows[i])
		}
	}

	gb.SetFitted()
	return nil
}

// PredictProba returns the positive-class probability per row.
func (gb *GradientBoosting) PredictProba(X mat.Matrix) ([]float64, error) {
	if !gb.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoosting", "PredictProba")
	}
	r, c := X.Dims()
	if c != gb.nFeatures {
		return nil, errors.NewDimensionError("GradientBoosting.PredictProba", gb.nFeatures, c, 1)
	}

	proba := make([]float64, r)
	parallel.NewPool(0).Chunked(r, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			score := gb.baseScore
			for _, tree := range gb.trees {
				score += gb.learningRate * tree.predict(row)
			}
			proba[i] = sigmoid(score)
		}
	})
	return proba, nil
}

// Predict returns point labels thresholded at 0.5.
func (gb *GradientBoosting) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := gb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labelsFromProba(proba), nil
}

// Complexity reports total leaf count for selector tie-breaks.
func (gb *GradientBoosting) Complexity() float64 {
	leaves := 0
	for _, tree := range gb.trees {
		leaves += tree.countLeaves()
	}
	return float64(leaves)
}

// ===========================================================================
//
//	Second-order regression tree on the boosting gradients
//
// ===========================================================================

type gbmNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *gbmNode
	right     *gbmNode
}

func (n *gbmNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func (n *gbmNode) countLeaves() int {
	if n.leaf {
		return 1
	}
	return n.left.countLeaves() + n.right.countLeaves()
}

type gbmGrower struct {
	rows    [][]float64
	grad    []float64
	hess    []float64
	minLeaf int
	gamma   float64
}

const hessEps = 1e-16

// leafValue is the Newton step for the logistic loss: -sum(grad)/sum(hess).
func (g *gbmGrower) leafValue(indices []int) float64 {
	sumGrad, sumHess := 0.0, 0.0
	for _, idx := range indices {
		sumGrad += g.grad[idx]
		sumHess += g.hess[idx]
	}
	return -sumGrad / (sumHess + hessEps)
}

// objective is the squared-gradient score used for split gain.
func (g *gbmGrower) objective(sumGrad, sumHess float64) float64 {
	return sumGrad * sumGrad / (sumHess + hessEps)
}

func (g *gbmGrower) grow(indices []int, depthLeft int) *gbmNode {
	node := &gbmNode{leaf: true, value: g.leafValue(indices)}
	if depthLeft <= 0 || len(indices) < 2*g.minLeaf {
		return node
	}

	split := g.bestSplit(indices)
	if split == nil {
		return node
	}

	node.leaf = false
	node.feature = split.feature
	node.threshold = split.threshold
	node.left = g.grow(split.left, depthLeft-1)
	node.right = g.grow(split.right, depthLeft-1)
	return node
}

type gbmSplit struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

func (g *gbmGrower) bestSplit(indices []int) *gbmSplit {
	totalGrad, totalHess := 0.0, 0.0
	for _, idx := range indices {
		totalGrad += g.grad[idx]
		totalHess += g.hess[idx]
	}
	parent := g.objective(totalGrad, totalHess)

	var best *gbmSplit
	nFeatures := len(g.rows[0])
	order := make([]int, len(indices))

	for feature := 0; feature < nFeatures; feature++ {
		copy(order, indices)
		sort.Slice(order, func(a, b int) bool {
			return g.rows[order[a]][feature] < g.rows[order[b]][feature]
		})

		leftGrad, leftHess := 0.0, 0.0
		for i := 0; i < len(order)-1; i++ {
			leftGrad += g.grad[order[i]]
			leftHess += g.hess[order[i]]
			leftN := i + 1
			rightN := len(order) - leftN
			if leftN < g.minLeaf || rightN < g.minLeaf {
				continue
			}
			v, next := g.rows[order[i]][feature], g.rows[order[i+1]][feature]
			if v == next {
				continue
			}

			gain := 0.5 * (g.objective(leftGrad, leftHess) +
				g.objective(totalGrad-leftGrad, totalHess-leftHess) - parent)
			if gain < g.gamma {
				continue
			}
			if best == nil || gain > best.gain {
				best = &gbmSplit{
					feature:   feature,
					threshold: (v + next) / 2,
					gain:      gain,
					left:      append([]int(nil), order[:leftN]...),
					right:     append([]int(nil), order[leftN:]...),
				}
			}
		}
	}
	return best
}
