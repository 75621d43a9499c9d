package classifier

import (
	"math/rand/v2"
	"sort"

	"github.com/strandml/strand/core/model"
	"github.com/strandml/strand/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTree is a CART classifier splitting on Gini impurity. Its
// tunables are the cost-complexity threshold and the maximum depth.
type DecisionTree struct {
	model.Base

	costComplexity float64
	maxDepth       int
	minLeaf        int

	root      *cartNode
	nFeatures int
	nLeaves   int
}

// TreeOption configures a DecisionTree.
type TreeOption func(*DecisionTree)

// WithTreeCostComplexity sets the minimum relative impurity decrease a
// split must achieve.
func WithTreeCostComplexity(cp float64) TreeOption {
	return func(dt *DecisionTree) { dt.costComplexity = cp }
}

// WithTreeMaxDepth sets the depth limit.
func WithTreeMaxDepth(depth int) TreeOption {
	return func(dt *DecisionTree) { dt.maxDepth = depth }
}

// WithTreeMinLeaf sets the minimum record count per leaf.
func WithTreeMinLeaf(n int) TreeOption {
	return func(dt *DecisionTree) { dt.minLeaf = n }
}

// NewDecisionTree creates an unfitted decision tree.
func NewDecisionTree(opts ...TreeOption) *DecisionTree {
	dt := &DecisionTree{
		costComplexity: 0.01,
		maxDepth:       10,
		minLeaf:        5,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// Name implements model.Classifier.
func (dt *DecisionTree) Name() string { return FamilyTree }

// ParamDefs declares the tunable hyperparameters.
func (dt *DecisionTree) ParamDefs() []model.ParamDef {
	return []model.ParamDef{
		{Name: "cost_complexity", Min: 1e-4, Max: 0.1, Log: true},
		{Name: "max_depth", Min: 1, Max: 15, Integer: true},
	}
}

// SetParams implements model.Tunable.
func (dt *DecisionTree) SetParams(params map[string]float64) error {
	return setKnownParams(params, map[string]func(float64){
		"cost_complexity": func(v float64) { dt.costComplexity = v },
		"max_depth":       func(v float64) { dt.maxDepth = int(v) },
	})
}

// Clone returns a fresh unfitted copy with the same configuration.
func (dt *DecisionTree) Clone() model.Classifier {
	clone := *dt
	clone.Reset()
	clone.root = nil
	clone.nLeaves = 0
	return &clone
}

// Fit grows the tree on the training data.
func (dt *DecisionTree) Fit(X mat.Matrix, y []float64) error {
	if err := validateXY("DecisionTree.Fit", X, y); err != nil {
		return err
	}
	_, nFeatures := X.Dims()
	dt.nFeatures = nFeatures

	rows := matrixRows(X)
	indices := make([]int, len(rows))
	for i := range indices {
		indices[i] = i
	}

	g := &cartGrower{
		rows:    rows,
		y:       y,
		minLeaf: dt.minLeaf,
		cp:      dt.costComplexity,
		rootN:   len(indices),
		rootImp: gini(posCount(y, indices), len(indices)),
	}
	dt.root = g.grow(indices, dt.maxDepth)
	dt.nLeaves = dt.root.countLeaves()

	dt.SetFitted()
	return nil
}

// PredictProba returns the positive fraction of the leaf each row lands in.
func (dt *DecisionTree) PredictProba(X mat.Matrix) ([]float64, error) {
	if !dt.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTree", "PredictProba")
	}
	r, c := X.Dims()
	if c != dt.nFeatures {
		return nil, errors.NewDimensionError("DecisionTree.PredictProba", dt.nFeatures, c, 1)
	}

	proba := make([]float64, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		proba[i] = dt.root.predict(row)
	}
	return proba, nil
}

// Predict returns point labels thresholded at 0.5.
func (dt *DecisionTree) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labelsFromProba(proba), nil
}

// Complexity reports the fitted leaf count for selector tie-breaks.
func (dt *DecisionTree) Complexity() float64 { return float64(dt.nLeaves) }

// ===========================================================================
//
//	CART internals (shared with the random forest)
//
// ===========================================================================

type cartNode struct {
	leaf      bool
	prob      float64
	feature   int
	threshold float64
	left      *cartNode
	right     *cartNode
}

func (n *cartNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.prob
}

func (n *cartNode) countLeaves() int {
	if n.leaf {
		return 1
	}
	return n.left.countLeaves() + n.right.countLeaves()
}

func (n *cartNode) depth() int {
	if n.leaf {
		return 0
	}
	l, r := n.left.depth(), n.right.depth()
	if r > l {
		l = r
	}
	return l + 1
}

// cartGrower carries the fit-wide state of one tree construction.
type cartGrower struct {
	rows    [][]float64
	y       []float64
	minLeaf int
	cp      float64
	rootN   int
	rootImp float64

	// mtry > 0 restricts each split to a random feature subset; used by
	// the random forest.
	mtry int
	rng  *rand.Rand
}

func posCount(y []float64, indices []int) int {
	pos := 0
	for _, idx := range indices {
		if y[idx] == 1 {
			pos++
		}
	}
	return pos
}

// gini computes binary Gini impurity for pos positives among n.
func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

type cartSplit struct {
	feature   int
	threshold float64
	gain      float64 // impurity decrease relative to the root
	left      []int
	right     []int
}

func (g *cartGrower) grow(indices []int, depthLeft int) *cartNode {
	pos := posCount(g.y, indices)
	node := &cartNode{leaf: true, prob: float64(pos) / float64(len(indices))}

	if depthLeft <= 0 || pos == 0 || pos == len(indices) || len(indices) < 2*g.minLeaf {
		return node
	}

	split := g.bestSplit(indices)
	if split == nil || split.gain < g.cp*g.rootImp {
		return node
	}

	node.leaf = false
	node.feature = split.feature
	node.threshold = split.threshold
	node.left = g.grow(split.left, depthLeft-1)
	node.right = g.grow(split.right, depthLeft-1)
	return node
}

func (g *cartGrower) features() []int {
	nFeatures := len(g.rows[0])
	all := make([]int, nFeatures)
	for j := range all {
		all[j] = j
	}
	if g.mtry <= 0 || g.mtry >= nFeatures {
		return all
	}
	// Partial Fisher-Yates for the random subset.
	for i := 0; i < g.mtry; i++ {
		j := i + g.rng.IntN(nFeatures-i)
		all[i], all[j] = all[j], all[i]
	}
	return all[:g.mtry]
}

func (g *cartGrower) bestSplit(indices []int) *cartSplit {
	var best *cartSplit
	nodeImp := gini(posCount(g.y, indices), len(indices))
	nodeN := len(indices)

	order := make([]int, len(indices))
	for _, feature := range g.features() {
		copy(order, indices)
		sort.Slice(order, func(a, b int) bool {
			return g.rows[order[a]][feature] < g.rows[order[b]][feature]
		})

		leftPos := 0
		totalPos := posCount(g.y, order)
		for i := 0; i < len(order)-1; i++ {
			if g.y[order[i]] == 1 {
				leftPos++
			}
			leftN := i + 1
			rightN := len(order) - leftN
			if leftN < g.minLeaf || rightN < g.minLeaf {
				continue
			}
			v, next := g.rows[order[i]][feature], g.rows[order[i+1]][feature]
			if v == next {
				continue
			}

			leftImp := gini(leftPos, leftN)
			rightImp := gini(totalPos-leftPos, rightN)
			decrease := float64(nodeN)*nodeImp - float64(leftN)*leftImp - float64(rightN)*rightImp
			gain := decrease / float64(g.rootN)

			if best == nil || gain > best.gain {
				threshold := (v + next) / 2
				best = &cartSplit{
					feature:   feature,
					threshold: threshold,
					gain:      gain,
					left:      append([]int(nil), order[:leftN]...),
					right:     append([]int(nil), order[leftN:]...),
				}
			}
		}
	}
	return best
}
