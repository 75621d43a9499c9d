package dataset

import (
	"math/rand/v2"
	"sort"

	"github.com/strandml/strand/pkg/errors"
)

// Split partitions d into disjoint training and holdout subsets with
// |training| ≈ p·|d|, using a seeded pseudorandom permutation so runs with
// the same seed are bit-reproducible. Both subsets preserve the original
// record order.
func Split(d *Dataset, p float64, seed uint64) (train, holdout *Dataset, err error) {
	if d == nil || d.Len() == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "Split")
	}
	if p <= 0 || p >= 1 {
		return nil, nil, errors.NewDataError("Split", "", "split proportion must be in (0,1)")
	}

	n := d.Len()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	nTrain := int(float64(n)*p + 0.5)
	if nTrain < 1 {
		nTrain = 1
	}
	if nTrain > n-1 {
		nTrain = n - 1
	}

	trainIdx := append([]int(nil), indices[:nTrain]...)
	holdIdx := append([]int(nil), indices[nTrain:]...)
	sort.Ints(trainIdx)
	sort.Ints(holdIdx)

	train, err = d.Subset(trainIdx)
	if err != nil {
		return nil, nil, err
	}
	holdout, err = d.Subset(holdIdx)
	if err != nil {
		return nil, nil, err
	}
	return train, holdout, nil
}

// Fold is one cross-validation fold: the record indices (into the training
// dataset) used for the inner fit and for validation.
type Fold struct {
	Train []int
	Val   []int
}

// KFold splits a training dataset into k folds whose validation portions
// partition the records exactly once each. With Stratified set, class
// proportions are preserved per fold.
type KFold struct {
	K          int
	Stratified bool
	Seed       uint64
}

// Split derives the folds for d.
func (kf KFold) Split(d *Dataset) ([]Fold, error) {
	if d == nil || d.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "KFold.Split")
	}
	if kf.K < 2 {
		return nil, errors.NewValidationError("k", "fold count must be at least 2", kf.K)
	}
	n := d.Len()
	if kf.K > n {
		return nil, errors.NewValidationError("k", "fold count exceeds record count", kf.K)
	}

	r := rand.New(rand.NewPCG(kf.Seed, kf.Seed))

	var valSets [][]int
	if kf.Stratified {
		valSets = kf.stratifiedValSets(d, r)
	} else {
		valSets = kf.plainValSets(n, r)
	}

	folds := make([]Fold, kf.K)
	for i, val := range valSets {
		sort.Ints(val)
		inVal := make([]bool, n)
		for _, idx := range val {
			inVal[idx] = true
		}
		train := make([]int, 0, n-len(val))
		for j := 0; j < n; j++ {
			if !inVal[j] {
				train = append(train, j)
			}
		}
		folds[i] = Fold{Train: train, Val: val}
	}
	return folds, nil
}

// plainValSets shuffles all indices and deals them into k contiguous
// validation blocks, spreading the remainder over the first folds.
func (kf KFold) plainValSets(n int, r *rand.Rand) [][]int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	sets := make([][]int, kf.K)
	size := n / kf.K
	remainder := n % kf.K
	cur := 0
	for i := 0; i < kf.K; i++ {
		take := size
		if i < remainder {
			take++
		}
		sets[i] = append([]int(nil), indices[cur:cur+take]...)
		cur += take
	}
	return sets
}

// stratifiedValSets shuffles within each class and deals classes across
// folds so per-fold class proportions track the whole set.
func (kf KFold) stratifiedValSets(d *Dataset, r *rand.Rand) [][]int {
	byClass := make(map[float64][]int, 2)
	for i, v := range d.Target().Values {
		byClass[v] = append(byClass[v], i)
	}

	sets := make([][]int, kf.K)
	for _, class := range []float64{0, 1} {
		indices := byClass[class]
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		size := len(indices) / kf.K
		remainder := len(indices) % kf.K
		cur := 0
		for i := 0; i < kf.K; i++ {
			take := size
			if i < remainder {
				take++
			}
			sets[i] = append(sets[i], indices[cur:cur+take]...)
			cur += take
		}
	}
	return sets
}
