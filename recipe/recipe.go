// Package recipe implements the fit/apply feature transformer of the
// pipeline. A Recipe lists the transformation steps in fixed order — date
// decomposition, minority upsampling, dummy encoding, zero-variance
// filtering, normalisation — and Fit learns every statistic from training
// data alone. The resulting Prepared recipe applies the identical
// transformation to any dataset without re-learning, which is what keeps
// holdout and validation folds leak-free.
package recipe

import (
	"math/rand/v2"

	"github.com/strandml/strand/dataset"
	"github.com/strandml/strand/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Recipe is the unfitted configuration of the feature transformation.
type Recipe struct {
	schema dataset.Schema

	upsample     bool
	ratioPerFold bool
	seed         uint64

	dropFirstLevel bool
}

// Option configures a Recipe.
type Option func(*Recipe)

// WithUpsampling enables minority-class oversampling on training data. The
// target minority fraction is captured once at fit time from the original
// unbalanced training set and reused for every training fold; it is never
// recomputed, and validation or holdout data is never resampled.
func WithUpsampling() Option {
	return func(r *Recipe) { r.upsample = true }
}

// WithRatioPerFold recomputes the upsampling target from each fold's own
// class balance instead of the fit-time constant. Off by default: the
// fit-time constant matches the behaviour this pipeline reproduces, even
// though a per-fold ratio is arguably the statistically intended one.
func WithRatioPerFold() Option {
	return func(r *Recipe) { r.ratioPerFold = true }
}

// WithSeed sets the seed for the sampling done at fit time.
func WithSeed(seed uint64) Option {
	return func(r *Recipe) { r.seed = seed }
}

// WithAllLevels keeps a dummy column for every categorical level instead of
// dropping the first level as the reference.
func WithAllLevels() Option {
	return func(r *Recipe) { r.dropFirstLevel = false }
}

// New creates a Recipe for the given schema.
func New(schema dataset.Schema, opts ...Option) *Recipe {
	r := &Recipe{
		schema:         schema,
		dropFirstLevel: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepared is a fitted recipe. All fields are fixed at fit time; Apply is
// read-only and safe for concurrent use across search workers.
type Prepared struct {
	schema dataset.Schema

	upsample     bool
	ratioPerFold bool
	ratio        float64 // minority fraction target captured at fit

	// encoding learned at fit time
	dropFirstLevel bool
	levels         map[string][]string // categorical column -> dummy levels
	rawNames       []string            // column order before the variance filter
	keep           []bool              // variance filter mask over rawNames

	// normalisation statistics for kept columns
	names []string
	mean  []float64
	std   []float64
}

// Fit learns the recipe's statistics from training data: categorical level
// sets, the upsampling ratio, the zero-variance mask and the per-column
// mean and standard deviation. Statistics are learned from the (upsampled)
// training data only.
func (r *Recipe) Fit(train *dataset.Dataset) (*Prepared, error) {
	if train == nil || train.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Recipe.Fit")
	}
	if err := r.schema.Validate(train); err != nil {
		return nil, err
	}

	p := &Prepared{
		schema:         r.schema,
		upsample:       r.upsample,
		ratioPerFold:   r.ratioPerFold,
		dropFirstLevel: r.dropFirstLevel,
	}

	expanded, err := expand(train, r.schema)
	if err != nil {
		return nil, err
	}

	fitData := expanded
	if r.upsample {
		p.ratio = minorityFraction(expanded.target)
		rng := rand.New(rand.NewPCG(r.seed, r.seed))
		fitData = expanded.resample(upsampleIndices(expanded.target, p.ratio, rng))
	}

	p.levels = learnLevels(fitData, r.dropFirstLevel)
	p.rawNames = rawColumnNames(fitData, p.levels)

	raw := encode(fitData, p.levels, p.rawNames)

	p.keep = nonZeroVarianceMask(raw)
	kept := filterColumns(raw, p.rawNames, p.keep)
	p.names = kept.names

	p.mean, p.std = columnStats(kept.x)

	return p, nil
}

// Apply transforms validation or holdout data with the fitted recipe. No
// resampling takes place and no statistic is re-learned; categorical levels
// unseen at fit time encode as all-zero dummy rows.
func (p *Prepared) Apply(d *dataset.Dataset) (*dataset.Table, error) {
	return p.apply(d, false, 0)
}

// ApplyTraining transforms a training fold: identical to Apply, plus the
// upsampling step when the recipe enables it. The fold seed keeps the
// oversampling deterministic per fold while the ratio stays the fit-time
// constant (unless WithRatioPerFold was set).
func (p *Prepared) ApplyTraining(d *dataset.Dataset, foldSeed uint64) (*dataset.Table, error) {
	return p.apply(d, true, foldSeed)
}

func (p *Prepared) apply(d *dataset.Dataset, training bool, foldSeed uint64) (*dataset.Table, error) {
	if p.names == nil {
		return nil, errors.NewNotFittedError("Recipe", "Apply")
	}
	if d == nil || d.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Recipe.Apply")
	}
	if err := p.schema.Validate(d); err != nil {
		return nil, err
	}

	expanded, err := expand(d, p.schema)
	if err != nil {
		return nil, err
	}

	if training && p.upsample {
		ratio := p.ratio
		if p.ratioPerFold {
			ratio = minorityFraction(expanded.target)
		}
		rng := rand.New(rand.NewPCG(foldSeed, foldSeed))
		expanded = expanded.resample(upsampleIndices(expanded.target, ratio, rng))
	}

	raw := encode(expanded, p.levels, p.rawNames)
	kept := filterColumns(raw, p.rawNames, p.keep)

	rows, cols := kept.x.Dims()
	out := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			out.Set(i, j, (kept.x.At(i, j)-p.mean[j])/p.std[j])
		}
	}

	y := make([]float64, len(expanded.target))
	copy(y, expanded.target)

	return &dataset.Table{Names: p.names, X: out, Y: y}, nil
}

// FeatureNames returns the predictor column names of the transformed table.
func (p *Prepared) FeatureNames() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// UpsampleRatio returns the minority-fraction target captured at fit time,
// or zero when upsampling is disabled.
func (p *Prepared) UpsampleRatio() float64 { return p.ratio }
