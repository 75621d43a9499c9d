package tune

import (
	"context"
	"log/slog"
	"math"

	"github.com/strandml/strand/core/model"
	"github.com/strandml/strand/core/parallel"
	"github.com/strandml/strand/dataset"
	"github.com/strandml/strand/metrics"
	"github.com/strandml/strand/pkg/errors"
	"github.com/strandml/strand/pkg/log"
	"github.com/strandml/strand/recipe"
)

// FoldTables is one cross-validation fold after recipe application: the
// transformed inner-training table and its untouched validation table.
type FoldTables struct {
	Train *dataset.Table
	Val   *dataset.Table
}

// PrepareFolds materialises the fold tables once, before the search
// starts. The recipe's upsampling runs on each inner-training fold with a
// per-fold seed derived from the run seed; validation folds pass through
// Apply untouched. Workers then share the immutable tables.
func PrepareFolds(train *dataset.Dataset, folds []dataset.Fold, prep *recipe.Prepared, seed uint64) ([]FoldTables, error) {
	if len(folds) == 0 {
		return nil, errors.NewValidationError("folds", "no folds to prepare", 0)
	}
	out := make([]FoldTables, len(folds))
	for i, fold := range folds {
		innerTrain, err := train.Subset(fold.Train)
		if err != nil {
			return nil, err
		}
		innerVal, err := train.Subset(fold.Val)
		if err != nil {
			return nil, err
		}
		trainTable, err := prep.ApplyTraining(innerTrain, seed+uint64(i))
		if err != nil {
			return nil, err
		}
		valTable, err := prep.Apply(innerVal)
		if err != nil {
			return nil, err
		}
		out[i] = FoldTables{Train: trainTable, Val: valTable}
	}
	return out, nil
}

// Search evaluates every candidate on every fold. The prototype
// classifier is cloned per (fold, candidate) fit so workers never share
// mutable state; a failed or panicking fit is recorded against its pair
// and the search continues.
type Search struct {
	proto      model.Classifier
	candidates []Candidate
	folds      []FoldTables
	pool       *parallel.Pool
	logger     *slog.Logger
}

// SearchOption configures a Search.
type SearchOption func(*Search)

// WithPool sets the worker pool; the default pool sizes itself to
// parallel.DefaultWorkers.
func WithPool(pool *parallel.Pool) SearchOption {
	return func(s *Search) { s.pool = pool }
}

// WithLogger sets the structured logger for search progress.
func WithLogger(logger *slog.Logger) SearchOption {
	return func(s *Search) { s.logger = logger }
}

// NewSearch validates the inputs and builds a Search. The prototype must
// be cloneable so each worker fits its own instance.
func NewSearch(proto model.Classifier, candidates []Candidate, folds []FoldTables, opts ...SearchOption) (*Search, error) {
	if proto == nil {
		return nil, errors.NewValidationError("model", "search needs a classifier", nil)
	}
	if _, ok := proto.(model.Cloner); !ok {
		return nil, errors.NewValidationError("model", "classifier must support cloning", proto.Name())
	}
	if len(candidates) == 0 {
		return nil, errors.NewValidationError("candidates", "search needs at least one candidate", 0)
	}
	if len(folds) == 0 {
		return nil, errors.NewValidationError("folds", "search needs at least one fold", 0)
	}

	s := &Search{
		proto:      proto,
		candidates: candidates,
		folds:      folds,
		pool:       parallel.NewPool(0),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// pairOutcome is one worker's write slot. Each (candidate, fold) pair
// owns exactly one slot, so workers never contend.
type pairOutcome struct {
	values        map[string]float64
	complexity    float64
	hasComplexity bool
	err           *errors.SearchError
}

// Run executes the full fold-by-candidate evaluation and aggregates the
// outcomes. The search itself only fails on a degenerate configuration;
// individual fit failures end up in the result's provenance.
func (s *Search) Run(ctx context.Context) (*TuningResult, error) {
	k := len(s.folds)
	s.logger.Info("hyperparameter search started",
		slog.String(log.StageKey, "search"),
		slog.String(log.ModelKey, s.proto.Name()),
		slog.Int("candidates", len(s.candidates)),
		slog.Int("folds", k),
		slog.Int("workers", s.pool.Workers()),
	)

	slots := make([]pairOutcome, len(s.candidates)*k)
	tasks := make([]func(context.Context) error, 0, len(slots))
	for ci := range s.candidates {
		for fi := range s.folds {
			ci, fi := ci, fi
			tasks = append(tasks, func(context.Context) error {
				slot := &slots[ci*k+fi]
				values, complexity, hasComplexity, err := s.evaluatePair(s.candidates[ci], s.folds[fi])
				if err != nil {
					wrapped := errors.NewSearchError(ci, fi, err)
					errors.As(wrapped, &slot.err)
					s.logger.Warn("candidate fit failed",
						slog.String(log.StageKey, "search"),
						slog.Int(log.CandidateKey, ci),
						slog.Int(log.FoldKey, fi),
						log.ErrAttr(wrapped),
					)
					return nil
				}
				slot.values = values
				slot.complexity = complexity
				slot.hasComplexity = hasComplexity
				return nil
			})
		}
	}

	if err := s.pool.Run(ctx, tasks); err != nil {
		return nil, err
	}

	result := &TuningResult{K: k, Results: make([]CandidateResult, len(s.candidates))}
	for ci, candidate := range s.candidates {
		agg := CandidateResult{Candidate: candidate, Complexity: math.NaN()}
		complexitySum, complexityN := 0.0, 0
		for fi := 0; fi < k; fi++ {
			slot := slots[ci*k+fi]
			if slot.err != nil {
				agg.Failed = append(agg.Failed, slot.err)
				result.Failures = append(result.Failures, slot.err)
				continue
			}
			agg.Folds = append(agg.Folds, FoldMetrics{Fold: fi, Values: slot.values})
			if slot.hasComplexity {
				complexitySum += slot.complexity
				complexityN++
			}
		}
		if complexityN > 0 {
			agg.Complexity = complexitySum / float64(complexityN)
		}
		result.Results[ci] = agg
	}
	result.Partial = len(result.Failures) > 0

	s.logger.Info("hyperparameter search finished",
		slog.String(log.StageKey, "search"),
		slog.String(log.ModelKey, s.proto.Name()),
		slog.Int("pairs", len(slots)),
		slog.Int("failed_pairs", len(result.Failures)),
		slog.Bool("partial", result.Partial),
	)
	return result, nil
}

// evaluatePair fits one candidate on one fold and scores the validation
// table. A panic inside the fit is converted into the returned error.
func (s *Search) evaluatePair(c Candidate, fold FoldTables) (values map[string]float64, complexity float64, hasComplexity bool, err error) {
	defer errors.Recover(&err, "tune.Search.evaluatePair")

	clf := s.proto.(model.Cloner).Clone()
	if len(c.Params) > 0 {
		tunable, ok := clf.(model.Tunable)
		if !ok {
			return nil, 0, false, errors.NewValidationError("model", "classifier has no tunable parameters", clf.Name())
		}
		if err := tunable.SetParams(c.Params); err != nil {
			return nil, 0, false, err
		}
	}

	if err := clf.Fit(fold.Train.X, fold.Train.Y); err != nil {
		return nil, 0, false, err
	}

	proba, err := clf.PredictProba(fold.Val.X)
	if err != nil {
		return nil, 0, false, err
	}
	pred := make([]float64, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			pred[i] = 1
		}
	}

	cm, err := metrics.NewConfusionMatrix(fold.Val.Y, pred)
	if err != nil {
		return nil, 0, false, err
	}
	auc, err := metrics.AUC(fold.Val.Y, proba)
	if err != nil {
		return nil, 0, false, err
	}

	values = map[string]float64{
		metrics.MetricAccuracy:         cm.Accuracy(),
		metrics.MetricSensitivity:      cm.Sensitivity(),
		metrics.MetricSpecificity:      cm.Specificity(),
		metrics.MetricBalancedAccuracy: cm.BalancedAccuracy(),
		metrics.MetricPrecision:        cm.Precision(),
		metrics.MetricF1:               cm.F1(),
		metrics.MetricROCAUC:           auc,
	}
	if reporter, ok := clf.(model.ComplexityReporter); ok {
		return values, reporter.Complexity(), true, nil
	}
	return values, 0, false, nil
}
