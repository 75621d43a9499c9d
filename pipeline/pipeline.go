// Package pipeline wires the full model-selection flow together: split,
// recipe fit, cross-validation folds, per-family hyperparameter search,
// selection, final fit and the single holdout evaluation. One seed
// threads through every stage so a run is reproducible end to end.
package pipeline

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/strandml/strand/classifier"
	"github.com/strandml/strand/core/model"
	"github.com/strandml/strand/core/parallel"
	"github.com/strandml/strand/dataset"
	"github.com/strandml/strand/metrics"
	"github.com/strandml/strand/pkg/errors"
	"github.com/strandml/strand/pkg/log"
	"github.com/strandml/strand/recipe"
	"github.com/strandml/strand/tune"
)

// ModelConfig names one model family to evaluate and how to build its
// candidate grid.
type ModelConfig struct {
	// Family is one of the classifier package's family names.
	Family string

	// GridLevels discretizes each tunable parameter for the regular
	// Cartesian grid. Ignored when MaxEntropySize is set.
	GridLevels int

	// MaxEntropySize switches the family to the space-filling sample of
	// this many candidates instead of the Cartesian product.
	MaxEntropySize int
}

// Config drives a pipeline run.
type Config struct {
	Seed            uint64
	SplitProportion float64
	Folds           int
	Stratified      bool
	Upsample        bool

	// Metric is the selection target, one of the metrics package names.
	Metric string

	Models  []ModelConfig
	Workers int

	Logger *slog.Logger
}

// withDefaults fills the zero values of a Config.
func (c Config) withDefaults() Config {
	if c.SplitProportion == 0 {
		c.SplitProportion = 0.75
	}
	if c.Folds == 0 {
		c.Folds = 5
	}
	if c.Metric == "" {
		c.Metric = metrics.MetricROCAUC
	}
	models := make([]ModelConfig, len(c.Models))
	copy(models, c.Models)
	for i := range models {
		if models[i].GridLevels == 0 && models[i].MaxEntropySize == 0 {
			models[i].GridLevels = 3
		}
	}
	c.Models = models
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) validate() error {
	if c.SplitProportion <= 0 || c.SplitProportion >= 1 {
		return errors.NewDataError("pipeline.Run", "", "split proportion must be inside (0, 1)")
	}
	if c.Folds < 2 {
		return errors.NewValidationError("folds", "cross-validation needs at least two folds", c.Folds)
	}
	if len(c.Models) == 0 {
		return errors.NewValidationError("models", "at least one model family is required", 0)
	}
	return nil
}

// ModelReport is the search outcome of one model family.
type ModelReport struct {
	Family string
	Tuning *tune.TuningResult

	// Best is the family's winning candidate, nil when every candidate
	// was ineligible.
	Best *tune.CandidateResult
}

// Selected identifies the pipeline's overall winning model.
type Selected struct {
	Family    string
	Candidate tune.Candidate
	CVMean    float64
	CVStdErr  float64
}

// HoldoutReport is the single final performance estimate on holdout data.
type HoldoutReport struct {
	Confusion metrics.ConfusionMatrix

	Accuracy         float64
	Sensitivity      float64
	Specificity      float64
	BalancedAccuracy float64
	Precision        float64
	F1               float64
	AUC              float64

	ROC []metrics.ROCPoint
}

// RunReport is everything a run produced, with full provenance of which
// (fold, candidate) pairs failed.
type RunReport struct {
	RunID     string
	Seed      uint64
	Metric    string
	StartedAt time.Time
	Duration  time.Duration

	TrainRows    int
	HoldoutRows  int
	FeatureNames []string

	Models   []ModelReport
	Selected Selected
	Holdout  HoldoutReport

	Partial  bool
	Failures []*errors.SearchError
}

// Run executes the pipeline on a loaded dataset. Fatal configuration and
// data errors return immediately; individual search failures are carried
// in the report instead.
func Run(ctx context.Context, d *dataset.Dataset, cfg Config) (*RunReport, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	started := time.Now()

	report := &RunReport{
		RunID:     uuid.NewString(),
		Seed:      cfg.Seed,
		Metric:    cfg.Metric,
		StartedAt: started,
	}
	logger.Info("pipeline run started",
		slog.String("run_id", report.RunID),
		slog.Uint64(log.SeedKey, cfg.Seed),
		slog.String(log.MetricKey, cfg.Metric),
		slog.Int(log.RowsKey, d.Len()),
	)

	train, holdout, err := dataset.Split(d, cfg.SplitProportion, cfg.Seed)
	if err != nil {
		return nil, err
	}
	report.TrainRows, report.HoldoutRows = train.Len(), holdout.Len()
	logger.Info("dataset partitioned",
		slog.String(log.StageKey, "split"),
		slog.Int("train_rows", train.Len()),
		slog.Int("holdout_rows", holdout.Len()),
	)

	recipeOpts := []recipe.Option{recipe.WithSeed(cfg.Seed)}
	if cfg.Upsample {
		recipeOpts = append(recipeOpts, recipe.WithUpsampling())
	}
	prep, err := recipe.New(dataset.DefaultSchema(train), recipeOpts...).Fit(train)
	if err != nil {
		return nil, err
	}
	report.FeatureNames = prep.FeatureNames()
	logger.Info("feature recipe fitted",
		slog.String(log.StageKey, "recipe"),
		slog.Int(log.ColsKey, len(report.FeatureNames)),
		slog.Float64("upsample_ratio", prep.UpsampleRatio()),
	)

	folds, err := dataset.KFold{K: cfg.Folds, Stratified: cfg.Stratified, Seed: cfg.Seed}.Split(train)
	if err != nil {
		return nil, err
	}
	foldTables, err := tune.PrepareFolds(train, folds, prep, cfg.Seed)
	if err != nil {
		return nil, err
	}

	pool := parallel.NewPool(cfg.Workers)
	selector := tune.NewSelector(cfg.Metric)

	for _, mc := range cfg.Models {
		mr, err := searchFamily(ctx, mc, cfg, foldTables, pool, selector, logger)
		if err != nil {
			return nil, err
		}
		report.Models = append(report.Models, *mr)
		report.Failures = append(report.Failures, mr.Tuning.Failures...)
	}
	report.Partial = len(report.Failures) > 0

	best, bestFamily := pickOverall(report.Models, cfg.Metric)
	if best == nil {
		return nil, errors.NewSelectionError(cfg.Metric, countCandidates(report.Models), 0)
	}
	report.Selected = Selected{
		Family:    bestFamily,
		Candidate: best.Candidate,
		CVMean:    best.Mean(cfg.Metric),
		CVStdErr:  best.StdErr(cfg.Metric),
	}
	logger.Info("model selected",
		slog.String(log.StageKey, "select"),
		slog.String(log.ModelKey, bestFamily),
		slog.Int(log.CandidateKey, best.Candidate.Index),
		slog.Float64(log.ValueKey, report.Selected.CVMean),
	)

	holdoutReport, err := finalEvaluation(report.Selected, cfg.Seed, prep, train, holdout, logger)
	if err != nil {
		return nil, err
	}
	report.Holdout = *holdoutReport

	report.Duration = time.Since(started)
	logger.Info("pipeline run finished",
		slog.String("run_id", report.RunID),
		slog.Float64(log.ValueKey, report.Holdout.AUC),
		slog.Bool("partial", report.Partial),
		slog.Int64(log.DurationMsKey, report.Duration.Milliseconds()),
	)
	return report, nil
}

// searchFamily runs the hyperparameter search for one model family.
func searchFamily(ctx context.Context, mc ModelConfig, cfg Config, folds []tune.FoldTables,
	pool *parallel.Pool, selector *tune.Selector, logger *slog.Logger) (*ModelReport, error) {

	proto, err := classifier.New(mc.Family, cfg.Seed)
	if err != nil {
		return nil, err
	}

	var defs []model.ParamDef
	if tunable, ok := proto.(model.Tunable); ok {
		defs = tunable.ParamDefs()
	}
	var candidates []tune.Candidate
	if mc.MaxEntropySize > 0 {
		candidates, err = tune.GridMaxEntropy(defs, mc.MaxEntropySize, cfg.Seed)
	} else {
		candidates, err = tune.GridRegular(defs, mc.GridLevels)
	}
	if err != nil {
		return nil, err
	}

	search, err := tune.NewSearch(proto, candidates, folds, tune.WithPool(pool), tune.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	tuning, err := search.Run(ctx)
	if err != nil {
		return nil, err
	}

	mr := &ModelReport{Family: mc.Family, Tuning: tuning}
	best, err := selector.Select(tuning)
	if err != nil {
		// A family with no eligible candidate stays in the report; the
		// run only fails when every family ends up empty.
		var serr *errors.SelectionError
		if errors.As(err, &serr) {
			logger.Warn("model family has no eligible candidate",
				slog.String(log.StageKey, "select"),
				slog.String(log.ModelKey, mc.Family),
			)
			return mr, nil
		}
		return nil, err
	}
	mr.Best = best
	return mr, nil
}

// pickOverall compares the family winners on mean target metric, ties by
// lower complexity then family order.
func pickOverall(models []ModelReport, metric string) (*tune.CandidateResult, string) {
	var best *tune.CandidateResult
	var family string
	for i := range models {
		b := models[i].Best
		if b == nil {
			continue
		}
		if best == nil || betterResult(b, best, metric) {
			best, family = b, models[i].Family
		}
	}
	return best, family
}

func betterResult(a, b *tune.CandidateResult, metric string) bool {
	ma, mb := a.Mean(metric), b.Mean(metric)
	if ma != mb {
		return ma > mb
	}
	if !math.IsNaN(a.Complexity) && !math.IsNaN(b.Complexity) && a.Complexity != b.Complexity {
		return a.Complexity < b.Complexity
	}
	return false
}

func countCandidates(models []ModelReport) int {
	n := 0
	for _, m := range models {
		n += len(m.Tuning.Results)
	}
	return n
}

// finalEvaluation refits the selected model on the full training data and
// produces the holdout report. Holdout rows pass through Apply untouched,
// so this is the first and only time they influence anything.
func finalEvaluation(sel Selected, seed uint64, prep *recipe.Prepared,
	train, holdout *dataset.Dataset, logger *slog.Logger) (*HoldoutReport, error) {

	clf, err := classifier.New(sel.Family, seed)
	if err != nil {
		return nil, err
	}
	if len(sel.Candidate.Params) > 0 {
		tunable, ok := clf.(model.Tunable)
		if !ok {
			return nil, errors.NewValidationError("model", "selected family has no tunable parameters", sel.Family)
		}
		if err := tunable.SetParams(sel.Candidate.Params); err != nil {
			return nil, err
		}
	}

	trainTable, err := prep.ApplyTraining(train, seed)
	if err != nil {
		return nil, err
	}
	if err := clf.Fit(trainTable.X, trainTable.Y); err != nil {
		return nil, err
	}
	logger.Info("final model fitted",
		slog.String(log.StageKey, "final_fit"),
		slog.String(log.ModelKey, sel.Family),
		slog.Int(log.RowsKey, trainTable.Len()),
	)

	holdoutTable, err := prep.Apply(holdout)
	if err != nil {
		return nil, err
	}
	pred, err := clf.Predict(holdoutTable.X)
	if err != nil {
		return nil, err
	}
	proba, err := clf.PredictProba(holdoutTable.X)
	if err != nil {
		return nil, err
	}

	cm, err := metrics.NewConfusionMatrix(holdoutTable.Y, pred)
	if err != nil {
		return nil, err
	}
	roc, err := metrics.ROCCurve(holdoutTable.Y, proba)
	if err != nil {
		return nil, err
	}
	auc, err := metrics.AUC(holdoutTable.Y, proba)
	if err != nil {
		return nil, err
	}

	return &HoldoutReport{
		Confusion:        cm,
		Accuracy:         cm.Accuracy(),
		Sensitivity:      cm.Sensitivity(),
		Specificity:      cm.Specificity(),
		BalancedAccuracy: cm.BalancedAccuracy(),
		Precision:        cm.Precision(),
		F1:               cm.F1(),
		AUC:              auc,
		ROC:              roc,
	}, nil
}
