// Command stranded runs the full model-selection pipeline on a stranded-
// patient CSV export: load, split, feature recipe, cross-validated
// hyperparameter search over the configured model families, final fit and
// holdout evaluation. It writes a run summary and the ROC curve to the
// output directory.
//
// Configuration comes from STRAND_* environment variables; see the config
// struct for the full set.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/strandml/strand/dataset"
	"github.com/strandml/strand/pipeline"
	"github.com/strandml/strand/pkg/log"
	"github.com/strandml/strand/report"
)

type config struct {
	Input  string `envconfig:"INPUT" required:"true"`
	OutDir string `envconfig:"OUT_DIR" default:"."`

	Target   string `envconfig:"TARGET" default:"stranded_label"`
	Positive string `envconfig:"POSITIVE" default:"Stranded"`
	Negative string `envconfig:"NEGATIVE" default:"Not Stranded"`

	NumericColumns     []string `envconfig:"NUMERIC_COLUMNS" default:"age,periods_of_previous_care"`
	CategoricalColumns []string `envconfig:"CATEGORICAL_COLUMNS" default:"care_home_referral,medically_safe,mental_health_care,frailty_index"`
	DateColumns        []string `envconfig:"DATE_COLUMNS" default:"admit_date"`
	DateFormat         string   `envconfig:"DATE_FORMAT" default:"2006-01-02"`

	Seed           uint64   `envconfig:"SEED" default:"42"`
	Split          float64  `envconfig:"SPLIT" default:"0.75"`
	Folds          int      `envconfig:"FOLDS" default:"5"`
	Stratified     bool     `envconfig:"STRATIFIED" default:"false"`
	Upsample       bool     `envconfig:"UPSAMPLE" default:"true"`
	Metric         string   `envconfig:"METRIC" default:"roc_auc"`
	Models         []string `envconfig:"MODELS" default:"logistic_regression,decision_tree,gradient_boosting"`
	GridLevels     int      `envconfig:"GRID_LEVELS" default:"3"`
	MaxEntropySize int      `envconfig:"MAX_ENTROPY_SIZE" default:"0"`
	Workers        int      `envconfig:"WORKERS" default:"0"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	var cfg config
	if err := envconfig.Process("strand", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "stranded: %v\n", err)
		os.Exit(2)
	}
	log.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("run failed", log.ErrAttr(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	spec := dataset.CSVSpec{
		Target:     cfg.Target,
		Negative:   cfg.Negative,
		Positive:   cfg.Positive,
		DateFormat: cfg.DateFormat,
	}
	for _, name := range cfg.NumericColumns {
		spec.Columns = append(spec.Columns, dataset.Column{Name: name, Kind: dataset.KindNumeric})
	}
	for _, name := range cfg.CategoricalColumns {
		spec.Columns = append(spec.Columns, dataset.Column{Name: name, Kind: dataset.KindCategorical})
	}
	for _, name := range cfg.DateColumns {
		spec.Columns = append(spec.Columns, dataset.Column{Name: name, Kind: dataset.KindDate})
	}

	d, err := dataset.LoadCSVFile(cfg.Input, spec)
	if err != nil {
		return err
	}
	neg, pos := d.ClassCounts()
	slog.Info("dataset loaded",
		slog.String("path", cfg.Input),
		slog.Int(log.RowsKey, d.Len()),
		slog.Int("negatives", neg),
		slog.Int("positives", pos),
	)

	models := make([]pipeline.ModelConfig, 0, len(cfg.Models))
	for _, family := range cfg.Models {
		models = append(models, pipeline.ModelConfig{
			Family:         family,
			GridLevels:     cfg.GridLevels,
			MaxEntropySize: cfg.MaxEntropySize,
		})
	}

	result, err := pipeline.Run(ctx, d, pipeline.Config{
		Seed:            cfg.Seed,
		SplitProportion: cfg.Split,
		Folds:           cfg.Folds,
		Stratified:      cfg.Stratified,
		Upsample:        cfg.Upsample,
		Metric:          cfg.Metric,
		Models:          models,
		Workers:         cfg.Workers,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return err
	}
	now := time.Now()

	summaryPath := filepath.Join(cfg.OutDir, report.Filename("stranded_run", "txt", now))
	f, err := os.Create(summaryPath)
	if err != nil {
		return err
	}
	if err := report.WriteSummary(f, result); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	rocPath := filepath.Join(cfg.OutDir, report.Filename("stranded_roc", "png", now))
	if err := report.SaveROC(rocPath, result.Holdout.ROC, result.Holdout.AUC); err != nil {
		return err
	}

	slog.Info("run complete",
		slog.String("run_id", result.RunID),
		slog.String("summary", summaryPath),
		slog.String("roc", rocPath),
		slog.String(log.ModelKey, result.Selected.Family),
		slog.Float64(log.ValueKey, result.Holdout.AUC),
	)
	return nil
}
