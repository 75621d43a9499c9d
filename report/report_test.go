package report

import (
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/strandml/strand/metrics"
	"github.com/strandml/strand/pipeline"
	"github.com/strandml/strand/tune"
)

func sampleHoldout() pipeline.HoldoutReport {
	return pipeline.HoldoutReport{
		Confusion:        metrics.ConfusionMatrix{TP: 30, FP: 10, TN: 50, FN: 10},
		Accuracy:         0.8,
		Sensitivity:      0.75,
		Specificity:      50.0 / 60.0,
		BalancedAccuracy: (0.75 + 50.0/60.0) / 2,
		Precision:        0.75,
		F1:               0.75,
		AUC:              0.87,
		ROC: []metrics.ROCPoint{
			{Threshold: math.Inf(1), FPR: 0, TPR: 0},
			{Threshold: 0.5, FPR: 0.2, TPR: 0.8},
			{Threshold: 0.1, FPR: 1, TPR: 1},
		},
	}
}

func sampleTuning() *tune.TuningResult {
	return &tune.TuningResult{
		K: 5,
		Results: []tune.CandidateResult{
			{
				Candidate: tune.Candidate{Index: 0, Params: map[string]float64{"max_depth": 3}},
				Folds: []tune.FoldMetrics{
					{Fold: 0, Values: map[string]float64{metrics.MetricROCAUC: 0.8}},
					{Fold: 1, Values: map[string]float64{metrics.MetricROCAUC: 0.82}},
					{Fold: 2, Values: map[string]float64{metrics.MetricROCAUC: 0.81}},
					{Fold: 3, Values: map[string]float64{metrics.MetricROCAUC: 0.79}},
					{Fold: 4, Values: map[string]float64{metrics.MetricROCAUC: 0.83}},
				},
			},
			{
				Candidate: tune.Candidate{Index: 1, Params: map[string]float64{"max_depth": 9}},
				Folds: []tune.FoldMetrics{
					{Fold: 0, Values: map[string]float64{metrics.MetricROCAUC: 0.9}},
					{Fold: 1, Values: map[string]float64{metrics.MetricROCAUC: 0.88}},
					{Fold: 2, Values: map[string]float64{metrics.MetricROCAUC: 0.89}},
					{Fold: 3, Values: map[string]float64{metrics.MetricROCAUC: 0.91}},
					{Fold: 4, Values: map[string]float64{metrics.MetricROCAUC: 0.9}},
				},
			},
		},
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, time.August, 25, 14, 30, 5, 0, time.UTC)
	if got, want := Filename("confusion", "txt", at), "confusion_20260825_143005.txt"; got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}

func TestWriteConfusion(t *testing.T) {
	var b strings.Builder
	if err := WriteConfusion(&b, sampleHoldout()); err != nil {
		t.Fatalf("WriteConfusion() error = %v", err)
	}
	out := b.String()
	for _, want := range []string{"30", "10", "50", "accuracy", "0.8000", "roc auc", "0.8700"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTuningTableRanksByMean(t *testing.T) {
	var b strings.Builder
	if err := WriteTuningTable(&b, "decision_tree", metrics.MetricROCAUC, sampleTuning()); err != nil {
		t.Fatalf("WriteTuningTable() error = %v", err)
	}
	out := b.String()
	deep := strings.Index(out, "max_depth=9")
	shallow := strings.Index(out, "max_depth=3")
	if deep == -1 || shallow == -1 {
		t.Fatalf("output missing candidates:\n%s", out)
	}
	if deep > shallow {
		t.Errorf("higher-mean candidate ranked below lower-mean one:\n%s", out)
	}
}

func TestWriteSummary(t *testing.T) {
	r := &pipeline.RunReport{
		RunID:       "3b94c52e-91a8-4a2f-9d5e-27b3f8f1a001",
		Seed:        42,
		Metric:      metrics.MetricROCAUC,
		StartedAt:   time.Date(2026, time.August, 25, 9, 0, 0, 0, time.UTC),
		Duration:    1500 * time.Millisecond,
		TrainRows:   750,
		HoldoutRows: 250,
		Models:      []pipeline.ModelReport{{Family: "decision_tree", Tuning: sampleTuning()}},
		Selected: pipeline.Selected{
			Family:    "decision_tree",
			Candidate: tune.Candidate{Index: 1, Params: map[string]float64{"max_depth": 9}},
			CVMean:    0.896,
		},
		Holdout: sampleHoldout(),
	}

	var b strings.Builder
	if err := WriteSummary(&b, r); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
	out := b.String()
	for _, want := range []string{r.RunID, "seed:     42", "750 train, 250 holdout", "selected: decision_tree", "family: decision_tree"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSaveROC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roc.png")
	if err := SaveROC(path, sampleHoldout().ROC, 0.87); err != nil {
		t.Fatalf("SaveROC() error = %v", err)
	}
}

func TestROCPlotEmptyCurve(t *testing.T) {
	if _, err := ROCPlot(nil, 0); err == nil {
		t.Fatal("ROCPlot() expected error for empty curve")
	}
}
