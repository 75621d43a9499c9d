package metrics

import (
	"math"
	"testing"

	"github.com/strandml/strand/pkg/errors"
)

func TestNewConfusionMatrix(t *testing.T) {
	yTrue := []float64{1, 1, 1, 0, 0, 0, 1, 0}
	yPred := []float64{1, 1, 0, 0, 0, 1, 1, 0}

	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		t.Fatalf("NewConfusionMatrix() error = %v", err)
	}
	if cm.TP != 3 || cm.FN != 1 || cm.TN != 3 || cm.FP != 1 {
		t.Fatalf("cells = TP %d FP %d TN %d FN %d, want TP 3 FP 1 TN 3 FN 1", cm.TP, cm.FP, cm.TN, cm.FN)
	}
	if cm.Total() != len(yTrue) {
		t.Errorf("Total() = %d, want %d", cm.Total(), len(yTrue))
	}
}

func TestConfusionMatrixRates(t *testing.T) {
	cm := ConfusionMatrix{TP: 30, FP: 10, TN: 50, FN: 10}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "accuracy", got: cm.Accuracy(), want: 0.8},
		{name: "sensitivity", got: cm.Sensitivity(), want: 0.75},
		{name: "specificity", got: cm.Specificity(), want: 50.0 / 60.0},
		{name: "balanced_accuracy", got: cm.BalancedAccuracy(), want: (0.75 + 50.0/60.0) / 2},
		{name: "precision", got: cm.Precision(), want: 0.75},
		{name: "f1", got: cm.F1(), want: 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-12 {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestConfusionMatrixDegenerateRates(t *testing.T) {
	// No positives at all: sensitivity, precision and F1 are undefined
	// and reported as zero.
	cm := ConfusionMatrix{TN: 10}
	if cm.Sensitivity() != 0 || cm.Precision() != 0 || cm.F1() != 0 {
		t.Errorf("degenerate rates = (%v, %v, %v), want zeros",
			cm.Sensitivity(), cm.Precision(), cm.F1())
	}
	if cm.Specificity() != 1 {
		t.Errorf("Specificity() = %v, want 1", cm.Specificity())
	}
}

func TestComputeClosedMetricSet(t *testing.T) {
	cm := ConfusionMatrix{TP: 1, FP: 1, TN: 1, FN: 1}
	for _, metric := range []string{
		MetricAccuracy, MetricSensitivity, MetricSpecificity,
		MetricBalancedAccuracy, MetricPrecision, MetricF1,
	} {
		if _, err := cm.Compute(metric); err != nil {
			t.Errorf("Compute(%q) error = %v", metric, err)
		}
	}
	_, err := cm.Compute("log_loss")
	var verr *errors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Compute() error = %v, want ValidationError", err)
	}
}

func TestConfusionMatrixValidation(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
	}{
		{name: "empty", yTrue: nil, yPred: nil},
		{name: "length mismatch", yTrue: []float64{0, 1}, yPred: []float64{1}},
		{name: "non-binary", yTrue: []float64{0, 2}, yPred: []float64{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewConfusionMatrix(tt.yTrue, tt.yPred); err == nil {
				t.Fatal("NewConfusionMatrix() expected error")
			}
		})
	}
}

func TestROCCurveEndpoints(t *testing.T) {
	yTrue := []float64{0, 0, 1, 1}
	scores := []float64{0.1, 0.4, 0.35, 0.8}

	curve, err := ROCCurve(yTrue, scores)
	if err != nil {
		t.Fatalf("ROCCurve() error = %v", err)
	}
	first, last := curve[0], curve[len(curve)-1]
	if first.FPR != 0 || first.TPR != 0 {
		t.Errorf("curve start = (%v, %v), want (0, 0)", first.FPR, first.TPR)
	}
	if last.FPR != 1 || last.TPR != 1 {
		t.Errorf("curve end = (%v, %v), want (1, 1)", last.FPR, last.TPR)
	}
	for i := 1; i < len(curve); i++ {
		if curve[i].FPR < curve[i-1].FPR || curve[i].TPR < curve[i-1].TPR {
			t.Fatalf("curve not monotone at point %d", i)
		}
	}
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name   string
		yTrue  []float64
		scores []float64
		want   float64
	}{
		{
			name:   "perfect ranking",
			yTrue:  []float64{0, 0, 1, 1},
			scores: []float64{0.1, 0.2, 0.8, 0.9},
			want:   1.0,
		},
		{
			name:   "inverted ranking",
			yTrue:  []float64{1, 1, 0, 0},
			scores: []float64{0.1, 0.2, 0.8, 0.9},
			want:   0.0,
		},
		{
			name:   "textbook example",
			yTrue:  []float64{0, 0, 1, 1},
			scores: []float64{0.1, 0.4, 0.35, 0.8},
			want:   0.75,
		},
		{
			name:   "single class falls back to chance",
			yTrue:  []float64{1, 1, 1},
			scores: []float64{0.2, 0.5, 0.9},
			want:   0.5,
		},
		{
			name:   "all tied scores",
			yTrue:  []float64{0, 1, 0, 1},
			scores: []float64{0.5, 0.5, 0.5, 0.5},
			want:   0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.yTrue, tt.scores)
			if err != nil {
				t.Fatalf("AUC() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("AUC() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAUCSingleClassRaisesWarning(t *testing.T) {
	var captured []error
	errors.SetWarningHandler(func(w error) { captured = append(captured, w) })
	defer errors.SetWarningHandler(nil)

	got, err := AUC([]float64{1, 1, 1}, []float64{0.2, 0.5, 0.9})
	if err != nil {
		t.Fatalf("AUC() error = %v", err)
	}
	if got != 0.5 {
		t.Fatalf("AUC() = %v, want the 0.5 fallback", got)
	}
	if len(captured) != 1 {
		t.Fatalf("captured %d warnings, want 1", len(captured))
	}
	var w *errors.UndefinedMetricWarning
	if !errors.As(captured[0], &w) {
		t.Fatalf("warning = %T, want UndefinedMetricWarning", captured[0])
	}
	if w.Metric != MetricROCAUC || w.Result != 0.5 {
		t.Errorf("warning = %+v, want metric %q with result 0.5", w, MetricROCAUC)
	}
}

func TestAUCEmptyInput(t *testing.T) {
	if _, err := AUC(nil, nil); !errors.Is(err, errors.ErrEmptyData) {
		t.Fatalf("AUC(nil) error = %v, want ErrEmptyData", err)
	}
}
