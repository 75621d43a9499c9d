// Package metrics computes binary classification metrics: the confusion
// matrix with its derived rates, ROC curves and the area under them.
// Labels are 0/1 with 1 the positive class throughout.
package metrics

import (
	"math"
	"sort"

	"github.com/strandml/strand/pkg/errors"
)

// ConfusionMatrix holds the four cells of a binary confusion matrix.
type ConfusionMatrix struct {
	TP, FP, TN, FN int
}

// NewConfusionMatrix tallies predictions against truth. Both slices must
// be 0/1 labels of equal length.
func NewConfusionMatrix(yTrue, yPred []float64) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	if len(yTrue) == 0 {
		return cm, errors.Wrap(errors.ErrEmptyData, "metrics.NewConfusionMatrix")
	}
	if len(yTrue) != len(yPred) {
		return cm, errors.NewDimensionError("metrics.NewConfusionMatrix", len(yTrue), len(yPred), 0)
	}
	for i := range yTrue {
		if !isLabel(yTrue[i]) || !isLabel(yPred[i]) {
			return cm, errors.NewValidationError("labels", "labels must be 0 or 1", yTrue[i])
		}
		switch {
		case yTrue[i] == 1 && yPred[i] == 1:
			cm.TP++
		case yTrue[i] == 0 && yPred[i] == 1:
			cm.FP++
		case yTrue[i] == 0 && yPred[i] == 0:
			cm.TN++
		default:
			cm.FN++
		}
	}
	return cm, nil
}

func isLabel(v float64) bool { return v == 0 || v == 1 }

// Total returns the number of records tallied.
func (cm ConfusionMatrix) Total() int { return cm.TP + cm.FP + cm.TN + cm.FN }

// Accuracy is the fraction of correct predictions.
func (cm ConfusionMatrix) Accuracy() float64 {
	return ratio(cm.TP+cm.TN, cm.Total())
}

// Sensitivity is the true-positive rate, TP / (TP + FN). Zero when no
// positives exist.
func (cm ConfusionMatrix) Sensitivity() float64 {
	return ratio(cm.TP, cm.TP+cm.FN)
}

// Specificity is the true-negative rate, TN / (TN + FP). Zero when no
// negatives exist.
func (cm ConfusionMatrix) Specificity() float64 {
	return ratio(cm.TN, cm.TN+cm.FP)
}

// BalancedAccuracy is the mean of sensitivity and specificity.
func (cm ConfusionMatrix) BalancedAccuracy() float64 {
	return (cm.Sensitivity() + cm.Specificity()) / 2
}

// Precision is TP / (TP + FP). Zero when nothing was predicted positive.
func (cm ConfusionMatrix) Precision() float64 {
	return ratio(cm.TP, cm.TP+cm.FP)
}

// F1 is the harmonic mean of precision and sensitivity.
func (cm ConfusionMatrix) F1() float64 {
	p, r := cm.Precision(), cm.Sensitivity()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// ratio divides with a zero denominator mapping to zero, matching the
// usual undefined-metric convention.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Compute returns the named metric value. The metric set is closed.
func (cm ConfusionMatrix) Compute(metric string) (float64, error) {
	switch metric {
	case MetricAccuracy:
		return cm.Accuracy(), nil
	case MetricSensitivity:
		return cm.Sensitivity(), nil
	case MetricSpecificity:
		return cm.Specificity(), nil
	case MetricBalancedAccuracy:
		return cm.BalancedAccuracy(), nil
	case MetricPrecision:
		return cm.Precision(), nil
	case MetricF1:
		return cm.F1(), nil
	default:
		return 0, errors.NewValidationError("metric", "unknown metric", metric)
	}
}

// Metric names accepted by Compute and by the tuning objective.
const (
	MetricAccuracy         = "accuracy"
	MetricSensitivity      = "sensitivity"
	MetricSpecificity      = "specificity"
	MetricBalancedAccuracy = "balanced_accuracy"
	MetricPrecision        = "precision"
	MetricF1               = "f1"
	MetricROCAUC           = "roc_auc"
)

// ROCPoint is one operating point of a ROC curve.
type ROCPoint struct {
	Threshold float64
	FPR       float64
	TPR       float64
}

// ROCCurve sweeps the decision threshold over the distinct scores in
// descending order and returns the (FPR, TPR) path from (0,0) to (1,1).
func ROCCurve(yTrue, scores []float64) ([]ROCPoint, error) {
	if len(yTrue) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "metrics.ROCCurve")
	}
	if len(yTrue) != len(scores) {
		return nil, errors.NewDimensionError("metrics.ROCCurve", len(yTrue), len(scores), 0)
	}

	pos, neg := 0, 0
	for _, v := range yTrue {
		if !isLabel(v) {
			return nil, errors.NewValidationError("labels", "labels must be 0 or 1", v)
		}
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	points := []ROCPoint{{Threshold: math.Inf(1), FPR: 0, TPR: 0}}
	tp, fp := 0, 0
	for i := 0; i < len(order); i++ {
		idx := order[i]
		if yTrue[idx] == 1 {
			tp++
		} else {
			fp++
		}
		// Emit a point only after the last record of a tied score group.
		if i+1 < len(order) && scores[order[i+1]] == scores[idx] {
			continue
		}
		points = append(points, ROCPoint{
			Threshold: scores[idx],
			FPR:       safeDiv(fp, neg),
			TPR:       safeDiv(tp, pos),
		})
	}
	return points, nil
}

func safeDiv(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// AUC computes the area under the ROC curve by the trapezoidal rule.
// When only one class is present the curve is undefined; an
// UndefinedMetricWarning is raised and the chance value 0.5 returned.
func AUC(yTrue, scores []float64) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "metrics.AUC")
	}
	pos := 0
	for _, v := range yTrue {
		if v == 1 {
			pos++
		}
	}
	if pos == 0 || pos == len(yTrue) {
		errors.Warn(errors.NewUndefinedMetricWarning(MetricROCAUC,
			"only one class present in the truth labels", 0.5))
		return 0.5, nil
	}

	curve, err := ROCCurve(yTrue, scores)
	if err != nil {
		return 0, err
	}
	area := 0.0
	for i := 1; i < len(curve); i++ {
		area += (curve[i].FPR - curve[i-1].FPR) * (curve[i].TPR + curve[i-1].TPR) / 2
	}
	return area, nil
}
