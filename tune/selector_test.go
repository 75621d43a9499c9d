package tune

import (
	"math"
	"testing"

	"github.com/strandml/strand/metrics"
	"github.com/strandml/strand/pkg/errors"
)

// syntheticResult builds a 5-fold TuningResult from per-candidate AUC
// fold values, failed fold counts and complexities.
func syntheticResult(aucs [][]float64, failed []int, complexity []float64) *TuningResult {
	result := &TuningResult{K: 5}
	for i, values := range aucs {
		agg := CandidateResult{
			Candidate:  Candidate{Index: i, Params: map[string]float64{"p": float64(i)}},
			Complexity: complexity[i],
		}
		for fold, v := range values {
			agg.Folds = append(agg.Folds, FoldMetrics{
				Fold:   fold,
				Values: map[string]float64{metrics.MetricROCAUC: v},
			})
		}
		for f := 0; f < failed[i]; f++ {
			serr := &errors.SearchError{Fold: len(values) + f, Candidate: i}
			agg.Failed = append(agg.Failed, serr)
			result.Failures = append(result.Failures, serr)
		}
		result.Results = append(result.Results, agg)
	}
	result.Partial = len(result.Failures) > 0
	return result
}

func TestSelectorPicksMaximumMean(t *testing.T) {
	result := syntheticResult(
		[][]float64{
			{0.70, 0.72, 0.71, 0.69, 0.73},
			{0.80, 0.82, 0.81, 0.79, 0.83},
			{0.75, 0.77, 0.76, 0.74, 0.78},
		},
		[]int{0, 0, 0},
		[]float64{5, 9, 3},
	)

	best, err := NewSelector(metrics.MetricROCAUC).Select(result)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if best.Candidate.Index != 1 {
		t.Fatalf("Select() picked candidate %d, want 1", best.Candidate.Index)
	}
}

func TestSelectorTieBreaksByComplexityThenOrder(t *testing.T) {
	equal := []float64{0.8, 0.8, 0.8, 0.8, 0.8}

	t.Run("complexity", func(t *testing.T) {
		result := syntheticResult(
			[][]float64{equal, equal},
			[]int{0, 0},
			[]float64{12, 4},
		)
		best, err := NewSelector(metrics.MetricROCAUC).Select(result)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if best.Candidate.Index != 1 {
			t.Fatalf("Select() picked candidate %d, want the simpler candidate 1", best.Candidate.Index)
		}
	})

	t.Run("order", func(t *testing.T) {
		result := syntheticResult(
			[][]float64{equal, equal},
			[]int{0, 0},
			[]float64{math.NaN(), math.NaN()},
		)
		best, err := NewSelector(metrics.MetricROCAUC).Select(result)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if best.Candidate.Index != 0 {
			t.Fatalf("Select() picked candidate %d, want first-encountered 0", best.Candidate.Index)
		}
	})
}

func TestSelectorSkipsIneligibleCandidates(t *testing.T) {
	// Candidate 1 has the best mean but 3 of 5 folds failed.
	result := syntheticResult(
		[][]float64{
			{0.70, 0.71, 0.72, 0.70, 0.71},
			{0.99, 0.98},
		},
		[]int{0, 3},
		[]float64{5, 5},
	)

	best, err := NewSelector(metrics.MetricROCAUC).Select(result)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if best.Candidate.Index != 0 {
		t.Fatalf("Select() picked candidate %d, want eligible candidate 0", best.Candidate.Index)
	}
}

func TestSelectorNoEligibleCandidates(t *testing.T) {
	result := syntheticResult(
		[][]float64{{}, {}},
		[]int{5, 5},
		[]float64{math.NaN(), math.NaN()},
	)

	_, err := NewSelector(metrics.MetricROCAUC).Select(result)
	var serr *errors.SelectionError
	if !errors.As(err, &serr) {
		t.Fatalf("Select() error = %v, want SelectionError", err)
	}
	if serr.Candidates != 2 || serr.Eligible != 0 {
		t.Errorf("SelectionError counts = (%d, %d), want (2, 0)", serr.Candidates, serr.Eligible)
	}
}

func TestSelectorTopN(t *testing.T) {
	result := syntheticResult(
		[][]float64{
			{0.70, 0.70, 0.70, 0.70, 0.70},
			{0.90, 0.90, 0.90, 0.90, 0.90},
			{0.80, 0.80, 0.80, 0.80, 0.80},
		},
		[]int{0, 0, 0},
		[]float64{1, 1, 1},
	)

	top, err := NewSelector(metrics.MetricROCAUC).TopN(result, 2)
	if err != nil {
		t.Fatalf("TopN() error = %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("len(TopN) = %d, want 2", len(top))
	}
	if top[0].Candidate.Index != 1 || top[1].Candidate.Index != 2 {
		t.Errorf("TopN order = (%d, %d), want (1, 2)", top[0].Candidate.Index, top[1].Candidate.Index)
	}

	all, err := NewSelector(metrics.MetricROCAUC).TopN(result, 10)
	if err != nil {
		t.Fatalf("TopN() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(TopN) = %d, want every eligible candidate", len(all))
	}
}

func TestCandidateResultAggregates(t *testing.T) {
	r := CandidateResult{
		Folds: []FoldMetrics{
			{Fold: 0, Values: map[string]float64{"accuracy": 0.8}},
			{Fold: 1, Values: map[string]float64{"accuracy": 0.9}},
			{Fold: 2, Values: map[string]float64{"accuracy": 1.0}},
		},
	}
	if got := r.Mean("accuracy"); math.Abs(got-0.9) > 1e-12 {
		t.Errorf("Mean() = %v, want 0.9", got)
	}
	// Sample sd is 0.1, so the standard error is 0.1/sqrt(3).
	if got, want := r.StdErr("accuracy"), 0.1/math.Sqrt(3); math.Abs(got-want) > 1e-12 {
		t.Errorf("StdErr() = %v, want %v", got, want)
	}
	if !math.IsNaN(r.Mean("roc_auc")) {
		t.Error("Mean() of an absent metric should be NaN")
	}
	if r.Partial() {
		t.Error("Partial() = true without failures")
	}
}
