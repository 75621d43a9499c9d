package tune

import (
	"math"

	"github.com/strandml/strand/pkg/errors"
)

// FoldMetrics holds the validation metrics of one successful
// (fold, candidate) fit.
type FoldMetrics struct {
	Fold   int
	Values map[string]float64
}

// CandidateResult aggregates one candidate's fold evaluations.
type CandidateResult struct {
	Candidate Candidate

	// Folds holds the successful evaluations in fold order; Failed holds
	// the recorded failures. Together they cover every fold exactly once.
	Folds  []FoldMetrics
	Failed []*errors.SearchError

	// Complexity is the mean fitted model complexity over successful
	// folds, when the model family reports one. NaN otherwise.
	Complexity float64
}

// Mean returns the unweighted average of a metric over successful folds.
// NaN when every fold failed or the metric was never computed.
func (r *CandidateResult) Mean(metric string) float64 {
	sum, n := 0.0, 0
	for _, f := range r.Folds {
		if v, ok := f.Values[metric]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// StdErr returns the standard error of a metric's fold mean: the sample
// standard deviation over folds divided by sqrt of the fold count. Zero
// with fewer than two successful folds.
func (r *CandidateResult) StdErr(metric string) float64 {
	mean := r.Mean(metric)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum, n := 0.0, 0
	for _, f := range r.Folds {
		if v, ok := f.Values[metric]; ok {
			d := v - mean
			sum += d * d
			n++
		}
	}
	if n < 2 {
		return 0
	}
	return math.Sqrt(sum/float64(n-1)) / math.Sqrt(float64(n))
}

// Partial reports whether any fold failed for this candidate.
func (r *CandidateResult) Partial() bool { return len(r.Failed) > 0 }

// Eligible reports whether the candidate may be selected: at least one
// fold succeeded and no more than half of the k folds failed.
func (r *CandidateResult) Eligible(k int) bool {
	return len(r.Folds) > 0 && len(r.Failed) <= k/2
}

// TuningResult is the aggregated outcome of a search: one CandidateResult
// per candidate, in candidate order.
type TuningResult struct {
	K       int
	Results []CandidateResult

	// Partial is set when any (fold, candidate) pair failed anywhere in
	// the search. Failures carries the full provenance.
	Partial  bool
	Failures []*errors.SearchError
}

// Eligible returns the candidates that may be selected, in order.
func (t *TuningResult) Eligible() []*CandidateResult {
	var out []*CandidateResult
	for i := range t.Results {
		if t.Results[i].Eligible(t.K) {
			out = append(out, &t.Results[i])
		}
	}
	return out
}
