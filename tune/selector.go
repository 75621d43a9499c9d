package tune

import (
	"math"
	"sort"

	"github.com/strandml/strand/pkg/errors"
)

// Selector picks the winning candidate from a TuningResult by mean value
// of a target metric. Ties go to the lower mean complexity when both
// candidates report one, then to construction order.
type Selector struct {
	metric string
}

// NewSelector creates a Selector for the given target metric name.
func NewSelector(metric string) *Selector {
	return &Selector{metric: metric}
}

// Metric returns the target metric name.
func (s *Selector) Metric() string { return s.metric }

// Select returns the eligible candidate with the best mean target metric.
// A SelectionError is returned when no candidate is eligible.
func (s *Selector) Select(result *TuningResult) (*CandidateResult, error) {
	ranked, err := s.rank(result)
	if err != nil {
		return nil, err
	}
	return ranked[0], nil
}

// TopN returns the best n eligible candidates in rank order. Fewer are
// returned when fewer are eligible.
func (s *Selector) TopN(result *TuningResult, n int) ([]*CandidateResult, error) {
	if n < 1 {
		return nil, errors.NewValidationError("n", "top-n needs a positive count", n)
	}
	ranked, err := s.rank(result)
	if err != nil {
		return nil, err
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n], nil
}

func (s *Selector) rank(result *TuningResult) ([]*CandidateResult, error) {
	eligible := result.Eligible()
	if len(eligible) == 0 {
		return nil, errors.NewSelectionError(s.metric, len(result.Results), 0)
	}
	for _, r := range eligible {
		if math.IsNaN(r.Mean(s.metric)) {
			return nil, errors.NewValidationError("metric", "metric absent from tuning result", s.metric)
		}
	}

	ranked := append([]*CandidateResult(nil), eligible...)
	sort.SliceStable(ranked, func(a, b int) bool {
		return s.better(ranked[a], ranked[b])
	})
	return ranked, nil
}

// better orders a before b: higher mean metric first, then lower
// complexity, then earlier candidate index.
func (s *Selector) better(a, b *CandidateResult) bool {
	ma, mb := a.Mean(s.metric), b.Mean(s.metric)
	if ma != mb {
		return ma > mb
	}
	ca, cb := a.Complexity, b.Complexity
	if !math.IsNaN(ca) && !math.IsNaN(cb) && ca != cb {
		return ca < cb
	}
	return a.Candidate.Index < b.Candidate.Index
}
