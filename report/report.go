// Package report renders a pipeline run for the results sink: plain-text
// confusion and tuning tables ready for a timestamped file, and the ROC
// curve as a PNG. Rendering never changes the numbers; everything here
// reads the RunReport as produced.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/strandml/strand/pipeline"
	"github.com/strandml/strand/tune"
)

// Filename builds a timestamped output filename such as
// "confusion_20260825_143005.txt".
func Filename(prefix, ext string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format("20060102_150405"), ext)
}

// WriteConfusion writes the holdout confusion matrix and its derived
// rates as a plain-text table.
func WriteConfusion(w io.Writer, h pipeline.HoldoutReport) error {
	cm := h.Confusion
	var b strings.Builder
	b.WriteString("                 predicted\n")
	b.WriteString("                 positive  negative\n")
	fmt.Fprintf(&b, "actual positive  %8d  %8d\n", cm.TP, cm.FN)
	fmt.Fprintf(&b, "actual negative  %8d  %8d\n", cm.FP, cm.TN)
	b.WriteString("\n")
	fmt.Fprintf(&b, "accuracy           %.4f\n", h.Accuracy)
	fmt.Fprintf(&b, "sensitivity        %.4f\n", h.Sensitivity)
	fmt.Fprintf(&b, "specificity        %.4f\n", h.Specificity)
	fmt.Fprintf(&b, "balanced accuracy  %.4f\n", h.BalancedAccuracy)
	fmt.Fprintf(&b, "precision          %.4f\n", h.Precision)
	fmt.Fprintf(&b, "f1                 %.4f\n", h.F1)
	fmt.Fprintf(&b, "roc auc            %.4f\n", h.AUC)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTuningTable writes the leaderboard of one model family: every
// candidate ranked by mean target metric, with its standard error, fold
// coverage and partial flag.
func WriteTuningTable(w io.Writer, family, metric string, tuning *tune.TuningResult) error {
	ranked := make([]*tune.CandidateResult, 0, len(tuning.Results))
	for i := range tuning.Results {
		ranked = append(ranked, &tuning.Results[i])
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Mean(metric) > ranked[b].Mean(metric)
	})

	var b strings.Builder
	fmt.Fprintf(&b, "family: %s  (metric: %s, %d folds)\n", family, metric, tuning.K)
	fmt.Fprintf(&b, "%-4s  %-40s  %8s  %8s  %5s  %s\n", "rank", "candidate", "mean", "stderr", "folds", "status")
	for rank, r := range ranked {
		status := "ok"
		if !r.Eligible(tuning.K) {
			status = "ineligible"
		} else if r.Partial() {
			status = "partial"
		}
		fmt.Fprintf(&b, "%-4d  %-40s  %8.4f  %8.4f  %2d/%-2d  %s\n",
			rank+1, r.Candidate.String(), r.Mean(metric), r.StdErr(metric),
			len(r.Folds), tuning.K, status)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary writes the whole run: provenance, the selected model, the
// holdout table and one tuning table per family.
func WriteSummary(w io.Writer, r *pipeline.RunReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", r.RunID)
	fmt.Fprintf(&b, "started:  %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "duration: %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "seed:     %d\n", r.Seed)
	fmt.Fprintf(&b, "rows:     %d train, %d holdout, %d features\n", r.TrainRows, r.HoldoutRows, len(r.FeatureNames))
	if r.Partial {
		fmt.Fprintf(&b, "partial:  %d (fold, candidate) pairs failed\n", len(r.Failures))
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  candidate %d fold %d: %v\n", f.Candidate, f.Fold, f.Err)
		}
	}
	fmt.Fprintf(&b, "\nselected: %s %s  (cv %s %.4f +/- %.4f)\n\n",
		r.Selected.Family, r.Selected.Candidate.String(), r.Metric, r.Selected.CVMean, r.Selected.CVStdErr)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if err := WriteConfusion(w, r.Holdout); err != nil {
		return err
	}
	for _, m := range r.Models {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := WriteTuningTable(w, m.Family, r.Metric, m.Tuning); err != nil {
			return err
		}
	}
	return nil
}
