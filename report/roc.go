package report

import (
	"fmt"

	"github.com/strandml/strand/metrics"
	"github.com/strandml/strand/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ROCPlot builds the ROC curve figure with the chance diagonal for
// reference. The caller saves it with SaveROC or plot.Plot.Save.
func ROCPlot(roc []metrics.ROCPoint, auc float64) (*plot.Plot, error) {
	if len(roc) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "report.ROCPlot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("ROC curve (AUC = %.3f)", auc)
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	curve := make(plotter.XYs, len(roc))
	for i, pt := range roc {
		curve[i].X = pt.FPR
		curve[i].Y = pt.TPR
	}
	line, err := plotter.NewLine(curve)
	if err != nil {
		return nil, errors.Wrap(err, "report.ROCPlot")
	}
	p.Add(line)

	diagonal, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return nil, errors.Wrap(err, "report.ROCPlot")
	}
	diagonal.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diagonal)

	return p, nil
}

// SaveROC renders the ROC curve to an image file; the format follows the
// path's extension.
func SaveROC(path string, roc []metrics.ROCPoint, auc float64) error {
	p, err := ROCPlot(roc, auc)
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrap(err, "report.SaveROC")
	}
	return nil
}
