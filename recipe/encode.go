package recipe

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// learnLevels collects the sorted level set of every categorical column in
// the fit data. With dropFirst the first level becomes the implicit
// reference and gets no dummy column, matching conventional dummy coding.
//
// At apply time a level outside the learned set encodes as an all-zero
// dummy row. That is a deliberate policy, not an accident: apply stays
// total on unseen data, and an unseen level is indistinguishable from the
// reference level.
func learnLevels(e *expandedData, dropFirst bool) map[string][]string {
	levels := make(map[string][]string, len(e.cats))
	for name, vals := range e.cats {
		seen := make(map[string]bool)
		for _, v := range vals {
			seen[v] = true
		}
		unique := make([]string, 0, len(seen))
		for v := range seen {
			unique = append(unique, v)
		}
		sort.Strings(unique)
		if dropFirst && len(unique) > 1 {
			unique = unique[1:]
		}
		levels[name] = unique
	}
	return levels
}

// rawColumnNames lists the encoded column names in deterministic order:
// predictor order, with each categorical column expanding into one dummy
// column per learned level.
func rawColumnNames(e *expandedData, levels map[string][]string) []string {
	var names []string
	for _, c := range e.cols {
		if !c.cat {
			names = append(names, c.name)
			continue
		}
		for _, level := range levels[c.name] {
			names = append(names, dummyName(c.name, level))
		}
	}
	return names
}

func dummyName(column, level string) string {
	return column + "_" + strings.ReplaceAll(level, " ", "_")
}

// encode builds the raw (pre-filter, pre-normalisation) design matrix.
func encode(e *expandedData, levels map[string][]string, names []string) *mat.Dense {
	x := mat.NewDense(e.n, len(names), nil)

	col := 0
	for _, c := range e.cols {
		if !c.cat {
			vals := e.numeric[c.name]
			for i := 0; i < e.n; i++ {
				x.Set(i, col, vals[i])
			}
			col++
			continue
		}
		vals := e.cats[c.name]
		for _, level := range levels[c.name] {
			for i := 0; i < e.n; i++ {
				if vals[i] == level {
					x.Set(i, col, 1)
				}
			}
			col++
		}
	}
	return x
}

// nonZeroVarianceMask marks the columns whose variance on the fit data is
// above zero. Constant predictors carry no signal and destabilise scaling.
func nonZeroVarianceMask(x *mat.Dense) []bool {
	rows, cols := x.Dims()
	keep := make([]bool, cols)
	for j := 0; j < cols; j++ {
		first := x.At(0, j)
		for i := 1; i < rows; i++ {
			if x.At(i, j) != first {
				keep[j] = true
				break
			}
		}
	}
	return keep
}

type filtered struct {
	names []string
	x     *mat.Dense
}

// filterColumns drops the columns masked out by the variance filter.
func filterColumns(x *mat.Dense, names []string, keep []bool) filtered {
	rows, _ := x.Dims()
	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}

	out := mat.NewDense(rows, kept, nil)
	outNames := make([]string, 0, kept)
	col := 0
	for j, k := range keep {
		if !k {
			continue
		}
		outNames = append(outNames, names[j])
		for i := 0; i < rows; i++ {
			out.Set(i, col, x.At(i, j))
		}
		col++
	}
	return filtered{names: outNames, x: out}
}

// columnStats computes the centring and scaling statistics per column.
// A near-zero standard deviation scales by 1 to avoid division blow-ups.
func columnStats(x *mat.Dense) (mean, std []float64) {
	rows, cols := x.Dims()
	mean = make([]float64, cols)
	std = make([]float64, cols)

	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		m, s := stat.MeanStdDev(col, nil)
		mean[j] = m
		if s < 1e-8 {
			s = 1
		}
		std[j] = s
	}
	return mean, std
}
