package recipe

import (
	"math/rand/v2"

	"github.com/strandml/strand/dataset"
	"github.com/strandml/strand/pkg/errors"
)

// expCol is one column of the expanded (date-decomposed) view, in order.
type expCol struct {
	name string
	cat  bool
}

// expandedData is the intermediate view after date decomposition: only
// numeric and categorical columns remain, in deterministic order.
type expandedData struct {
	cols    []expCol
	numeric map[string][]float64
	cats    map[string][]string
	target  []float64
	n       int
}

// expand replaces every date predictor with two derived categorical
// columns, day-of-week and month, and drops the original date column.
func expand(d *dataset.Dataset, schema dataset.Schema) (*expandedData, error) {
	out := &expandedData{
		numeric: make(map[string][]float64),
		cats:    make(map[string][]string),
		n:       d.Len(),
	}

	for _, c := range d.Columns() {
		if !contains(schema.Predictors, c.Name) {
			continue
		}
		switch c.Kind {
		case dataset.KindNumeric:
			vals, err := d.Numeric(c.Name)
			if err != nil {
				return nil, err
			}
			out.cols = append(out.cols, expCol{name: c.Name})
			out.numeric[c.Name] = vals
		case dataset.KindCategorical:
			vals, err := d.Labels(c.Name)
			if err != nil {
				return nil, err
			}
			out.cols = append(out.cols, expCol{name: c.Name, cat: true})
			out.cats[c.Name] = vals
		case dataset.KindDate:
			vals, err := d.Dates(c.Name)
			if err != nil {
				return nil, err
			}
			dow := make([]string, len(vals))
			month := make([]string, len(vals))
			for i, t := range vals {
				dow[i] = t.Weekday().String()
				month[i] = t.Month().String()
			}
			dowName := c.Name + "_dow"
			monthName := c.Name + "_month"
			out.cols = append(out.cols, expCol{name: dowName, cat: true}, expCol{name: monthName, cat: true})
			out.cats[dowName] = dow
			out.cats[monthName] = month
		default:
			return nil, errors.NewDataError("Recipe", c.Name, "unsupported column kind")
		}
	}

	target := d.Target().Values
	out.target = make([]float64, len(target))
	copy(out.target, target)

	return out, nil
}

// resample returns a view of the expanded data at the given indices,
// which may repeat.
func (e *expandedData) resample(indices []int) *expandedData {
	out := &expandedData{
		cols:    e.cols,
		numeric: make(map[string][]float64, len(e.numeric)),
		cats:    make(map[string][]string, len(e.cats)),
		n:       len(indices),
	}
	for name, vals := range e.numeric {
		picked := make([]float64, len(indices))
		for i, idx := range indices {
			picked[i] = vals[idx]
		}
		out.numeric[name] = picked
	}
	for name, vals := range e.cats {
		picked := make([]string, len(indices))
		for i, idx := range indices {
			picked[i] = vals[idx]
		}
		out.cats[name] = picked
	}
	out.target = make([]float64, len(indices))
	for i, idx := range indices {
		out.target[i] = e.target[idx]
	}
	return out
}

// minorityFraction returns the share of the rarer class in 0/1 targets.
func minorityFraction(target []float64) float64 {
	pos := 0
	for _, v := range target {
		if v == 1 {
			pos++
		}
	}
	minority := pos
	if len(target)-pos < pos {
		minority = len(target) - pos
	}
	return float64(minority) / float64(len(target))
}

// upsampleIndices returns the original record order followed by sampled
// minority-class duplicates, sized so the minority fraction moves toward
// but never beyond ratio. If the data already meets the ratio the original
// indices are returned unchanged.
func upsampleIndices(target []float64, ratio float64, rng *rand.Rand) []int {
	n := len(target)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if ratio <= 0 || ratio >= 1 {
		return indices
	}

	pos := 0
	for _, v := range target {
		if v == 1 {
			pos++
		}
	}
	minorityClass := 1.0
	minority := pos
	if n-pos < pos {
		minorityClass = 0
		minority = n - pos
	}
	// A single-class fold has nothing to duplicate.
	if minority == 0 {
		return indices
	}

	// Largest d with (minority+d)/(n+d) <= ratio.
	extra := int((ratio*float64(n) - float64(minority)) / (1 - ratio))
	if extra <= 0 {
		return indices
	}

	pool := make([]int, 0, minority)
	for i, v := range target {
		if v == minorityClass {
			pool = append(pool, i)
		}
	}
	for i := 0; i < extra; i++ {
		indices = append(indices, pool[rng.IntN(len(pool))])
	}
	return indices
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
