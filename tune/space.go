// Package tune implements the hyperparameter search: grid construction
// over a model's declared parameter space, parallel fold-by-candidate
// evaluation on a worker pool, per-candidate aggregation, and selection
// of the winning candidate.
package tune

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/strandml/strand/core/model"
	"github.com/strandml/strand/pkg/errors"
)

// Candidate is one concrete hyperparameter assignment. Index is the
// candidate's position in construction order and identifies it in
// results and error provenance.
type Candidate struct {
	Index  int
	Params map[string]float64
}

// String renders the assignment in parameter declaration order when
// possible, for logs and tables.
func (c Candidate) String() string {
	if len(c.Params) == 0 {
		return "{}"
	}
	names := make([]string, 0, len(c.Params))
	for name := range c.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%g", name, c.Params[name])
	}
	b.WriteByte('}')
	return b.String()
}

// GridRegular builds the full Cartesian product over the parameter
// definitions, discretizing each range into the given number of levels.
// Log-scaled parameters are spaced geometrically, integer parameters are
// rounded and deduplicated. An empty definition list yields the single
// empty candidate, which is how untunable models run through the search.
func GridRegular(defs []model.ParamDef, levels int) ([]Candidate, error) {
	if levels < 1 {
		return nil, errors.NewValidationError("levels", "grid needs at least one level", levels)
	}
	if len(defs) == 0 {
		return []Candidate{{Index: 0, Params: map[string]float64{}}}, nil
	}

	values := make([][]float64, len(defs))
	for i, def := range defs {
		v, err := discretize(def, levels)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	var out []Candidate
	assignment := make([]float64, len(defs))
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(defs) {
			params := make(map[string]float64, len(defs))
			for i, def := range defs {
				params[def.Name] = assignment[i]
			}
			out = append(out, Candidate{Index: len(out), Params: params})
			return
		}
		for _, v := range values[depth] {
			assignment[depth] = v
			walk(depth + 1)
		}
	}
	walk(0)
	return out, nil
}

// discretize spreads levels values across a parameter's range.
func discretize(def model.ParamDef, levels int) ([]float64, error) {
	if def.Min > def.Max {
		return nil, errors.NewValidationError(def.Name, "empty parameter range", def.Min)
	}
	if def.Log && def.Min <= 0 {
		return nil, errors.NewValidationError(def.Name, "log-scaled range must be positive", def.Min)
	}

	raw := make([]float64, 0, levels)
	if levels == 1 {
		raw = append(raw, def.Min)
	} else {
		for i := 0; i < levels; i++ {
			t := float64(i) / float64(levels-1)
			raw = append(raw, interpolate(def, t))
		}
	}

	if !def.Integer {
		return raw, nil
	}
	out := raw[:0]
	var prev float64
	for i, v := range raw {
		v = math.Round(v)
		if i > 0 && v == prev {
			continue
		}
		out = append(out, v)
		prev = v
	}
	return out, nil
}

// interpolate maps t in [0,1] into the parameter's range on its scale.
func interpolate(def model.ParamDef, t float64) float64 {
	if def.Log {
		return math.Exp(math.Log(def.Min) + t*(math.Log(def.Max)-math.Log(def.Min)))
	}
	return def.Min + t*(def.Max-def.Min)
}

// GridMaxEntropy builds a fixed-size space-filling sample of assignments:
// a seeded random pool in the unit hypercube is thinned greedily so the
// kept points maximise their minimum pairwise distance, then mapped onto
// the parameter ranges. Used when the Cartesian product would be
// combinatorially expensive.
func GridMaxEntropy(defs []model.ParamDef, size int, seed uint64) ([]Candidate, error) {
	if size < 1 {
		return nil, errors.NewValidationError("size", "sample needs at least one candidate", size)
	}
	if len(defs) == 0 {
		return []Candidate{{Index: 0, Params: map[string]float64{}}}, nil
	}
	for _, def := range defs {
		if def.Min > def.Max {
			return nil, errors.NewValidationError(def.Name, "empty parameter range", def.Min)
		}
		if def.Log && def.Min <= 0 {
			return nil, errors.NewValidationError(def.Name, "log-scaled range must be positive", def.Min)
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed))

	// Candidate pool in the unit hypercube, oversampled tenfold.
	poolSize := 10 * size
	pool := make([][]float64, poolSize)
	for i := range pool {
		point := make([]float64, len(defs))
		for j := range point {
			point[j] = rng.Float64()
		}
		pool[i] = point
	}

	// Greedy maximin: seed with the first pool point, then repeatedly add
	// the pool point farthest from everything kept so far.
	kept := [][]float64{pool[0]}
	used := make([]bool, poolSize)
	used[0] = true
	for len(kept) < size {
		bestIdx, bestDist := -1, -1.0
		for i, point := range pool {
			if used[i] {
				continue
			}
			d := math.Inf(1)
			for _, k := range kept {
				if dd := sqDist(point, k); dd < d {
					d = dd
				}
			}
			if d > bestDist {
				bestDist, bestIdx = d, i
			}
		}
		used[bestIdx] = true
		kept = append(kept, pool[bestIdx])
	}

	out := make([]Candidate, len(kept))
	for i, point := range kept {
		params := make(map[string]float64, len(defs))
		for j, def := range defs {
			v := interpolate(def, point[j])
			if def.Integer {
				v = math.Round(v)
			}
			params[def.Name] = v
		}
		out[i] = Candidate{Index: i, Params: params}
	}
	return out, nil
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
