package recipe

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/strandml/strand/dataset"
)

func trainingData(t *testing.T) *dataset.Dataset {
	t.Helper()
	n := 40
	target := make([]float64, n)
	age := make([]float64, n)
	care := make([]string, n)
	admit := make([]time.Time, n)
	constant := make([]float64, n)
	base := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		if i%4 == 0 { // 25% positive
			target[i] = 1
		}
		age[i] = float64(30 + i)
		if i%3 == 0 {
			care[i] = "Yes"
		} else {
			care[i] = "No"
		}
		admit[i] = base.AddDate(0, 0, i*3)
		constant[i] = 7 // zero variance, must be filtered
	}

	d, err := dataset.New(
		dataset.Target{Name: "stranded_label", Negative: "Not Stranded", Positive: "Stranded", Values: target},
		dataset.ColumnData{Column: dataset.Column{Name: "age", Kind: dataset.KindNumeric}, Numeric: age},
		dataset.ColumnData{Column: dataset.Column{Name: "constant", Kind: dataset.KindNumeric}, Numeric: constant},
		dataset.ColumnData{Column: dataset.Column{Name: "care_home_referral", Kind: dataset.KindCategorical}, Labels: care},
		dataset.ColumnData{Column: dataset.Column{Name: "admit_date", Kind: dataset.KindDate}, Dates: admit},
	)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return d
}

func TestFitApplyShapes(t *testing.T) {
	train := trainingData(t)
	prep, err := New(dataset.DefaultSchema(train)).Fit(train)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	tbl, err := prep.Apply(train)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if tbl.Len() != train.Len() {
		t.Errorf("Apply changed row count: %d -> %d", train.Len(), tbl.Len())
	}

	names := prep.FeatureNames()
	if len(names) != tbl.NumFeatures() {
		t.Fatalf("names/features mismatch: %d vs %d", len(names), tbl.NumFeatures())
	}
	for _, name := range names {
		switch name {
		case "constant":
			t.Error("zero-variance column survived the filter")
		case "admit_date":
			t.Error("raw date column survived decomposition")
		}
	}

	// Date decomposition must contribute dummy columns.
	foundDow, foundMonth := false, false
	for _, name := range names {
		if strings.HasPrefix(name, "admit_date_dow_") {
			foundDow = true
		}
		if strings.HasPrefix(name, "admit_date_month_") {
			foundMonth = true
		}
	}
	if !foundDow || !foundMonth {
		t.Errorf("missing date-derived columns in %v", names)
	}
}

func TestApplyIsDeterministicAndLeakFree(t *testing.T) {
	train := trainingData(t)
	prep, err := New(dataset.DefaultSchema(train)).Fit(train)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	holdout, err := train.Subset([]int{1, 5, 9, 13, 17})
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}

	a, err := prep.Apply(holdout)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	b, err := prep.Apply(holdout)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if a.Len() != holdout.Len() {
		t.Errorf("holdout row count changed: %d -> %d", holdout.Len(), a.Len())
	}
	r, c := a.X.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if a.X.At(i, j) != b.X.At(i, j) {
				t.Fatalf("apply not deterministic at (%d,%d)", i, j)
			}
		}
	}
}

func TestNormalisationUsesTrainingStatistics(t *testing.T) {
	train := trainingData(t)
	prep, err := New(dataset.DefaultSchema(train)).Fit(train)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	tbl, err := prep.Apply(train)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// The age column was centred and scaled on this data, so its mean is 0
	// and standard deviation 1 (up to float error).
	ageCol := -1
	for j, name := range tbl.Names {
		if name == "age" {
			ageCol = j
		}
	}
	if ageCol < 0 {
		t.Fatal("age column missing")
	}
	sum, sumSq := 0.0, 0.0
	for i := 0; i < tbl.Len(); i++ {
		v := tbl.X.At(i, ageCol)
		sum += v
		sumSq += v * v
	}
	n := float64(tbl.Len())
	mean := sum / n
	if math.Abs(mean) > 1e-9 {
		t.Errorf("training mean = %g, want 0", mean)
	}
	variance := sumSq/n - mean*mean
	// columnStats uses the sample standard deviation, so the population
	// variance of the scaled column is (n-1)/n.
	if math.Abs(variance-(n-1)/n) > 1e-9 {
		t.Errorf("training variance = %g, want %g", variance, (n-1)/n)
	}
}

func TestUpsamplingBoundsAndScope(t *testing.T) {
	train := trainingData(t) // 25% positive minority
	prep, err := New(dataset.DefaultSchema(train), WithUpsampling(), WithSeed(9)).Fit(train)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if prep.UpsampleRatio() != 0.25 {
		t.Fatalf("captured ratio = %v, want 0.25", prep.UpsampleRatio())
	}

	// A fold with a thinner minority gets topped up toward, but not past,
	// the captured ratio.
	foldIdx := []int{0, 1, 2, 3, 5, 6, 7, 9, 10, 11, 13, 14, 15, 17, 18, 19, 21, 22, 23, 25}
	fold, err := train.Subset(foldIdx)
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	negBefore, posBefore := fold.ClassCounts()
	if posBefore >= negBefore {
		t.Fatal("fixture should have a positive minority")
	}

	tbl, err := prep.ApplyTraining(fold, 3)
	if err != nil {
		t.Fatalf("ApplyTraining: %v", err)
	}
	pos := 0
	for _, v := range tbl.Y {
		if v == 1 {
			pos++
		}
	}
	if pos <= posBefore {
		t.Errorf("minority count %d did not increase from %d", pos, posBefore)
	}
	frac := float64(pos) / float64(len(tbl.Y))
	if frac > 0.25+1e-12 {
		t.Errorf("minority fraction %v exceeds target 0.25", frac)
	}

	// Validation data must keep its class counts untouched.
	val, err := prep.Apply(fold)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(val.Y) != fold.Len() {
		t.Errorf("validation row count changed: %d -> %d", fold.Len(), len(val.Y))
	}
	valPos := 0
	for _, v := range val.Y {
		if v == 1 {
			valPos++
		}
	}
	if valPos != posBefore {
		t.Errorf("validation positives = %d, want %d", valPos, posBefore)
	}
}

func TestUpsampleIndicesNoopWhenBalanced(t *testing.T) {
	target := []float64{0, 1, 0, 1}
	rng := rand.New(rand.NewPCG(1, 1))
	got := upsampleIndices(target, 0.5, rng)
	if len(got) != 4 {
		t.Errorf("balanced data was resampled: %v", got)
	}
}

func TestApplyTrainingSingleClassFold(t *testing.T) {
	train := trainingData(t)
	prep, err := New(dataset.DefaultSchema(train), WithUpsampling(), WithSeed(3)).Fit(train)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// An all-negative fold: nothing to duplicate, so the fold must pass
	// through unchanged instead of failing.
	var negatives []int
	for i := 0; i < train.Len() && len(negatives) < 9; i++ {
		if i%4 != 0 {
			negatives = append(negatives, i)
		}
	}
	fold, err := train.Subset(negatives)
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}

	tbl, err := prep.ApplyTraining(fold, 11)
	if err != nil {
		t.Fatalf("ApplyTraining: %v", err)
	}
	if tbl.Len() != len(negatives) {
		t.Errorf("single-class fold row count: %d -> %d, want unchanged", len(negatives), tbl.Len())
	}
	for _, y := range tbl.Y {
		if y != 0 {
			t.Fatalf("single-class fold gained a positive label")
		}
	}
}

func TestUpsampleIndicesSingleClass(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	for _, target := range [][]float64{
		{0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1},
	} {
		got := upsampleIndices(target, 0.25, rng)
		if len(got) != len(target) {
			t.Errorf("upsampleIndices(%v) returned %d indices, want %d unchanged", target, len(got), len(target))
		}
	}
}

func TestUnseenLevelEncodesAsZero(t *testing.T) {
	train := trainingData(t)
	schema := dataset.Schema{Target: "stranded_label", Predictors: []string{"age", "care_home_referral"}}
	prep, err := New(schema).Fit(train)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	other, err := dataset.New(
		dataset.Target{Name: "stranded_label", Negative: "Not Stranded", Positive: "Stranded", Values: []float64{0}},
		dataset.ColumnData{Column: dataset.Column{Name: "age", Kind: dataset.KindNumeric}, Numeric: []float64{55}},
		dataset.ColumnData{Column: dataset.Column{Name: "care_home_referral", Kind: dataset.KindCategorical}, Labels: []string{"Maybe"}},
	)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}

	tbl, err := prep.Apply(other)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for j, name := range tbl.Names {
		if name == "care_home_referral_Yes" {
			// Raw dummy is 0 for the unseen level; after centring it sits
			// at the same encoded position as the reference level.
			raw := tbl.X.At(0, j)*prepStd(prep, j) + prepMean(prep, j)
			if raw != 0 {
				t.Errorf("unseen level raw encoding = %v, want 0", raw)
			}
		}
	}
}

func prepMean(p *Prepared, j int) float64 { return p.mean[j] }
func prepStd(p *Prepared, j int) float64  { return p.std[j] }

func TestFitRejectsEmptyAndInvalid(t *testing.T) {
	train := trainingData(t)
	if _, err := New(dataset.DefaultSchema(train)).Fit(nil); err == nil {
		t.Error("Fit(nil) should fail")
	}

	bad := dataset.Schema{Target: "stranded_label", Predictors: []string{"nope"}}
	if _, err := New(bad).Fit(train); err == nil {
		t.Error("Fit with absent predictor should fail")
	}

	prep, err := New(dataset.DefaultSchema(train)).Fit(train)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := prep.Apply(nil); err == nil {
		t.Error("Apply(nil) should fail")
	}
}
